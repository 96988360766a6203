package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

const lineAPIURL = "https://api.line.me"

// ErrIncomplete means the token or user ID is missing
var ErrIncomplete = errors.New("LINE configuration is incomplete")

// Client handles LINE notifications
type Client struct {
	http     *resty.Client
	userID   string
	bookURL  string
	hasToken bool
}

// Option tweaks a Client
type Option func(*Client)

// WithBaseURL points the client at another API host
func WithBaseURL(url string) Option {
	return func(c *Client) { c.http.SetBaseURL(url) }
}

// NewClient creates a new LINE client. bookURL is linked from the message.
func NewClient(channelToken, userID, bookURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(lineAPIURL).
			SetAuthToken(channelToken).
			SetHeader("Content-Type", "application/json"),
		userID:   userID,
		bookURL:  bookURL,
		hasToken: channelToken != "",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message represents a LINE message
type Message struct {
	To       string        `json:"to"`
	Messages []LineContent `json:"messages"`
}

// LineContent represents the content of a LINE message
type LineContent struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	AltText  string      `json:"altText,omitempty"`
	Contents interface{} `json:"contents,omitempty"`
}

// Notify sends a notification about available delivery dates
func (c *Client) Notify(ctx context.Context, dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	return c.sendMessage(ctx, Message{
		To:       c.userID,
		Messages: []LineContent{c.createFlexMessage(dates)},
	})
}

func (c *Client) sendMessage(ctx context.Context, payload Message) error {
	if !c.hasToken || c.userID == "" {
		return ErrIncomplete
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/v2/bot/message/push")
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("message failed with status: %d", resp.StatusCode())
	}
	return nil
}

func (c *Client) createFlexMessage(dates []string) LineContent {
	boxes := make([]interface{}, 0, len(dates)+1)
	for _, d := range dates {
		boxes = append(boxes, map[string]interface{}{
			"type":   "text",
			"text":   "📅 " + d,
			"size":   "md",
			"weight": "bold",
			"color":  "#00539F",
		})
	}

	if c.bookURL != "" {
		boxes = append(boxes, map[string]interface{}{
			"type":   "box",
			"layout": "vertical",
			"contents": []interface{}{
				map[string]interface{}{
					"type":  "button",
					"style": "primary",
					"action": map[string]interface{}{
						"type":  "uri",
						"label": "Book a slot",
						"uri":   c.bookURL,
					},
					"color": "#00539F",
				},
			},
			"margin": "md",
		})
	}

	return LineContent{
		Type:    "flex",
		AltText: fmt.Sprintf("Delivery dates available (%d)", len(dates)),
		Contents: map[string]interface{}{
			"type": "bubble",
			"header": map[string]interface{}{
				"type":   "box",
				"layout": "vertical",
				"contents": []interface{}{
					map[string]interface{}{
						"type":   "text",
						"text":   "🛒 Delivery slots found!",
						"size":   "xl",
						"weight": "bold",
						"color":  "#00539F",
					},
				},
			},
			"body": map[string]interface{}{
				"type":     "box",
				"layout":   "vertical",
				"contents": boxes,
				"spacing":  "md",
			},
		},
	}
}
