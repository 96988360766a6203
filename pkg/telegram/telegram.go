package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client sends delivery date notifications to one Telegram chat
type Client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient connects to the Bot API. endpoint may be empty for the public API.
func NewClient(token string, chatID int64, endpoint string) (*Client, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Client{bot: bot, chatID: chatID}, nil
}

// Notify posts the dates as a plain text message
func (c *Client) Notify(ctx context.Context, dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(c.chatID, FormatMessage(dates))
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatMessage renders the notification text
func FormatMessage(dates []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 Delivery slots found (%d):\n", len(dates))
	for _, d := range dates {
		b.WriteString("📅 ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
