package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrLogin means the booking page could not be loaded or logged into
var ErrLogin = errors.New("login failed")

// Scraper returns every date label currently offered. An empty result means
// no slots, not a failure.
type Scraper interface {
	Scrape(ctx context.Context) ([]TabResult, error)
}

// TabOutcome describes how far a week tab got
type TabOutcome int

const (
	TabOK TabOutcome = iota
	// TabPartial means a wait step timed out but the grid was still read
	TabPartial
	// TabSkipped means nothing could be read from the tab
	TabSkipped
)

func (o TabOutcome) String() string {
	switch o {
	case TabOK:
		return "ok"
	case TabPartial:
		return "partial"
	case TabSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("TabOutcome(%d)", int(o))
	}
}

// TabResult is what one week tab produced
type TabResult struct {
	Index   int
	Outcome TabOutcome
	Dates   []string
	// Errs collects the wait steps that failed
	Errs []error
}

// Err joins the recorded step errors
func (r TabResult) Err() error {
	return errors.Join(r.Errs...)
}

// Collect flattens tab results into one label sequence, in tab order
func Collect(results []TabResult) []string {
	var dates []string
	for _, r := range results {
		dates = append(dates, r.Dates...)
	}
	return dates
}

// ParseDates extracts the date labels of the available slot buttons in html.
// A button reads like "Mon 17 Jun, 08:00 - 09:00"; only the part before
// the first comma is kept.
func ParseDates(html, buttonSelector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse slot grid: %w", err)
	}

	var dates []string
	doc.Find(buttonSelector).Each(func(_ int, s *goquery.Selection) {
		label, _, _ := strings.Cut(s.Text(), ",")
		label = strings.Join(strings.Fields(label), " ")
		if label != "" {
			dates = append(dates, label)
		}
	})
	return dates, nil
}
