package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"deliveryScrapper/pkg/config"
	"deliveryScrapper/pkg/scraper"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Browser handles the Chrome automation
type Browser struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cfg         config.Config
	log         zerolog.Logger
}

var _ scraper.Scraper = (*Browser)(nil)

// New creates a new browser instance
func New(cfg config.Config, log zerolog.Logger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1200, 1800),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Headless,
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		allocCtx:    allocCtx,
		cancelAlloc: cancelAlloc,
		cfg:         cfg,
		log:         log.With().Str("component", "browser").Logger(),
	}
}

// Close closes the browser allocator
func (b *Browser) Close() {
	b.cancelAlloc()
}

// Scrape logs in and reads every week tab. Tab level failures are recorded
// in the results; only a failed login is returned as an error.
func (b *Browser) Scrape(ctx context.Context) ([]scraper.TabResult, error) {
	startTime := time.Now()

	taskCtx, cancel := chromedp.NewContext(
		b.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			msg := fmt.Sprintf(format, args...)
			if (strings.Contains(msg, "error") || strings.Contains(msg, "failed")) &&
				!strings.Contains(msg, "cookiePart") &&
				!strings.Contains(msg, "unmarshal event") {
				b.log.Debug().Msg(msg)
			}
		}),
	)
	defer cancel()

	// Stop the browser when the caller gives up
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, b.cfg.RunTimeout())
	defer cancelTimeout()

	if err := b.login(taskCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			b.log.Warn().Msg("login timed out")
		}
		return nil, fmt.Errorf("%w: %v", scraper.ErrLogin, err)
	}

	sel := b.cfg.Selectors
	tabsCtx, cancelTabs := context.WithTimeout(taskCtx, b.cfg.WaitTimeout())
	err := chromedp.Run(tabsCtx, chromedp.WaitVisible(sel.Tabs, chromedp.ByQuery))
	cancelTabs()
	if err != nil {
		b.log.Warn().Err(err).Msg("tabs were NOT found")
	}

	var count int
	if err := chromedp.Run(taskCtx,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, sel.Tabs), &count),
	); err != nil {
		b.log.Warn().Err(err).Msg("failed to count tabs")
	}

	results := make([]scraper.TabResult, 0, count)
	for i := 1; i <= count; i++ {
		if taskCtx.Err() != nil {
			break
		}
		res := b.scrapeTab(taskCtx, i)
		ev := b.log.Info()
		if res.Outcome != scraper.TabOK {
			ev = b.log.Warn().Err(res.Err())
		}
		ev.Int("tab", i).Stringer("outcome", res.Outcome).Int("dates", len(res.Dates)).Msg("tab checked")
		results = append(results, res)
	}

	b.log.Info().
		Int("tabs", len(results)).
		Float64("seconds", time.Since(startTime).Seconds()).
		Msg("scrape finished")
	return results, nil
}

func (b *Browser) login(ctx context.Context) error {
	sel := b.cfg.Selectors
	return chromedp.Run(ctx,
		chromedp.Navigate(b.cfg.BaseURL),
		chromedp.WaitVisible(sel.Email, chromedp.ByQuery),
		chromedp.SendKeys(sel.Email, b.cfg.Email, chromedp.ByQuery),
		chromedp.SendKeys(sel.Password, b.cfg.Password, chromedp.ByQuery),
		chromedp.Click(sel.Submit, chromedp.ByQuery),
	)
}

func (b *Browser) scrapeTab(ctx context.Context, i int) scraper.TabResult {
	sel := b.cfg.Selectors
	res := scraper.TabResult{Index: i, Outcome: scraper.TabOK}
	tab := fmt.Sprintf("%s:nth-of-type(%d)", sel.Tabs, i)

	if err := chromedp.Run(ctx,
		chromedp.Sleep(b.cfg.TabDelay()),
		chromedp.Click(tab+" "+sel.TabLink, chromedp.ByQuery),
	); err != nil {
		res.Outcome = scraper.TabSkipped
		res.Errs = append(res.Errs, fmt.Errorf("click tab: %w", err))
		return res
	}

	if err := b.wait(ctx, sel.SpinnerDone, b.cfg.WaitTimeout()); err != nil {
		res.Outcome = scraper.TabPartial
		res.Errs = append(res.Errs, fmt.Errorf("spinner still open: %w", err))
	}
	if err := b.wait(ctx, tab+".active", b.cfg.WaitTimeout()); err != nil {
		res.Outcome = scraper.TabPartial
		res.Errs = append(res.Errs, fmt.Errorf("tab %d NOT activated: %w", i, err))
	}
	// An empty week has no grid
	_ = b.wait(ctx, sel.Grid, b.cfg.GridTimeout())

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML(sel.Container, &html, chromedp.ByQuery)); err != nil {
		res.Outcome = scraper.TabSkipped
		res.Errs = append(res.Errs, fmt.Errorf("read slot grid: %w", err))
		return res
	}

	dates, err := scraper.ParseDates(html, sel.DateButton)
	if err != nil {
		res.Outcome = scraper.TabSkipped
		res.Errs = append(res.Errs, err)
		return res
	}
	res.Dates = dates

	if len(dates) > 0 && b.cfg.ScreenshotPath != "" {
		if err := b.screenshot(ctx); err != nil {
			b.log.Warn().Err(err).Int("tab", i).Msg("screenshot failed")
		}
	}
	return res
}

func (b *Browser) wait(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (b *Browser) screenshot(ctx context.Context) error {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.Screenshot(b.cfg.Selectors.Container, &buf, chromedp.ByQuery)); err != nil {
		return err
	}
	// Fix G306: screenshots may show account details
	return os.WriteFile(b.cfg.ScreenshotPath+".png", buf, 0600)
}
