package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deliveryScrapper/pkg/scraper"

	"github.com/robfig/cron/v3"
)

// Watch checks once immediately, then on every tick of the cron schedule,
// until ctx is done. Overlapping runs are skipped.
func (r *Runner) Watch(ctx context.Context, schedule string) error {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&r.Log))),
	)

	check := func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.Check(ctx); err != nil {
			ev := r.Log.Error().Err(err)
			if errors.Is(err, scraper.ErrLogin) {
				ev = ev.Bool("login", true)
			}
			ev.Msg("Error during check")
		}
	}

	id, err := c.AddFunc(schedule, check)
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	check()
	c.Start()
	r.Log.Info().Str("schedule", schedule).Time("next", c.Entry(id).Schedule.Next(r.now())).Msg("✓ Watching for delivery slots")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
