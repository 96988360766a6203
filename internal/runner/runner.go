package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"deliveryScrapper/pkg/availability"
	"deliveryScrapper/pkg/scraper"

	"github.com/rs/zerolog"
)

// Notifier tells a human about new dates
type Notifier interface {
	Notify(ctx context.Context, dates []string) error
}

// Store keeps the run state between checks
type Store interface {
	LoadOrDefault(ctx context.Context, now time.Time) (availability.RunState, error)
	Save(ctx context.Context, st availability.RunState) error
	RecordRun(ctx context.Context, ranAt time.Time, d availability.Decision) error
}

// Runner performs availability checks
type Runner struct {
	Scraper   scraper.Scraper
	Store     Store
	Notifiers map[string]Notifier
	// Out receives the result block
	Out      io.Writer
	Log      zerolog.Logger
	Location *time.Location
	Now      func() time.Time
}

func (r *Runner) now() time.Time {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	if r.Location != nil {
		now = now.In(r.Location)
	}
	return now
}

// Check runs one scrape and reconciles it with the stored state
func (r *Runner) Check(ctx context.Context) (availability.Decision, error) {
	now := r.now()

	st, err := r.Store.LoadOrDefault(ctx, now)
	if err != nil {
		return availability.Decision{}, fmt.Errorf("load state: %w", err)
	}

	tabs, err := r.Scraper.Scrape(ctx)
	if err != nil {
		return availability.Decision{}, err
	}

	d := availability.Reconcile(scraper.Collect(tabs), st, now)
	switch {
	case d.Empty():
		r.Log.Info().Msg("No available dates")
	case d.Changed:
		if _, err := fmt.Fprintln(r.Out, d.Text); err != nil {
			return d, fmt.Errorf("write result: %w", err)
		}
		r.notify(ctx, d.Lines())
	default:
		r.Log.Info().Msgf("Dates not changed - %s", d.Dates.Join(", "))
	}

	if err := r.Store.Save(ctx, st.Advance(d, now)); err != nil {
		return d, fmt.Errorf("save state: %w", err)
	}
	if err := r.Store.RecordRun(ctx, now, d); err != nil {
		r.Log.Warn().Err(err).Msg("failed to record run")
	}
	return d, nil
}

func (r *Runner) notify(ctx context.Context, dates []string) {
	if len(r.Notifiers) == 0 {
		r.Log.Debug().Msg("📱 Notification skipped (no notifiers)")
		return
	}
	for name, n := range r.Notifiers {
		if err := n.Notify(ctx, dates); err != nil {
			r.Log.Error().Err(err).Str("notifier", name).Msg("❌ Failed to send notification")
			continue
		}
		r.Log.Info().Str("notifier", name).Msg("📱 Notification sent")
	}
}

// TestNotifiers sends sample dates through every notifier
func (r *Runner) TestNotifiers(ctx context.Context) error {
	if len(r.Notifiers) == 0 {
		return errors.New("no notifiers configured")
	}
	sample := []string{"Mon 17 Jun", "Tue 18 Jun"}
	var errs []error
	for name, n := range r.Notifiers {
		if err := n.Notify(ctx, sample); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// NotifierNames lists configured notifiers, for logging
func (r *Runner) NotifierNames() string {
	names := make([]string, 0, len(r.Notifiers))
	for name := range r.Notifiers {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// MemoryStore holds the run state in memory. It serves the env-driven mode,
// where the calling scheduler persists state itself.
type MemoryStore struct {
	mu    sync.Mutex
	state availability.RunState
	runs  int
}

// NewMemoryStore starts from the given state
func NewMemoryStore(initial availability.RunState) *MemoryStore {
	return &MemoryStore{state: initial}
}

func (m *MemoryStore) LoadOrDefault(_ context.Context, _ time.Time) (availability.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) Save(_ context.Context, st availability.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
	return nil
}

func (m *MemoryStore) RecordRun(context.Context, time.Time, availability.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	return nil
}

// State returns the current state
func (m *MemoryStore) State() availability.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Runs returns how many checks were recorded
func (m *MemoryStore) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}
