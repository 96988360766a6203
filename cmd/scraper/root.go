package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"deliveryScrapper/internal/browser"
	"deliveryScrapper/internal/logger"
	"deliveryScrapper/internal/runner"
	"deliveryScrapper/pkg/config"
	"deliveryScrapper/pkg/line"
	"deliveryScrapper/pkg/state"
	"deliveryScrapper/pkg/telegram"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type flags struct {
	configPath string
	stateDB    string
	logDir     string
	logLevel   string
	noNotify   bool
}

// app is everything a command needs after config and logging are set up
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	closer []io.Closer
}

func (a *app) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		_ = a.closer[i].Close()
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Checks a grocery delivery site for free delivery dates.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", config.DefaultPath, "YAML config file (optional)")
	pf.StringVar(&f.stateDB, "state-db", "", "SQLite file holding the run state (default: state from environment)")
	pf.StringVar(&f.logDir, "log-dir", "logs", "directory for daily log files, empty disables")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (overrides config)")
	pf.BoolVar(&f.noNotify, "no-notify", false, "disable notifications")

	root.AddCommand(newCheckCmd(f), newWatchCmd(f), newNotifyTestCmd(f))
	return root
}

func setup(f *flags) (*app, error) {
	cfg, err := config.Load(f.configPath, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if f.stateDB != "" {
		cfg.StateDB = f.stateDB
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.noNotify {
		cfg.NoNotify = true
	}

	log, closer, err := logger.New(logger.Options{Level: cfg.LogLevel, Dir: f.logDir})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, closer: []io.Closer{closer}}, nil
}

// newRunner wires the browser, the state store and the notifiers
func (a *app) newRunner(withBrowser bool) (*runner.Runner, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}

	r := &runner.Runner{
		Notifiers: a.notifiers(),
		Out:       os.Stdout,
		Log:       a.log,
		Location:  loc,
	}

	if a.cfg.StateDB != "" {
		db, err := state.Open(a.cfg.StateDB)
		if err != nil {
			return nil, err
		}
		a.closer = append(a.closer, db)
		r.Store = db
	} else {
		r.Store = runner.NewMemoryStore(config.RunStateFromEnv(os.LookupEnv, time.Now().In(loc)))
	}

	if withBrowser {
		if err := a.cfg.RequireCredentials(); err != nil {
			return nil, err
		}
		b := browser.New(a.cfg, a.log)
		a.closer = append(a.closer, closerFunc(b.Close))
		r.Scraper = b
	}
	return r, nil
}

func (a *app) notifiers() map[string]runner.Notifier {
	out := map[string]runner.Notifier{}
	if a.cfg.NoNotify {
		a.log.Info().Msg("Notifications disabled (--no-notify flag is set)")
		return out
	}

	if a.cfg.LineChannelToken != "" && a.cfg.LineUserID != "" {
		a.log.Info().
			Int("token_len", len(a.cfg.LineChannelToken)).
			Int("user_id_len", len(a.cfg.LineUserID)).
			Msg("✓ LINE credentials found")
		out["line"] = line.NewClient(a.cfg.LineChannelToken, a.cfg.LineUserID, a.cfg.BaseURL)
	}

	if a.cfg.TelegramToken != "" && a.cfg.TelegramChatID != 0 {
		tg, err := telegram.NewClient(a.cfg.TelegramToken, a.cfg.TelegramChatID, "")
		if err != nil {
			a.log.Warn().Err(err).Msg("⚠️ Telegram notifications will be disabled")
		} else {
			out["telegram"] = tg
		}
	}

	if len(out) == 0 {
		a.log.Debug().Msg("no notifier credentials set, notifications disabled")
	}
	return out
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func runCheck(ctx context.Context, f *flags) error {
	a, err := setup(f)
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.newRunner(true)
	if err != nil {
		return err
	}
	if _, err := r.Check(ctx); err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	return nil
}
