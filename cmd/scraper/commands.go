package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Scrapes once and prints the delivery dates worth notifying about.",
		Long: `Scrapes once and prints the delivery dates worth notifying about.

Without --state-db the previous run is read from PREVIOUS_DATES,
LAST_FOUND_DATES_TIMESTAMP and LAST_NOT_FOUND_DATES_TIMESTAMP and the
calling scheduler is expected to persist the printed result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), f)
		},
	}
}

func newWatchCmd(f *flags) *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch [--schedule <cron spec>]",
		Short: "Checks on a cron schedule until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(f)
			if err != nil {
				return err
			}
			defer a.Close()

			if schedule == "" {
				schedule = a.cfg.Schedule
			}
			r, err := a.newRunner(true)
			if err != nil {
				return err
			}
			a.log.Info().Str("notifiers", r.NotifierNames()).Msg("Scraper started - press Ctrl+C to stop")
			return r.Watch(cmd.Context(), schedule)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron spec (overrides config)")
	return cmd
}

func newNotifyTestCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Sends sample dates through every configured notifier.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(f)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.newRunner(false)
			if err != nil {
				return err
			}
			a.log.Info().Msg("🧪 Testing notification system with sample data...")
			if err := r.TestNotifiers(cmd.Context()); err != nil {
				return err
			}
			a.log.Info().Msg("✓ Test notification sent successfully")
			return nil
		},
	}
}
