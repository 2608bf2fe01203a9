package cli

import (
	"fmt"
	"time"

	"filmrental/internal/app"
	"filmrental/internal/pkg/lock"

	"github.com/spf13/cobra"
)

// NewSweepCommand creates the sweep command. It is meant to run daily from cron.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var asOf string
	var purge bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel pending reservations whose end date has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if asOf != "" {
				t, err := time.Parse("2006-01-02", asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q: %w", asOf, err)
				}
				now = t
			}

			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			a := app.New(cfg, db, lock.NewLocal())
			defer a.Hub.Close()

			n, err := a.Reservations.SweepStale(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d stale reservation(s)\n", n)

			if purge {
				deleted, err := a.Notifications.Cleanup(cmd.Context(), cfg.NotificationKeep, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d read notification(s) older than %d days\n", deleted, cfg.NotificationKeep)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "treat this day (YYYY-MM-DD) as today")
	cmd.Flags().BoolVar(&purge, "purge-notifications", false, "also delete read notifications past NOTIFICATION_RETENTION_DAYS")
	return cmd
}
