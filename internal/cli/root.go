// Package cli implements rentalctl, the operator command line.
package cli

import (
	"fmt"

	"filmrental/internal/config"
	"filmrental/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL string
	Verbose     bool
}

// NewRootCommand creates the rentalctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Operator tools for the equipment rental service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "override DATABASE_URL")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log SQL statements")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.DatabaseURL != "" {
		cfg.DatabaseURL = opts.DatabaseURL
	}
	if opts.Verbose {
		cfg.LogSQL = true
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DatabaseURL, cfg.LogSQL)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DatabaseURL, err)
	}
	return db, nil
}
