// Package cli implements storectl, the operator tool for the template store
// database: migrations, catalog seeding, order and access lookups, checkout
// settings and test tokens.
package cli

import (
	"fmt"

	"doku-template-store/internal/client"
	"doku-template-store/internal/config"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type RootOptions struct {
	Format   string // "json" | "text"
	Database config.Database
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	// flags below fall back to DATABASE_DRIVER / DATABASE_URL
	_ = env.Parse(&opts.Database)

	cmd := &cobra.Command{
		Use:   "storectl",
		Short: "Operate the DOKU template store database",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database.Driver, "db-driver", opts.Database.Driver, "database driver (sqlite|mysql)")
	cmd.PersistentFlags().StringVar(&opts.Database.URL, "db", opts.Database.URL, "database DSN or sqlite path")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewAccessCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) openDB() (*gorm.DB, func(), error) {
	db, err := client.InitDBClient(o.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeFn, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
