package cli

import (
	"context"
	"strconv"

	"doku-template-store/internal/client"
	"doku-template-store/internal/repository"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Create or update the store tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := rootOpts.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := client.AutoMigrate(db); err != nil {
				return WrapExitError(ExitCommandError, "failed to migrate", err)
			}

			return rootOpts.formatter(cmd).Success(
				map[string]string{"driver": rootOpts.Database.Driver},
				Fields{{"migrated", rootOpts.Database.Driver}},
			)
		},
	}
}

// NewSeedCommand inserts the default catalog. Existing products are kept.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "seed",
		Short:         "Insert the default template catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			db, closeDB, err := rootOpts.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			products := repository.NewProductRepository(db)
			if err := products.Seed(ctx); err != nil {
				return WrapExitError(ExitCommandError, "failed to seed products", err)
			}

			list, err := products.ListActive(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list products", err)
			}

			fields := make(Fields, 0, len(list))
			for _, p := range list {
				fields = append(fields, [2]string{p.Slug, strconv.FormatInt(p.Price, 10) + " " + p.Currency})
			}
			return rootOpts.formatter(cmd).Success(list, fields)
		},
	}
}
