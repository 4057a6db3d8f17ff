package cli

import (
	"context"
	"errors"

	"doku-template-store/internal/repository"

	"github.com/spf13/cobra"
)

type AccessOptions struct {
	*RootOptions
	Email string
	Slug  string
}

func NewAccessCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Inspect access grants",
	}
	cmd.AddCommand(newAccessCheckCommand(rootOpts))
	return cmd
}

func newAccessCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a buyer has active access to a product",
		Long: `Report whether a buyer has active access to a product.

Exits with status 1 when there is no active grant.

Examples:
  storectl access check --email buyer@example.com --product portfolio-pro`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccessCheck(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "buyer email (required)")
	_ = cmd.MarkFlagRequired("email")
	cmd.Flags().StringVar(&opts.Slug, "product", "", "product slug (required)")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}

func runAccessCheck(opts *AccessOptions, cmd *cobra.Command) error {
	db, closeDB, err := opts.openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	grant, err := repository.NewAccessGrantRepository(db).FindActive(context.Background(), nil, opts.Email, opts.Slug)
	if errors.Is(err, repository.ErrNotFound) {
		return NewExitError(ExitFailure, "no active access for "+opts.Email+" on "+opts.Slug)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load access", err)
	}

	return opts.formatter(cmd).Success(grant, Fields{
		{"buyer", grant.BuyerEmail},
		{"product", grant.ProductSlug},
		{"source_order", grant.SourceOrderInvoice},
		{"granted_at", formatTime(&grant.GrantedAt)},
		{"download_url", grant.DownloadURL},
	})
}
