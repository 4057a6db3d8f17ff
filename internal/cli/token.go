package cli

import (
	"time"

	"doku-template-store/internal/config"
	"doku-template-store/internal/middleware"
	"doku-template-store/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"
)

type TokenOptions struct {
	*RootOptions
	Secret string
	Buyer  service.Buyer
	TTL    time.Duration
}

// NewTokenCommand issues a buyer token signed with AUTH_JWT_SECRET, for
// calling the API by hand against a local or sandbox deployment.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	var auth config.Auth
	_ = env.ParseWithOptions(&auth, env.Options{Prefix: "AUTH_"})

	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Issue a buyer bearer token",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Secret == "" {
				return NewExitError(ExitCommandError, "no signing secret: set AUTH_JWT_SECRET or --secret")
			}

			token, err := middleware.IssueBuyerToken(opts.Secret, opts.Buyer, opts.TTL)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to sign token", err)
			}

			return opts.formatter(cmd).Success(
				map[string]string{"token": token},
				Fields{{"token", token}},
			)
		},
	}

	cmd.Flags().StringVar(&opts.Secret, "secret", auth.JWTSecret, "HS256 signing secret")
	cmd.Flags().StringVar(&opts.Buyer.ID, "buyer-id", "", "buyer id (required)")
	_ = cmd.MarkFlagRequired("buyer-id")
	cmd.Flags().StringVar(&opts.Buyer.Email, "email", "", "buyer email (required)")
	_ = cmd.MarkFlagRequired("email")
	cmd.Flags().StringVar(&opts.Buyer.Name, "name", "", "buyer display name")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
