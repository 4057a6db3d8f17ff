package cli

import (
	"context"
	"strconv"
	"strings"

	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"
	"doku-template-store/internal/service"

	"github.com/spf13/cobra"
)

type SettingsOptions struct {
	*RootOptions
	Enabled       bool
	ExpiryMinutes int
	Methods       []string
}

func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change checkout settings",
	}
	cmd.AddCommand(newSettingsShowCommand(rootOpts))
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	return cmd
}

func newSettingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show checkout settings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := rootOpts.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			settings, err := repository.NewSettingsRepository(db).Get(context.Background())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load settings", err)
			}
			return printSettings(rootOpts, cmd, settings)
		},
	}
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SettingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change checkout settings",
		Long: `Change checkout settings. Flags that are not given keep their stored value.

Running API instances pick the change up once their settings cache expires.

Examples:
  storectl settings set --enabled=false
  storectl settings set --expiry-minutes 30 --methods VIRTUAL_ACCOUNT_BCA,QRIS`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Enabled, "enabled", true, "accept new checkouts")
	cmd.Flags().IntVar(&opts.ExpiryMinutes, "expiry-minutes", 0, "checkout link lifetime in minutes")
	cmd.Flags().StringSliceVar(&opts.Methods, "methods", nil, "DOKU payment method types, empty for all")

	return cmd
}

func runSettingsSet(opts *SettingsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	db, closeDB, err := opts.openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	svc := service.NewSettingsService(repository.NewSettingsRepository(db), 0)
	current, err := svc.Get(ctx, true)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load settings", err)
	}

	in := service.SettingsInput{
		PaymentsEnabled:       current.PaymentsEnabled,
		CheckoutExpiryMinutes: current.CheckoutExpiryMinutes,
		PaymentMethodTypes:    current.MethodTypes(),
	}
	flags := cmd.Flags()
	if flags.Changed("enabled") {
		in.PaymentsEnabled = opts.Enabled
	}
	if flags.Changed("expiry-minutes") {
		in.CheckoutExpiryMinutes = opts.ExpiryMinutes
	}
	if flags.Changed("methods") {
		in.PaymentMethodTypes = opts.Methods
	}

	updated, err := svc.Update(ctx, in)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to update settings", err)
	}
	return printSettings(opts.RootOptions, cmd, updated)
}

func printSettings(opts *RootOptions, cmd *cobra.Command, settings model.CheckoutSettings) error {
	methods := strings.Join(settings.MethodTypes(), ",")
	if methods == "" {
		methods = "all"
	}
	return opts.formatter(cmd).Success(settings, Fields{
		{"payments_enabled", strconv.FormatBool(settings.PaymentsEnabled)},
		{"checkout_expiry_minutes", strconv.Itoa(settings.CheckoutExpiryMinutes)},
		{"payment_method_types", methods},
	})
}
