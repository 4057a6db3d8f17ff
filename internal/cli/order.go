package cli

import (
	"context"
	"errors"
	"strconv"
	"time"

	"doku-template-store/internal/repository"

	"github.com/spf13/cobra"
)

func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect orders",
	}
	cmd.AddCommand(newOrderShowCommand(rootOpts))
	return cmd
}

func newOrderShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <invoice>",
		Short:         "Show one order and its last vendor payload",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := rootOpts.openDB()
			if err != nil {
				return err
			}
			defer closeDB()

			order, err := repository.NewOrderRepository(db).FindByInvoice(context.Background(), nil, args[0])
			if errors.Is(err, repository.ErrNotFound) {
				return NewExitError(ExitFailure, "order "+args[0]+" not found")
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load order", err)
			}

			return rootOpts.formatter(cmd).Success(order, Fields{
				{"invoice", order.InvoiceNumber},
				{"status", string(order.Status)},
				{"buyer", order.BuyerEmail},
				{"product", order.ProductSlug},
				{"amount", strconv.FormatInt(order.Amount, 10) + " " + order.Currency},
				{"checkout_url", order.CheckoutURL},
				{"paid_at", formatTime(order.PaidAt)},
				{"created_at", order.CreatedAt.UTC().Format(time.RFC3339)},
				{"payload", string(order.VendorPayloadSnapshot)},
			})
		},
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
