package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"doku-template-store/internal/audit"
	"doku-template-store/internal/client"
	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"

	"github.com/google/uuid"
)

// Buyer is the identity of an authenticated purchaser.
type Buyer struct {
	ID    string
	Email string
	Name  string
}

type CheckoutResult struct {
	InvoiceNumber string
	CheckoutURL   string
	ExpiresAt     *time.Time

	AlreadyOwned bool
	DownloadURL  string
}

type CheckoutOptions struct {
	BaseURL       string
	NotifyPath    string
	InvoicePrefix string
	Currency      string
}

type CheckoutService interface {
	Checkout(ctx context.Context, buyer Buyer, productSlug string) (*CheckoutResult, error)
}

type checkoutServiceImpl struct {
	dokuClient  client.DokuClient
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	accessRepo  repository.AccessGrantRepository
	settings    SettingsService
	auditor     audit.Auditor
	log         *slog.Logger
	opts        CheckoutOptions
	now         func() time.Time
	newInvoice  func(prefix string, now time.Time) string
}

func NewCheckoutService(
	dokuClient client.DokuClient,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	accessRepo repository.AccessGrantRepository,
	settings SettingsService,
	auditor audit.Auditor,
	log *slog.Logger,
	opts CheckoutOptions,
) CheckoutService {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &checkoutServiceImpl{
		dokuClient:  dokuClient,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		accessRepo:  accessRepo,
		settings:    settings,
		auditor:     auditor,
		log:         log,
		opts:        opts,
		now:         time.Now,
		newInvoice:  NewInvoiceNumber,
	}
}

const maxInvoiceAttempts = 3

// Checkout starts a purchase. A buyer who already owns the product gets the
// existing download instead of a new order. Every order created here ends
// up either with a checkout URL or FAILED with the error in its snapshot.
func (s *checkoutServiceImpl) Checkout(ctx context.Context, buyer Buyer, productSlug string) (*CheckoutResult, error) {
	buyer.Email = strings.ToLower(strings.TrimSpace(buyer.Email))
	productSlug = strings.TrimSpace(productSlug)
	if buyer.ID == "" || buyer.Email == "" || productSlug == "" {
		return nil, ErrInvalidInput
	}

	settings, err := s.settings.Get(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load checkout settings: %w", err)
	}
	if !settings.PaymentsEnabled {
		return nil, ErrCheckoutDisabled
	}

	product, err := s.productRepo.FindBySlug(ctx, productSlug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}

	grant, err := s.accessRepo.FindActive(ctx, nil, buyer.Email, product.Slug)
	if err == nil {
		return &CheckoutResult{AlreadyOwned: true, DownloadURL: grant.DownloadURL}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check access: %w", err)
	}

	order, err := s.createPendingOrder(ctx, buyer, product)
	if err != nil {
		return nil, err
	}
	s.auditor.Dispatch(audit.Event{
		Type:          audit.EventOrderCreated,
		InvoiceNumber: order.InvoiceNumber,
		BuyerEmail:    order.BuyerEmail,
		ProductSlug:   order.ProductSlug,
		Status:        string(order.Status),
	})

	session, err := s.dokuClient.CreateCheckout(ctx, s.checkoutRequest(order, buyer, settings))
	if err != nil {
		return nil, s.fail(ctx, order, "create_checkout", err)
	}

	expiresAt := session.ExpiresAt
	if expiresAt == nil {
		t := s.now().UTC().Add(time.Duration(settings.CheckoutExpiryMinutes) * time.Minute)
		expiresAt = &t
	}

	err = s.orderRepo.AttachCheckout(ctx, nil, order.InvoiceNumber, repository.CheckoutAttachment{
		CheckoutURL:     session.PaymentURL,
		ExpiresAt:       expiresAt,
		VendorRequestID: session.RequestID,
		RawPayload:      model.JSONSnapshot(session.RawResponse),
	})
	if err != nil {
		return nil, s.fail(ctx, order, "attach_checkout", fmt.Errorf("attach checkout: %w", err))
	}

	s.auditor.Dispatch(audit.Event{
		Type:          audit.EventOrderCheckoutAttached,
		InvoiceNumber: order.InvoiceNumber,
		BuyerEmail:    order.BuyerEmail,
		ProductSlug:   order.ProductSlug,
	})

	return &CheckoutResult{
		InvoiceNumber: order.InvoiceNumber,
		CheckoutURL:   session.PaymentURL,
		ExpiresAt:     expiresAt,
	}, nil
}

func (s *checkoutServiceImpl) createPendingOrder(ctx context.Context, buyer Buyer, product *model.Product) (*model.Order, error) {
	currency := product.Currency
	if currency == "" {
		currency = s.opts.Currency
	}

	for attempt := 1; ; attempt++ {
		order := &model.Order{
			InvoiceNumber:      s.newInvoice(s.opts.InvoicePrefix, s.now()),
			Provider:           model.ProviderDoku,
			BuyerID:            buyer.ID,
			BuyerEmail:         buyer.Email,
			BuyerName:          buyer.Name,
			ProductSlug:        product.Slug,
			ProductName:        product.Name,
			ProductDownloadURL: product.DownloadURL,
			Amount:             product.Price,
			Currency:           currency,
		}

		err := s.orderRepo.Create(ctx, nil, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrDuplicateInvoice) || attempt == maxInvoiceAttempts {
			return nil, fmt.Errorf("store order in db: %w", err)
		}
	}
}

func (s *checkoutServiceImpl) checkoutRequest(order *model.Order, buyer Buyer, settings model.CheckoutSettings) *model.DokuCheckoutRequest {
	invoice := url.QueryEscape(order.InvoiceNumber)
	return &model.DokuCheckoutRequest{
		Order: model.DokuCheckoutOrder{
			Amount:            order.Amount,
			InvoiceNumber:     order.InvoiceNumber,
			Currency:          order.Currency,
			CallbackURL:       s.opts.BaseURL + "/checkout/success?invoice=" + invoice,
			CallbackURLCancel: s.opts.BaseURL + "/checkout/failed?invoice=" + invoice,
			LineItems: []model.DokuLineItem{{
				Name:     order.ProductName,
				Price:    order.Amount,
				Quantity: 1,
			}},
		},
		Payment: model.DokuCheckoutPayment{
			PaymentDueDate:     settings.CheckoutExpiryMinutes,
			PaymentMethodTypes: settings.MethodTypes(),
		},
		Customer: model.DokuCustomer{
			ID:    buyer.ID,
			Name:  buyer.Name,
			Email: buyer.Email,
		},
		AdditionalInfo: model.DokuAdditionalInfo{
			OverrideNotificationURL: s.opts.BaseURL + s.opts.NotifyPath,
		},
	}
}

// fail marks the order FAILED with the cause and returns the buyer-facing error.
func (s *checkoutServiceImpl) fail(ctx context.Context, order *model.Order, stage string, cause error) error {
	s.log.Error("checkout failed", "invoice", order.InvoiceNumber, "stage", stage, "error", cause)

	if _, err := s.orderRepo.MarkFailed(ctx, nil, order.InvoiceNumber, model.ErrorSnapshot(stage, cause)); err != nil {
		s.log.Error("mark order failed", "invoice", order.InvoiceNumber, "error", err)
	}
	s.auditor.Dispatch(audit.Event{
		Type:          audit.EventOrderFailed,
		InvoiceNumber: order.InvoiceNumber,
		BuyerEmail:    order.BuyerEmail,
		ProductSlug:   order.ProductSlug,
		Detail:        stage,
	})

	return &CheckoutError{
		InvoiceNumber: order.InvoiceNumber,
		Message:       UserFacingCheckoutMessage(cause),
		Err:           cause,
	}
}

// NewInvoiceNumber builds prefix + unix millis + a random suffix.
func NewInvoiceNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return prefix + strconv.FormatInt(now.UnixMilli(), 10) + suffix
}
