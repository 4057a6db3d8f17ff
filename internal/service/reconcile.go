package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doku-template-store/internal/audit"
	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Notification struct {
	InvoiceNumber string
	VendorStatus  string
	VendorDate    string
	RawPayload    datatypes.JSON
}

type ReconcileResult struct {
	Applied bool
	Status  model.OrderStatus

	// Events are dispatched by the caller once the surrounding transaction commits.
	Events []audit.Event
}

type ReconcileService interface {
	ApplyNotification(ctx context.Context, tx *gorm.DB, n Notification) (*ReconcileResult, error)
}

type reconcileServiceImpl struct {
	orderRepo  repository.OrderRepository
	accessRepo repository.AccessGrantRepository
	now        func() time.Time
}

func NewReconcileService(
	orderRepo repository.OrderRepository,
	accessRepo repository.AccessGrantRepository,
) ReconcileService {
	return &reconcileServiceImpl{
		orderRepo:  orderRepo,
		accessRepo: accessRepo,
		now:        time.Now,
	}
}

// ApplyNotification moves the order to the status DOKU reports and grants or
// revokes access accordingly. Applying the same notification twice leaves
// the same state behind. A notification for an unknown invoice is not
// applied and creates nothing.
func (s *reconcileServiceImpl) ApplyNotification(ctx context.Context, tx *gorm.DB, n Notification) (*ReconcileResult, error) {
	order, err := s.orderRepo.FindByInvoice(ctx, tx, n.InvoiceNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return &ReconcileResult{
			Applied: false,
			Events: []audit.Event{{
				Type:          audit.EventNotificationOrphaned,
				InvoiceNumber: n.InvoiceNumber,
				Status:        n.VendorStatus,
			}},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}

	next := nextStatus(order.Status, model.MapDokuStatus(n.VendorStatus))

	var paidAt *time.Time
	if next == model.OrderStatusPaid {
		t := s.resolvePaidAt(order, n.VendorDate)
		paidAt = &t
	}

	if err := s.orderRepo.UpdateStatus(ctx, tx, order.InvoiceNumber, next, paidAt, n.RawPayload); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	result := &ReconcileResult{
		Applied: true,
		Status:  next,
		Events: []audit.Event{{
			Type:          audit.EventNotificationApplied,
			InvoiceNumber: order.InvoiceNumber,
			BuyerEmail:    order.BuyerEmail,
			ProductSlug:   order.ProductSlug,
			Status:        string(next),
			Detail:        "from " + string(order.Status),
		}},
	}

	switch next {
	case model.OrderStatusPaid:
		err := s.accessRepo.Grant(ctx, tx, &model.AccessGrant{
			BuyerEmail:         order.BuyerEmail,
			ProductSlug:        order.ProductSlug,
			ProductName:        order.ProductName,
			DownloadURL:        order.ProductDownloadURL,
			SourceOrderInvoice: order.InvoiceNumber,
			GrantedAt:          *paidAt,
		})
		if err != nil {
			return nil, fmt.Errorf("grant access: %w", err)
		}
		result.Events = append(result.Events, audit.Event{
			Type:          audit.EventAccessGranted,
			InvoiceNumber: order.InvoiceNumber,
			BuyerEmail:    order.BuyerEmail,
			ProductSlug:   order.ProductSlug,
		})

	case model.OrderStatusRefunded, model.OrderStatusCanceled:
		revoked, err := s.revokeOwnGrant(ctx, tx, order)
		if err != nil {
			return nil, fmt.Errorf("revoke access: %w", err)
		}
		if revoked {
			result.Events = append(result.Events, audit.Event{
				Type:          audit.EventAccessRevoked,
				InvoiceNumber: order.InvoiceNumber,
				BuyerEmail:    order.BuyerEmail,
				ProductSlug:   order.ProductSlug,
				Status:        string(next),
			})
		}
	}

	return result, nil
}

// revokeOwnGrant revokes the buyer's grant only when this order is the one
// that granted it, so cancelling a stale duplicate order never removes
// access bought through another invoice.
func (s *reconcileServiceImpl) revokeOwnGrant(ctx context.Context, tx *gorm.DB, order *model.Order) (bool, error) {
	grant, err := s.accessRepo.FindActive(ctx, tx, order.BuyerEmail, order.ProductSlug)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if grant.SourceOrderInvoice != order.InvoiceNumber {
		return false, nil
	}
	return s.accessRepo.Revoke(ctx, tx, order.BuyerEmail, order.ProductSlug, s.now().UTC())
}

// resolvePaidAt keeps an existing paid_at, otherwise uses the vendor's
// settlement date, otherwise the current time.
func (s *reconcileServiceImpl) resolvePaidAt(order *model.Order, vendorDate string) time.Time {
	if order.PaidAt != nil {
		return order.PaidAt.UTC()
	}
	if t, ok := model.ParseDokuTime(vendorDate); ok {
		return t
	}
	return s.now().UTC()
}

// nextStatus never moves a settled order back to PENDING. Unknown vendor
// statuses map to PENDING and so leave a settled order as it is.
func nextStatus(current, reported model.OrderStatus) model.OrderStatus {
	if reported == model.OrderStatusPending && current != model.OrderStatusPending {
		return current
	}
	return reported
}
