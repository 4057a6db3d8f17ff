package repository

import (
	"context"
	"errors"
	"time"

	"doku-template-store/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CheckoutAttachment struct {
	CheckoutURL     string
	ExpiresAt       *time.Time
	VendorRequestID string
	RawPayload      datatypes.JSON
}

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	AttachCheckout(ctx context.Context, tx *gorm.DB, invoiceNumber string, checkout CheckoutAttachment) error
	MarkFailed(ctx context.Context, tx *gorm.DB, invoiceNumber string, rawPayload datatypes.JSON) (bool, error)
	FindByInvoice(ctx context.Context, tx *gorm.DB, invoiceNumber string) (*model.Order, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, invoiceNumber string, status model.OrderStatus, paidAt *time.Time, rawPayload datatypes.JSON) error
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

// Create inserts a new PENDING order.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	order.Status = model.OrderStatusPending
	order.BuyerEmail = normalizeEmail(order.BuyerEmail)
	if order.Provider == "" {
		order.Provider = model.ProviderDoku
	}

	err := conn(r.db, tx).WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateInvoice
	}
	return err
}

// AttachCheckout stores the vendor checkout metadata. Status is untouched.
func (r *orderRepoImpl) AttachCheckout(ctx context.Context, tx *gorm.DB, invoiceNumber string, checkout CheckoutAttachment) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Order{}).
		Where("invoice_number = ?", invoiceNumber).
		Updates(map[string]interface{}{
			"checkout_url":            checkout.CheckoutURL,
			"checkout_expires_at":     checkout.ExpiresAt,
			"vendor_request_id":       checkout.VendorRequestID,
			"vendor_payload_snapshot": checkout.RawPayload,
			"updated_at":              time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed moves a still-PENDING order to FAILED. It reports false when
// the order had already left PENDING, in which case nothing is written.
func (r *orderRepoImpl) MarkFailed(ctx context.Context, tx *gorm.DB, invoiceNumber string, rawPayload datatypes.JSON) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Order{}).
		Where("invoice_number = ? AND status = ?", invoiceNumber, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":                  model.OrderStatusFailed,
			"vendor_payload_snapshot": rawPayload,
			"updated_at":              time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) FindByInvoice(ctx context.Context, tx *gorm.DB, invoiceNumber string) (*model.Order, error) {
	var order model.Order
	err := conn(r.db, tx).WithContext(ctx).
		Where("invoice_number = ?", invoiceNumber).
		First(&order).Error

	if err != nil {
		return nil, notFound(err)
	}

	return &order, nil
}

// UpdateStatus overwrites status and payload snapshot. paidAt is written
// only when non-nil.
func (r *orderRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, invoiceNumber string, status model.OrderStatus, paidAt *time.Time, rawPayload datatypes.JSON) error {
	updates := map[string]interface{}{
		"status":                  status,
		"vendor_payload_snapshot": rawPayload,
		"updated_at":              time.Now(),
	}
	if paidAt != nil {
		updates["paid_at"] = paidAt
	}

	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Order{}).
		Where("invoice_number = ?", invoiceNumber).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
