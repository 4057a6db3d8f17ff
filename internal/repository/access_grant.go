package repository

import (
	"context"
	"time"

	"doku-template-store/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccessGrantRepository interface {
	HasActiveAccess(ctx context.Context, tx *gorm.DB, buyerEmail, productSlug string) (bool, error)
	FindActive(ctx context.Context, tx *gorm.DB, buyerEmail, productSlug string) (*model.AccessGrant, error)
	Grant(ctx context.Context, tx *gorm.DB, grant *model.AccessGrant) error
	Revoke(ctx context.Context, tx *gorm.DB, buyerEmail, productSlug string, at time.Time) (bool, error)
}

type accessGrantRepoImpl struct {
	db *gorm.DB
}

func NewAccessGrantRepository(db *gorm.DB) AccessGrantRepository {
	return &accessGrantRepoImpl{
		db: db,
	}
}

func (r *accessGrantRepoImpl) HasActiveAccess(ctx context.Context, tx *gorm.DB, buyerEmail, productSlug string) (bool, error) {
	var count int64
	err := conn(r.db, tx).WithContext(ctx).
		Model(&model.AccessGrant{}).
		Where("buyer_email = ? AND product_slug = ? AND revoked_at IS NULL", normalizeEmail(buyerEmail), productSlug).
		Count(&count).Error

	return count > 0, err
}

func (r *accessGrantRepoImpl) FindActive(ctx context.Context, tx *gorm.DB, buyerEmail, productSlug string) (*model.AccessGrant, error) {
	var grant model.AccessGrant
	err := conn(r.db, tx).WithContext(ctx).
		Where("buyer_email = ? AND product_slug = ? AND revoked_at IS NULL", normalizeEmail(buyerEmail), productSlug).
		First(&grant).Error

	if err != nil {
		return nil, notFound(err)
	}
	return &grant, nil
}

// Grant inserts or reactivates the (buyer, product) row. An existing row,
// active or revoked, gets the new metadata and a cleared revoked_at.
func (r *accessGrantRepoImpl) Grant(ctx context.Context, tx *gorm.DB, grant *model.AccessGrant) error {
	grant.BuyerEmail = normalizeEmail(grant.BuyerEmail)
	grant.RevokedAt = nil
	if grant.GrantedAt.IsZero() {
		grant.GrantedAt = time.Now()
	}

	return conn(r.db, tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "buyer_email"}, {Name: "product_slug"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"product_name":         grant.ProductName,
			"download_url":         grant.DownloadURL,
			"source_order_invoice": grant.SourceOrderInvoice,
			"granted_at":           grant.GrantedAt,
			"revoked_at":           nil,
			"updated_at":           time.Now(),
		}),
	}).Create(grant).Error
}

// Revoke soft-deletes an active grant. It reports false when there was no
// active grant, which is not an error.
func (r *accessGrantRepoImpl) Revoke(ctx context.Context, tx *gorm.DB, buyerEmail, productSlug string, at time.Time) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.AccessGrant{}).
		Where("buyer_email = ? AND product_slug = ? AND revoked_at IS NULL", normalizeEmail(buyerEmail), productSlug).
		Updates(map[string]interface{}{
			"revoked_at": at,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
