package repository

import (
	"context"
	"errors"

	"doku-template-store/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	Get(ctx context.Context) (model.CheckoutSettings, error)
	Save(ctx context.Context, settings model.CheckoutSettings) error
}

type settingsRepoImpl struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepoImpl{db: db}
}

// Get returns the stored settings, or the defaults when none were saved yet.
func (r *settingsRepoImpl) Get(ctx context.Context) (model.CheckoutSettings, error) {
	var settings model.CheckoutSettings
	err := r.db.WithContext(ctx).
		Where("id = ?", model.CheckoutSettingsID).
		First(&settings).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultCheckoutSettings(), nil
	}
	if err != nil {
		return model.CheckoutSettings{}, err
	}
	return settings, nil
}

func (r *settingsRepoImpl) Save(ctx context.Context, settings model.CheckoutSettings) error {
	settings.ID = model.CheckoutSettingsID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payments_enabled", "checkout_expiry_minutes", "payment_method_types", "updated_at"}),
	}).Create(&settings).Error
}
