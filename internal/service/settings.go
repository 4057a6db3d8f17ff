package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"doku-template-store/internal/cache"
	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"
)

type SettingsInput struct {
	PaymentsEnabled       bool
	CheckoutExpiryMinutes int      `validate:"min=1,max=10080"`
	PaymentMethodTypes    []string `validate:"dive,required,max=64,excludesall=0x2C"`
}

type SettingsService interface {
	Get(ctx context.Context, forceRefresh bool) (model.CheckoutSettings, error)
	Update(ctx context.Context, in SettingsInput) (model.CheckoutSettings, error)
}

type settingsServiceImpl struct {
	repo  repository.SettingsRepository
	cache *cache.TTL[model.CheckoutSettings]
}

// NewSettingsService reads checkout settings through a per-process cache.
// Other instances see an update only after their own entry expires.
func NewSettingsService(repo repository.SettingsRepository, ttl time.Duration) SettingsService {
	return &settingsServiceImpl{
		repo:  repo,
		cache: cache.NewTTL(ttl, repo.Get),
	}
}

func (s *settingsServiceImpl) Get(ctx context.Context, forceRefresh bool) (model.CheckoutSettings, error) {
	return s.cache.Get(ctx, forceRefresh)
}

func (s *settingsServiceImpl) Update(ctx context.Context, in SettingsInput) (model.CheckoutSettings, error) {
	if err := validate.Struct(&in); err != nil {
		return model.CheckoutSettings{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	settings := model.CheckoutSettings{
		ID:                    model.CheckoutSettingsID,
		PaymentsEnabled:       in.PaymentsEnabled,
		CheckoutExpiryMinutes: in.CheckoutExpiryMinutes,
		PaymentMethodTypes:    strings.Join(in.PaymentMethodTypes, ","),
	}
	if err := s.repo.Save(ctx, settings); err != nil {
		return model.CheckoutSettings{}, fmt.Errorf("save settings: %w", err)
	}

	return s.cache.Get(ctx, true)
}
