package repository

import (
	"context"
	"errors"

	"doku-template-store/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	RecordIfNew(ctx context.Context, tx *gorm.DB, event *model.WebhookEvent) (bool, error)
	MarkResult(ctx context.Context, tx *gorm.DB, eventKey string, applied bool, resultStatus string) error
	Find(ctx context.Context, eventKey string) (*model.WebhookEvent, error)
}

type webhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryImpl{db: db}
}

// RecordIfNew inserts the event unless its key is already present. The
// unique key decides the winner between concurrent deliveries; the loser
// gets false, not an error.
func (r *webhookEventRepositoryImpl) RecordIfNew(ctx context.Context, tx *gorm.DB, event *model.WebhookEvent) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_key"}},
		DoNothing: true,
	}).Create(event)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *webhookEventRepositoryImpl) MarkResult(ctx context.Context, tx *gorm.DB, eventKey string, applied bool, resultStatus string) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_key = ?", eventKey).
		Updates(map[string]interface{}{
			"applied":       applied,
			"result_status": resultStatus,
		}).Error
}

func (r *webhookEventRepositoryImpl) Find(ctx context.Context, eventKey string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("event_key = ?", eventKey).
		First(&event).Error

	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}
