package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"doku-template-store/internal/audit"
	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"
	"doku-template-store/internal/signature"

	"gorm.io/gorm"
)

type WebhookResult struct {
	Applied   bool
	Duplicate bool
	Status    model.OrderStatus
	EventKey  string
}

type WebhookService interface {
	HandleNotification(ctx context.Context, headers http.Header, body []byte, requestTarget string) (*WebhookResult, error)
}

type webhookServiceImpl struct {
	db               *gorm.DB
	signer           *signature.Signer
	webhookEventRepo repository.WebhookEventRepository
	reconciler       ReconcileService
	auditor          audit.Auditor
	log              *slog.Logger
}

func NewWebhookService(
	db *gorm.DB,
	signer *signature.Signer,
	webhookEventRepo repository.WebhookEventRepository,
	reconciler ReconcileService,
	auditor audit.Auditor,
	log *slog.Logger,
) WebhookService {
	return &webhookServiceImpl{
		db:               db,
		signer:           signer,
		webhookEventRepo: webhookEventRepo,
		reconciler:       reconciler,
		auditor:          auditor,
		log:              log,
	}
}

// HandleNotification verifies, deduplicates and applies one DOKU settlement
// notification. The ledger insert and the order/access mutations share one
// transaction: if any of them fails nothing is kept, so the vendor's retry
// is processed from scratch.
func (s *webhookServiceImpl) HandleNotification(ctx context.Context, headers http.Header, body []byte, requestTarget string) (*WebhookResult, error) {
	if !s.signer.Verify(headers, body, requestTarget) {
		s.log.Warn("rejected doku notification", "reason", "signature", "request_id", headers.Get(signature.HeaderRequestID))
		return nil, ErrInvalidSignature
	}

	notification, err := ParseNotification(body)
	if err != nil {
		return nil, err
	}

	key := DeriveEventKey(headers.Get(signature.HeaderRequestID), body)
	result := &WebhookResult{EventKey: key}
	var events []audit.Event

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.webhookEventRepo.RecordIfNew(ctx, tx, &model.WebhookEvent{
			EventKey:      key,
			Provider:      model.ProviderDoku,
			InvoiceNumber: notification.Order.InvoiceNumber,
			VendorStatus:  notification.Transaction.Status,
			RawPayload:    model.JSONSnapshot(body),
			ReceivedAt:    time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("record webhook event: %w", err)
		}
		if !created {
			result.Duplicate = true
			return nil
		}

		applied, err := s.reconciler.ApplyNotification(ctx, tx, Notification{
			InvoiceNumber: notification.Order.InvoiceNumber,
			VendorStatus:  notification.Transaction.Status,
			VendorDate:    notification.Transaction.Date,
			RawPayload:    model.JSONSnapshot(body),
		})
		if err != nil {
			return err
		}

		if err := s.webhookEventRepo.MarkResult(ctx, tx, key, applied.Applied, string(applied.Status)); err != nil {
			return fmt.Errorf("mark webhook event: %w", err)
		}

		result.Applied = applied.Applied
		result.Status = applied.Status
		events = applied.Events
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply doku notification %s: %w", notification.Order.InvoiceNumber, err)
	}

	switch {
	case result.Duplicate:
		// answer with the outcome recorded for the first delivery
		if prev, err := s.webhookEventRepo.Find(ctx, key); err != nil {
			s.log.Warn("load duplicate webhook event", "event_key", key, "error", err)
		} else {
			result.Status = model.OrderStatus(prev.ResultStatus)
		}
		s.log.Info("duplicate doku notification", "invoice", notification.Order.InvoiceNumber, "status", result.Status, "event_key", key)
		events = []audit.Event{{
			Type:          audit.EventNotificationDuplicate,
			InvoiceNumber: notification.Order.InvoiceNumber,
			EventKey:      key,
		}}
	case !result.Applied:
		s.log.Warn("orphan doku notification", "invoice", notification.Order.InvoiceNumber, "status", notification.Transaction.Status, "event_key", key)
	default:
		s.log.Info("applied doku notification", "invoice", notification.Order.InvoiceNumber, "status", result.Status, "event_key", key)
	}

	for _, e := range events {
		e.EventKey = key
		s.auditor.Dispatch(e)
	}

	return result, nil
}

// ParseNotification decodes and validates a notification body. Anything
// that fails here is rejected before the ledger sees it.
func ParseNotification(body []byte) (*model.DokuNotification, error) {
	var n model.DokuNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	n.Order.InvoiceNumber = strings.TrimSpace(n.Order.InvoiceNumber)
	n.Transaction.Status = strings.TrimSpace(n.Transaction.Status)
	n.Transaction.Date = strings.TrimSpace(n.Transaction.Date)

	if err := validate.Struct(&n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &n, nil
}

// DeriveEventKey prefers the vendor request id and falls back to the
// SHA-256 of the exact body bytes.
func DeriveEventKey(requestID string, body []byte) string {
	if id := strings.TrimSpace(requestID); id != "" {
		return id
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
