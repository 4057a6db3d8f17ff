package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"doku-template-store/internal/model"
	"doku-template-store/internal/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const notifyTarget = "/api/doku/notify"

var testSigner = signature.NewSigner("MCH-0001", "secret-key")

func signedHeaders(target string, body []byte) http.Header {
	h := http.Header{}
	for k, v := range testSigner.SignRequest(target, body, time.Now()).Map() {
		h.Set(k, v)
	}
	return h
}

func notificationBody(invoice, status string) []byte {
	return []byte(`{"order":{"invoice_number":"` + invoice + `","amount":299000},"transaction":{"status":"` + status + `","date":"2025-01-01T00:00:00Z"}}`)
}

func newWebhookService(s *stores, auditor *recordingAuditor) WebhookService {
	return NewWebhookService(s.db, testSigner, s.events, NewReconcileService(s.orders, s.access), auditor, discardLog)
}

func TestHandleNotificationSuppressesDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	s.createOrder(t, "TMP1234567890", "buyer@example.com", "portfolio-pro")
	auditor := &recordingAuditor{}
	svc := newWebhookService(s, auditor)

	body := notificationBody("TMP1234567890", "SUCCESS")
	headers := signedHeaders(notifyTarget, body)

	first, err := svc.HandleNotification(ctx, headers, body, notifyTarget)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.False(t, first.Duplicate)
	assert.Equal(t, model.OrderStatusPaid, first.Status)
	assert.Equal(t, headers.Get(signature.HeaderRequestID), first.EventKey)

	paid := s.order(t, "TMP1234567890")

	second, err := svc.HandleNotification(ctx, headers, body, notifyTarget)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.False(t, second.Applied)
	assert.Equal(t, model.OrderStatusPaid, second.Status)

	after := s.order(t, "TMP1234567890")
	assert.True(t, paid.UpdatedAt.Equal(after.UpdatedAt))
	assert.Equal(t, int64(1), s.count(t, &model.WebhookEvent{}))

	event, err := s.events.Find(ctx, first.EventKey)
	require.NoError(t, err)
	assert.True(t, event.Applied)
	assert.Equal(t, string(model.OrderStatusPaid), event.ResultStatus)

	assert.Contains(t, auditor.types(), "notification.duplicate")
}

func TestHandleNotificationRejectsSignatureForOtherTarget(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	s.createOrder(t, "TMP1", "buyer@example.com", "portfolio-pro")
	svc := newWebhookService(s, &recordingAuditor{})

	body := notificationBody("TMP1", "SUCCESS")
	headers := signedHeaders("/api/other/notify", body)

	_, err := svc.HandleNotification(ctx, headers, body, notifyTarget)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	assert.Equal(t, int64(0), s.count(t, &model.WebhookEvent{}))
	assert.Equal(t, model.OrderStatusPending, s.order(t, "TMP1").Status)
}

func TestHandleNotificationRejectsInvalidPayload(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	svc := newWebhookService(s, &recordingAuditor{})

	for name, body := range map[string][]byte{
		"not json":       []byte(`not json`),
		"missing status": []byte(`{"order":{"invoice_number":"TMP1"}}`),
		"blank invoice":  []byte(`{"order":{"invoice_number":"  "},"transaction":{"status":"SUCCESS"}}`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.HandleNotification(ctx, signedHeaders(notifyTarget, body), body, notifyTarget)
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}

	assert.Equal(t, int64(0), s.count(t, &model.WebhookEvent{}))
}

func TestHandleNotificationOrphanIsRecorded(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	auditor := &recordingAuditor{}
	svc := newWebhookService(s, auditor)

	body := notificationBody("TMP-NOPE", "SUCCESS")
	result, err := svc.HandleNotification(ctx, signedHeaders(notifyTarget, body), body, notifyTarget)
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.False(t, result.Duplicate)

	event, err := s.events.Find(ctx, result.EventKey)
	require.NoError(t, err)
	assert.False(t, event.Applied)
	assert.Equal(t, "TMP-NOPE", event.InvoiceNumber)

	assert.Equal(t, int64(0), s.count(t, &model.Order{}))
	assert.Equal(t, []string{"notification.orphaned"}, auditor.types())
}

type failingReconciler struct{}

func (failingReconciler) ApplyNotification(context.Context, *gorm.DB, Notification) (*ReconcileResult, error) {
	return nil, errors.New("database is gone")
}

func TestHandleNotificationRollsBackLedgerOnFailure(t *testing.T) {
	ctx := context.Background()
	s := newStores(t)
	s.createOrder(t, "TMP1", "buyer@example.com", "portfolio-pro")

	body := notificationBody("TMP1", "SUCCESS")
	headers := signedHeaders(notifyTarget, body)

	broken := NewWebhookService(s.db, testSigner, s.events, failingReconciler{}, &recordingAuditor{}, discardLog)
	_, err := broken.HandleNotification(ctx, headers, body, notifyTarget)
	require.Error(t, err)
	assert.Equal(t, int64(0), s.count(t, &model.WebhookEvent{}))

	result, err := newWebhookService(s, &recordingAuditor{}).HandleNotification(ctx, headers, body, notifyTarget)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, model.OrderStatusPaid, s.order(t, "TMP1").Status)
}

func TestDeriveEventKey(t *testing.T) {
	assert.Equal(t, "req-1", DeriveEventKey("  req-1 ", []byte("x")))

	key := DeriveEventKey("", []byte(`{"a":1}`))
	assert.Len(t, key, 64)
	assert.Equal(t, key, DeriveEventKey("", []byte(`{"a":1}`)))
	assert.NotEqual(t, key, DeriveEventKey("", []byte(`{"a":2}`)))
}
