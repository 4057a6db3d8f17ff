package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"doku-template-store/internal/logging"
	"doku-template-store/internal/model"
	"doku-template-store/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWebhookService struct {
	result *service.WebhookResult
	err    error
	target string
	body   []byte
}

func (s *stubWebhookService) HandleNotification(_ context.Context, _ http.Header, body []byte, target string) (*service.WebhookResult, error) {
	s.target = target
	s.body = body
	return s.result, s.err
}

func notify(t *testing.T, svc service.WebhookService, url string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(`{"order":{}}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, NewWebhookHandler(svc, logging.Discard()).DokuNotify(c))
	return rec
}

func TestDokuNotifyStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		svc      *stubWebhookService
		wantCode int
		wantBody string
	}{
		{
			name:     "applied",
			svc:      &stubWebhookService{result: &service.WebhookResult{Applied: true, Status: model.OrderStatusPaid}},
			wantCode: http.StatusOK,
			wantBody: `{"ok":true,"applied":true,"status":"PAID"}`,
		},
		{
			name:     "duplicate",
			svc:      &stubWebhookService{result: &service.WebhookResult{Duplicate: true, Status: model.OrderStatusPaid}},
			wantCode: http.StatusOK,
			wantBody: `{"ok":true,"applied":false,"duplicate":true,"status":"PAID"}`,
		},
		{
			name:     "bad signature",
			svc:      &stubWebhookService{err: service.ErrInvalidSignature},
			wantCode: http.StatusUnauthorized,
			wantBody: `{"ok":false,"applied":false}`,
		},
		{
			name:     "bad payload",
			svc:      &stubWebhookService{err: fmt.Errorf("%w: missing status", service.ErrInvalidPayload)},
			wantCode: http.StatusBadRequest,
			wantBody: `{"ok":false,"applied":false}`,
		},
		{
			name:     "storage failure",
			svc:      &stubWebhookService{err: errors.New("database is locked")},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"ok":false,"applied":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := notify(t, tt.svc, "/api/doku/notify")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestDokuNotifyPassesRawTarget(t *testing.T) {
	svc := &stubWebhookService{result: &service.WebhookResult{}}
	notify(t, svc, "/api/doku/notify?channel=va")

	assert.Equal(t, "/api/doku/notify?channel=va", svc.target)
	assert.Equal(t, `{"order":{}}`, string(svc.body))
}
