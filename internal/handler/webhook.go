package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"doku-template-store/internal/dto"
	"doku-template-store/internal/service"

	"github.com/labstack/echo/v4"
)

// maxNotificationBytes bounds the notification body read into memory.
const maxNotificationBytes = 1 << 20

type WebhookHandler struct {
	webhookService service.WebhookService
	log            *slog.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		log:            log,
	}
}

// DokuNotify answers 200 for applied, duplicate and orphan notifications so
// DOKU stops retrying them. Storage failures answer 500 so it retries.
func (h *WebhookHandler) DokuNotify(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxNotificationBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, &dto.WebhookResponse{OK: false})
	}

	// the signature covers the path as DOKU called it, query string included
	target := c.Request().URL.RequestURI()

	result, err := h.webhookService.HandleNotification(ctx, c.Request().Header, body, target)
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return c.JSON(http.StatusUnauthorized, &dto.WebhookResponse{OK: false})
	case errors.Is(err, service.ErrInvalidPayload):
		h.log.Warn("rejected doku notification", "reason", "payload", "error", err)
		return c.JSON(http.StatusBadRequest, &dto.WebhookResponse{OK: false})
	case err != nil:
		h.log.Error("handle doku notification", "error", err)
		return c.JSON(http.StatusInternalServerError, &dto.WebhookResponse{OK: false})
	}

	return c.JSON(http.StatusOK, &dto.WebhookResponse{
		OK:        true,
		Applied:   result.Applied,
		Duplicate: result.Duplicate,
		Status:    string(result.Status),
	})
}
