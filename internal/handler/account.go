package handler

import (
	"net/http"

	"doku-template-store/internal/dto"
	"doku-template-store/internal/middleware"
	"doku-template-store/internal/service"

	"github.com/labstack/echo/v4"
)

type AccountHandler struct {
	accountService service.AccountService
}

func NewAccountHandler(accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

func (h *AccountHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	buyer, ok := middleware.BuyerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing buyer")
	}

	order, err := h.accountService.GetOrder(ctx, buyer, c.Param("invoice"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.OrderResponse{
		InvoiceNumber:     order.InvoiceNumber,
		ProductSlug:       order.ProductSlug,
		ProductName:       order.ProductName,
		Amount:            order.Amount,
		Currency:          order.Currency,
		Status:            string(order.Status),
		CheckoutURL:       order.CheckoutURL,
		CheckoutExpiresAt: order.CheckoutExpiresAt,
		PaidAt:            order.PaidAt,
		CreatedAt:         order.CreatedAt,
	})
}

func (h *AccountHandler) GetAccess(c echo.Context) error {
	ctx := c.Request().Context()

	buyer, ok := middleware.BuyerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing buyer")
	}

	slug := c.Param("slug")
	grant, err := h.accountService.GetAccess(ctx, buyer, slug)
	if err != nil {
		return err
	}

	resp := &dto.AccessResponse{ProductSlug: slug}
	if grant != nil {
		resp.HasAccess = true
		resp.DownloadURL = grant.DownloadURL
		resp.GrantedAt = &grant.GrantedAt
	}
	return c.JSON(http.StatusOK, resp)
}
