package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doku-template-store/internal/audit"
	"doku-template-store/internal/client"
	"doku-template-store/internal/dto"
	"doku-template-store/internal/logging"
	"doku-template-store/internal/middleware"
	"doku-template-store/internal/model"
	"doku-template-store/internal/repository"
	"doku-template-store/internal/service"
	"doku-template-store/internal/signature"
	"doku-template-store/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jwtSecret  = "jwt-secret"
	notifyPath = "/api/doku/notify"
)

type stubDoku struct {
	err error
}

func (s *stubDoku) CreateCheckout(_ context.Context, req *model.DokuCheckoutRequest) (*client.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &client.CheckoutSession{
		PaymentURL:  "https://sandbox.doku.com/checkout/link/" + req.Order.InvoiceNumber,
		RequestID:   "req-" + req.Order.InvoiceNumber,
		RawResponse: []byte(`{}`),
	}, nil
}

type harness struct {
	srv    *Server
	signer *signature.Signer
	orders repository.OrderRepository
	doku   *stubDoku
	token  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)
	log := logging.Discard()

	orders := repository.NewOrderRepository(db)
	access := repository.NewAccessGrantRepository(db)
	products := repository.NewProductRepository(db)
	require.NoError(t, products.Seed(ctx))

	signer := signature.NewSigner("MCH-0001", "secret-key")
	doku := &stubDoku{}
	settings := service.NewSettingsService(repository.NewSettingsRepository(db), time.Minute)

	services := Services{
		Checkout: service.NewCheckoutService(doku, products, orders, access, settings, audit.Nop{}, log, service.CheckoutOptions{
			BaseURL:       "https://store.example.com",
			NotifyPath:    notifyPath,
			InvoicePrefix: "TMP",
			Currency:      "IDR",
		}),
		Catalog: service.NewCatalogService(products),
		Account: service.NewAccountService(orders, access),
		Webhook: service.NewWebhookService(db, signer, repository.NewWebhookEventRepository(db),
			service.NewReconcileService(orders, access), audit.Nop{}, log),
	}

	token, err := middleware.IssueBuyerToken(jwtSecret, service.Buyer{ID: "buyer-1", Email: "buyer@example.com", Name: "Buyer One"}, time.Hour)
	require.NoError(t, err)

	return &harness{
		srv:    NewServer(services, jwtSecret, notifyPath, log),
		signer: signer,
		orders: orders,
		doku:   doku,
		token:  token,
	}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) checkout(t *testing.T, slug string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(`{"product_slug":"`+slug+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)
	return h.do(req)
}

func (h *harness) notify(body []byte, signedTarget string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, notifyPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range h.signer.SignRequest(signedTarget, body, time.Now()).Map() {
		req.Header.Set(k, v)
	}
	return h.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCheckoutThenSettlement(t *testing.T) {
	h := newHarness(t)

	rec := h.checkout(t, "portfolio-pro")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	checkout := decode[dto.CheckoutResponse](t, rec)
	assert.NotEmpty(t, checkout.InvoiceNumber)
	assert.Equal(t, "https://sandbox.doku.com/checkout/link/"+checkout.InvoiceNumber, checkout.CheckoutURL)

	body := []byte(`{"order":{"invoice_number":"` + checkout.InvoiceNumber + `","amount":299000},"transaction":{"status":"SUCCESS","date":"2025-01-01T00:00:00Z"}}`)
	rec = h.notify(body, notifyPath)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, dto.WebhookResponse{OK: true, Applied: true, Status: "PAID"}, decode[dto.WebhookResponse](t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/access/portfolio-pro", nil)
	req.Header.Set("Authorization", "Bearer "+h.token)
	rec = h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	access := decode[dto.AccessResponse](t, rec)
	assert.True(t, access.HasAccess)
	assert.Equal(t, "https://downloads.example.com/templates/portfolio-pro.zip", access.DownloadURL)

	req = httptest.NewRequest(http.MethodGet, "/api/orders/"+checkout.InvoiceNumber, nil)
	req.Header.Set("Authorization", "Bearer "+h.token)
	rec = h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	order := decode[dto.OrderResponse](t, rec)
	assert.Equal(t, "PAID", order.Status)
	require.NotNil(t, order.PaidAt)
	assert.True(t, order.PaidAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	rec = h.checkout(t, "portfolio-pro")
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[dto.CheckoutResponse](t, rec)
	assert.True(t, again.AlreadyOwned)
	assert.Empty(t, again.InvoiceNumber)
}

func TestNotifyResponses(t *testing.T) {
	h := newHarness(t)

	body := []byte(`{"order":{"invoice_number":"TMP-NOPE"},"transaction":{"status":"SUCCESS"}}`)

	rec := h.notify(body, "/api/other")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, dto.WebhookResponse{OK: false}, decode[dto.WebhookResponse](t, rec))

	rec = h.notify([]byte(`{"order":{}}`), notifyPath)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.WebhookResponse{OK: false}, decode[dto.WebhookResponse](t, rec))

	rec = h.notify(body, notifyPath)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.WebhookResponse{OK: true, Applied: false}, decode[dto.WebhookResponse](t, rec))
}

func TestNotifyDuplicateRequestID(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.orders.Create(context.Background(), nil, testutil.PendingOrder("TMP1", "buyer@example.com", "portfolio-pro")))

	body := []byte(`{"order":{"invoice_number":"TMP1"},"transaction":{"status":"SUCCESS"}}`)
	headers := h.signer.SignRequest(notifyPath, body, time.Now()).Map()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, notifyPath, bytes.NewReader(body))
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return h.do(req)
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)
	assert.True(t, decode[dto.WebhookResponse](t, first).Applied)

	second := send()
	require.Equal(t, http.StatusOK, second.Code)
	resp := decode[dto.WebhookResponse](t, second)
	assert.True(t, resp.OK)
	assert.True(t, resp.Duplicate)
	assert.Equal(t, "PAID", resp.Status)
}

func TestCheckoutErrors(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", bytes.NewBufferString(`{"product_slug":"portfolio-pro"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.checkout(t, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.checkout(t, "missing-product")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.doku.err = &client.VendorError{StatusCode: 503, Body: "<html><body>upstream down</body></html>"}
	rec = h.checkout(t, "shop-lite")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	errResp := decode[dto.ErrorResponse](t, rec)
	assert.NotContains(t, errResp.Error, "upstream")
	require.NotEmpty(t, errResp.InvoiceNumber)

	order, err := h.orders.FindByInvoice(context.Background(), nil, errResp.InvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, order.Status)
}

func TestLandingPagesEscapeInvoice(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/checkout/success?invoice=%3Cscript%3E", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>alert")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")

	rec = h.do(httptest.NewRequest(http.MethodGet, "/checkout/failed?invoice=TMP1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TMP1")
}

func TestListProducts(t *testing.T) {
	h := newHarness(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]dto.ProductResponse](t, rec)
	require.Len(t, products, 3)
	assert.Equal(t, "landing-starter", products[0].Slug)
}
