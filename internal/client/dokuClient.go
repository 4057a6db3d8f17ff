package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"doku-template-store/internal/config"
	"doku-template-store/internal/model"
	"doku-template-store/internal/signature"

	"github.com/go-resty/resty/v2"
)

var ErrMissingPaymentURL = errors.New("doku response has no payment url")

type DokuClient interface {
	CreateCheckout(ctx context.Context, req *model.DokuCheckoutRequest) (*CheckoutSession, error)
}

type CheckoutSession struct {
	PaymentURL  string
	ExpiresAt   *time.Time
	RequestID   string
	RawResponse []byte
}

// VendorError is a non-2xx answer from the DOKU API. Body is kept for the
// order snapshot and must not be shown to buyers as-is.
type VendorError struct {
	StatusCode int
	Body       string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("doku error %d: %s", e.StatusCode, e.Body)
}

type dokuClientImpl struct {
	http         *resty.Client
	signer       *signature.Signer
	checkoutPath string
	now          func() time.Time
}

func NewDokuClient(dokuCfg *config.Doku, signer *signature.Signer) DokuClient {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(dokuCfg.BaseApiURL, "/")).
		SetTimeout(dokuCfg.Timeout)

	return &dokuClientImpl{
		http:         httpClient,
		signer:       signer,
		checkoutPath: dokuCfg.CheckoutPath,
		now:          time.Now,
	}
}

func (c *dokuClientImpl) CreateCheckout(ctx context.Context, req *model.DokuCheckoutRequest) (*CheckoutSession, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	// the signature covers these exact bytes, so they are sent untouched
	signed := c.signer.SignRequest(c.checkoutPath, body, c.now())

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(signed.Map()).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.checkoutPath)
	if err != nil {
		return nil, fmt.Errorf("doku checkout request failed: %w", err)
	}

	raw := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &VendorError{StatusCode: resp.StatusCode(), Body: string(raw)}
	}

	var result model.DokuCheckoutResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode doku response: %w", err)
	}

	paymentURL := strings.TrimSpace(result.Response.Payment.URL)
	if paymentURL == "" {
		return nil, ErrMissingPaymentURL
	}

	session := &CheckoutSession{
		PaymentURL:  paymentURL,
		RequestID:   signed.RequestID,
		RawResponse: raw,
	}
	if expiresAt, ok := model.ParseDokuTime(result.Response.Payment.ExpiredDate); ok {
		session.ExpiresAt = &expiresAt
	}

	return session, nil
}
