package model

import (
	"strings"
	"time"
)

// DokuNotification is the settlement notification body. Only the fields the
// reconciliation needs are required; everything else is kept in the raw
// payload snapshot.
type DokuNotification struct {
	Order       DokuNotificationOrder       `json:"order" validate:"required"`
	Transaction DokuNotificationTransaction `json:"transaction" validate:"required"`
}

type DokuNotificationOrder struct {
	InvoiceNumber string `json:"invoice_number" validate:"required,max=64"`
	Amount        int64  `json:"amount"`
}

type DokuNotificationTransaction struct {
	Status            string `json:"status" validate:"required,max=32"`
	Date              string `json:"date"`
	OriginalRequestID string `json:"original_request_id"`
}

type DokuLineItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type DokuCheckoutOrder struct {
	Amount            int64          `json:"amount"`
	InvoiceNumber     string         `json:"invoice_number"`
	Currency          string         `json:"currency"`
	CallbackURL       string         `json:"callback_url"`
	CallbackURLCancel string         `json:"callback_url_cancel"`
	LineItems         []DokuLineItem `json:"line_items"`
}

type DokuCheckoutPayment struct {
	PaymentDueDate     int      `json:"payment_due_date"`
	PaymentMethodTypes []string `json:"payment_method_types,omitempty"`
}

type DokuCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type DokuAdditionalInfo struct {
	OverrideNotificationURL string `json:"override_notification_url"`
}

type DokuCheckoutRequest struct {
	Order          DokuCheckoutOrder   `json:"order"`
	Payment        DokuCheckoutPayment `json:"payment"`
	Customer       DokuCustomer        `json:"customer"`
	AdditionalInfo DokuAdditionalInfo  `json:"additional_info"`
}

type DokuCheckoutResponse struct {
	Message  []string `json:"message"`
	Response struct {
		Payment struct {
			URL         string `json:"url"`
			ExpiredDate string `json:"expired_date"`
			TokenID     string `json:"token_id"`
		} `json:"payment"`
		Headers struct {
			RequestID string `json:"request_id"`
		} `json:"headers"`
	} `json:"response"`
}

// MapDokuStatus translates the vendor transaction status vocabulary.
// Unknown statuses map to PENDING: nothing has settled yet as far as this
// service can tell.
func MapDokuStatus(vendorStatus string) OrderStatus {
	switch strings.ToUpper(strings.TrimSpace(vendorStatus)) {
	case "SUCCESS":
		return OrderStatusPaid
	case "FAILED":
		return OrderStatusFailed
	case "EXPIRED":
		return OrderStatusExpired
	case "REFUNDED":
		return OrderStatusRefunded
	case "CANCELLED", "CANCELED":
		return OrderStatusCanceled
	default:
		return OrderStatusPending
	}
}

var dokuTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102150405",
}

// ParseDokuTime accepts the timestamp formats seen in DOKU payloads.
// Zone-less values are read as UTC.
func ParseDokuTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dokuTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
