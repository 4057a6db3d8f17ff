package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const ProviderDoku = "DOKU"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusFailed   OrderStatus = "FAILED"
	OrderStatusExpired  OrderStatus = "EXPIRED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// Product is a sellable template. Price is in the smallest currency unit.
type Product struct {
	Slug        string `gorm:"primaryKey;size:128;not null"`
	Name        string `gorm:"size:255;not null"`
	Price       int64  `gorm:"not null"`
	Currency    string `gorm:"size:8;not null"`
	DownloadURL string `gorm:"size:1024;not null"`
	Active      bool   `gorm:"not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is one checkout attempt. Buyer and product fields are snapshots taken
// at checkout time and are never joined back to live records.
type Order struct {
	InvoiceNumber string `gorm:"primaryKey;size:64;not null"`
	Provider      string `gorm:"size:16;not null"`

	BuyerID    string `gorm:"size:64;index;not null"`
	BuyerEmail string `gorm:"size:191;index;not null"`
	BuyerName  string `gorm:"size:255"`

	ProductSlug        string `gorm:"size:128;index;not null"`
	ProductName        string `gorm:"size:255;not null"`
	ProductDownloadURL string `gorm:"size:1024"`

	Amount   int64       `gorm:"not null"`
	Currency string      `gorm:"size:8;not null"`
	Status   OrderStatus `gorm:"size:16;index;not null"`

	CheckoutURL           string `gorm:"size:1024"`
	CheckoutExpiresAt     *time.Time
	VendorRequestID       string         `gorm:"size:128"`
	VendorPayloadSnapshot datatypes.JSON `json:"vendor_payload_snapshot"`

	// PaidAt is set on the first PAID transition and kept after refunds.
	PaidAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessGrant is a buyer's download right for a product. Unique per
// (buyer_email, product_slug); a nil RevokedAt means the grant is active.
type AccessGrant struct {
	ID                 uint   `gorm:"primaryKey"`
	BuyerEmail         string `gorm:"size:191;not null;uniqueIndex:ux_access_grants_buyer_product,priority:1"`
	ProductSlug        string `gorm:"size:128;not null;uniqueIndex:ux_access_grants_buyer_product,priority:2"`
	ProductName        string `gorm:"size:255"`
	DownloadURL        string `gorm:"size:1024"`
	SourceOrderInvoice string `gorm:"size:64;index"`
	GrantedAt          time.Time
	RevokedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (g *AccessGrant) Active() bool {
	return g != nil && g.RevokedAt == nil
}

// WebhookEvent is the append-only idempotency ledger row.
type WebhookEvent struct {
	EventKey      string         `gorm:"primaryKey;size:128;not null"`
	Provider      string         `gorm:"size:16;not null"`
	InvoiceNumber string         `gorm:"size:64;index"`
	VendorStatus  string         `gorm:"size:32"`
	RawPayload    datatypes.JSON `json:"raw_payload"`
	Applied       bool           `gorm:"not null"`
	ResultStatus  string         `gorm:"size:16"`
	ReceivedAt    time.Time      `gorm:"index;not null"`
}

// CheckoutSettings is the single-row storefront checkout configuration.
type CheckoutSettings struct {
	ID                    uint   `gorm:"primaryKey"`
	PaymentsEnabled       bool   `gorm:"not null"`
	CheckoutExpiryMinutes int    `gorm:"not null"`
	PaymentMethodTypes    string `gorm:"size:512"` // comma separated DOKU channel codes
	UpdatedAt             time.Time
}

const CheckoutSettingsID = 1

func DefaultCheckoutSettings() CheckoutSettings {
	return CheckoutSettings{
		ID:                    CheckoutSettingsID,
		PaymentsEnabled:       true,
		CheckoutExpiryMinutes: 60,
	}
}

func (s CheckoutSettings) MethodTypes() []string {
	var out []string
	for _, m := range strings.Split(s.PaymentMethodTypes, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// JSONSnapshot stores b as-is when it is valid JSON and wraps it otherwise,
// so snapshot columns always hold a JSON document.
func JSONSnapshot(b []byte) datatypes.JSON {
	if len(b) > 0 && json.Valid(b) {
		return datatypes.JSON(b)
	}
	wrapped, _ := json.Marshal(map[string]string{"raw": string(b)})
	return datatypes.JSON(wrapped)
}

// ErrorSnapshot records a failure message as a JSON document.
func ErrorSnapshot(stage string, err error) datatypes.JSON {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	b, _ := json.Marshal(map[string]string{
		"stage": stage,
		"error": msg,
	})
	return datatypes.JSON(b)
}
