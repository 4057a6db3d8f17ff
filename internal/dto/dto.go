package dto

import "time"

type CheckoutRequest struct {
	ProductSlug string `json:"product_slug" validate:"required,max=128"`
}

type CheckoutResponse struct {
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	CheckoutURL   string     `json:"checkout_url,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	AlreadyOwned  bool       `json:"already_owned"`
	DownloadURL   string     `json:"download_url,omitempty"`
}

// WebhookResponse is the body DOKU gets back from the notification endpoint.
type WebhookResponse struct {
	OK        bool   `json:"ok"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Status    string `json:"status,omitempty"`
}

type OrderResponse struct {
	InvoiceNumber     string     `json:"invoice_number"`
	ProductSlug       string     `json:"product_slug"`
	ProductName       string     `json:"product_name"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	CheckoutURL       string     `json:"checkout_url,omitempty"`
	CheckoutExpiresAt *time.Time `json:"checkout_expires_at,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type AccessResponse struct {
	ProductSlug string     `json:"product_slug"`
	HasAccess   bool       `json:"has_access"`
	DownloadURL string     `json:"download_url,omitempty"`
	GrantedAt   *time.Time `json:"granted_at,omitempty"`
}

type ProductResponse struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

type ErrorResponse struct {
	Error         string `json:"error"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
}
