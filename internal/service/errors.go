package service

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"doku-template-store/internal/client"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCheckoutDisabled = errors.New("checkout is disabled")
	ErrInvalidInput     = errors.New("invalid input")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const genericCheckoutMessage = "The payment provider is unavailable right now. Please try again in a few minutes."

// CheckoutError is a failed checkout. Message is safe to show to buyers;
// Err keeps the vendor details for logs and the order snapshot.
type CheckoutError struct {
	InvoiceNumber string
	Message       string
	Err           error
}

func (e *CheckoutError) Error() string {
	return "checkout " + e.InvoiceNumber + ": " + e.Err.Error()
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// UserFacingCheckoutMessage turns a vendor failure into text for buyers.
// Only short plain-text messages from a JSON error body pass through.
func UserFacingCheckoutMessage(err error) string {
	var vendorErr *client.VendorError
	if errors.As(err, &vendorErr) {
		if msg := vendorMessage(vendorErr.Body); msg != "" {
			return "The payment provider rejected the checkout: " + msg
		}
	}
	return genericCheckoutMessage
}

func vendorMessage(body string) string {
	body = strings.TrimSpace(body)
	if body == "" || looksLikeMarkup(body) {
		return ""
	}

	var doc struct {
		Message json.RawMessage `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ""
	}

	msg := doc.Error.Message
	if msg == "" && len(doc.Message) > 0 {
		var single string
		var list []string
		if json.Unmarshal(doc.Message, &single) == nil {
			msg = single
		} else if json.Unmarshal(doc.Message, &list) == nil {
			msg = strings.Join(list, ", ")
		}
	}

	msg = strings.TrimSpace(msg)
	if msg == "" || looksLikeMarkup(msg) || utf8.RuneCountInString(msg) > 200 {
		return ""
	}
	return msg
}

func looksLikeMarkup(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<!doctype") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "</")
}
