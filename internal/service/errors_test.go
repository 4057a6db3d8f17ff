package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"doku-template-store/internal/client"

	"github.com/stretchr/testify/assert"
)

func TestUserFacingCheckoutMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "html error page",
			err:  &client.VendorError{StatusCode: 502, Body: "<!DOCTYPE html><html><body>nginx</body></html>"},
			want: genericCheckoutMessage,
		},
		{
			name: "json error message",
			err:  &client.VendorError{StatusCode: 400, Body: `{"error":{"message":"Invalid amount"}}`},
			want: "The payment provider rejected the checkout: Invalid amount",
		},
		{
			name: "json message list",
			err:  &client.VendorError{StatusCode: 400, Body: `{"message":["amount is required","currency is invalid"]}`},
			want: "The payment provider rejected the checkout: amount is required, currency is invalid",
		},
		{
			name: "markup inside json",
			err:  &client.VendorError{StatusCode: 400, Body: `{"message":"<b>oops</b>"}`},
			want: genericCheckoutMessage,
		},
		{
			name: "overlong message",
			err:  &client.VendorError{StatusCode: 400, Body: `{"message":"` + strings.Repeat("x", 201) + `"}`},
			want: genericCheckoutMessage,
		},
		{
			name: "plain text body",
			err:  &client.VendorError{StatusCode: 500, Body: "internal error at host-12"},
			want: genericCheckoutMessage,
		},
		{
			name: "transport error",
			err:  fmt.Errorf("doku checkout request failed: %w", errors.New("dial tcp: timeout")),
			want: genericCheckoutMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserFacingCheckoutMessage(tt.err))
		})
	}
}
