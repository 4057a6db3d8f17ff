package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doku-template-store/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func run(t *testing.T, authorization string) (*httptest.ResponseRecorder, service.Buyer, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/access/portfolio-pro", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got service.Buyer
	err := AuthMiddleware(secret)(func(c echo.Context) error {
		got, _ = BuyerFromContext(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, got, err
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	token, err := IssueBuyerToken(secret, service.Buyer{ID: "buyer-1", Email: "Buyer@Example.com", Name: "Buyer"}, time.Hour)
	require.NoError(t, err)

	rec, buyer, err := run(t, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.Buyer{ID: "buyer-1", Email: "buyer@example.com", Name: "Buyer"}, buyer)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	expired, err := IssueBuyerToken(secret, service.Buyer{ID: "buyer-1", Email: "b@example.com"}, -time.Minute)
	require.NoError(t, err)

	wrongKey, err := IssueBuyerToken("other-secret", service.Buyer{ID: "buyer-1", Email: "b@example.com"}, time.Hour)
	require.NoError(t, err)

	noEmail, err := IssueBuyerToken(secret, service.Buyer{ID: "buyer-1"}, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, BuyerClaims{
		Email:            "b@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "buyer-1"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no email":   "Bearer " + noEmail,
		"no expiry":  "Bearer " + noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := run(t, header)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		})
	}
}
