package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"doku-template-store/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const buyerKey = "buyer"

type BuyerClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware accepts an HS256 bearer token whose subject is the buyer id
// and puts the buyer into the echo context.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	key := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			buyer, err := ParseBuyerToken(key, raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(buyerKey, buyer)
			return next(c)
		}
	}
}

func BuyerFromContext(c echo.Context) (service.Buyer, bool) {
	buyer, ok := c.Get(buyerKey).(service.Buyer)
	return buyer, ok
}

func ParseBuyerToken(key []byte, raw string) (service.Buyer, error) {
	var claims BuyerClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return service.Buyer{}, err
	}

	if claims.Subject == "" || strings.TrimSpace(claims.Email) == "" {
		return service.Buyer{}, errors.New("token has no buyer identity")
	}

	return service.Buyer{
		ID:    claims.Subject,
		Email: strings.ToLower(strings.TrimSpace(claims.Email)),
		Name:  claims.Name,
	}, nil
}

// IssueBuyerToken signs a token for local testing and the storectl tool.
func IssueBuyerToken(secret string, buyer service.Buyer, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := BuyerClaims{
		Email: buyer.Email,
		Name:  buyer.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   buyer.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
