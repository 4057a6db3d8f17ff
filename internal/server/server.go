package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"doku-template-store/internal/dto"
	"doku-template-store/internal/handler"
	authmw "doku-template-store/internal/middleware"
	"doku-template-store/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Services struct {
	Checkout service.CheckoutService
	Catalog  service.CatalogService
	Account  service.AccountService
	Webhook  service.WebhookService
}

type Server struct {
	echo            *echo.Echo
	log             *slog.Logger
	jwtSecret       string
	notifyPath      string
	checkoutHandler *handler.CheckoutHandler
	accountHandler  *handler.AccountHandler
	webhookHandler  *handler.WebhookHandler
}

func NewServer(services Services, jwtSecret, notifyPath string, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		log:             log,
		jwtSecret:       jwtSecret,
		notifyPath:      notifyPath,
		checkoutHandler: handler.NewCheckoutHandler(services.Checkout, services.Catalog),
		accountHandler:  handler.NewAccountHandler(services.Account),
		webhookHandler:  handler.NewWebhookHandler(services.Webhook, log),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "DOKU template store")
	})

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	api.GET("/products", s.checkoutHandler.ListProducts)

	// -------- buyer --------
	auth := authmw.AuthMiddleware(s.jwtSecret)
	api.POST("/checkout", s.checkoutHandler.Checkout, auth)
	api.GET("/orders/:invoice", s.accountHandler.GetOrder, auth)
	api.GET("/access/:slug", s.accountHandler.GetAccess, auth)

	// -------- doku notifications / callbacks --------
	s.echo.POST(s.notifyPath, s.webhookHandler.DokuNotify)
	s.echo.GET("/checkout/success", s.checkoutHandler.HandleSuccess)
	s.echo.GET("/checkout/failed", s.checkoutHandler.HandleFailed)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// errorHandler maps service errors to status codes. Anything unknown is a
// 500 with a generic body; details stay in the log.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("write error response", "error", err)
		}
	}
}

func statusFor(err error) (int, *dto.ErrorResponse) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, &dto.ErrorResponse{Error: msg}
	}

	var checkoutErr *service.CheckoutError
	if errors.As(err, &checkoutErr) {
		return http.StatusBadGateway, &dto.ErrorResponse{
			Error:         checkoutErr.Message,
			InvoiceNumber: checkoutErr.InvoiceNumber,
		}
	}

	switch {
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, &dto.ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrCheckoutDisabled):
		return http.StatusServiceUnavailable, &dto.ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, &dto.ErrorResponse{Error: service.ErrInvalidInput.Error()}
	}

	return http.StatusInternalServerError, &dto.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
}
