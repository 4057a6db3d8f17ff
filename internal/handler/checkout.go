package handler

import (
	"bytes"
	"html/template"
	"net/http"

	"doku-template-store/internal/dto"
	"doku-template-store/internal/middleware"
	"doku-template-store/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	catalogService  service.CatalogService
}

func NewCheckoutHandler(checkoutService service.CheckoutService, catalogService service.CatalogService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		catalogService:  catalogService,
	}
}

func (h *CheckoutHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()

	products, err := h.catalogService.ListProducts(ctx)
	if err != nil {
		return err
	}

	resp := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, dto.ProductResponse{
			Slug:     p.Slug,
			Name:     p.Name,
			Price:    p.Price,
			Currency: p.Currency,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	buyer, ok := middleware.BuyerFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing buyer")
	}

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "product_slug is required")
	}

	result, err := h.checkoutService.Checkout(ctx, buyer, req.ProductSlug)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.CheckoutResponse{
		InvoiceNumber: result.InvoiceNumber,
		CheckoutURL:   result.CheckoutURL,
		ExpiresAt:     result.ExpiresAt,
		AlreadyOwned:  result.AlreadyOwned,
		DownloadURL:   result.DownloadURL,
	})
}

// HandleSuccess is where DOKU sends the buyer back. Access is granted by the
// notification, not by this page.
func (h *CheckoutHandler) HandleSuccess(c echo.Context) error {
	return renderLanding(c, landingPage{
		Title:   "Payment received",
		Heading: "Thanks for your purchase",
		Message: "We are confirming your payment with DOKU. Your download unlocks as soon as it settles.",
		Invoice: c.QueryParam("invoice"),
	})
}

func (h *CheckoutHandler) HandleFailed(c echo.Context) error {
	return renderLanding(c, landingPage{
		Title:   "Payment not completed",
		Heading: "Payment was not completed",
		Message: "No money was taken. You can start a new checkout at any time.",
		Invoice: c.QueryParam("invoice"),
	})
}

type landingPage struct {
	Title   string
	Heading string
	Message string
	Invoice string
}

var landingTmpl = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	<style>
		body {
			font-family: Arial, sans-serif;
			text-align: center;
			margin-top: 80px;
		}
		.countdown {
			font-size: 24px;
			font-weight: bold;
		}
	</style>
</head>
<body>
	<h2>{{.Heading}}</h2>
	<p>{{.Message}}</p>
	{{if .Invoice}}<p>Invoice: <code>{{.Invoice}}</code></p>{{end}}
	<p>Redirecting to homepage in <span class="countdown" id="countdown">15</span> seconds…</p>

	<script>
		let seconds = 15;
		const el = document.getElementById("countdown");

		const timer = setInterval(function () {
			seconds--;
			el.textContent = seconds;

			if (seconds <= 0) {
				clearInterval(timer);
				window.location.href = "/";
			}
		}, 1000);
	</script>
</body>
</html>
`))

func renderLanding(c echo.Context, page landingPage) error {
	var buf bytes.Buffer
	if err := landingTmpl.Execute(&buf, page); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
