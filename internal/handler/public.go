package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/service"
)

// PublicHandler serves the unauthenticated submission site.
type PublicHandler struct {
	Checkout     *service.Checkout
	Uploader     *service.Uploader
	Applications *service.Applications
	Log          *zap.Logger
}

// Tiers GET /v1/tiers
func (h *PublicHandler) Tiers(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": service.Tiers()})
}

// Upload POST /v1/uploads takes a multipart "file" holding a PDF.
func (h *PublicHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file required")
	}
	if fh.Size > service.MaxUploadBytes {
		return fail(c, h.Log, "upload script", service.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable file")
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, service.MaxUploadBytes+1))
	if err != nil {
		return badRequest(c, "unreadable file")
	}
	up, err := h.Uploader.Upload(c.Request().Context(), fh.Filename, body)
	if err != nil {
		return fail(c, h.Log, "upload script", err)
	}
	return c.JSON(http.StatusCreated, up)
}

// Checkout POST /v1/checkout creates the script and, for paid tiers, the
// hosted payment session.
func (h *PublicHandler) Checkout(c echo.Context) error {
	var req service.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.Log, "create checkout", err)
	}
	res, err := h.Checkout.Start(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.Log, "create checkout", err)
	}
	return c.JSON(http.StatusCreated, res)
}

// StripeWebhook POST /v1/webhooks/stripe
func (h *PublicHandler) StripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<16))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	err = h.Checkout.Webhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			h.Log.Warn("webhook rejected", zap.Error(err))
		}
		return fail(c, h.Log, "process webhook", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

type applicationReq struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"max=64"`
	Experience string `json:"experience" validate:"max=5000"`
	Portfolio  string `json:"portfolio_url" validate:"omitempty,url"`
}

// Apply POST /v1/applications
func (h *PublicHandler) Apply(c echo.Context) error {
	var req applicationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.Log, "submit application", err)
	}
	app := &model.ContractorApplication{
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      strings.TrimSpace(req.Phone),
		Experience: strings.TrimSpace(req.Experience),
		Portfolio:  strings.TrimSpace(req.Portfolio),
	}
	if err := h.Applications.Apply(c.Request().Context(), app); err != nil {
		return fail(c, h.Log, "submit application", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": app.ID, "status": app.Status})
}
