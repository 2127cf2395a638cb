package handler

import (
	"io"
	"net/http"

	"github.com/Eursukkul/rental-marketplace/internal/dto"
	"github.com/Eursukkul/rental-marketplace/internal/service"
	"github.com/labstack/echo/v4"
)

// maxWebhookBody matches the provider's documented payload ceiling.
const maxWebhookBody = 65536

type PaymentHandler struct {
	svc service.PaymentService
}

func NewPaymentHandler(svc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func (h *PaymentHandler) RegisterRoutes(g *echo.Group, requireAuth echo.MiddlewareFunc) {
	g.POST("/bookings/:id/payments/intent", h.CreateIntent, requireAuth)
	g.POST("/bookings/:id/payments/refund", h.Refund, requireAuth)
	g.GET("/bookings/:id/payment", h.GetPayment, requireAuth)

	g.POST("/payments/webhook", h.Webhook)
}

func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "booking")
	if err != nil {
		return err
	}

	result, err := h.svc.CreateIntent(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToPaymentIntentResponse(result))
}

func (h *PaymentHandler) Refund(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "booking")
	if err != nil {
		return err
	}

	booking, err := h.svc.Refund(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponse(booking))
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "booking")
	if err != nil {
		return err
	}

	booking, err := h.svc.GetPayment(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToPaymentResponse(booking))
}

// Webhook verifies the provider signature against the raw body, so the body
// must not be bound or re-encoded first.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	if err := h.svc.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
