package billing

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medinexus/twin/internal/platform/auth"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "X-Webhook-Signature"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the endpoints that work without a
// token: the plan catalog and the provider webhook.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.GET("/billing/plans", h.Plans)
	api.POST("/billing/webhook", h.Webhook)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/billing/checkout", h.Checkout)
	api.GET("/billing/subscription", h.Subscription)
}

func (h *Handler) Plans(c echo.Context) error {
	return c.JSON(http.StatusOK, Plans())
}

func (h *Handler) Checkout(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var in CheckoutInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Checkout(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Subscription(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	status, err := h.svc.Current(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable payload")
	}

	if err := h.svc.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get(SignatureHeader)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
