package insights

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medinexus/twin/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/insights/daily", h.Daily)
	api.GET("/insights/weekly-report", h.Weekly)
}

func (h *Handler) Daily(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	insights, err := h.svc.Daily(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, insights)
}

func (h *Handler) Weekly(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	report, err := h.svc.Weekly(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
