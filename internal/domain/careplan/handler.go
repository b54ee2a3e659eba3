package careplan

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medinexus/twin/internal/domain/twin"
	"github.com/medinexus/twin/internal/platform/auth"
	"github.com/medinexus/twin/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/care-plans", h.Create)
	api.GET("/care-plans", h.List)
	api.GET("/care-plans/:id", h.Get)
	api.PUT("/care-plans/:id/status", h.UpdateStatus)
}

type createResponse struct {
	CarePlan *CarePlan `json:"care_plan"`
	twin.WriteOutcome
}

func (h *Handler) Create(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	plan, outcome, err := h.svc.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{CarePlan: plan, WriteOutcome: outcome})
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	plans, total, err := h.svc.List(c.Request().Context(), userID, c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(plans, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	plan, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	plan, err := h.svc.UpdateStatus(c.Request().Context(), userID, id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}
