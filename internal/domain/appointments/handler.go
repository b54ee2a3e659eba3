package appointments

import (
	"net/http"
	"time"

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
	api.POST("/appointments", h.Create)
	api.GET("/appointments", h.List)
	api.GET("/appointments/:id", h.Get)
	api.PUT("/appointments/:id/status", h.UpdateStatus)
	api.POST("/appointments/:id/video/token", h.VideoToken)
	api.POST("/appointments/:id/video/end", h.EndVideo)
}

func apptID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type createResponse struct {
	Appointment *Appointment `json:"appointment"`
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

	appt, outcome, err := h.svc.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{Appointment: appt, WriteOutcome: outcome})
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	f := Filter{Status: c.QueryParam("status"), Limit: p.Limit, Offset: p.Offset}
	if c.QueryParam("upcoming") == "true" {
		now := time.Now().UTC()
		f.UpcomingAfter = &now
	}

	appts, total, err := h.svc.List(c.Request().Context(), userID, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := apptID(c)
	if err != nil {
		return err
	}

	appt, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := apptID(c)
	if err != nil {
		return err
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.UpdateStatus(c.Request().Context(), userID, id, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) VideoToken(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := apptID(c)
	if err != nil {
		return err
	}

	token, err := h.svc.VideoToken(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, token)
}

func (h *Handler) EndVideo(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := apptID(c)
	if err != nil {
		return err
	}
	var in struct {
		DurationMinutes int `json:"duration_minutes"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, outcome, err := h.svc.EndVideo(c.Request().Context(), userID, id, in.DurationMinutes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, createResponse{Appointment: appt, WriteOutcome: outcome})
}
