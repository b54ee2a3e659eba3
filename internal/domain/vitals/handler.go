package vitals

import (
	"net/http"
	"strconv"

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
	api.POST("/vitals", h.Create)
	api.GET("/vitals", h.List)
	api.GET("/vitals/latest", h.Latest)
	api.GET("/vitals/summary", h.Summary)
	api.POST("/health-sync/devices", h.RegisterDevice)
	api.GET("/health-sync/devices", h.Devices)
	api.POST("/health-sync/batch", h.SyncBatch)
}

type createResponse struct {
	Vital *Vital `json:"vital"`
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

	v, outcome, err := h.svc.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{Vital: v, WriteOutcome: outcome})
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	vitals, total, err := h.svc.List(c.Request().Context(), userID, c.QueryParam("vital_type"), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(vitals, total, p.Limit, p.Offset))
}

func (h *Handler) Latest(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	latest, err := h.svc.Latest(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, latest)
}

func (h *Handler) Summary(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "days must be an integer")
		}
	}

	summary, err := h.svc.Summary(c.Request().Context(), userID, days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) RegisterDevice(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var in DeviceInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	d, err := h.svc.RegisterDevice(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Devices(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	devices, err := h.svc.Devices(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, devices)
}

func (h *Handler) SyncBatch(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var in struct {
		DeviceID uuid.UUID      `json:"device_id"`
		Readings []BatchReading `json:"readings"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if in.DeviceID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "device_id is required")
	}

	res, err := h.svc.SyncBatch(c.Request().Context(), userID, in.DeviceID, in.Readings)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
