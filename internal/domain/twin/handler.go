package twin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medinexus/twin/internal/platform/auth"
	"github.com/medinexus/twin/pkg/apperr"
	"github.com/medinexus/twin/pkg/pagination"
)

type Handler struct {
	svc *Service
	agg *Aggregator
}

func NewHandler(svc *Service, agg *Aggregator) *Handler {
	return &Handler{svc: svc, agg: agg}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/twin/events", h.AppendEvent)
	api.GET("/twin/aggregate", h.GetAggregate)
	api.GET("/timeline", h.GetTimeline)
}

type appendEventRequest struct {
	EventType   string          `json:"event_type"`
	Timestamp   time.Time       `json:"timestamp"`
	DataPayload json.RawMessage `json:"data_payload"`
}

func (h *Handler) AppendEvent(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req appendEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	eventType := EventType(req.EventType)
	if !KnownType(eventType) {
		return apperr.Validation(fmt.Sprintf("unknown event type %q", req.EventType), "event_type")
	}
	payload, err := DecodePayload(eventType, req.DataPayload)
	if err != nil {
		return apperr.Validation("malformed data_payload", "data_payload")
	}
	event, err := h.svc.Append(c.Request().Context(), userID, eventType, req.Timestamp, payload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

func (h *Handler) GetTimeline(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := QueryFilter{
		EventType: EventType(c.QueryParam("event_type")),
		Limit:     pg.Limit,
		Offset:    pg.Offset,
	}
	if v := c.QueryParam("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.Validation("since must be an RFC 3339 timestamp", "since")
		}
		f.Since = &ts
	}
	if v := c.QueryParam("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperr.Validation("until must be an RFC 3339 timestamp", "until")
		}
		f.Until = &ts
	}
	events, total, err := h.svc.Timeline(c.Request().Context(), userID, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetAggregate(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	snapshot, err := h.agg.Snapshot(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshot)
}
