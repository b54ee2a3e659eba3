package documents

import (
	"fmt"
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
	api.POST("/documents", h.Create)
	api.GET("/documents", h.List)
	api.GET("/documents/:id", h.Get)
	api.DELETE("/documents/:id", h.Delete)
	api.POST("/documents/:id/file", h.AttachFile)
	api.GET("/documents/:id/file", h.DownloadFile)
	api.POST("/documents/:id/analyze-image", h.AnalyzeImage)
}

func docID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

type createResponse struct {
	Document *Document `json:"document"`
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

	doc, outcome, err := h.svc.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{Document: doc, WriteOutcome: outcome})
}

func (h *Handler) List(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	docs, total, err := h.svc.List(c.Request().Context(), userID, c.QueryParam("doc_type"), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(docs, total, p.Limit, p.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	doc, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AttachFile(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file upload")
	}
	defer f.Close()

	doc, err := h.svc.AttachFile(c.Request().Context(), userID, id, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) DownloadFile(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	rc, meta, err := h.svc.DownloadFile(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *Handler) AnalyzeImage(c echo.Context) error {
	userID, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := docID(c)
	if err != nil {
		return err
	}

	doc, err := h.svc.AnalyzeImage(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}
