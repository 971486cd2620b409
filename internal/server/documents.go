package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/docuchat/internal/docs"
	"github.com/docuchat/docuchat/models"
)

// maxUploadBytes caps document uploads at 16 MiB.
const maxUploadBytes = 16 << 20

// Lifecycle is the document management surface. Satisfied by *docs.Manager.
type Lifecycle interface {
	Ingest(ctx context.Context, filename string, data []byte) (int64, error)
	IngestURL(ctx context.Context, rawURL string) (int64, error)
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.DocumentInfo, error)
}

type DocumentsHandler struct {
	Docs Lifecycle
}

func (h *DocumentsHandler) Register(g *echo.Group, secret []byte) {
	g.POST("", withAuth(h.upload, secret))
	g.POST("/url", withAuth(h.ingestURL, secret))
	g.GET("", withAuth(h.list, secret))
	g.DELETE("/:id", withAuth(h.remove, secret))
}

func (h *DocumentsHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field required")
	}
	if fh.Size > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(data) > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	id, err := h.Docs.Ingest(c.Request().Context(), fh.Filename, data)
	if err != nil {
		return mapDocsError(err)
	}
	documentsIngestedTotal.Inc()
	return c.JSON(http.StatusOK, UploadResponse{
		FileID:   id,
		Filename: fh.Filename,
		Message:  "File " + fh.Filename + " has been successfully uploaded and indexed.",
	})
}

func (h *DocumentsHandler) ingestURL(c echo.Context) error {
	var req IngestURLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	id, err := h.Docs.IngestURL(c.Request().Context(), req.URL)
	if err != nil {
		return mapDocsError(err)
	}
	documentsIngestedTotal.Inc()
	return c.JSON(http.StatusOK, UploadResponse{
		FileID:   id,
		Filename: req.URL,
		Message:  "URL content has been successfully fetched and indexed.",
	})
}

func (h *DocumentsHandler) list(c echo.Context) error {
	infos, err := h.Docs.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]DocumentResponse, 0, len(infos))
	for _, d := range infos {
		out = append(out, DocumentResponse{ID: d.ID, Filename: d.Filename, UploadTimestamp: d.UploadTimestamp})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *DocumentsHandler) remove(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	if err := h.Docs.Remove(c.Request().Context(), id); err != nil {
		return mapDocsError(err)
	}
	documentsDeletedTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}

func mapDocsError(err error) error {
	switch {
	case errors.Is(err, docs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, docs.ErrUnsupportedFormat):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, docs.ErrEmptyDocument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, docs.ErrDuplicateDocument):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, docs.ErrIndexWrite):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
