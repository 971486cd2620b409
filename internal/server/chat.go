package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/docuchat/internal/pipeline"
	"github.com/docuchat/docuchat/models"
)

// Answerer runs one chat turn. Satisfied by *pipeline.Orchestrator.
type Answerer interface {
	Answer(ctx context.Context, sessionID, question string, model models.ModelName) (pipeline.Answer, error)
}

type ChatHandler struct {
	Pipeline Answerer
	Logger   *log.Logger
	// DefaultModel answers requests that leave the model unset. Zero value
	// falls through to models.DefaultModel inside the pipeline.
	DefaultModel models.ModelName
}

func (h *ChatHandler) Register(g *echo.Group, secret []byte) {
	g.POST("", withAuth(h.chat, secret))
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	model := models.ModelName(req.Model)
	if model == "" {
		model = h.DefaultModel
	}

	start := time.Now()
	res, err := h.Pipeline.Answer(c.Request().Context(), req.SessionID, req.Question, model)
	chatTurnDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		chatTurnsTotal.WithLabelValues("error").Inc()
		switch {
		case errors.Is(err, pipeline.ErrEmptyQuestion), errors.Is(err, models.ErrUnsupportedModel):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, pipeline.ErrStorage):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
		case errors.Is(err, pipeline.ErrCompletion):
			return echo.NewHTTPError(http.StatusBadGateway, "completion provider failed")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	chatTurnsTotal.WithLabelValues("ok").Inc()

	if h.Logger != nil {
		h.Logger.Printf("session %s answered with %s in %s", res.SessionID, res.Model, time.Since(start).Round(time.Millisecond))
	}
	return c.JSON(http.StatusOK, QueryResponse{
		Answer:    res.Answer,
		SessionID: res.SessionID,
		Model:     string(res.Model),
	})
}
