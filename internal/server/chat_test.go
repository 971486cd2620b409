package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/docuchat/internal/pipeline"
	"github.com/docuchat/docuchat/models"
)

type stubAnswerer struct {
	res  pipeline.Answer
	err  error
	last struct {
		sessionID string
		question  string
		model     models.ModelName
	}
}

func (s *stubAnswerer) Answer(_ context.Context, sessionID, question string, model models.ModelName) (pipeline.Answer, error) {
	s.last.sessionID = sessionID
	s.last.question = question
	s.last.model = model
	if s.err != nil {
		return pipeline.Answer{}, s.err
	}
	return s.res, nil
}

func newChatContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestChatSuccess(t *testing.T) {
	stub := &stubAnswerer{res: pipeline.Answer{
		Answer:    "Fourteen days.",
		SessionID: "sess-1",
		Model:     models.ModelLlama70B,
	}}
	h := &ChatHandler{Pipeline: stub}

	ctx, rec := newChatContext(t, `{"question":"What is the refund window?","session_id":"sess-1"}`)
	if err := h.chat(ctx); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Fourteen days." || resp.SessionID != "sess-1" || resp.Model != string(models.ModelLlama70B) {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if stub.last.question != "What is the refund window?" {
		t.Fatalf("handler passed wrong question: %q", stub.last.question)
	}
}

func TestChatDefaultsToConfiguredModel(t *testing.T) {
	stub := &stubAnswerer{res: pipeline.Answer{
		Answer:    "ok",
		SessionID: "sess-1",
		Model:     models.ModelLlama8B,
	}}
	h := &ChatHandler{Pipeline: stub, DefaultModel: models.ModelLlama8B}

	ctx, rec := newChatContext(t, `{"question":"hi","session_id":"sess-1"}`)
	if err := h.chat(ctx); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if stub.last.model != models.ModelLlama8B {
		t.Fatalf("unset request model should route to the configured default, got %q", stub.last.model)
	}

	// An explicit request model still wins over the configured default.
	ctx, _ = newChatContext(t, fmt.Sprintf(`{"question":"hi","model":%q}`, models.ModelLlama70B))
	if err := h.chat(ctx); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if stub.last.model != models.ModelLlama70B {
		t.Fatalf("explicit request model overridden, got %q", stub.last.model)
	}
}

func TestChatEmptyQuestion(t *testing.T) {
	h := &ChatHandler{Pipeline: &stubAnswerer{err: pipeline.ErrEmptyQuestion}}

	ctx, _ := newChatContext(t, `{"question":""}`)
	err := h.chat(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %v", err)
	}
}

func TestChatUnsupportedModel(t *testing.T) {
	h := &ChatHandler{Pipeline: &stubAnswerer{err: fmt.Errorf("%w: gpt-9", models.ErrUnsupportedModel)}}

	ctx, _ := newChatContext(t, `{"question":"hi","model":"gpt-9"}`)
	err := h.chat(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %v", err)
	}
}

func TestChatStorageUnavailable(t *testing.T) {
	h := &ChatHandler{Pipeline: &stubAnswerer{err: fmt.Errorf("%w: load history: dial tcp", pipeline.ErrStorage)}}

	ctx, _ := newChatContext(t, `{"question":"hi"}`)
	err := h.chat(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %v", err)
	}
}

func TestChatCompletionFailure(t *testing.T) {
	h := &ChatHandler{Pipeline: &stubAnswerer{err: fmt.Errorf("%w: synthesize: timeout", pipeline.ErrCompletion)}}

	ctx, _ := newChatContext(t, `{"question":"hi"}`)
	err := h.chat(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %v", err)
	}
}
