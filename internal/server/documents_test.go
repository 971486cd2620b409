package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/docuchat/docuchat/internal/docs"
	"github.com/docuchat/docuchat/models"
)

type stubLifecycle struct {
	ingestID  int64
	ingestErr error
	removeErr error
	listed    []models.DocumentInfo

	gotFilename string
	gotData     []byte
	gotURL      string
	removedID   int64
}

func (s *stubLifecycle) Ingest(_ context.Context, filename string, data []byte) (int64, error) {
	s.gotFilename = filename
	s.gotData = data
	return s.ingestID, s.ingestErr
}

func (s *stubLifecycle) IngestURL(_ context.Context, rawURL string) (int64, error) {
	s.gotURL = rawURL
	return s.ingestID, s.ingestErr
}

func (s *stubLifecycle) Remove(_ context.Context, id int64) error {
	s.removedID = id
	return s.removeErr
}

func (s *stubLifecycle) List(_ context.Context) ([]models.DocumentInfo, error) {
	return s.listed, nil
}

func multipartUpload(t *testing.T, filename, content string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func TestUploadDocument(t *testing.T) {
	e := echo.New()
	stub := &stubLifecycle{ingestID: 7}
	h := &DocumentsHandler{Docs: stub}

	req, rec := multipartUpload(t, "policy.txt", "refunds within 14 days")
	if err := h.upload(e.NewContext(req, rec)); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FileID != 7 || resp.Filename != "policy.txt" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if stub.gotFilename != "policy.txt" || string(stub.gotData) != "refunds within 14 days" {
		t.Fatalf("manager got %q / %q", stub.gotFilename, stub.gotData)
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	e := echo.New()
	stub := &stubLifecycle{ingestErr: fmt.Errorf("%w: .pdf", docs.ErrUnsupportedFormat)}
	h := &DocumentsHandler{Docs: stub}

	req, rec := multipartUpload(t, "report.pdf", "%PDF-1.4")
	err := h.upload(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 got %v", err)
	}
}

func TestUploadMissingFile(t *testing.T) {
	e := echo.New()
	h := &DocumentsHandler{Docs: &stubLifecycle{}}

	req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)
	rec := httptest.NewRecorder()
	err := h.upload(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %v", err)
	}
}

func TestIngestURLRequiresURL(t *testing.T) {
	e := echo.New()
	h := &DocumentsHandler{Docs: &stubLifecycle{}}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/url", bytes.NewReader([]byte(`{"url":"  "}`)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	err := h.ingestURL(e.NewContext(req, rec))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	e := echo.New()
	ts := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	stub := &stubLifecycle{listed: []models.DocumentInfo{
		{ID: 2, Filename: "b.txt", UploadTimestamp: ts},
		{ID: 1, Filename: "a.txt", UploadTimestamp: ts.Add(-time.Hour)},
	}}
	h := &DocumentsHandler{Docs: stub}

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	if err := h.list(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}

	var resp []DocumentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != 2 || resp[1].Filename != "a.txt" {
		t.Fatalf("unexpected listing: %+v", resp)
	}
}

func TestRemoveDocumentHandler(t *testing.T) {
	e := echo.New()
	stub := &stubLifecycle{}
	h := &DocumentsHandler{Docs: stub}

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/5", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("5")

	if err := h.remove(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 got %d", rec.Code)
	}
	if stub.removedID != 5 {
		t.Fatalf("manager got id %d", stub.removedID)
	}
}

func TestRemoveDocumentNotFound(t *testing.T) {
	e := echo.New()
	stub := &stubLifecycle{removeErr: fmt.Errorf("%w: 42", docs.ErrNotFound)}
	h := &DocumentsHandler{Docs: stub}

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/42", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("42")

	err := h.remove(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %v", err)
	}
}

func TestRemoveDocumentBadID(t *testing.T) {
	e := echo.New()
	h := &DocumentsHandler{Docs: &stubLifecycle{}}

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/abc", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("abc")

	err := h.remove(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %v", err)
	}
}
