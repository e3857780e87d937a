package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-structurer/internal/config"
	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/observability/metrics"
)

type ingestSuccessFake struct{}

func (f ingestSuccessFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "doc-1/file.txt",
		SizeBytes:   int64(len(raw)),
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// processorFake records the spooled file contents and returns a fixed result.
type processorFake struct {
	err        error
	gotContent string
	gotSource  string
	gotPath    string
}

func (f *processorFake) ProcessDocument(ctx context.Context, path string) (*domain.ProcessResult, error) {
	return f.ProcessDocumentAs(ctx, path, path)
}

func (f *processorFake) ProcessDocumentAs(_ context.Context, path, sourceName string) (*domain.ProcessResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.gotContent = string(raw)
	f.gotSource = sourceName
	f.gotPath = path
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProcessResult{
		FileInfo: domain.FileInfo{Path: sourceName, Type: "text/plain", Size: int64(len(raw))},
		Content:  string(raw),
		Classification: domain.ClassificationResult{
			PrimaryCategory: domain.CategoryLegal,
			Confidence:      0.9,
			Method:          "combined",
		},
	}, nil
}

type docsFake struct {
	doc *domain.Document
	err error
}

func (f docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc != nil {
		return f.doc, nil
	}
	return &domain.Document{ID: id, Filename: "a", MimeType: "text/plain", StoragePath: "a", Status: domain.StatusReady}, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, ingestSuccessFake{}, &processorFake{}, docsFake{}).Handler()
}

func newRouterForIngestTests() http.Handler {
	return newTestHandler(config.Config{})
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newRouterForIngestTests()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestHealthzReportsOpenBreakerAsDegraded(t *testing.T) {
	handler := NewRouter(config.Config{}, ingestSuccessFake{}, &processorFake{}, docsFake{},
		WithBreakerStates(func() map[string]string {
			return map[string]string{"ollama.zero_shot": "open", "nats.publish": "closed"}
		}),
	).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp struct {
		Status   string            `json:"status"`
		Breakers map[string]string `json:"breakers"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" || resp.Breakers["ollama.zero_shot"] != "open" {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := newRouterForIngestTests()
	body, contentType := multipartBody(t, "file", "file.txt", "hello")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" || docResp["status"] != "uploaded" {
		t.Fatalf("unexpected response: %+v", docResp)
	}
}

func TestUploadDocumentRecordsMetrics(t *testing.T) {
	m := metrics.NewHTTPServerMetrics(serviceName)
	handler := NewRouter(config.Config{}, ingestSuccessFake{}, &processorFake{}, docsFake{}, WithMetrics(m)).Handler()
	body, contentType := multipartBody(t, "file", "file.txt", "hello")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "docstruct_documents_uploads_total") {
		t.Fatalf("expected upload counter in exposition")
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := newRouterForIngestTests()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentTooLarge(t *testing.T) {
	handler := newTestHandler(config.Config{APIMaxUploadBytes: 64})
	body, contentType := multipartBody(t, "file", "big.txt", strings.Repeat("x", 1024))

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestUploadDocumentRejectsGet(t *testing.T) {
	handler := newRouterForIngestTests()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
