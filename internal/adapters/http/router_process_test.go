package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/document-structurer/internal/config"
	"github.com/kirillkom/document-structurer/internal/core/domain"
)

func TestProcessDocumentSynchronous(t *testing.T) {
	processor := &processorFake{}
	handler := NewRouter(config.Config{}, ingestSuccessFake{}, processor, docsFake{}).Handler()
	body, contentType := multipartBody(t, "file", "lease.txt", "This agreement is made today.")

	req := httptest.NewRequest(http.MethodPost, "/v1/process", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if processor.gotSource != "lease.txt" {
		t.Fatalf("expected upload filename as source, got %q", processor.gotSource)
	}
	if processor.gotContent != "This agreement is made today." {
		t.Fatalf("unexpected spooled content %q", processor.gotContent)
	}
	if filepath.Ext(processor.gotPath) != ".txt" {
		t.Fatalf("expected spooled file to keep extension, got %s", processor.gotPath)
	}
	if _, err := os.Stat(processor.gotPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected spooled file removed, stat err = %v", err)
	}

	var result domain.ProcessResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.FileInfo.Path != "lease.txt" || result.Classification.PrimaryCategory != domain.CategoryLegal {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestProcessDocumentMapsPipelineErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "unsupported", err: domain.WrapError(domain.ErrUnsupportedFormat, "extract text", errors.New("application/zip")), want: http.StatusUnsupportedMediaType},
		{name: "extraction", err: domain.WrapError(domain.ErrExtraction, "extract text", errors.New("corrupt")), want: http.StatusUnprocessableEntity},
		{name: "empty text", err: domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no text")), want: http.StatusBadRequest},
		{name: "classification", err: &domain.ClassificationError{Stage: domain.StageStatistical, Err: errors.New("model")}, want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewRouter(config.Config{}, ingestSuccessFake{}, &processorFake{err: tc.err}, docsFake{}).Handler()
			body, contentType := multipartBody(t, "file", "doc.bin", "payload")

			req := httptest.NewRequest(http.MethodPost, "/v1/process", body)
			req.Header.Set("Content-Type", contentType)
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestGetAkomaNtoso(t *testing.T) {
	doc := &domain.Document{
		ID:     "doc-1",
		Status: domain.StatusReady,
		Result: &domain.ProcessResult{AkomaNtoso: `<akn:akomaNtoso></akn:akomaNtoso>`},
	}
	handler := NewRouter(config.Config{}, ingestSuccessFake{}, &processorFake{}, docsFake{doc: doc}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/akn", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("Content-Type") != aknContentType {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if res.Body.String() != `<akn:akomaNtoso></akn:akomaNtoso>` {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestGetAkomaNtosoForNonLegalDocument(t *testing.T) {
	doc := &domain.Document{ID: "doc-1", Status: domain.StatusReady, Result: &domain.ProcessResult{}}
	handler := NewRouter(config.Config{}, ingestSuccessFake{}, &processorFake{}, docsFake{doc: doc}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/akn", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetAkomaNtosoBeforeProcessing(t *testing.T) {
	doc := &domain.Document{ID: "doc-1", Status: domain.StatusProcessing}
	handler := NewRouter(config.Config{}, ingestSuccessFake{}, &processorFake{}, docsFake{doc: doc}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/akn", nil))
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}
