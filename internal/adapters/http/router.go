package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/document-structurer/internal/config"
	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/core/ports"
	"github.com/kirillkom/document-structurer/internal/observability/metrics"
)

const (
	serviceName       = "api"
	backpressureWait  = 100 * time.Millisecond
	multipartMemory   = 8 << 20
	aknContentType    = "application/akn+xml; charset=utf-8"
	defaultMaxUploads = 50 << 20
)

type Router struct {
	cfg       config.Config
	ingestUC  ports.DocumentIngestor
	processor ports.DocumentProcessor
	docs      ports.DocumentReader

	metrics       *metrics.HTTPServerMetrics
	breakerStates func() map[string]string
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

// WithBreakerStates exposes circuit breaker states on /healthz.
func WithBreakerStates(fn func() map[string]string) RouterOption {
	return func(rt *Router) {
		rt.breakerStates = fn
	}
}

func NewRouter(
	cfg config.Config,
	ingestUC ports.DocumentIngestor,
	processor ports.DocumentProcessor,
	docs ports.DocumentReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		ingestUC:  ingestUC,
		processor: processor,
		docs:      docs,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/documents", rt.uploadDocument)
	api.HandleFunc("/v1/documents/", rt.documentRoutes)
	api.HandleFunc("/v1/process", rt.processDocument)

	var guarded http.Handler = api
	if rt.cfg.APIMaxInFlight > 0 {
		guarded = backpressureMiddleware(guarded, rt.cfg.APIMaxInFlight, backpressureWait, rt.onReject("backpressure"))
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		burst := rt.cfg.APIRateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(rt.cfg.APIRateLimitRPS), burst)
		guarded = rateLimitMiddleware(guarded, limiter, rt.onReject("rate_limit"))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/", guarded)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) onReject(reason string) func() {
	return func() {
		if rt.metrics != nil {
			rt.metrics.RecordRejected(serviceName, reason)
		}
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if rt.breakerStates != nil {
		states := rt.breakerStates()
		resp["breakers"] = states
		for _, state := range states {
			if state == "open" {
				resp["status"] = "degraded"
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, filename, mimeType, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(r.Context(), filename, mimeType, file)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName, doc.MimeType, doc.SizeBytes)
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) documentRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	switch sub {
	case "":
		rt.getDocumentByID(w, r, id)
	case "akn":
		rt.getAkomaNtoso(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getAkomaNtoso(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if doc.Status != domain.StatusReady {
		writeError(w, http.StatusConflict, fmt.Sprintf("document is not processed yet (status=%s)", doc.Status))
		return
	}
	if doc.Result == nil || doc.Result.AkomaNtoso == "" {
		writeError(w, http.StatusNotFound, "document has no akoma ntoso rendering")
		return
	}

	w.Header().Set("Content-Type", aknContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc.Result.AkomaNtoso)
}

// processDocument runs the pipeline synchronously on an uploaded file.
func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	file, filename, _, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	path, cleanup, err := spoolUpload(file, filename)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	defer cleanup()

	result, err := rt.processor.ProcessDocumentAs(r.Context(), path, filepath.Base(filename))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readUpload writes the error response itself and reports ok=false on failure.
func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, string, bool) {
	maxBytes := rt.cfg.APIMaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploads
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return nil, "", "", false
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return nil, "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return nil, "", "", false
	}
	return file, header.Filename, header.Header.Get("Content-Type"), true
}

func spoolUpload(src io.Reader, filename string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "docstruct-upload-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", nil, fmt.Errorf("create upload temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close upload temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeError(w, status, err.Error())
}
