package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/core/ports"
)

// DefaultOCRMinChars is the trimmed text length below which scanned
// formats are sent to OCR.
const DefaultOCRMinChars = 100

const (
	StageDetect   = "detect"
	StageExtract  = "extract"
	StageOCR      = "ocr"
	StageEntities = "entities"
	StageClassify = "classify"
	StageLegal    = "legal"
)

var ocrMediaTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// PipelineDeps wires the processing stages. Repo and Storage are only
// required by ProcessByID.
type PipelineDeps struct {
	Detector   ports.MediaTypeDetector
	Extractor  ports.TextExtractor
	OCR        ports.OCRRecognizer
	Entities   ports.EntityExtractor
	Classifier ports.DocumentClassifier
	Legal      ports.LegalStructurer
	Repo       ports.DocumentRepository
	Storage    ports.ObjectStorage
}

type ProcessOption func(*ProcessDocumentUseCase)

func WithLogger(logger *slog.Logger) ProcessOption {
	return func(uc *ProcessDocumentUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithObserver(observer ports.PipelineObserver) ProcessOption {
	return func(uc *ProcessDocumentUseCase) {
		if observer != nil {
			uc.observer = observer
		}
	}
}

func WithOCRMinChars(n int) ProcessOption {
	return func(uc *ProcessDocumentUseCase) {
		if n > 0 {
			uc.ocrMinChars = n
		}
	}
}

// ProcessDocumentUseCase runs extraction, OCR fallback, entity extraction,
// classification and legal structuring over one document.
type ProcessDocumentUseCase struct {
	detector   ports.MediaTypeDetector
	extractor  ports.TextExtractor
	ocr        ports.OCRRecognizer
	entities   ports.EntityExtractor
	classifier ports.DocumentClassifier
	legal      ports.LegalStructurer
	repo       ports.DocumentRepository
	storage    ports.ObjectStorage

	logger      *slog.Logger
	observer    ports.PipelineObserver
	ocrMinChars int
}

func NewProcessDocumentUseCase(deps PipelineDeps, opts ...ProcessOption) *ProcessDocumentUseCase {
	uc := &ProcessDocumentUseCase{
		detector:    deps.Detector,
		extractor:   deps.Extractor,
		ocr:         deps.OCR,
		entities:    deps.Entities,
		classifier:  deps.Classifier,
		legal:       deps.Legal,
		repo:        deps.Repo,
		storage:     deps.Storage,
		logger:      slog.Default(),
		observer:    noopObserver{},
		ocrMinChars: DefaultOCRMinChars,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ProcessDocumentUseCase) ProcessDocument(ctx context.Context, path string) (*domain.ProcessResult, error) {
	return uc.process(ctx, path, path)
}

func (uc *ProcessDocumentUseCase) ProcessDocumentAs(ctx context.Context, path, sourceName string) (*domain.ProcessResult, error) {
	if strings.TrimSpace(sourceName) == "" {
		sourceName = path
	}
	return uc.process(ctx, path, sourceName)
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if uc.repo == nil || uc.storage == nil {
		return errors.New("process by id: repository and storage are not configured")
	}
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.processStored(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistResult(ctx, documentID, result); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) process(ctx context.Context, path, sourceName string) (*domain.ProcessResult, error) {
	started := time.Now()

	info, err := uc.statFile(path)
	if err != nil {
		return nil, err
	}
	info.Path = sourceName

	mediaType, err := uc.detectMediaType(ctx, path)
	if err != nil {
		return nil, err
	}
	info.Type = mediaType

	text, err := uc.extractText(ctx, path, mediaType)
	if err != nil {
		return nil, err
	}

	text, err = uc.applyOCRFallback(ctx, path, mediaType, text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, &domain.EmptyContentError{Partial: &domain.ProcessResult{
			FileInfo: info,
			Metadata: domain.Metadata{Entities: domain.EntityBundle{}.Normalized(), KeyPhrases: []string{}},
		}}
	}

	metadata, err := uc.extractMetadata(ctx, text)
	if err != nil {
		return nil, err
	}

	classification, err := uc.classify(ctx, text)
	if err != nil {
		return nil, err
	}

	result := &domain.ProcessResult{
		FileInfo:       info,
		Metadata:       metadata,
		Classification: classification,
		Content:        text,
	}
	if result.IsLegal() {
		if err := uc.structureLegal(result); err != nil {
			return nil, err
		}
	}

	uc.logger.Info("document_processed",
		"path", sourceName,
		"media_type", mediaType,
		"size_bytes", info.Size,
		"category", classification.PrimaryCategory,
		"confidence", classification.Confidence,
		"legal", result.LegalMetadata != nil,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, nil
}

func (uc *ProcessDocumentUseCase) processStored(ctx context.Context, documentID string) (*domain.ProcessResult, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	path, cleanup, err := uc.materialize(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return uc.process(ctx, path, doc.StoragePath)
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

// materialize copies a stored document to a temporary file so that
// path-based stages such as OCR can read it.
func (uc *ProcessDocumentUseCase) materialize(ctx context.Context, doc *domain.Document) (string, func(), error) {
	src, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", nil, fmt.Errorf("open stored document: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "docstruct-*"+filepath.Ext(doc.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			uc.logger.Warn("temp_file_cleanup_failed", "path", tmp.Name(), "error", err)
		}
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("copy stored document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func (uc *ProcessDocumentUseCase) statFile(path string) (domain.FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.FileInfo{}, domain.WrapError(domain.ErrFileNotFound, "stat document", err)
		}
		return domain.FileInfo{}, fmt.Errorf("stat document: %w", err)
	}
	if stat.IsDir() {
		return domain.FileInfo{}, domain.WrapError(domain.ErrInvalidInput, "stat document", fmt.Errorf("%s is a directory", path))
	}
	return domain.FileInfo{Path: path, Size: stat.Size()}, nil
}

func (uc *ProcessDocumentUseCase) detectMediaType(ctx context.Context, path string) (mediaType string, err error) {
	defer uc.observe(StageDetect, time.Now(), &err)

	mediaType, err = uc.detector.Detect(ctx, path)
	if err != nil {
		return "", fmt.Errorf("detect media type: %w", err)
	}
	return mediaType, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, path, mediaType string) (text string, err error) {
	defer uc.observe(StageExtract, time.Now(), &err)

	text, err = uc.extractor.Extract(ctx, path, mediaType)
	if err != nil {
		if domain.IsKind(err, domain.ErrUnsupportedFormat) || domain.IsKind(err, domain.ErrExtraction) {
			return "", fmt.Errorf("extract text: %w", err)
		}
		return "", domain.WrapError(domain.ErrExtraction, "extract text", err)
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) applyOCRFallback(ctx context.Context, path, mediaType, text string) (out string, err error) {
	if !uc.needsOCR(mediaType, text) {
		return text, nil
	}
	if uc.ocr == nil {
		uc.logger.Warn("ocr_unavailable", "path", path, "media_type", mediaType)
		return text, nil
	}
	defer uc.observe(StageOCR, time.Now(), &err)
	uc.observer.ObserveOCRFallback(mediaType)

	out, err = uc.ocr.Recognize(ctx, path, mediaType)
	if err != nil {
		if domain.IsKind(err, domain.ErrExtraction) || domain.IsKind(err, domain.ErrUnsupportedFormat) {
			return "", fmt.Errorf("ocr fallback: %w", err)
		}
		return "", domain.WrapError(domain.ErrExtraction, "ocr fallback", err)
	}
	return out, nil
}

func (uc *ProcessDocumentUseCase) needsOCR(mediaType, text string) bool {
	if !ocrMediaTypes[mediaType] {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(text)) < uc.ocrMinChars
}

func (uc *ProcessDocumentUseCase) extractMetadata(ctx context.Context, text string) (meta domain.Metadata, err error) {
	defer uc.observe(StageEntities, time.Now(), &err)

	meta, err = uc.entities.Extract(ctx, text)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("extract metadata: %w", err)
	}
	meta.Entities = meta.Entities.Normalized()
	if meta.KeyPhrases == nil {
		meta.KeyPhrases = []string{}
	}
	return meta, nil
}

func (uc *ProcessDocumentUseCase) classify(ctx context.Context, text string) (result domain.ClassificationResult, err error) {
	defer uc.observe(StageClassify, time.Now(), &err)

	result, err = uc.classifier.Classify(ctx, text)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("classify document: %w", err)
	}
	uc.observer.ObserveClassification(result)
	return result, nil
}

func (uc *ProcessDocumentUseCase) structureLegal(result *domain.ProcessResult) (err error) {
	defer uc.observe(StageLegal, time.Now(), &err)

	meta := uc.legal.ExtractLegalMetadata(result)
	result.LegalMetadata = &meta

	xml, err := uc.legal.CreateAkomaNtoso(result)
	if err != nil {
		return fmt.Errorf("create akoma ntoso: %w", err)
	}
	result.AkomaNtoso = xml
	return nil
}

func (uc *ProcessDocumentUseCase) persistResult(ctx context.Context, documentID string, result *domain.ProcessResult) error {
	if err := uc.repo.SaveResult(ctx, documentID, result); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}

func (uc *ProcessDocumentUseCase) observe(stage string, started time.Time, err *error) {
	uc.observer.ObserveStage(stage, time.Since(started).Seconds(), *err)
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, float64, error)               {}
func (noopObserver) ObserveOCRFallback(string)                         {}
func (noopObserver) ObserveClassification(domain.ClassificationResult) {}
