package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result *domain.ProcessResult) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// MediaTypeDetector sniffs the media type of a local file.
type MediaTypeDetector interface {
	Detect(ctx context.Context, path string) (string, error)
}

// TextExtractor converts a local file of the given media type into text.
// It fails with domain.ErrUnsupportedFormat or domain.ErrExtraction.
type TextExtractor interface {
	Extract(ctx context.Context, path, mediaType string) (string, error)
}

// OCRRecognizer recovers text from scanned PDFs and images.
type OCRRecognizer interface {
	Recognize(ctx context.Context, path, mediaType string) (string, error)
}

// EntityExtractor produces entities, key phrases, statistics and language.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (domain.Metadata, error)
}

// ZeroShotClassifier scores text against arbitrary candidate labels.
type ZeroShotClassifier interface {
	ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error)
}

// StatisticalClassifier returns class probabilities from a trained model.
type StatisticalClassifier interface {
	PredictProba(text string) (map[string]float64, error)
}

// DocumentClassifier assigns the fused category to non-empty text.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (domain.ClassificationResult, error)
}

// LegalStructurer derives legal metadata and the Akoma Ntoso rendering.
type LegalStructurer interface {
	ExtractLegalMetadata(result *domain.ProcessResult) domain.LegalMetadata
	CreateAkomaNtoso(result *domain.ProcessResult) (string, error)
}

// PipelineObserver receives per-stage pipeline signals.
type PipelineObserver interface {
	ObserveStage(stage string, elapsedSeconds float64, err error)
	ObserveOCRFallback(mediaType string)
	ObserveClassification(result domain.ClassificationResult)
}
