package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document state and results.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor runs the full pipeline on a local file.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, path string) (*domain.ProcessResult, error)
	// ProcessDocumentAs reads path but reports sourceName as the document identity.
	ProcessDocumentAs(ctx context.Context, path, sourceName string) (*domain.ProcessResult, error)
}

// StoredDocumentProcessor is the inbound contract for asynchronous processing.
type StoredDocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
