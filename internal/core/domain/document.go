package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is an uploaded source file tracked by the service.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	SizeBytes   int64          `json:"size_bytes"`
	Category    Category       `json:"category,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	Result      *ProcessResult `json:"result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FileInfo identifies a processed source by path, detected media type and size.
type FileInfo struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// ProcessResult is the structured output of the processing pipeline.
// LegalMetadata and AkomaNtoso are set only for legal documents.
type ProcessResult struct {
	FileInfo       FileInfo             `json:"file_info"`
	Metadata       Metadata             `json:"metadata"`
	Classification ClassificationResult `json:"classification"`
	Content        string               `json:"content"`
	LegalMetadata  *LegalMetadata       `json:"legal_metadata,omitempty"`
	AkomaNtoso     string               `json:"akoma_ntoso,omitempty"`
}

func (r *ProcessResult) IsLegal() bool {
	return r != nil && r.Classification.PrimaryCategory == CategoryLegal
}

// BatchItem pairs a batch input path with its outcome. Err is set on
// failure. Result is set on success, and on an EmptyContentError it holds
// the partial result.
type BatchItem struct {
	Path   string         `json:"path"`
	Result *ProcessResult `json:"result,omitempty"`
	Err    error          `json:"-"`
}

func (b BatchItem) Failed() bool {
	return b.Err != nil
}
