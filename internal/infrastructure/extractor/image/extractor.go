package image

import "context"

// Extractor accepts raster images, which carry no text layer. Their text
// comes from OCR.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return "image" }

func (e *Extractor) SupportedTypes() []string {
	return []string{"image/jpeg", "image/png"}
}

func (e *Extractor) ExtractFile(context.Context, string) (string, error) {
	return "", nil
}
