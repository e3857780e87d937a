package plaintext

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"
)

// Extractor reads text/* files as UTF-8.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return "plaintext" }

func (e *Extractor) SupportedTypes() []string {
	return []string{"text/plain", "text/markdown", "text/csv"}
}

func (e *Extractor) ExtractFile(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("source document is not valid utf-8: %s", path)
	}
	return string(raw), nil
}
