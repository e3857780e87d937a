package extractor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

// Detector sniffs media types from file content.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

func (d *Detector) Detect(_ context.Context, path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", domain.WrapError(domain.ErrFileNotFound, "detect media type", err)
		}
		return "", fmt.Errorf("detect media type: %w", err)
	}
	return BaseMediaType(mt.String()), nil
}
