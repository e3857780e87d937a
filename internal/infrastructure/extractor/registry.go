package extractor

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/infrastructure/extractor/docx"
	"github.com/kirillkom/document-structurer/internal/infrastructure/extractor/html"
	"github.com/kirillkom/document-structurer/internal/infrastructure/extractor/image"
	"github.com/kirillkom/document-structurer/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/document-structurer/internal/infrastructure/extractor/plaintext"
)

// FormatExtractor converts one family of media types to text.
type FormatExtractor interface {
	Name() string
	SupportedTypes() []string
	ExtractFile(ctx context.Context, path string) (string, error)
}

// Registry dispatches extraction by media type. Unlisted text/* types fall
// back to the text extractor.
type Registry struct {
	byType       map[string]FormatExtractor
	textFallback FormatExtractor
}

func NewRegistry(textFallback FormatExtractor, extractors ...FormatExtractor) *Registry {
	r := &Registry{
		byType:       make(map[string]FormatExtractor),
		textFallback: textFallback,
	}
	for _, ext := range append([]FormatExtractor{textFallback}, extractors...) {
		if ext == nil {
			continue
		}
		for _, mediaType := range ext.SupportedTypes() {
			r.byType[mediaType] = ext
		}
	}
	return r
}

func NewDefaultRegistry() *Registry {
	return NewRegistry(
		plaintext.NewExtractor(),
		pdf.NewExtractor(),
		html.NewExtractor(),
		docx.NewExtractor(),
		image.NewExtractor(),
	)
}

func (r *Registry) Supports(mediaType string) bool {
	_, ok := r.lookup(BaseMediaType(mediaType))
	return ok
}

func (r *Registry) Extract(ctx context.Context, path, mediaType string) (string, error) {
	base := BaseMediaType(mediaType)
	ext, ok := r.lookup(base)
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("media type %q", mediaType))
	}

	text, err := ext.ExtractFile(ctx, path)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", fmt.Errorf("%s extractor: %w", ext.Name(), err))
	}
	return text, nil
}

func (r *Registry) lookup(base string) (FormatExtractor, bool) {
	if ext, ok := r.byType[base]; ok {
		return ext, true
	}
	if strings.HasPrefix(base, "text/") && r.textFallback != nil {
		return r.textFallback, true
	}
	return nil, false
}

// BaseMediaType strips parameters and lowercases a media type.
func BaseMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		return parsed
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
