package html

import (
	"context"
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
)

// Extractor returns the visible text of an HTML document with script and
// style content removed.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string { return "html" }

func (e *Extractor) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (e *Extractor) ExtractFile(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()
	return doc.Text(), nil
}
