package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

type Config struct {
	TesseractPath string
	PdftoppmPath  string
	Language      string
	OEM           int
	PSM           int
	DPI           int
	// MaxPages limits how many rendered PDF pages are recognised; 0 means all.
	MaxPages int
}

func DefaultConfig() Config {
	return Config{
		TesseractPath: "tesseract",
		PdftoppmPath:  "pdftoppm",
		Language:      "eng",
		OEM:           3,
		PSM:           6,
		DPI:           300,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.TesseractPath == "" {
		c.TesseractPath = def.TesseractPath
	}
	if c.PdftoppmPath == "" {
		c.PdftoppmPath = def.PdftoppmPath
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.OEM < 0 {
		c.OEM = def.OEM
	}
	if c.PSM <= 0 {
		c.PSM = def.PSM
	}
	if c.DPI <= 0 {
		c.DPI = def.DPI
	}
	if c.MaxPages < 0 {
		c.MaxPages = 0
	}
	return c
}

// Recognizer recovers text from images with tesseract. PDFs are first
// rasterised page by page with pdftoppm.
type Recognizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRecognizer(cfg Config, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{
		cfg:    cfg.normalize(),
		runner: execRunner{logger: logger},
		logger: logger,
	}
}

func (r *Recognizer) Recognize(ctx context.Context, path, mediaType string) (string, error) {
	if mediaType != "application/pdf" && mediaType != "image/jpeg" && mediaType != "image/png" {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "ocr", fmt.Errorf("media type %q", mediaType))
	}

	workDir, err := os.MkdirTemp("", "docstruct-ocr-*")
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "ocr", fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			r.logger.Warn("ocr_cleanup_failed", "dir", workDir, "error", err)
		}
	}()

	var (
		text  string
		pages = 1
	)
	if mediaType == "application/pdf" {
		text, pages, err = r.recognizePDF(ctx, path, workDir)
	} else {
		text, err = r.recognizeImage(ctx, path, workDir)
	}
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "ocr", err)
	}

	text = Normalize(text)
	r.logger.Info("ocr_completed",
		"path", path,
		"media_type", mediaType,
		"pages", pages,
		"chars", len(text),
		"confidence", Confidence(text),
	)
	return text, nil
}

// recognizeImage enhances the image before OCR. An image the decoder cannot
// read is handed to tesseract unchanged.
func (r *Recognizer) recognizeImage(ctx context.Context, path, workDir string) (string, error) {
	input := path
	enhanced := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+"-enhanced.png")
	if err := enhanceImage(path, enhanced); err != nil {
		r.logger.Warn("ocr_enhance_skipped", "path", path, "error", err)
	} else {
		input = enhanced
	}

	args := []string{
		input, "stdout",
		"--oem", strconv.Itoa(r.cfg.OEM),
		"--psm", strconv.Itoa(r.cfg.PSM),
		"-l", r.cfg.Language,
	}
	out, errb, err := r.runner.Run(ctx, r.cfg.TesseractPath, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

func (r *Recognizer) recognizePDF(ctx context.Context, path, workDir string) (string, int, error) {
	prefix := filepath.Join(workDir, "page")
	_, errb, err := r.runner.Run(ctx, r.cfg.PdftoppmPath, "-r", strconv.Itoa(r.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order.
	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", 0, fmt.Errorf("list rendered pages: %w", err)
	}
	sort.Strings(images)
	if len(images) == 0 {
		return "", 0, fmt.Errorf("pdftoppm rendered no pages")
	}
	if r.cfg.MaxPages > 0 && len(images) > r.cfg.MaxPages {
		images = images[:r.cfg.MaxPages]
	}

	pages := make([]string, 0, len(images))
	for _, img := range images {
		text, err := r.recognizeImage(ctx, img, workDir)
		if err != nil {
			return "", 0, err
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), len(images), nil
}
