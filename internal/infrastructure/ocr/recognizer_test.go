package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

type call struct {
	name string
	args []string
}

type stubRunner struct {
	calls    []call
	pages    int
	texts    map[string]string
	failName string
	// inspect sees the image handed to tesseract while it still exists.
	inspect func(path string)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, call{name: name, args: args})
	if name == s.failName {
		return nil, []byte("boom"), errors.New("exit status 1")
	}
	switch name {
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= s.pages; i++ {
			page := fmt.Sprintf("%s-%02d.png", prefix, i)
			if err := os.WriteFile(page, []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		if s.inspect != nil {
			s.inspect(args[0])
		}
		return []byte(s.texts[filepath.Base(args[0])]), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func newTestRecognizer(runner Runner, cfg Config) *Recognizer {
	r := NewRecognizer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.runner = runner
	return r
}

func TestRecognizeImageUsesTesseractFlags(t *testing.T) {
	runner := &stubRunner{texts: map[string]string{"scan.png": "Lease\t\tagreement  \r\n\r\n\r\n\r\nSigned"}}
	r := newTestRecognizer(runner, Config{})

	got, err := r.Recognize(context.Background(), "/data/scan.png", "image/png")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "Lease agreement\n\nSigned" {
		t.Fatalf("unexpected text %q", got)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected one command, got %d", len(runner.calls))
	}
	want := []string{"/data/scan.png", "stdout", "--oem", "3", "--psm", "6", "-l", "eng"}
	gotArgs := runner.calls[0].args
	if runner.calls[0].name != "tesseract" || strings.Join(gotArgs, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected invocation %s %v", runner.calls[0].name, gotArgs)
	}
}

func TestRecognizeImageEnhancesBeforeOCR(t *testing.T) {
	// Dark left half, light right half, one bright speck in the dark half.
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			v := uint8(60)
			if x >= 2 {
				v = 180
			}
			src.SetGray(x, y, color.Gray{Y: v})
		}
	}
	src.SetGray(1, 1, color.Gray{Y: 255})

	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}

	var seen string
	runner := &stubRunner{
		texts: map[string]string{"scan-enhanced.png": "Notice of termination"},
		inspect: func(input string) {
			seen = input
			in, err := os.Open(input)
			if err != nil {
				t.Fatalf("open enhanced image: %v", err)
			}
			defer in.Close()
			img, err := png.Decode(in)
			if err != nil {
				t.Fatalf("decode enhanced image: %v", err)
			}
			gray, ok := img.(*image.Gray)
			if !ok {
				t.Fatalf("expected grayscale image, got %T", img)
			}
			// mean 132.1875; 60 -> 23.9 and 180 -> 203.9 after the 1.5x stretch.
			if got := gray.GrayAt(1, 1).Y; got != 23 {
				t.Fatalf("expected speck removed by median filter, got %d", got)
			}
			if got := gray.GrayAt(0, 0).Y; got != 23 {
				t.Fatalf("expected dark corner stretched to 23, got %d", got)
			}
			if got := gray.GrayAt(3, 3).Y; got != 203 {
				t.Fatalf("expected light corner stretched to 203, got %d", got)
			}
		},
	}
	r := newTestRecognizer(runner, Config{})

	got, err := r.Recognize(context.Background(), path, "image/png")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "Notice of termination" {
		t.Fatalf("unexpected text %q", got)
	}
	if seen == "" || seen == path || filepath.Base(seen) != "scan-enhanced.png" {
		t.Fatalf("expected tesseract to read the enhanced copy, got %q", seen)
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Fatalf("expected enhanced copy removed after OCR, stat err = %v", err)
	}
}

func TestRecognizePDFJoinsPagesInOrder(t *testing.T) {
	runner := &stubRunner{
		pages: 3,
		texts: map[string]string{
			"page-01.png": "first",
			"page-02.png": "second",
			"page-03.png": "third",
		},
	}
	r := newTestRecognizer(runner, Config{DPI: 200, MaxPages: 2})

	got, err := r.Recognize(context.Background(), "/data/scan.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got != "first\n\nsecond" {
		t.Fatalf("unexpected text %q", got)
	}
	if runner.calls[0].name != "pdftoppm" || runner.calls[0].args[1] != "200" {
		t.Fatalf("unexpected render call %+v", runner.calls[0])
	}
	if len(runner.calls) != 3 {
		t.Fatalf("expected render plus two OCR calls, got %d", len(runner.calls))
	}
}

func TestRecognizeFailures(t *testing.T) {
	r := newTestRecognizer(&stubRunner{failName: "tesseract"}, Config{})
	if _, err := r.Recognize(context.Background(), "a.jpg", "image/jpeg"); !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction failure, got %v", err)
	}

	r = newTestRecognizer(&stubRunner{pages: 0}, Config{})
	if _, err := r.Recognize(context.Background(), "a.pdf", "application/pdf"); !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction failure when nothing renders, got %v", err)
	}

	if _, err := r.Recognize(context.Background(), "a.txt", "text/plain"); !domain.IsKind(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestNormalizeDropsBoxNoise(t *testing.T) {
	got := Normalize("Header\n-----\nBody\fNext page   \n")
	if got != "Header\n\nBody\nNext page" {
		t.Fatalf("unexpected normalized text %q", got)
	}
}

func TestConfidence(t *testing.T) {
	if Confidence("   ") != 0 {
		t.Fatalf("expected 0 for empty text")
	}
	// two words of 2 letters: 2*0.3 + 0.02*0.7
	if got := Confidence("ab cd"); math.Abs(got-0.614) > 1e-9 {
		t.Fatalf("unexpected confidence %v", got)
	}
	if got := Confidence(strings.Repeat("longword ", 10)); got != 1 {
		t.Fatalf("expected confidence capped at 1, got %v", got)
	}
}
