package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

const (
	DocumentsSheet = "Documents"
	ScoresSheet    = "Scores"
)

var documentHeaders = []string{
	"Path",
	"Media Type",
	"Size (bytes)",
	"Category",
	"Confidence",
	"Legal Type",
	"Jurisdiction",
	"Date",
	"References",
	"Error",
}

// WriteBatchReport renders one row per batch item plus a per-category score
// sheet and writes the workbook to w.
func WriteBatchReport(w io.Writer, items []domain.BatchItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DocumentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ScoresSheet); err != nil {
		return fmt.Errorf("create scores sheet: %w", err)
	}

	if err := writeDocumentsSheet(f, items); err != nil {
		return err
	}
	if err := writeScoresSheet(f, items); err != nil {
		return err
	}

	if idx, err := f.GetSheetIndex(DocumentsSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeDocumentsSheet(f *excelize.File, items []domain.BatchItem) error {
	if err := writeRow(f, DocumentsSheet, 1, toAny(documentHeaders)); err != nil {
		return err
	}

	for i, item := range items {
		row := []any{item.Path, "", "", "", "", "", "", "", "", ""}
		if res := item.Result; res != nil {
			row[1] = res.FileInfo.Type
			row[2] = res.FileInfo.Size
		}
		if item.Failed() {
			row[9] = item.Err.Error()
		} else if res := item.Result; res != nil {
			row[3] = string(res.Classification.PrimaryCategory)
			row[4] = res.Classification.Confidence
			if legal := res.LegalMetadata; legal != nil {
				row[5] = string(legal.DocumentType)
				row[6] = deref(legal.Jurisdiction)
				row[7] = deref(legal.Date)
				row[8] = strings.Join(legal.References, "; ")
			}
		}
		if err := writeRow(f, DocumentsSheet, i+2, row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(DocumentsSheet, "A", "A", 48)
	_ = f.SetColWidth(DocumentsSheet, "B", "B", 24)
	_ = f.SetColWidth(DocumentsSheet, "C", "E", 14)
	_ = f.SetColWidth(DocumentsSheet, "F", "H", 18)
	_ = f.SetColWidth(DocumentsSheet, "I", "J", 48)
	return nil
}

func writeScoresSheet(f *excelize.File, items []domain.BatchItem) error {
	header := []any{"Path"}
	for _, c := range domain.Categories() {
		header = append(header, string(c))
	}
	if err := writeRow(f, ScoresSheet, 1, header); err != nil {
		return err
	}

	row := 2
	for _, item := range items {
		if item.Failed() || item.Result == nil {
			continue
		}
		scores := make(map[domain.Category]float64, len(item.Result.Classification.AllCategories))
		for _, entry := range item.Result.Classification.AllCategories {
			scores[entry.Category] = entry.Score
		}
		values := []any{item.Path}
		for _, c := range domain.Categories() {
			values = append(values, scores[c])
		}
		if err := writeRow(f, ScoresSheet, row, values); err != nil {
			return err
		}
		row++
	}

	_ = f.SetColWidth(ScoresSheet, "A", "A", 48)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
