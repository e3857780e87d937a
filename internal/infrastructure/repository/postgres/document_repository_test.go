package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/document-structurer/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

var documentColumns = []string{
	"id", "filename", "mime_type", "storage_path", "size_bytes", "category", "confidence",
	"status", "error_message", "result", "created_at", "updated_at",
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesStoredResult(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	stored := domain.ProcessResult{
		FileInfo: domain.FileInfo{Path: "doc-1/lease.pdf", Type: "application/pdf", Size: 2048},
		Classification: domain.ClassificationResult{
			PrimaryCategory: domain.CategoryLegal,
			Confidence:      0.7,
			AllCategories: domain.RankedScores{
				{Category: domain.CategoryLegal, Score: 0.7},
				{Category: domain.CategoryContract, Score: 0.1},
			},
			Method: "combined",
		},
		Content:    "Lease",
		AkomaNtoso: "<akn:akomaNtoso/>",
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, filename").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentColumns).AddRow(
			"doc-1", "lease.pdf", "application/pdf", "doc-1/lease.pdf", int64(2048), "legal", 0.7,
			"ready", "", raw, now, now,
		))

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Category != domain.CategoryLegal || doc.Status != domain.StatusReady {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Result == nil || doc.Result.AkomaNtoso != "<akn:akomaNtoso/>" {
		t.Fatalf("expected decoded result, got %+v", doc.Result)
	}
	if got := doc.Result.Classification.AllCategories; len(got) != 2 || got[0].Category != domain.CategoryLegal {
		t.Fatalf("expected ranked categories to keep order, got %+v", got)
	}
}

func TestGetByIDWithoutResult(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, filename").
		WithArgs("doc-2").
		WillReturnRows(sqlmock.NewRows(documentColumns).AddRow(
			"doc-2", "memo.txt", "text/plain", "doc-2/memo.txt", int64(10), "", 0.0,
			"uploaded", "", nil, now, now,
		))

	doc, err := repo.GetByID(context.Background(), "doc-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.Result != nil {
		t.Fatalf("expected no result, got %+v", doc.Result)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultWritesClassificationColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	result := &domain.ProcessResult{
		Classification: domain.ClassificationResult{PrimaryCategory: domain.CategoryLegal, Confidence: 0.8},
		LegalMetadata:  &domain.LegalMetadata{DocumentType: domain.LegalTypeAgreement},
	}
	mock.ExpectExec("UPDATE documents").
		WithArgs("doc-1", "legal", 0.8, "agreement", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveResult(context.Background(), "doc-1", result); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", "report", 0.5, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveResult(context.Background(), "missing", &domain.ProcessResult{
		Classification: domain.ClassificationResult{PrimaryCategory: domain.CategoryReport, Confidence: 0.5},
	})
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestSaveResultRejectsNil(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	if err := repo.SaveResult(context.Background(), "doc-1", nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
