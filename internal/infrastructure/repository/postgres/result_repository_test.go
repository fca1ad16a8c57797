package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

func newMockResultRepo(t *testing.T) (*ResultRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewResultRepository(db), mock
}

func TestUpsertRawTextInsertsOrReplaces(t *testing.T) {
	repo, mock := newMockResultRepo(t)

	mock.ExpectExec(`ON CONFLICT \(document_id\) DO UPDATE`).
		WithArgs("doc-1", "extracted text", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpsertRawText(context.Background(), "doc-1", "extracted text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveParsedClearsManualEditMarker(t *testing.T) {
	repo, mock := newMockResultRepo(t)

	mock.ExpectExec(`manually_edited = FALSE, edited_at = NULL, edited_by = ''`).
		WithArgs("doc-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	parsed := &domain.ParsedResult{DocumentType: domain.TypeInvoice, DocumentSubtype: domain.SubtypeStandard}
	if err := repo.SaveParsed(context.Background(), "doc-1", parsed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSaveParsedWithoutRawTextRow(t *testing.T) {
	repo, mock := newMockResultRepo(t)

	mock.ExpectExec(`UPDATE document_results`).
		WithArgs("doc-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveParsed(context.Background(), "doc-1", &domain.ParsedResult{})
	if !domain.IsKind(err, domain.ErrResultNotFound) {
		t.Fatalf("expected result not found, got %v", err)
	}
}

func TestSaveManualEditRecordsEditor(t *testing.T) {
	repo, mock := newMockResultRepo(t)

	mock.ExpectExec(`manually_edited = TRUE`).
		WithArgs("doc-1", sqlmock.AnyArg(), sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveManualEdit(context.Background(), "doc-1", &domain.ParsedResult{
		DocumentType:    domain.TypeInvoice,
		DocumentSubtype: domain.SubtypeProfessionalFee,
	}, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByDocumentIDDecodesParsedJSON(t *testing.T) {
	repo, mock := newMockResultRepo(t)

	parsedJSON := `{"document_type":"invoice","document_subtype":"standard","semantic":null,"validation_flags":[]}`
	editedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"document_id", "raw_text", "parsed_json", "manually_edited", "edited_at", "edited_by",
	}).AddRow("doc-1", "text", []byte(parsedJSON), true, editedAt, "user-1")

	mock.ExpectQuery(`FROM document_results`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	result, err := repo.GetByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Parsed == nil || result.Parsed.DocumentType != domain.TypeInvoice {
		t.Fatalf("parsed json not decoded: %+v", result)
	}
	if !result.ManuallyEdited || result.EditedBy != "user-1" || result.EditedAt == nil {
		t.Fatalf("edit metadata lost: %+v", result)
	}
}

func TestGetByDocumentIDWithoutRow(t *testing.T) {
	repo, mock := newMockResultRepo(t)

	mock.ExpectQuery(`FROM document_results`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}))

	_, err := repo.GetByDocumentID(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrResultNotFound) {
		t.Fatalf("expected result not found, got %v", err)
	}
}

func TestGetByDocumentIDWithoutParsedPayload(t *testing.T) {
	repo, mock := newMockResultRepo(t)

	rows := sqlmock.NewRows([]string{
		"document_id", "raw_text", "parsed_json", "manually_edited", "edited_at", "edited_by",
	}).AddRow("doc-1", "text only", nil, false, nil, "")

	mock.ExpectQuery(`FROM document_results`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	result, err := repo.GetByDocumentID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Parsed != nil {
		t.Fatalf("parsed must stay nil before the pipeline finishes: %+v", result)
	}
	if result.RawText != "text only" {
		t.Fatalf("raw text lost: %q", result.RawText)
	}
}
