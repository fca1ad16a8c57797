package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

func newMockRepo(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentRepository(db), mock
}

func documentRows(uploadedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "stored_name", "original_name", "status",
		"is_defective", "error_message", "uploaded_at", "processed_at",
	}).AddRow("doc-1", "user-1", "doc-1_invoice.pdf", "invoice.pdf", "pending", false, "", uploadedAt, nil)
}

func TestGetByIDScopedToOwner(t *testing.T) {
	repo, mock := newMockRepo(t)
	uploadedAt := time.Now().UTC()

	mock.ExpectQuery(`WHERE id = \$1 AND owner_id = \$2`).
		WithArgs("doc-1", "user-1").
		WillReturnRows(documentRows(uploadedAt))

	doc, err := repo.GetByID(context.Background(), "doc-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "doc-1" || doc.Status != domain.StatusPending || doc.ProcessedAt != nil {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM documents`).
		WithArgs("ghost", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "ghost", "user-1")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetForProcessingIgnoresOwner(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`WHERE id = \$1\s*$`).
		WithArgs("doc-1").
		WillReturnRows(documentRows(time.Now().UTC()))

	if _, err := repo.GetForProcessing(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusStampsTerminalTransitions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`processed_at = CASE WHEN $2 IN ('done','failed') THEN $4 ELSE processed_at END`)).
		WithArgs("doc-1", "done", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), "doc-1", domain.StatusDone, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusUnknownDocument(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("ghost", "processing", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "ghost", domain.StatusProcessing, "")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListByOwnerAppliesFilters(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`AND status = \$2 AND original_name ILIKE \$3 ORDER BY uploaded_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("user-1", "done", "%fattura%", 10, 20).
		WillReturnRows(documentRows(time.Now().UTC()))

	docs, err := repo.ListByOwner(context.Background(), "user-1", domain.ListFilter{
		Status: domain.StatusDone,
		Search: "fattura",
		Limit:  10,
		Offset: 20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one row, got %d", len(docs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteIsOwnerScoped(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs("doc-1", "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "doc-1", "someone-else")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
}

func TestSetDefective(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`SET is_defective = \$3`).
		WithArgs("doc-1", "user-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetDefective(context.Background(), "doc-1", "user-1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
