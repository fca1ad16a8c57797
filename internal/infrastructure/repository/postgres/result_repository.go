package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// UpsertRawText rewrites the raw text for a document. Every processing
// attempt goes through here, so repeated runs keep exactly one row with the
// latest text.
func (r *ResultRepository) UpsertRawText(ctx context.Context, documentID, rawText string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_results (document_id, raw_text, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (document_id) DO UPDATE
SET raw_text = EXCLUDED.raw_text, updated_at = EXCLUDED.updated_at
`, documentID, rawText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert raw text: %w", err)
	}
	return nil
}

// SaveParsed stores a fresh pipeline result and clears any earlier manual
// edit marker, since the machine output supersedes it.
func (r *ResultRepository) SaveParsed(ctx context.Context, documentID string, parsed *domain.ParsedResult) error {
	payload, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("marshal parsed result: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE document_results
SET parsed_json = $2, manually_edited = FALSE, edited_at = NULL, edited_by = '', updated_at = $3
WHERE document_id = $1
`, documentID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save parsed result: %w", err)
	}
	return requireResultRow(result, "save parsed result", documentID)
}

func (r *ResultRepository) SaveManualEdit(ctx context.Context, documentID string, parsed *domain.ParsedResult, editedBy string) error {
	payload, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("marshal edited result: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE document_results
SET parsed_json = $2, manually_edited = TRUE, edited_at = $3, edited_by = $4, updated_at = $3
WHERE document_id = $1
`, documentID, payload, now, editedBy)
	if err != nil {
		return fmt.Errorf("save manual edit: %w", err)
	}
	return requireResultRow(result, "save manual edit", documentID)
}

func (r *ResultRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.DocumentResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, raw_text, parsed_json, manually_edited, edited_at, edited_by
FROM document_results
WHERE document_id = $1
`, documentID)

	var result domain.DocumentResult
	var parsedRaw []byte
	var editedAt sql.NullTime

	err := row.Scan(
		&result.DocumentID, &result.RawText, &parsedRaw,
		&result.ManuallyEdited, &editedAt, &result.EditedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "get result", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan document result: %w", err)
	}

	if editedAt.Valid {
		t := editedAt.Time
		result.EditedAt = &t
	}
	if len(parsedRaw) > 0 {
		var parsed domain.ParsedResult
		if err := json.Unmarshal(parsedRaw, &parsed); err != nil {
			return nil, fmt.Errorf("unmarshal parsed result: %w", err)
		}
		result.Parsed = &parsed
	}
	return &result, nil
}

func requireResultRow(result sql.Result, operation, documentID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrResultNotFound, operation, fmt.Errorf("document %s", documentID))
	}
	return nil
}
