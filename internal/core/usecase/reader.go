package usecase

import (
	"context"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
)

// DocumentReaderUseCase is the owner-scoped read model over documents and
// their derived artifacts.
type DocumentReaderUseCase struct {
	docs    ports.DocumentRepository
	results ports.ResultRepository
}

func NewDocumentReaderUseCase(docs ports.DocumentRepository, results ports.ResultRepository) *DocumentReaderUseCase {
	return &DocumentReaderUseCase{docs: docs, results: results}
}

func (uc *DocumentReaderUseCase) GetByID(ctx context.Context, id, ownerID string) (*domain.Document, error) {
	return uc.docs.GetByID(ctx, id, ownerID)
}

func (uc *DocumentReaderUseCase) ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]domain.Document, error) {
	return uc.docs.ListByOwner(ctx, ownerID, filter)
}

// RawText is served even when empty: the text is available from the first
// successful extraction stage onwards, before the full pipeline finishes.
func (uc *DocumentReaderUseCase) RawText(ctx context.Context, id, ownerID string) (string, error) {
	if _, err := uc.docs.GetByID(ctx, id, ownerID); err != nil {
		return "", err
	}
	result, err := uc.results.GetByDocumentID(ctx, id)
	if err != nil {
		return "", err
	}
	return result.RawText, nil
}

// ParsedResult returns the composite result only once the pipeline has
// succeeded at least once; before that the result is reported as absent.
func (uc *DocumentReaderUseCase) ParsedResult(ctx context.Context, id, ownerID string) (*domain.ParsedResult, error) {
	if _, err := uc.docs.GetByID(ctx, id, ownerID); err != nil {
		return nil, err
	}
	result, err := uc.results.GetByDocumentID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.Parsed == nil {
		return nil, domain.ErrResultNotFound
	}
	return result.Parsed, nil
}
