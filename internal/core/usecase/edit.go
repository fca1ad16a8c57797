package usecase

import (
	"context"
	"fmt"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
	"github.com/lucabarone/invoiceflow/internal/core/validation"
)

// EditResultUseCase applies a manual amounts correction to a finished
// document. Validation re-runs on the edited amounts so stale flags never
// survive an edit. The document status stays done.
type EditResultUseCase struct {
	docs    ports.DocumentRepository
	results ports.ResultRepository
}

func NewEditResultUseCase(docs ports.DocumentRepository, results ports.ResultRepository) *EditResultUseCase {
	return &EditResultUseCase{docs: docs, results: results}
}

func (uc *EditResultUseCase) EditAmounts(ctx context.Context, documentID, ownerID string, amounts *domain.Amounts) (*domain.ParsedResult, error) {
	doc, err := uc.docs.GetByID(ctx, documentID, ownerID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusDone {
		return nil, domain.WrapError(domain.ErrEditConflict, "edit amounts",
			fmt.Errorf("document status is %q, only done documents can be edited", doc.Status))
	}

	result, err := uc.results.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if result.Parsed == nil {
		return nil, domain.WrapError(domain.ErrEditConflict, "edit amounts",
			fmt.Errorf("document has no parsed result to edit"))
	}
	if result.Parsed.DocumentType != domain.TypeInvoice {
		return nil, domain.WrapError(domain.ErrEditConflict, "edit amounts",
			fmt.Errorf("amounts can only be edited on invoices, document is %q", result.Parsed.DocumentType))
	}

	verdict := validation.Validate(amounts, result.Parsed.DocumentSubtype)

	edited := *result.Parsed
	edited.Semantic = &domain.Semantic{Amounts: amounts}
	edited.ValidationFlags = verdict.Flags
	if result.Parsed.Semantic != nil && result.Parsed.Semantic.Validation != nil {
		summary := *result.Parsed.Semantic.Validation
		summary.IsValid = verdict.IsValid
		summary.FlagsCount = len(verdict.Flags)
		edited.Semantic.Validation = &summary
	}

	if err := uc.results.SaveManualEdit(ctx, documentID, &edited, ownerID); err != nil {
		return nil, fmt.Errorf("persist manual edit: %w", err)
	}
	return &edited, nil
}
