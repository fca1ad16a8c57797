package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
	"github.com/lucabarone/invoiceflow/internal/core/validation"
)

// ProcessDocumentUseCase owns the per-document lifecycle: it drives the stage
// sequence (text extraction, classification, conditional semantic extraction,
// validation) and the pending -> processing -> done/failed transitions.
//
// Status gating is the only guard against double processing: a document is
// re-enqueued solely through the retry path, which requires status=failed.
// There is no per-document lease, so a stale in-flight job overlapping a
// retry could in theory race; the status writes are idempotent either way.
type ProcessDocumentUseCase struct {
	docs       ports.DocumentRepository
	results    ports.ResultRepository
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	semantics  ports.SemanticExtractor
	notifier   ports.CompletionNotifier
	logger     *slog.Logger
}

func NewProcessDocumentUseCase(
	docs ports.DocumentRepository,
	results ports.ResultRepository,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	semantics ports.SemanticExtractor,
	notifier ports.CompletionNotifier,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		docs:       docs,
		results:    results,
		extractor:  extractor,
		classifier: classifier,
		semantics:  semantics,
		notifier:   notifier,
		logger:     logger,
	}
}

// ProcessByID runs one processing attempt to a terminal state. The completion
// notifier fires exactly once per call, on the terminal transition.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.docs.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, parsed, err := uc.runPipeline(ctx, documentID)
	if err != nil {
		uc.finish(ctx, documentID, doc, domain.StatusFailed, err)
		return err
	}

	if err := uc.results.SaveParsed(ctx, doc.ID, parsed); err != nil {
		err = fmt.Errorf("persist parsed result: %w", err)
		uc.finish(ctx, documentID, doc, domain.StatusFailed, err)
		return err
	}

	uc.finish(ctx, documentID, doc, domain.StatusDone, nil)
	return nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, documentID string) (*domain.Document, *domain.ParsedResult, error) {
	doc, err := uc.docs.GetForProcessing(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch document by id: %w", err)
	}

	rawText, err := uc.extractText(ctx, doc)
	if err != nil {
		// Without text nothing downstream is possible.
		return doc, nil, err
	}

	if err := uc.results.UpsertRawText(ctx, doc.ID, rawText); err != nil {
		return doc, nil, fmt.Errorf("persist raw text: %w", err)
	}

	classification := uc.classify(ctx, doc.ID, rawText)

	if classification.DocumentType != domain.TypeInvoice {
		return doc, nonInvoiceResult(classification), nil
	}

	amounts := uc.extractAmounts(ctx, doc.ID, rawText, classification.DocumentSubtype)
	verdict := validation.Validate(amounts, classification.DocumentSubtype)

	return doc, &domain.ParsedResult{
		DocumentType:    classification.DocumentType,
		DocumentSubtype: classification.DocumentSubtype,
		Semantic: &domain.Semantic{
			Amounts: amounts,
			Validation: &domain.ValidationSummary{
				ValidatedAt: time.Now().UTC(),
				IsValid:     verdict.IsValid,
				FlagsCount:  len(verdict.Flags),
			},
		},
		ValidationFlags: verdict.Flags,
	}, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

// classify never fails the pipeline: a classifier error falls back to the
// non-invoice verdict, which the user sees as a content-quality flag.
func (uc *ProcessDocumentUseCase) classify(ctx context.Context, documentID, text string) domain.Classification {
	classification, err := uc.classifier.Classify(ctx, text)
	if err != nil {
		uc.logger.Warn("classification failed closed",
			"document_id", documentID,
			"fallback", string(domain.TypeOther),
			"error", err,
		)
		return domain.FallbackClassification()
	}
	return classification
}

// extractAmounts fails closed to a currency-only amounts object so a flaky
// extraction never aborts a job that already has usable text.
func (uc *ProcessDocumentUseCase) extractAmounts(ctx context.Context, documentID, text string, subtype domain.DocumentSubtype) *domain.Amounts {
	amounts, err := uc.semantics.ExtractAmounts(ctx, text, subtype)
	if err != nil {
		uc.logger.Warn("semantic extraction failed closed",
			"document_id", documentID,
			"subtype", string(subtype),
			"error", err,
		)
		return domain.FallbackAmounts()
	}
	if amounts == nil {
		return domain.FallbackAmounts()
	}
	return amounts
}

func nonInvoiceResult(classification domain.Classification) *domain.ParsedResult {
	return &domain.ParsedResult{
		DocumentType:    classification.DocumentType,
		DocumentSubtype: domain.SubtypeNone,
		Semantic:        nil,
		ValidationFlags: []domain.ValidationFlag{{
			Field:    "document_type",
			Severity: domain.SeverityCritical,
			Message: fmt.Sprintf("Document classified as %q instead of invoice. Semantic extraction was skipped.",
				classification.DocumentType),
			Type: domain.FlagWrongDocumentType,
		}},
	}
}

// finish writes the terminal status and emits the single completion event.
// A failing status write is logged, not retried: the queue message is already
// consumed and the user can still retry from the surfaced state.
func (uc *ProcessDocumentUseCase) finish(ctx context.Context, documentID string, doc *domain.Document, status domain.DocumentStatus, cause error) {
	errMessage := ""
	if cause != nil {
		errMessage = cause.Error()
	}

	if err := uc.docs.UpdateStatus(ctx, documentID, status, errMessage); err != nil {
		uc.logger.Error("terminal status write failed",
			"document_id", documentID,
			"status", string(status),
			"error", err,
		)
	}

	event := domain.CompletionEvent{
		DocumentID:   documentID,
		Status:       status,
		ErrorMessage: errMessage,
	}
	if doc != nil {
		event.OwnerID = doc.OwnerID
		event.FileName = doc.OriginalName
	}
	uc.notifier.NotifyCompletion(ctx, event)
}
