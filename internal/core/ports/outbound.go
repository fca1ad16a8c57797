package ports

import (
	"context"
	"io"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

// DocumentRepository persists and reads document state. Reads are owner
// scoped; the worker-side lookups use GetForProcessing, which ignores
// ownership because the job only carries the document id.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id, ownerID string) (*domain.Document, error)
	GetForProcessing(ctx context.Context, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetDefective(ctx context.Context, id, ownerID string, defective bool) error
	Delete(ctx context.Context, id, ownerID string) error
}

// ResultRepository persists the derived artifacts of a document.
type ResultRepository interface {
	// UpsertRawText overwrites the raw text for the document; calling it
	// twice keeps only the latest text.
	UpsertRawText(ctx context.Context, documentID, rawText string) error
	SaveParsed(ctx context.Context, documentID string, parsed *domain.ParsedResult) error
	SaveManualEdit(ctx context.Context, documentID string, parsed *domain.ParsedResult, editedBy string) error
	GetByDocumentID(ctx context.Context, documentID string) (*domain.DocumentResult, error)
}

// ObjectStorage stores uploaded source files keyed per owner.
type ObjectStorage interface {
	Save(ctx context.Context, ownerID, name string, data io.Reader) error
	Open(ctx context.Context, ownerID, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, ownerID, name string) error
}

// JobQueue decouples upload from processing with at-least-once delivery.
type JobQueue interface {
	PublishProcessDocument(ctx context.Context, documentID string) error
	SubscribeProcessDocument(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor produces raw text from the stored source file.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// DocumentClassifier maps raw text to a document type and subtype.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// SemanticExtractor maps raw text to the subtype-specific amounts schema.
type SemanticExtractor interface {
	ExtractAmounts(ctx context.Context, text string, subtype domain.DocumentSubtype) (*domain.Amounts, error)
}

// CompletionNotifier receives exactly one event per terminal transition.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, event domain.CompletionEvent)
}
