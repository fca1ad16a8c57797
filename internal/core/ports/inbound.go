package ports

import (
	"context"
	"io"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

// DocumentIngestor is the inbound contract for upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, ownerID, filename string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentLifecycle covers the user-triggered transitions outside the worker.
type DocumentLifecycle interface {
	Retry(ctx context.Context, documentID, ownerID string) error
	SetDefective(ctx context.Context, documentID, ownerID string, defective bool) error
	Delete(ctx context.Context, documentID, ownerID string) error
}

// ResultEditor applies a manual amounts edit to a finished document.
type ResultEditor interface {
	EditAmounts(ctx context.Context, documentID, ownerID string, amounts *domain.Amounts) (*domain.ParsedResult, error)
}

// DocumentReader is the inbound read model.
type DocumentReader interface {
	GetByID(ctx context.Context, id, ownerID string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string, filter domain.ListFilter) ([]domain.Document, error)
	RawText(ctx context.Context, id, ownerID string) (string, error)
	ParsedResult(ctx context.Context, id, ownerID string) (*domain.ParsedResult, error)
}

// DocumentExporter renders an owner's documents for download.
type DocumentExporter interface {
	ExportCSV(ctx context.Context, ownerID string) ([]byte, error)
	ExportExcel(ctx context.Context, ownerID string) ([]byte, error)
}
