package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
)

// IngestDocumentUseCase accepts an upload and hands it to the pipeline: the
// file is stored, a pending document is recorded, and a processing job is
// enqueued. The HTTP request returns as soon as the job is durable.
type IngestDocumentUseCase struct {
	docs    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.JobQueue
}

func NewIngestDocumentUseCase(
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.JobQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		docs:    docs,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, ownerID, filename string, body io.Reader) (*domain.Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("owner id is required"))
	}

	id := uuid.NewString()
	storedName := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, ownerID, storedName, body); err != nil {
		return nil, fmt.Errorf("save uploaded file: %w", err)
	}

	doc := &domain.Document{
		ID:           id,
		OwnerID:      ownerID,
		StoredName:   storedName,
		OriginalName: filename,
		Status:       domain.StatusPending,
		UploadedAt:   time.Now().UTC(),
	}

	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishProcessDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("enqueue processing job: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.pdf"
	}
	return base
}
