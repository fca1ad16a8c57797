package usecase

import (
	"context"
	"fmt"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
	"github.com/lucabarone/invoiceflow/internal/core/ports"
)

// DocumentLifecycleUseCase implements the user-triggered transitions that run
// outside the worker: retry, defective marking, deletion.
type DocumentLifecycleUseCase struct {
	docs    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.JobQueue
}

func NewDocumentLifecycleUseCase(
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.JobQueue,
) *DocumentLifecycleUseCase {
	return &DocumentLifecycleUseCase{
		docs:    docs,
		storage: storage,
		queue:   queue,
	}
}

// Retry re-enters the full pipeline for a failed document. Any other status
// is rejected: done and processing documents must not be re-enqueued, which
// is the application-level idempotency guard over the at-least-once queue.
func (uc *DocumentLifecycleUseCase) Retry(ctx context.Context, documentID, ownerID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID, ownerID)
	if err != nil {
		return err
	}

	if doc.Status != domain.StatusFailed {
		return domain.WrapError(domain.ErrRetryNotAllowed, "retry",
			fmt.Errorf("document status is %q, only failed documents can be retried", doc.Status))
	}

	if err := uc.docs.UpdateStatus(ctx, documentID, domain.StatusPending, ""); err != nil {
		return fmt.Errorf("reset status to pending: %w", err)
	}

	if err := uc.queue.PublishProcessDocument(ctx, documentID); err != nil {
		return fmt.Errorf("re-enqueue processing job: %w", err)
	}
	return nil
}

func (uc *DocumentLifecycleUseCase) SetDefective(ctx context.Context, documentID, ownerID string, defective bool) error {
	return uc.docs.SetDefective(ctx, documentID, ownerID, defective)
}

// Delete removes the stored file and the document record. The pipeline never
// deletes documents on its own; this is strictly a user operation.
func (uc *DocumentLifecycleUseCase) Delete(ctx context.Context, documentID, ownerID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID, ownerID)
	if err != nil {
		return err
	}

	if err := uc.storage.Remove(ctx, doc.OwnerID, doc.StoredName); err != nil {
		return fmt.Errorf("remove stored file: %w", err)
	}

	if err := uc.docs.Delete(ctx, documentID, ownerID); err != nil {
		return fmt.Errorf("delete document record: %w", err)
	}
	return nil
}
