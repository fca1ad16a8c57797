package notify

import (
	"context"
	"sync"
	"time"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

// Batcher groups completion events per owner so a multi-file upload produces
// one notification instead of one per document. A group is flushed when no
// new event for that owner arrives within the flush window, or when it
// reaches the size cap. Flushing affects notification cadence only; the
// pipeline has already reached its terminal state when an event arrives.
type Batcher struct {
	sink        Sink
	flushAfter  time.Duration
	maxPerBatch int

	mu      sync.Mutex
	pending map[string]*ownerBatch
}

type ownerBatch struct {
	events []domain.CompletionEvent
	timer  *time.Timer
}

func NewBatcher(sink Sink, flushAfter time.Duration, maxPerBatch int) *Batcher {
	if flushAfter <= 0 {
		flushAfter = 30 * time.Second
	}
	if maxPerBatch <= 0 {
		maxPerBatch = 50
	}
	return &Batcher{
		sink:        sink,
		flushAfter:  flushAfter,
		maxPerBatch: maxPerBatch,
		pending:     make(map[string]*ownerBatch),
	}
}

// NotifyCompletion implements ports.CompletionNotifier. Events without an
// owner (document vanished mid-job) are delivered immediately, ungrouped.
func (b *Batcher) NotifyCompletion(ctx context.Context, event domain.CompletionEvent) {
	if event.OwnerID == "" {
		b.sink.Deliver(ctx, "", []domain.CompletionEvent{event})
		return
	}

	b.mu.Lock()
	batch, ok := b.pending[event.OwnerID]
	if !ok {
		batch = &ownerBatch{}
		b.pending[event.OwnerID] = batch
	}
	batch.events = append(batch.events, event)

	if len(batch.events) >= b.maxPerBatch {
		events := b.takeLocked(event.OwnerID)
		b.mu.Unlock()
		b.sink.Deliver(context.WithoutCancel(ctx), event.OwnerID, events)
		return
	}

	// Each new event pushes the deadline out; the batch goes when the
	// owner's upload burst quiets down.
	if batch.timer != nil {
		batch.timer.Stop()
	}
	ownerID := event.OwnerID
	batch.timer = time.AfterFunc(b.flushAfter, func() {
		b.flushOwner(ownerID)
	})
	b.mu.Unlock()
}

func (b *Batcher) flushOwner(ownerID string) {
	b.mu.Lock()
	events := b.takeLocked(ownerID)
	b.mu.Unlock()

	if len(events) > 0 {
		b.sink.Deliver(context.Background(), ownerID, events)
	}
}

func (b *Batcher) takeLocked(ownerID string) []domain.CompletionEvent {
	batch, ok := b.pending[ownerID]
	if !ok {
		return nil
	}
	if batch.timer != nil {
		batch.timer.Stop()
	}
	delete(b.pending, ownerID)
	return batch.events
}

// Flush delivers everything still pending. Called on worker shutdown.
func (b *Batcher) Flush(ctx context.Context) {
	b.mu.Lock()
	owners := make([]string, 0, len(b.pending))
	for ownerID := range b.pending {
		owners = append(owners, ownerID)
	}
	grouped := make(map[string][]domain.CompletionEvent, len(owners))
	for _, ownerID := range owners {
		grouped[ownerID] = b.takeLocked(ownerID)
	}
	b.mu.Unlock()

	for ownerID, events := range grouped {
		if len(events) > 0 {
			b.sink.Deliver(ctx, ownerID, events)
		}
	}
}
