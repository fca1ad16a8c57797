// Package notify delivers completion signals for terminal status
// transitions. Delivery itself (email, webhooks) is a collaborator behind the
// Sink interface; this package only groups and forwards.
package notify

import (
	"context"
	"log/slog"

	"github.com/lucabarone/invoiceflow/internal/core/domain"
)

// Sink receives grouped completion events for one owner.
type Sink interface {
	Deliver(ctx context.Context, ownerID string, events []domain.CompletionEvent)
}

// LogSink records completions in the structured log. It stands in for the
// email collaborator in deployments without one configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(_ context.Context, ownerID string, events []domain.CompletionEvent) {
	done, failed := 0, 0
	for _, event := range events {
		if event.Status == domain.StatusDone {
			done++
		} else {
			failed++
		}
	}
	s.logger.Info("documents processed",
		"owner_id", ownerID,
		"total", len(events),
		"done", done,
		"failed", failed,
	)
}
