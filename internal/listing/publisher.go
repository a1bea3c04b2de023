package listing

import (
	"context"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/journal"
	"github.com/tair/listing-ledger/pkg/logger"
)

// CommitPublisher buffers notifications until the operation that emitted them
// commits. Events of a rolled back operation are never delivered.
type CommitPublisher struct {
	next domain.EventPublisher
}

// NewCommitPublisher wraps next. A nil next yields a publisher that only logs.
func NewCommitPublisher(next domain.EventPublisher) *CommitPublisher {
	if next == nil {
		next = NewLogPublisher()
	}
	return &CommitPublisher{next: next}
}

func (p *CommitPublisher) Publish(ctx context.Context, event domain.Event) error {
	detached := context.WithoutCancel(ctx)
	journal.AfterCommit(ctx, func() {
		if err := p.next.Publish(detached, event); err != nil {
			logger.Warn(detached).
				Err(err).
				Str("event_type", event.EventType()).
				Uint64("index", event.ProductIndex()).
				Msg("Failed to deliver product event")
		}
	})
	return nil
}

// LogPublisher writes notifications to the service log. Used when no broker is
// configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	logger.Info(ctx).
		Str("event_type", event.EventType()).
		Uint64("index", event.ProductIndex()).
		Interface("event", event).
		Msg("Product event")
	return nil
}
