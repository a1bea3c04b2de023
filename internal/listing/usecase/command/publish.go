package command

import (
	"context"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/logger"
)

// publish is fire-and-forget: a delivery failure never fails the operation
func publish(ctx context.Context, publisher domain.EventPublisher, event domain.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("event_type", event.EventType()).
			Uint64("index", event.ProductIndex()).
			Msg("Failed to publish product event")
	}
}
