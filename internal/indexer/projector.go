package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/kafka"
	"github.com/tair/listing-ledger/pkg/logger"
)

// HandlerRegistry is where the projector subscribes to event types
type HandlerRegistry interface {
	RegisterHandler(eventType string, handler kafka.EventHandler)
}

// Projector applies listing events to a Store
type Projector struct {
	store Store
}

func NewProjector(store Store) *Projector {
	return &Projector{store: store}
}

// Register subscribes the projector to every listing event type
func (p *Projector) Register(consumer HandlerRegistry) {
	consumer.RegisterHandler(domain.EventTypeProductAdded, p.Apply)
	consumer.RegisterHandler(domain.EventTypeProductUpdated, p.Apply)
	consumer.RegisterHandler(domain.EventTypeProductRemoved, p.Apply)
	consumer.RegisterHandler(domain.EventTypeProductSold, p.Apply)
}

// Apply projects a single event. Events are keyed by product, so per-product
// order is preserved by the partition.
func (p *Projector) Apply(ctx context.Context, event kafka.ListingEvent) error {
	switch event.EventType {
	case domain.EventTypeProductAdded:
		return p.store.Put(ctx, ProductView{
			Index:   event.Index,
			Owner:   event.Owner,
			Listing: event.Listing(),
		})

	case domain.EventTypeProductUpdated:
		view, err := p.store.Get(ctx, event.Index)
		if errors.Is(err, ErrNotIndexed) {
			// the add was missed; owner stays unknown until a sale reports it
			logger.Warn(ctx).Uint64("index", event.Index).Msg("Update for unindexed product")
			view = &ProductView{Index: event.Index}
		} else if err != nil {
			return err
		}
		view.Listing = event.Listing()
		return p.store.Put(ctx, *view)

	case domain.EventTypeProductRemoved:
		return p.store.Delete(ctx, event.Index)

	case domain.EventTypeProductSold:
		err := p.store.SetSoldCount(ctx, event.Index, event.SoldCount)
		if errors.Is(err, ErrNotIndexed) {
			logger.Warn(ctx).Uint64("index", event.Index).Msg("Sale for unindexed product")
			return p.store.Put(ctx, ProductView{
				Index:     event.Index,
				Owner:     event.Owner,
				Listing:   event.Listing(),
				SoldCount: event.SoldCount,
			})
		}
		return err

	default:
		return fmt.Errorf("unsupported event type %q", event.EventType)
	}
}
