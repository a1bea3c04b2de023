package command

import (
	"context"
	"fmt"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// RemoveProductCommand represents the command to retract a listing
type RemoveProductCommand struct {
	Index  uint64
	Caller domain.Principal
}

// RemoveProductHandler handles product removal command
type RemoveProductHandler struct {
	repo      domain.ProductRepository
	publisher domain.EventPublisher
}

// NewRemoveProductHandler creates a new remove product handler
func NewRemoveProductHandler(repo domain.ProductRepository, publisher domain.EventPublisher) *RemoveProductHandler {
	return &RemoveProductHandler{repo: repo, publisher: publisher}
}

// Handle tombstones the slot. The index is never handed out again.
func (h *RemoveProductHandler) Handle(ctx context.Context, cmd RemoveProductCommand) error {
	product, err := h.repo.FindByIndex(ctx, cmd.Index)
	if err != nil {
		return err
	}

	if !product.IsOwnedBy(cmd.Caller) {
		return fmt.Errorf("%w: index %d", domain.ErrUnauthorized, cmd.Index)
	}

	if err := h.repo.Tombstone(ctx, cmd.Index); err != nil {
		return fmt.Errorf("failed to remove product: %w", err)
	}

	publish(ctx, h.publisher, domain.ProductRemoved{Index: cmd.Index})

	return nil
}
