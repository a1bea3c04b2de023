package command

import (
	"context"
	"fmt"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// UpdateProductCommand represents the command to overwrite a listing
type UpdateProductCommand struct {
	Index  uint64
	Caller domain.Principal
	domain.Listing
}

// UpdateProductHandler handles product update command
type UpdateProductHandler struct {
	repo      domain.ProductRepository
	publisher domain.EventPublisher
}

// NewUpdateProductHandler creates a new update product handler
func NewUpdateProductHandler(repo domain.ProductRepository, publisher domain.EventPublisher) *UpdateProductHandler {
	return &UpdateProductHandler{repo: repo, publisher: publisher}
}

// Handle executes the update product command. Owner and sold count are kept.
func (h *UpdateProductHandler) Handle(ctx context.Context, cmd UpdateProductCommand) (*domain.Product, error) {
	product, err := h.repo.FindByIndex(ctx, cmd.Index)
	if err != nil {
		return nil, err
	}

	if !product.IsOwnedBy(cmd.Caller) {
		return nil, fmt.Errorf("%w: index %d", domain.ErrUnauthorized, cmd.Index)
	}

	if err := cmd.Listing.Validate(); err != nil {
		return nil, err
	}

	product.Listing = cmd.Listing
	if err := h.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	publish(ctx, h.publisher, domain.ProductUpdated{
		Index:   cmd.Index,
		Listing: cmd.Listing,
	})

	return product, nil
}
