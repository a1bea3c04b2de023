package command

import (
	"context"
	"fmt"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// CreateProductCommand represents the command to register a new product
type CreateProductCommand struct {
	Caller domain.Principal
	domain.Listing
}

// CreateProductHandler handles product creation command
type CreateProductHandler struct {
	repo      domain.ProductRepository
	publisher domain.EventPublisher
}

// NewCreateProductHandler creates a new create product handler
func NewCreateProductHandler(repo domain.ProductRepository, publisher domain.EventPublisher) *CreateProductHandler {
	return &CreateProductHandler{repo: repo, publisher: publisher}
}

// Handle executes the create product command and returns the assigned index
func (h *CreateProductHandler) Handle(ctx context.Context, cmd CreateProductCommand) (uint64, error) {
	if err := cmd.Listing.Validate(); err != nil {
		return 0, err
	}

	product := domain.Product{
		Owner:   cmd.Caller,
		Listing: cmd.Listing,
	}

	index, err := h.repo.Append(ctx, product)
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}

	publish(ctx, h.publisher, domain.ProductAdded{
		Index:   index,
		Owner:   cmd.Caller,
		Listing: cmd.Listing,
	})

	return index, nil
}
