package query

import (
	"context"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// GetProductQuery represents the query to read a product by index
type GetProductQuery struct {
	Index uint64
}

// GetProductHandler handles get product query
type GetProductHandler struct {
	repo domain.ProductRepository
}

// NewGetProductHandler creates a new get product handler
func NewGetProductHandler(repo domain.ProductRepository) *GetProductHandler {
	return &GetProductHandler{repo: repo}
}

// Handle returns a snapshot of the product. Removed and never-assigned
// indices both yield ErrNotFound.
func (h *GetProductHandler) Handle(ctx context.Context, query GetProductQuery) (*domain.Product, error) {
	return h.repo.FindByIndex(ctx, query.Index)
}
