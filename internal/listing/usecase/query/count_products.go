package query

import (
	"context"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// CountProductsQuery represents the query for registry counters
type CountProductsQuery struct{}

// ProductCounts holds the registry counters
type ProductCounts struct {
	// Total is every index ever assigned, removals included
	Total uint64 `json:"count"`
	Live  uint64 `json:"live"`
}

// CountProductsHandler handles count products query
type CountProductsHandler struct {
	repo domain.ProductRepository
}

// NewCountProductsHandler creates a new count products handler
func NewCountProductsHandler(repo domain.ProductRepository) *CountProductsHandler {
	return &CountProductsHandler{repo: repo}
}

// Handle executes the count products query
func (h *CountProductsHandler) Handle(ctx context.Context, query CountProductsQuery) ProductCounts {
	return ProductCounts{
		Total: h.repo.NextIndex(ctx),
		Live:  h.repo.LiveCount(ctx),
	}
}
