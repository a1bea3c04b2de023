package query

import (
	"context"
	"fmt"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// DefaultListLimit is used when a query asks for no limit
const DefaultListLimit = 50

// ListProductsQuery represents the query to page through live products
type ListProductsQuery struct {
	Limit  int
	Offset int
}

// ListProductsHandler handles list products query
type ListProductsHandler struct {
	repo domain.ProductRepository
}

// NewListProductsHandler creates a new list products handler
func NewListProductsHandler(repo domain.ProductRepository) *ListProductsHandler {
	return &ListProductsHandler{repo: repo}
}

// Handle executes the list products query
func (h *ListProductsHandler) Handle(ctx context.Context, query ListProductsQuery) ([]domain.Product, error) {
	if query.Limit <= 0 {
		query.Limit = DefaultListLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	products, err := h.repo.FindAll(ctx, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}
