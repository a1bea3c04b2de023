package query

import (
	"context"
	"fmt"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// GetBalanceQuery represents the query for a principal's token balance
type GetBalanceQuery struct {
	Principal domain.Principal
}

// GetBalanceHandler passes balance lookups through to the ledger
type GetBalanceHandler struct {
	ledger domain.ValueTransferService
}

// NewGetBalanceHandler creates a new get balance handler
func NewGetBalanceHandler(ledger domain.ValueTransferService) *GetBalanceHandler {
	return &GetBalanceHandler{ledger: ledger}
}

// Handle executes the get balance query
func (h *GetBalanceHandler) Handle(ctx context.Context, query GetBalanceQuery) (int64, error) {
	if query.Principal == "" {
		return 0, &domain.ValidationError{Field: "principal", Reason: "is required"}
	}

	balance, err := h.ledger.BalanceOf(ctx, query.Principal)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}
