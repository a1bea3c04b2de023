package command

import (
	"context"
	"fmt"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/logger"
)

// BuyProductCommand represents the command to purchase a product
type BuyProductCommand struct {
	Index    uint64
	Caller   domain.Principal
	Tendered int64
}

// Receipt describes a settled purchase
type Receipt struct {
	Index     uint64           `json:"index"`
	Buyer     domain.Principal `json:"buyer"`
	Owner     domain.Principal `json:"owner"`
	Price     int64            `json:"price"`
	Change    int64            `json:"change"`
	SoldCount uint64           `json:"sold_count"`
}

// BuyProductHandler handles the purchase settlement
type BuyProductHandler struct {
	repo      domain.ProductRepository
	ledger    domain.ValueTransferService
	publisher domain.EventPublisher
}

// NewBuyProductHandler creates a new buy product handler
func NewBuyProductHandler(repo domain.ProductRepository, ledger domain.ValueTransferService, publisher domain.EventPublisher) *BuyProductHandler {
	return &BuyProductHandler{repo: repo, ledger: ledger, publisher: publisher}
}

// Handle settles a purchase: debit the buyer for the price, count the sale,
// then return any change. Each step runs only after the previous one succeeded
// and nothing is retried; the caller's transaction boundary reverts the
// attempt on any error.
func (h *BuyProductHandler) Handle(ctx context.Context, cmd BuyProductCommand) (*Receipt, error) {
	product, err := h.repo.FindByIndex(ctx, cmd.Index)
	if err != nil {
		return nil, err
	}

	if cmd.Tendered < product.Price {
		return nil, fmt.Errorf("%w: tendered %d, price %d", domain.ErrInsufficientFunds, cmd.Tendered, product.Price)
	}

	escrow, canEscrow := h.ledger.(domain.ValueEscrow)
	if canEscrow {
		if err := escrow.Escrow(ctx, cmd.Caller, cmd.Tendered); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInsufficientFunds, err)
		}
	} else if cmd.Tendered > product.Price {
		// change would be paid out of value that was never collected
		return nil, &domain.ValidationError{Field: "tendered", Reason: "must equal the price on a ledger without attached value"}
	}

	if err := h.transfer(ctx, cmd.Caller, product.Owner, product.Price); err != nil {
		return nil, err
	}

	product.SoldCount++
	if err := h.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	change := cmd.Tendered - product.Price
	if change > 0 {
		if err := h.refund(ctx, cmd.Caller, change); err != nil {
			logger.Error(ctx).
				Err(err).
				Uint64("index", cmd.Index).
				Str("buyer", string(cmd.Caller)).
				Str("owner", string(product.Owner)).
				Int64("price", product.Price).
				Int64("change", change).
				Bool("compensation_required", true).
				Msg("Refund failed after successful transfer, purchase aborted")
			return nil, err
		}
	}

	receipt := &Receipt{
		Index:     cmd.Index,
		Buyer:     cmd.Caller,
		Owner:     product.Owner,
		Price:     product.Price,
		Change:    change,
		SoldCount: product.SoldCount,
	}

	publish(ctx, h.publisher, domain.ProductSold{
		Index:     receipt.Index,
		Buyer:     receipt.Buyer,
		Owner:     receipt.Owner,
		Price:     receipt.Price,
		Change:    receipt.Change,
		SoldCount: receipt.SoldCount,
	})

	return receipt, nil
}

// transfer passes structured service failures through unchanged
func (h *BuyProductHandler) transfer(ctx context.Context, payer, payee domain.Principal, amount int64) error {
	ok, err := h.ledger.TransferFrom(ctx, payer, payee, amount)
	if err != nil {
		if svc, isSvc := domain.AsServiceError(err); isSvc {
			return svc
		}
		return fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}
	if !ok {
		return domain.ErrTransferFailed
	}
	return nil
}

func (h *BuyProductHandler) refund(ctx context.Context, payee domain.Principal, amount int64) error {
	ok, err := h.ledger.Pay(ctx, payee, amount)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRefundFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: change of %d not delivered", domain.ErrRefundFailed, amount)
	}
	return nil
}
