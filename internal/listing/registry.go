// Package listing wires the product registry: the serialized execution
// environment every listing operation runs in.
package listing

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/internal/listing/usecase/command"
	"github.com/tair/listing-ledger/internal/listing/usecase/query"
	"github.com/tair/listing-ledger/pkg/journal"
)

var tracer = otel.Tracer("listing-registry")

// Registry runs one operation at a time. Each mutating operation executes
// inside a journal: on error or panic every recorded mutation is reverted and
// buffered notifications are dropped.
type Registry struct {
	mu sync.RWMutex

	createHandler *command.CreateProductHandler
	updateHandler *command.UpdateProductHandler
	removeHandler *command.RemoveProductHandler
	buyHandler    *command.BuyProductHandler

	getProductHandler *query.GetProductHandler
	countHandler      *query.CountProductsHandler
	listHandler       *query.ListProductsHandler
	balanceHandler    *query.GetBalanceHandler
}

// NewRegistry creates a registry over repo and ledger. Notifications are handed
// to publisher only after the emitting operation commits.
func NewRegistry(repo domain.ProductRepository, ledger domain.ValueTransferService, publisher domain.EventPublisher) *Registry {
	publisher = NewCommitPublisher(publisher)

	return NewRegistryWithDI(
		command.NewCreateProductHandler(repo, publisher),
		command.NewUpdateProductHandler(repo, publisher),
		command.NewRemoveProductHandler(repo, publisher),
		command.NewBuyProductHandler(repo, ledger, publisher),
		query.NewGetProductHandler(repo),
		query.NewCountProductsHandler(repo),
		query.NewListProductsHandler(repo),
		query.NewGetBalanceHandler(ledger),
	)
}

// NewRegistryWithDI creates a registry from prebuilt handlers.
// This is used by Wire for automatic dependency injection
func NewRegistryWithDI(
	createHandler *command.CreateProductHandler,
	updateHandler *command.UpdateProductHandler,
	removeHandler *command.RemoveProductHandler,
	buyHandler *command.BuyProductHandler,
	getProductHandler *query.GetProductHandler,
	countHandler *query.CountProductsHandler,
	listHandler *query.ListProductsHandler,
	balanceHandler *query.GetBalanceHandler,
) *Registry {
	return &Registry{
		createHandler:     createHandler,
		updateHandler:     updateHandler,
		removeHandler:     removeHandler,
		buyHandler:        buyHandler,
		getProductHandler: getProductHandler,
		countHandler:      countHandler,
		listHandler:       listHandler,
		balanceHandler:    balanceHandler,
	}
}

// Create registers a new product owned by caller and returns its index
func (r *Registry) Create(ctx context.Context, caller domain.Principal, l domain.Listing) (uint64, error) {
	var index uint64
	err := r.execute(ctx, "create", func(ctx context.Context) error {
		var err error
		index, err = r.createHandler.Handle(ctx, command.CreateProductCommand{Caller: caller, Listing: l})
		return err
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

// Update overwrites the mutable fields of a product owned by caller
func (r *Registry) Update(ctx context.Context, index uint64, caller domain.Principal, l domain.Listing) (*domain.Product, error) {
	var product *domain.Product
	err := r.execute(ctx, "update", func(ctx context.Context) error {
		var err error
		product, err = r.updateHandler.Handle(ctx, command.UpdateProductCommand{Index: index, Caller: caller, Listing: l})
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Remove tombstones a product owned by caller
func (r *Registry) Remove(ctx context.Context, index uint64, caller domain.Principal) error {
	return r.execute(ctx, "remove", func(ctx context.Context) error {
		return r.removeHandler.Handle(ctx, command.RemoveProductCommand{Index: index, Caller: caller})
	})
}

// Buy settles a purchase of the product at index, tendering amount
func (r *Registry) Buy(ctx context.Context, index uint64, caller domain.Principal, tendered int64) (*command.Receipt, error) {
	var receipt *command.Receipt
	err := r.execute(ctx, "buy", func(ctx context.Context) error {
		var err error
		receipt, err = r.buyHandler.Handle(ctx, command.BuyProductCommand{Index: index, Caller: caller, Tendered: tendered})
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Read returns a snapshot of the product at index
func (r *Registry) Read(ctx context.Context, index uint64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getProductHandler.Handle(ctx, query.GetProductQuery{Index: index})
}

// Count returns how many products were ever created, removed ones included
func (r *Registry) Count(ctx context.Context) uint64 {
	return r.Counts(ctx).Total
}

// Live returns how many products are not removed
func (r *Registry) Live(ctx context.Context) uint64 {
	return r.Counts(ctx).Live
}

// Counts returns both counters from a single consistent view
func (r *Registry) Counts(ctx context.Context) query.ProductCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countHandler.Handle(ctx, query.CountProductsQuery{})
}

// List pages through live products in index order
func (r *Registry) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listHandler.Handle(ctx, query.ListProductsQuery{Limit: limit, Offset: offset})
}

// Balance returns principal's token balance on the ledger
func (r *Registry) Balance(ctx context.Context, principal domain.Principal) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balanceHandler.Handle(ctx, query.GetBalanceQuery{Principal: principal})
}

func (r *Registry) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := tracer.Start(ctx, "registry."+op)
	defer span.End()

	j := journal.New()
	ctx = journal.WithContext(ctx, j)

	defer func() {
		if p := recover(); p != nil {
			j.Rollback()
			span.SetStatus(codes.Error, fmt.Sprint(p))
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		span.SetAttributes(attribute.Int("journal.reverted", j.Len()))
		j.Rollback()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	j.Commit()
	return nil
}
