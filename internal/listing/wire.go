//go:build wireinject
// +build wireinject

package listing

import (
	"github.com/google/wire"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/internal/listing/usecase/command"
	"github.com/tair/listing-ledger/internal/listing/usecase/query"
)

// RepositorySet provides the traced in-memory product table
var RepositorySet = wire.NewSet(
	ProvideProductRepository,
)

// PublisherSet buffers handler notifications until commit
var PublisherSet = wire.NewSet(
	ProvideCommitPublisher,
	wire.Bind(new(domain.EventPublisher), new(*CommitPublisher)),
)

// CommandHandlerSet provides all command handlers
var CommandHandlerSet = wire.NewSet(
	command.NewCreateProductHandler,
	command.NewUpdateProductHandler,
	command.NewRemoveProductHandler,
	command.NewBuyProductHandler,
)

// QueryHandlerSet provides all query handlers
var QueryHandlerSet = wire.NewSet(
	query.NewGetProductHandler,
	query.NewCountProductsHandler,
	query.NewListProductsHandler,
	query.NewGetBalanceHandler,
)

// InitializeRegistry builds a registry settling against ledger and delivering
// committed notifications to sink
func InitializeRegistry(ledger domain.ValueTransferService, sink EventSink) *Registry {
	wire.Build(
		RepositorySet,
		PublisherSet,
		CommandHandlerSet,
		QueryHandlerSet,
		NewRegistryWithDI,
	)
	return nil
}
