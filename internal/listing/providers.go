package listing

import (
	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/internal/listing/repository"
)

// EventSink is the downstream publisher committed notifications are handed to
type EventSink interface {
	domain.EventPublisher
}

// ProvideProductRepository provides the product table
func ProvideProductRepository() domain.ProductRepository {
	return repository.NewTracedProductRepository(repository.NewMemoryProductRepository())
}

// ProvideCommitPublisher provides the publisher handlers emit through
func ProvideCommitPublisher(sink EventSink) *CommitPublisher {
	return NewCommitPublisher(sink)
}
