// Package indexer projects registry notifications into a queryable read model.
// It is an external observer: the registry never reads from it.
package indexer

import (
	"context"
	"errors"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

var ErrNotIndexed = errors.New("product not indexed")

// ProductView is the read-model row of a live product
type ProductView struct {
	Index     uint64 `json:"index"`
	Owner     string `json:"owner"`
	domain.Listing
	SoldCount uint64 `json:"sold_count"`
}

// Store persists product views
type Store interface {
	Put(ctx context.Context, view ProductView) error
	Get(ctx context.Context, index uint64) (*ProductView, error)
	SetSoldCount(ctx context.Context, index uint64, soldCount uint64) error
	Delete(ctx context.Context, index uint64) error
}
