package domain

import (
	"context"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted product name, in characters
const MaxNameLength = 100

// Principal identifies a party. It is opaque to the registry and supplied by
// the caller's execution context.
type Principal string

// Listing holds the fields an owner may set and later overwrite
type Listing struct {
	Name        string `json:"name"`
	ImageRef    string `json:"image_ref"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Price       int64  `json:"price"`
}

// Validate checks every field and reports the first offending one
func (l Listing) Validate() error {
	if l.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if utf8.RuneCountInString(l.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: "must be at most 100 characters"}
	}
	if l.ImageRef == "" {
		return &ValidationError{Field: "image_ref", Reason: "is required"}
	}
	if l.Description == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if l.Location == "" {
		return &ValidationError{Field: "location", Reason: "is required"}
	}
	if l.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "must be greater than 0"}
	}
	return nil
}

// Product represents a registered listing
type Product struct {
	Index uint64    `json:"index"`
	Owner Principal `json:"owner"`
	Listing
	SoldCount uint64 `json:"sold_count"`
}

// IsOwnedBy reports whether caller may mutate or remove the product
func (p *Product) IsOwnedBy(caller Principal) bool {
	return p.Owner == caller
}

// ProductRepository defines the contract for the indexed product table.
// Indices are assigned densely from zero and never reused; removal leaves a
// tombstone. Implementations record undo entries in the journal carried by
// ctx, if any.
type ProductRepository interface {
	Append(ctx context.Context, product Product) (uint64, error)
	FindByIndex(ctx context.Context, index uint64) (*Product, error)
	Update(ctx context.Context, product *Product) error
	Tombstone(ctx context.Context, index uint64) error
	FindAll(ctx context.Context, limit, offset int) ([]Product, error)
	NextIndex(ctx context.Context) uint64
	LiveCount(ctx context.Context) uint64
}
