package domain

import "context"

// Event types
const (
	EventTypeProductAdded   = "product.added"
	EventTypeProductUpdated = "product.updated"
	EventTypeProductRemoved = "product.removed"
	EventTypeProductSold    = "product.sold"
)

// Event is a lifecycle notification emitted by the registry
type Event interface {
	EventType() string
	ProductIndex() uint64
}

// EventPublisher delivers notifications to external observers. Delivery is
// fire-and-forget from the registry's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// ProductAdded is emitted when a product is created
type ProductAdded struct {
	Index uint64
	Owner Principal
	Listing
}

func (e ProductAdded) EventType() string    { return EventTypeProductAdded }
func (e ProductAdded) ProductIndex() uint64 { return e.Index }

// ProductUpdated is emitted when an owner overwrites a listing
type ProductUpdated struct {
	Index uint64
	Listing
}

func (e ProductUpdated) EventType() string    { return EventTypeProductUpdated }
func (e ProductUpdated) ProductIndex() uint64 { return e.Index }

// ProductRemoved is emitted when an owner retracts a listing
type ProductRemoved struct {
	Index uint64
}

func (e ProductRemoved) EventType() string    { return EventTypeProductRemoved }
func (e ProductRemoved) ProductIndex() uint64 { return e.Index }

// ProductSold is emitted after a purchase settles
type ProductSold struct {
	Index     uint64
	Buyer     Principal
	Owner     Principal
	Price     int64
	Change    int64
	SoldCount uint64
}

func (e ProductSold) EventType() string    { return EventTypeProductSold }
func (e ProductSold) ProductIndex() uint64 { return e.Index }
