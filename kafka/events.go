package kafka

import (
	"fmt"
	"time"

	"github.com/tair/listing-ledger/internal/listing/domain"
)

// ListingEvent is the wire form of every registry notification. Fields that do
// not apply to an event type are left empty.
type ListingEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	Index       uint64    `json:"index"`
	Owner       string    `json:"owner,omitempty"`
	Buyer       string    `json:"buyer,omitempty"`
	Name        string    `json:"name,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Price       int64     `json:"price,omitempty"`
	Change      int64     `json:"change,omitempty"`
	SoldCount   uint64    `json:"sold_count,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Kafka topics
const (
	TopicListingEvents = "listing-events"
)

// MessageKey partitions events by product so each product's history stays ordered
func MessageKey(index uint64) string {
	return fmt.Sprintf("product_%d", index)
}

// NewListingEvent flattens a registry notification
func NewListingEvent(event domain.Event) (ListingEvent, error) {
	out := ListingEvent{
		EventType: event.EventType(),
		Index:     event.ProductIndex(),
	}

	switch e := event.(type) {
	case domain.ProductAdded:
		out.Owner = string(e.Owner)
		out.setListing(e.Listing)
	case domain.ProductUpdated:
		out.setListing(e.Listing)
	case domain.ProductRemoved:
	case domain.ProductSold:
		out.Owner = string(e.Owner)
		out.Buyer = string(e.Buyer)
		out.Price = e.Price
		out.Change = e.Change
		out.SoldCount = e.SoldCount
	default:
		return ListingEvent{}, fmt.Errorf("unsupported event type %q", event.EventType())
	}
	return out, nil
}

func (e *ListingEvent) setListing(l domain.Listing) {
	e.Name = l.Name
	e.ImageRef = l.ImageRef
	e.Description = l.Description
	e.Location = l.Location
	e.Price = l.Price
}

// Listing returns the listing fields carried by the event
func (e ListingEvent) Listing() domain.Listing {
	return domain.Listing{
		Name:        e.Name,
		ImageRef:    e.ImageRef,
		Description: e.Description,
		Location:    e.Location,
		Price:       e.Price,
	}
}
