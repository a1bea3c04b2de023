package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/journal"
)

type slot struct {
	product domain.Product
	live    bool
}

// MemoryProductRepository is an append-only slot table. Removed products
// leave a tombstone so every other index stays stable.
type MemoryProductRepository struct {
	mu    sync.RWMutex
	slots []slot
	live  uint64
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{}
}

func (r *MemoryProductRepository) Append(ctx context.Context, product domain.Product) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := uint64(len(r.slots))
	product.Index = index
	r.slots = append(r.slots, slot{product: product, live: true})
	r.live++

	journal.Record(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.slots = r.slots[:index]
		r.live--
	})
	return index, nil
}

func (r *MemoryProductRepository) FindByIndex(ctx context.Context, index uint64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.liveSlot(index)
	if err != nil {
		return nil, err
	}
	product := s.product
	return &product, nil
}

func (r *MemoryProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if product == nil {
		return fmt.Errorf("nil product")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.liveSlot(product.Index)
	if err != nil {
		return err
	}
	previous := s.product
	s.product = *product

	journal.Record(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.slots[previous.Index].product = previous
	})
	return nil
}

func (r *MemoryProductRepository) Tombstone(ctx context.Context, index uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.liveSlot(index)
	if err != nil {
		return err
	}
	s.live = false
	r.live--

	journal.Record(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.slots[index].live = true
		r.live++
	})
	return nil
}

// FindAll returns live products in index order, skipping tombstones.
// offset counts live products, not slots.
func (r *MemoryProductRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("invalid page: limit %d, offset %d", limit, offset)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]domain.Product, 0, min(limit, int(r.live)))
	skipped := 0
	for _, s := range r.slots {
		if !s.live {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		products = append(products, s.product)
		if len(products) == limit {
			break
		}
	}
	return products, nil
}

func (r *MemoryProductRepository) NextIndex(ctx context.Context) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.slots))
}

func (r *MemoryProductRepository) LiveCount(ctx context.Context) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// liveSlot must be called with r.mu held
func (r *MemoryProductRepository) liveSlot(index uint64) (*slot, error) {
	if index >= uint64(len(r.slots)) || !r.slots[index].live {
		return nil, domain.NotFoundError(index)
	}
	return &r.slots[index], nil
}
