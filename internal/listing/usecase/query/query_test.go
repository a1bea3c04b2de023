package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/internal/listing/repository"
)

func seed(t *testing.T, repo *repository.MemoryProductRepository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Append(context.Background(), domain.Product{
			Owner: "owner",
			Listing: domain.Listing{
				Name: "item", ImageRef: "img", Description: "desc", Location: "loc", Price: int64(i + 1),
			},
		})
		require.NoError(t, err)
	}
}

func TestGetProductHandler(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryProductRepository()
	seed(t, repo, 2)
	h := NewGetProductHandler(repo)

	product, err := h.Handle(ctx, GetProductQuery{Index: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), product.Index)
	assert.Equal(t, int64(2), product.Price)

	_, err = h.Handle(ctx, GetProductQuery{Index: 2})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Tombstone(ctx, 0))
	_, err = h.Handle(ctx, GetProductQuery{Index: 0})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCountProductsHandler(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryProductRepository()
	h := NewCountProductsHandler(repo)

	assert.Equal(t, ProductCounts{}, h.Handle(ctx, CountProductsQuery{}))

	seed(t, repo, 3)
	require.NoError(t, repo.Tombstone(ctx, 1))

	assert.Equal(t, ProductCounts{Total: 3, Live: 2}, h.Handle(ctx, CountProductsQuery{}))
}

func TestListProductsHandler(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryProductRepository()
	seed(t, repo, 5)
	require.NoError(t, repo.Tombstone(ctx, 2))
	h := NewListProductsHandler(repo)

	all, err := h.Handle(ctx, ListProductsQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	indices := make([]uint64, 0, len(all))
	for _, p := range all {
		indices = append(indices, p.Index)
	}
	assert.Equal(t, []uint64{0, 1, 3, 4}, indices)

	page, err := h.Handle(ctx, ListProductsQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].Index)
	assert.Equal(t, uint64(4), page[1].Index)

	clamped, err := h.Handle(ctx, ListProductsQuery{Limit: 1, Offset: -4})
	require.NoError(t, err)
	require.Len(t, clamped, 1)
	assert.Equal(t, uint64(0), clamped[0].Index)
}

type balanceLedger struct {
	balances map[domain.Principal]int64
	err      error
}

func (b *balanceLedger) TransferFrom(ctx context.Context, payer, payee domain.Principal, amount int64) (bool, error) {
	return false, nil
}

func (b *balanceLedger) Pay(ctx context.Context, payee domain.Principal, amount int64) (bool, error) {
	return false, nil
}

func (b *balanceLedger) BalanceOf(ctx context.Context, principal domain.Principal) (int64, error) {
	return b.balances[principal], b.err
}

func TestGetBalanceHandler(t *testing.T) {
	ctx := context.Background()
	ledger := &balanceLedger{balances: map[domain.Principal]int64{"alice": 700}}
	h := NewGetBalanceHandler(ledger)

	balance, err := h.Handle(ctx, GetBalanceQuery{Principal: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)

	balance, err = h.Handle(ctx, GetBalanceQuery{Principal: "bob"})
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = h.Handle(ctx, GetBalanceQuery{})
	assert.True(t, domain.IsValidation(err))

	ledger.err = errors.New("ledger offline")
	_, err = h.Handle(ctx, GetBalanceQuery{Principal: "alice"})
	assert.ErrorContains(t, err, "ledger offline")
}
