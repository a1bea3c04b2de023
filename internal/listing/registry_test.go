package listing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tair/listing-ledger/internal/ledger"
	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/internal/listing/repository"
)

const treasury domain.Principal = "registry"

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// shortPayLedger accepts every debit but can never return change
type shortPayLedger struct {
	*ledger.MemoryLedger
}

func (l shortPayLedger) Pay(ctx context.Context, payee domain.Principal, amount int64) (bool, error) {
	return false, nil
}

// panicLedger aborts the host in the middle of settlement
type panicLedger struct {
	*ledger.MemoryLedger
}

func (l panicLedger) Pay(ctx context.Context, payee domain.Principal, amount int64) (bool, error) {
	panic("host fault")
}

func kente(price int64) domain.Listing {
	return domain.Listing{
		Name:        "Kente cloth",
		ImageRef:    "ipfs://kente",
		Description: "Hand woven",
		Location:    "Kumasi",
		Price:       price,
	}
}

func fundedLedger(buyer domain.Principal, tokens, native int64) *ledger.MemoryLedger {
	l := ledger.NewMemoryLedger(treasury)
	l.Mint(buyer, tokens, native)
	l.Approve(buyer, treasury, tokens)
	return l
}

func TestRegistry_Scenario(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger("B", 1000, 1000)
	pub := &recordingPublisher{}
	r := NewRegistry(repository.NewMemoryProductRepository(), l, pub)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)
	require.Equal(t, uint64(1), r.Count(ctx))

	receipt, err := r.Buy(ctx, a, "B", 100)
	require.NoError(t, err)
	require.Equal(t, int64(0), receipt.Change)
	require.Equal(t, uint64(1), receipt.SoldCount)

	ownerBalance, err := r.Balance(ctx, "O")
	require.NoError(t, err)
	require.Equal(t, int64(100), ownerBalance)

	product, err := r.Read(ctx, a)
	require.NoError(t, err)
	require.Equal(t, uint64(1), product.SoldCount)

	require.NoError(t, r.Remove(ctx, a, "O"))

	_, err = r.Read(ctx, a)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Equal(t, uint64(1), r.Count(ctx))
	require.Equal(t, uint64(0), r.Live(ctx))

	require.Equal(t, []string{
		domain.EventTypeProductAdded,
		domain.EventTypeProductSold,
		domain.EventTypeProductRemoved,
	}, pub.types())
}

func TestRegistry_TombstoneBlocksEveryOperation(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(repository.NewMemoryProductRepository(), fundedLedger("B", 500, 500), nil)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)
	require.NoError(t, r.Remove(ctx, a, "O"))

	_, err = r.Read(ctx, a)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.Update(ctx, a, "O", kente(120))
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.Buy(ctx, a, "B", 100)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, r.Remove(ctx, a, "O"), domain.ErrNotFound)

	b, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)
	require.Equal(t, uint64(1), b)
}

func TestRegistry_BuyWithChange(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger("B", 1000, 1000)
	r := NewRegistry(repository.NewMemoryProductRepository(), l, nil)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	receipt, err := r.Buy(ctx, a, "B", 150)
	require.NoError(t, err)
	require.Equal(t, int64(50), receipt.Change)

	tokens, _ := l.BalanceOf(ctx, "O")
	require.Equal(t, int64(100), tokens)
	tokens, _ = l.BalanceOf(ctx, "B")
	require.Equal(t, int64(900), tokens)

	// 150 attached, 50 returned
	require.Equal(t, int64(900), l.NativeBalanceOf("B"))
	require.Equal(t, int64(100), l.NativeBalanceOf(treasury))
}

func TestRegistry_StructuredTransferFailureIsVerbatim(t *testing.T) {
	ctx := context.Background()
	l := ledger.NewMemoryLedger(treasury)
	l.Mint("B", 1000, 1000)
	r := NewRegistry(repository.NewMemoryProductRepository(), l, nil)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	_, err = r.Buy(ctx, a, "B", 150)
	require.EqualError(t, err, ledger.MsgInsufficientAllowance)

	svc, ok := domain.AsServiceError(err)
	require.True(t, ok)
	require.Equal(t, ledger.MsgInsufficientAllowance, svc.Message)

	product, _ := r.Read(ctx, a)
	require.Equal(t, uint64(0), product.SoldCount)
	// escrowed value is returned with the rollback
	require.Equal(t, int64(1000), l.NativeBalanceOf("B"))
	require.Equal(t, int64(0), l.NativeBalanceOf(treasury))
}

func TestRegistry_RefundFailureRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	mem := fundedLedger("B", 1000, 1000)
	pub := &recordingPublisher{}
	r := NewRegistry(repository.NewMemoryProductRepository(), shortPayLedger{mem}, pub)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	_, err = r.Buy(ctx, a, "B", 150)
	require.ErrorIs(t, err, domain.ErrRefundFailed)

	product, err := r.Read(ctx, a)
	require.NoError(t, err)
	require.Equal(t, uint64(0), product.SoldCount)

	tokens, _ := mem.BalanceOf(ctx, "B")
	require.Equal(t, int64(1000), tokens)
	tokens, _ = mem.BalanceOf(ctx, "O")
	require.Equal(t, int64(0), tokens)
	require.Equal(t, int64(1000), mem.Allowance("B", treasury))
	require.Equal(t, int64(1000), mem.NativeBalanceOf("B"))

	require.Equal(t, []string{domain.EventTypeProductAdded}, pub.types())
}

func TestRegistry_PanicRollsBack(t *testing.T) {
	ctx := context.Background()
	mem := fundedLedger("B", 1000, 1000)
	pub := &recordingPublisher{}
	r := NewRegistry(repository.NewMemoryProductRepository(), panicLedger{mem}, pub)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	require.PanicsWithValue(t, "host fault", func() {
		_, _ = r.Buy(ctx, a, "B", 150)
	})

	product, err := r.Read(ctx, a)
	require.NoError(t, err)
	require.Equal(t, uint64(0), product.SoldCount)
	tokens, _ := mem.BalanceOf(ctx, "O")
	require.Equal(t, int64(0), tokens)
	require.Equal(t, []string{domain.EventTypeProductAdded}, pub.types())

	// the registry is still usable after the fault
	_, err = r.Create(ctx, "O", kente(10))
	require.NoError(t, err)
}

func TestRegistry_InsufficientFundsAttemptsNoTransfer(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger("B", 1000, 1000)
	r := NewRegistry(repository.NewMemoryProductRepository(), l, nil)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	_, err = r.Buy(ctx, a, "B", 99)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.Equal(t, int64(1000), l.Allowance("B", treasury))
	require.Equal(t, int64(1000), l.NativeBalanceOf("B"))
}

func TestRegistry_FailedCreateLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	r := NewRegistry(repository.NewMemoryProductRepository(), fundedLedger("B", 0, 0), pub)

	bad := kente(100)
	bad.ImageRef = ""
	_, err := r.Create(ctx, "O", bad)
	require.True(t, domain.IsValidation(err))
	require.Equal(t, uint64(0), r.Count(ctx))
	require.Empty(t, pub.types())
}

func TestRegistry_OwnershipGate(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(repository.NewMemoryProductRepository(), fundedLedger("B", 0, 0), nil)

	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	_, err = r.Update(ctx, a, "M", kente(1))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorIs(t, r.Remove(ctx, a, "M"), domain.ErrUnauthorized)

	product, err := r.Read(ctx, a)
	require.NoError(t, err)
	require.Equal(t, kente(100), product.Listing)
	require.Equal(t, domain.Principal("O"), product.Owner)
}

func TestRegistry_ConcurrentPurchasesAreSerialized(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger("B", 10_000, 10_000)
	r := NewRegistry(repository.NewMemoryProductRepository(), l, nil)

	a, err := r.Create(ctx, "O", kente(10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Buy(ctx, a, "B", 15)
		}()
	}
	wg.Wait()

	product, err := r.Read(ctx, a)
	require.NoError(t, err)
	require.Equal(t, uint64(50), product.SoldCount)

	tokens, _ := l.BalanceOf(ctx, "O")
	require.Equal(t, int64(500), tokens)
	require.Equal(t, int64(10_000-500), l.NativeBalanceOf("B"))
}

func TestRegistry_CountAndLiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		r := NewRegistry(repository.NewMemoryProductRepository(), ledger.NewMemoryLedger(treasury), nil)

		created := uint64(0)
		live := map[uint64]bool{}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "create") || created == 0 {
				index, err := r.Create(ctx, "O", kente(rapid.Int64Range(1, 1000).Draw(t, "price")))
				if err != nil {
					t.Fatalf("create: %v", err)
				}
				if index != created {
					t.Fatalf("index %d, want %d", index, created)
				}
				created++
				live[index] = true
				continue
			}

			index := rapid.Uint64Range(0, created-1).Draw(t, "remove")
			err := r.Remove(ctx, index, "O")
			if live[index] {
				if err != nil {
					t.Fatalf("remove %d: %v", index, err)
				}
				delete(live, index)
			} else if !domain.IsNotFound(err) {
				t.Fatalf("remove tombstoned %d: %v", index, err)
			}
		}

		counts := r.Counts(ctx)
		if counts.Total != created {
			t.Fatalf("count %d, want %d", counts.Total, created)
		}
		if counts.Live != uint64(len(live)) {
			t.Fatalf("live %d, want %d", counts.Live, len(live))
		}
	})
}

func TestInitializeRegistry(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger("B", 500, 500)
	pub := &recordingPublisher{}
	r := InitializeRegistry(l, pub)

	index, err := r.Create(ctx, "S", kente(200))
	require.NoError(t, err)

	receipt, err := r.Buy(ctx, index, "B", 200)
	require.NoError(t, err)
	require.Equal(t, int64(0), receipt.Change)

	balance, err := r.Balance(ctx, "S")
	require.NoError(t, err)
	require.Equal(t, int64(200), balance)
	require.Equal(t, []string{domain.EventTypeProductAdded, domain.EventTypeProductSold}, pub.types())
}
