package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/journal"
)

const registryAccount domain.Principal = "registry"

func fundedLedger() *MemoryLedger {
	l := NewMemoryLedger(registryAccount)
	l.Mint("buyer", 1000, 500)
	l.Approve("buyer", registryAccount, 1000)
	return l
}

func TestMemoryLedger_TransferFrom(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger()

	ok, err := l.TransferFrom(ctx, "buyer", "seller", 100)
	require.NoError(t, err)
	require.True(t, ok)

	buyer, _ := l.BalanceOf(ctx, "buyer")
	seller, _ := l.BalanceOf(ctx, "seller")
	require.Equal(t, int64(900), buyer)
	require.Equal(t, int64(100), seller)
	require.Equal(t, int64(900), l.Allowance("buyer", registryAccount))
}

func TestMemoryLedger_TransferFromFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(l *MemoryLedger)
		amount  int64
		message string
	}{
		{
			name:    "no allowance",
			setup:   func(l *MemoryLedger) { l.Approve("buyer", registryAccount, 0) },
			amount:  10,
			message: MsgInsufficientAllowance,
		},
		{
			name:    "allowance below amount",
			setup:   func(l *MemoryLedger) { l.Approve("buyer", registryAccount, 50) },
			amount:  51,
			message: MsgInsufficientAllowance,
		},
		{
			name:    "balance below amount",
			setup:   func(l *MemoryLedger) { l.Approve("buyer", registryAccount, 5000) },
			amount:  1001,
			message: MsgInsufficientBalance,
		},
		{
			name:    "non-positive amount",
			setup:   func(l *MemoryLedger) {},
			amount:  0,
			message: MsgInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := fundedLedger()
			tt.setup(l)

			ok, err := l.TransferFrom(ctx, "buyer", "seller", tt.amount)
			require.False(t, ok)

			svc, isSvc := domain.AsServiceError(err)
			require.True(t, isSvc)
			require.Equal(t, tt.message, svc.Message)

			balance, _ := l.BalanceOf(ctx, "buyer")
			require.Equal(t, int64(1000), balance)
		})
	}
}

func TestMemoryLedger_EscrowAndPay(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger()

	require.NoError(t, l.Escrow(ctx, "buyer", 150))
	require.Equal(t, int64(350), l.NativeBalanceOf("buyer"))
	require.Equal(t, int64(150), l.NativeBalanceOf(registryAccount))

	ok, err := l.Pay(ctx, "buyer", 50)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(400), l.NativeBalanceOf("buyer"))
	require.Equal(t, int64(100), l.NativeBalanceOf(registryAccount))

	// Treasury short: non-success without an error
	ok, err = l.Pay(ctx, "buyer", 101)
	require.NoError(t, err)
	require.False(t, ok)

	err = l.Escrow(ctx, "buyer", 401)
	svc, isSvc := domain.AsServiceError(err)
	require.True(t, isSvc)
	require.Equal(t, MsgInsufficientValue, svc.Message)
}

func TestMemoryLedger_RollbackRevertsEverything(t *testing.T) {
	ctx := context.Background()
	l := fundedLedger()

	j := journal.New()
	txCtx := journal.WithContext(ctx, j)

	require.NoError(t, l.Escrow(txCtx, "buyer", 150))
	ok, err := l.TransferFrom(txCtx, "buyer", "seller", 100)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Pay(txCtx, "buyer", 50)
	require.NoError(t, err)
	require.True(t, ok)

	j.Rollback()

	buyer, _ := l.BalanceOf(ctx, "buyer")
	seller, _ := l.BalanceOf(ctx, "seller")
	require.Equal(t, int64(1000), buyer)
	require.Equal(t, int64(0), seller)
	require.Equal(t, int64(1000), l.Allowance("buyer", registryAccount))
	require.Equal(t, int64(500), l.NativeBalanceOf("buyer"))
	require.Equal(t, int64(0), l.NativeBalanceOf(registryAccount))
}

func TestParseSeed(t *testing.T) {
	accounts, err := ParseSeed("alice:1000:50, bob:200")
	require.NoError(t, err)
	require.Equal(t, []SeedAccount{
		{Principal: "alice", Tokens: 1000, Native: 50},
		{Principal: "bob", Tokens: 200},
	}, accounts)

	accounts, err = ParseSeed("  ")
	require.NoError(t, err)
	require.Empty(t, accounts)

	for _, bad := range []string{"alice", ":10", "alice:x", "alice:10:-1", "a:1:2:3"} {
		_, err := ParseSeed(bad)
		require.Error(t, err, bad)
	}
}
