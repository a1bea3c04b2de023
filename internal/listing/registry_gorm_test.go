package listing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tair/listing-ledger/internal/ledger"
	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/internal/listing/repository"
)

func sqliteLedger(t *testing.T) *ledger.GormLedger {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	l := ledger.NewGormLedger(db, treasury)
	require.NoError(t, l.AutoMigrate())
	return l
}

func TestRegistry_GormLedgerNeverPaysUncollectedChange(t *testing.T) {
	ctx := context.Background()
	l := sqliteLedger(t)
	require.NoError(t, l.Mint(ctx, treasury, 0, 1000))
	require.NoError(t, l.Mint(ctx, "B", 100, 0))
	require.NoError(t, l.Approve(ctx, "B", treasury, 100))

	r := NewRegistry(repository.NewMemoryProductRepository(), l, nil)
	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	_, err = r.Buy(ctx, a, "B", 1100)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	treasuryNative, err := l.NativeBalanceOf(ctx, treasury)
	require.NoError(t, err)
	require.Equal(t, int64(1000), treasuryNative)
	buyerNative, err := l.NativeBalanceOf(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, int64(0), buyerNative)
	buyerTokens, err := l.BalanceOf(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, int64(100), buyerTokens)

	product, err := r.Read(ctx, a)
	require.NoError(t, err)
	require.Equal(t, uint64(0), product.SoldCount)
}

func TestRegistry_GormLedgerBuyWithChange(t *testing.T) {
	ctx := context.Background()
	l := sqliteLedger(t)
	require.NoError(t, l.Mint(ctx, "B", 1000, 1000))
	require.NoError(t, l.Approve(ctx, "B", treasury, 1000))

	r := NewRegistry(repository.NewMemoryProductRepository(), l, nil)
	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	receipt, err := r.Buy(ctx, a, "B", 150)
	require.NoError(t, err)
	require.Equal(t, int64(50), receipt.Change)

	sellerTokens, err := l.BalanceOf(ctx, "O")
	require.NoError(t, err)
	require.Equal(t, int64(100), sellerTokens)
	buyerNative, err := l.NativeBalanceOf(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, int64(900), buyerNative)
	treasuryNative, err := l.NativeBalanceOf(ctx, treasury)
	require.NoError(t, err)
	require.Equal(t, int64(100), treasuryNative)
}

func TestRegistry_GormLedgerFailedTransferReturnsEscrow(t *testing.T) {
	ctx := context.Background()
	l := sqliteLedger(t)
	// native but no allowance: the escrow succeeds and the transfer fails
	require.NoError(t, l.Mint(ctx, "B", 1000, 1000))

	r := NewRegistry(repository.NewMemoryProductRepository(), l, nil)
	a, err := r.Create(ctx, "O", kente(100))
	require.NoError(t, err)

	_, err = r.Buy(ctx, a, "B", 150)
	require.EqualError(t, err, ledger.MsgInsufficientAllowance)

	buyerNative, err := l.NativeBalanceOf(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, int64(1000), buyerNative)
	treasuryNative, err := l.NativeBalanceOf(ctx, treasury)
	require.NoError(t, err)
	require.Equal(t, int64(0), treasuryNative)
}
