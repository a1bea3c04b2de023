package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/journal"
	"github.com/tair/listing-ledger/pkg/logger"
)

// Account is a ledger balance row
type Account struct {
	Principal string    `json:"principal" gorm:"primaryKey"`
	Tokens    int64     `json:"tokens" gorm:"not null;default:0"`
	Native    int64     `json:"native" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Account) TableName() string {
	return "ledger_accounts"
}

// Allowance is the amount spender may move on behalf of owner
type Allowance struct {
	Owner     string    `json:"owner" gorm:"primaryKey"`
	Spender   string    `json:"spender" gorm:"primaryKey"`
	Amount    int64     `json:"amount" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Allowance) TableName() string {
	return "ledger_allowances"
}

var errTreasuryShort = errors.New("treasury cannot cover payment")

// GormLedger is a postgres-backed Value Transfer Service. Each call commits in
// its own database transaction. Escrow and TransferFrom journal a compensating
// transaction, so an aborted purchase moves the value back; Pay is final.
type GormLedger struct {
	db      *gorm.DB
	account domain.Principal
}

func NewGormLedger(db *gorm.DB, account domain.Principal) *GormLedger {
	return &GormLedger{db: db, account: account}
}

func (l *GormLedger) AutoMigrate() error {
	return l.db.AutoMigrate(&Account{}, &Allowance{})
}

// Account returns the registry's own principal on this ledger
func (l *GormLedger) Account() domain.Principal {
	return l.account
}

// Mint credits tokens and native value to principal, creating the row if needed
func (l *GormLedger) Mint(ctx context.Context, principal domain.Principal, tokens, native int64) error {
	account := Account{Principal: string(principal), Tokens: tokens, Native: native}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "principal"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"tokens":     gorm.Expr("ledger_accounts.tokens + ?", tokens),
			"native":     gorm.Expr("ledger_accounts.native + ?", native),
			"updated_at": time.Now(),
		}),
	}).Create(&account).Error
}

// Approve sets the allowance of spender over owner's tokens
func (l *GormLedger) Approve(ctx context.Context, owner, spender domain.Principal, amount int64) error {
	allowance := Allowance{Owner: string(owner), Spender: string(spender), Amount: amount}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "spender"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&allowance).Error
}

func (l *GormLedger) TransferFrom(ctx context.Context, payer, payee domain.Principal, amount int64) (bool, error) {
	if amount <= 0 {
		return false, &domain.ServiceError{Message: MsgInvalidAmount}
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var allowance Allowance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner = ? AND spender = ?", string(payer), string(l.account)).
			First(&allowance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && allowance.Amount < amount) {
			return &domain.ServiceError{Message: MsgInsufficientAllowance}
		}
		if err != nil {
			return fmt.Errorf("failed to load allowance: %w", err)
		}

		from, err := lockAccount(tx, payer)
		if err != nil {
			return err
		}
		if from == nil || from.Tokens < amount {
			return &domain.ServiceError{Message: MsgInsufficientBalance}
		}

		if err := ensureAccount(tx, payee); err != nil {
			return err
		}
		if err := addTokens(tx, payer, -amount); err != nil {
			return err
		}
		if err := addTokens(tx, payee, amount); err != nil {
			return err
		}
		return tx.Model(&Allowance{}).
			Where("owner = ? AND spender = ?", string(payer), string(l.account)).
			Update("amount", gorm.Expr("amount - ?", amount)).Error
	})
	if err != nil {
		return false, err
	}

	l.compensate(ctx, "transfer", payer, amount, func(tx *gorm.DB) error {
		if err := addTokens(tx, payee, -amount); err != nil {
			return err
		}
		if err := addTokens(tx, payer, amount); err != nil {
			return err
		}
		return tx.Model(&Allowance{}).
			Where("owner = ? AND spender = ?", string(payer), string(l.account)).
			Update("amount", gorm.Expr("amount + ?", amount)).Error
	})
	return true, nil
}

func (l *GormLedger) Pay(ctx context.Context, payee domain.Principal, amount int64) (bool, error) {
	if amount <= 0 {
		return false, &domain.ServiceError{Message: MsgInvalidAmount}
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		treasury, err := lockAccount(tx, l.account)
		if err != nil {
			return err
		}
		if treasury == nil || treasury.Native < amount {
			return errTreasuryShort
		}

		if err := ensureAccount(tx, payee); err != nil {
			return err
		}
		if err := addNative(tx, l.account, -amount); err != nil {
			return err
		}
		return addNative(tx, payee, amount)
	})
	if errors.Is(err, errTreasuryShort) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Escrow moves value attached to a call from the caller into the treasury
func (l *GormLedger) Escrow(ctx context.Context, from domain.Principal, amount int64) error {
	if amount <= 0 {
		return &domain.ServiceError{Message: MsgInvalidAmount}
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := lockAccount(tx, from)
		if err != nil {
			return err
		}
		if account == nil || account.Native < amount {
			return &domain.ServiceError{Message: MsgInsufficientValue}
		}

		if err := ensureAccount(tx, l.account); err != nil {
			return err
		}
		if err := addNative(tx, from, -amount); err != nil {
			return err
		}
		return addNative(tx, l.account, amount)
	})
	if err != nil {
		return err
	}

	l.compensate(ctx, "escrow", from, amount, func(tx *gorm.DB) error {
		if err := addNative(tx, l.account, -amount); err != nil {
			return err
		}
		return addNative(tx, from, amount)
	})
	return nil
}

// compensate records undo in the operation's journal. The undo runs in its
// own transaction after the operation has already failed, so its error can
// only be logged.
func (l *GormLedger) compensate(ctx context.Context, op string, principal domain.Principal, amount int64, undo func(tx *gorm.DB) error) {
	undoCtx := context.WithoutCancel(ctx)
	journal.Record(ctx, func() {
		if err := l.db.WithContext(undoCtx).Transaction(undo); err != nil {
			logger.Error(undoCtx).
				Err(err).
				Str("op", op).
				Str("principal", string(principal)).
				Int64("amount", amount).
				Bool("compensation_required", true).
				Msg("Failed to revert ledger entry")
		}
	})
}

func (l *GormLedger) BalanceOf(ctx context.Context, principal domain.Principal) (int64, error) {
	var account Account
	err := l.db.WithContext(ctx).First(&account, "principal = ?", string(principal)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load balance: %w", err)
	}
	return account.Tokens, nil
}

// NativeBalanceOf returns the native balance of principal
func (l *GormLedger) NativeBalanceOf(ctx context.Context, principal domain.Principal) (int64, error) {
	var account Account
	err := l.db.WithContext(ctx).First(&account, "principal = ?", string(principal)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load native balance: %w", err)
	}
	return account.Native, nil
}

// lockAccount returns nil without error when the account does not exist
func lockAccount(tx *gorm.DB, principal domain.Principal) (*Account, error) {
	var account Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "principal = ?", string(principal)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	return &account, nil
}

func ensureAccount(tx *gorm.DB, principal domain.Principal) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Account{Principal: string(principal)}).Error
}

func addTokens(tx *gorm.DB, principal domain.Principal, delta int64) error {
	return tx.Model(&Account{}).
		Where("principal = ?", string(principal)).
		Update("tokens", gorm.Expr("tokens + ?", delta)).Error
}

func addNative(tx *gorm.DB, principal domain.Principal, delta int64) error {
	return tx.Model(&Account{}).
		Where("principal = ?", string(principal)).
		Update("native", gorm.Expr("native + ?", delta)).Error
}
