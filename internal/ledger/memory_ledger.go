// Package ledger provides Value Transfer Service implementations the
// registry settles purchases against.
package ledger

import (
	"context"
	"sync"

	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/pkg/journal"
)

// Failure messages reported as structured service errors
const (
	MsgInsufficientAllowance = "ERC20: insufficient allowance"
	MsgInsufficientBalance   = "ERC20: transfer amount exceeds balance"
	MsgInvalidAmount         = "ERC20: invalid amount"
	MsgInsufficientValue     = "insufficient native balance for attached value"
)

type allowanceKey struct {
	owner   domain.Principal
	spender domain.Principal
}

// MemoryLedger keeps token balances, allowances and native balances in memory.
// Every mutation is recorded in the journal carried by the call's context, so
// it reverts together with the registry when an operation aborts.
type MemoryLedger struct {
	mu         sync.Mutex
	account    domain.Principal
	tokens     map[domain.Principal]int64
	native     map[domain.Principal]int64
	allowances map[allowanceKey]int64
}

// NewMemoryLedger creates a ledger whose spender and native treasury is account
func NewMemoryLedger(account domain.Principal) *MemoryLedger {
	return &MemoryLedger{
		account:    account,
		tokens:     make(map[domain.Principal]int64),
		native:     make(map[domain.Principal]int64),
		allowances: make(map[allowanceKey]int64),
	}
}

// Account returns the registry's own principal on this ledger
func (l *MemoryLedger) Account() domain.Principal {
	return l.account
}

// Mint credits tokens and native value to principal
func (l *MemoryLedger) Mint(principal domain.Principal, tokens, native int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[principal] += tokens
	l.native[principal] += native
}

// Approve lets spender move up to amount of owner's tokens
func (l *MemoryLedger) Approve(owner, spender domain.Principal, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{owner: owner, spender: spender}] = amount
}

// Allowance returns how much spender may still move on behalf of owner
func (l *MemoryLedger) Allowance(owner, spender domain.Principal) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[allowanceKey{owner: owner, spender: spender}]
}

func (l *MemoryLedger) TransferFrom(ctx context.Context, payer, payee domain.Principal, amount int64) (bool, error) {
	if amount <= 0 {
		return false, &domain.ServiceError{Message: MsgInvalidAmount}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{owner: payer, spender: l.account}
	allowance := l.allowances[key]
	if allowance < amount {
		return false, &domain.ServiceError{Message: MsgInsufficientAllowance}
	}
	if l.tokens[payer] < amount {
		return false, &domain.ServiceError{Message: MsgInsufficientBalance}
	}

	l.allowances[key] = allowance - amount
	l.tokens[payer] -= amount
	l.tokens[payee] += amount

	journal.Record(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.tokens[payee] -= amount
		l.tokens[payer] += amount
		l.allowances[key] = allowance
	})
	return true, nil
}

// Pay reports a non-success without error when the treasury cannot cover
// amount, like a native send that returns false.
func (l *MemoryLedger) Pay(ctx context.Context, payee domain.Principal, amount int64) (bool, error) {
	if amount <= 0 {
		return false, &domain.ServiceError{Message: MsgInvalidAmount}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.native[l.account] < amount {
		return false, nil
	}
	l.moveNative(ctx, l.account, payee, amount)
	return true, nil
}

// Escrow moves value attached to a call from the caller into the treasury
func (l *MemoryLedger) Escrow(ctx context.Context, from domain.Principal, amount int64) error {
	if amount <= 0 {
		return &domain.ServiceError{Message: MsgInvalidAmount}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.native[from] < amount {
		return &domain.ServiceError{Message: MsgInsufficientValue}
	}
	l.moveNative(ctx, from, l.account, amount)
	return nil
}

func (l *MemoryLedger) BalanceOf(ctx context.Context, principal domain.Principal) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens[principal], nil
}

// NativeBalanceOf returns the native balance of principal
func (l *MemoryLedger) NativeBalanceOf(principal domain.Principal) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.native[principal]
}

// moveNative must be called with l.mu held
func (l *MemoryLedger) moveNative(ctx context.Context, from, to domain.Principal, amount int64) {
	l.native[from] -= amount
	l.native[to] += amount

	journal.Record(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.native[to] -= amount
		l.native[from] += amount
	})
}
