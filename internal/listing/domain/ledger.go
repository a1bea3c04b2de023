package domain

import "context"

// ValueTransferService is the account-based token ledger purchases settle
// against. Structured failures are returned as *ServiceError; any other error
// is an unstructured fault. A false result without an error is a non-success.
type ValueTransferService interface {
	// TransferFrom moves amount tokens from payer to payee on the registry's behalf
	TransferFrom(ctx context.Context, payer, payee Principal, amount int64) (bool, error)
	// Pay sends amount of native value from the registry account to payee
	Pay(ctx context.Context, payee Principal, amount int64) (bool, error)
	// BalanceOf returns the token balance of principal
	BalanceOf(ctx context.Context, principal Principal) (int64, error)
}

// ValueEscrow is implemented by ledgers that model value attached to a call.
// The purchase escrows the tendered amount into the registry account before
// settling, so change can be paid back out of it.
type ValueEscrow interface {
	Escrow(ctx context.Context, from Principal, amount int64) error
}
