package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by registry operations. Callers match them with errors.Is;
// the returned errors wrap them with the offending index or amounts.
var (
	ErrNotFound          = errors.New("product not found")
	ErrUnauthorized      = errors.New("caller is not the product owner")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTransferFailed    = errors.New("transfer failed")
	ErrRefundFailed      = errors.New("refund failed")
)

// ValidationError reports a rejected input field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// ServiceError is a structured failure reported by the Value Transfer Service.
// The registry surfaces it to the caller unchanged.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NotFoundError wraps ErrNotFound with the requested index
func NotFoundError(index uint64) error {
	return fmt.Errorf("%w: index %d", ErrNotFound, index)
}

// IsNotFound reports whether err is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AsServiceError extracts a structured service failure from err
func AsServiceError(err error) (*ServiceError, bool) {
	var svc *ServiceError
	if errors.As(err, &svc) && svc.Message != "" {
		return svc, true
	}
	return nil, false
}
