package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCheckoutInput = errors.New("invalid checkout input")
	ErrBuyerEmailInvalid    = errors.New("buyer email invalid")
	ErrCardInsufficient     = errors.New("insufficient card stock")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderFetchFailed     = errors.New("order fetch failed")
	ErrOrderCreateFailed    = errors.New("order create failed")
	ErrOrderUpdateFailed    = errors.New("order update failed")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrIntentExpired        = errors.New("payment intent expired")
	ErrIntentStoreFailed    = errors.New("intent store failed")
)

// InsufficientStockError reports how many cards were actually available at
// claim time. It matches ErrCardInsufficient under errors.Is, so callers can
// branch on the sentinel and still read the count. A claim that loses a race
// mid-transaction is reported through this same type; the distinction is
// internal only.
type InsufficientStockError struct {
	CardType  string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient card stock for %s: requested %d, available %d", e.CardType, e.Requested, e.Available)
}

// Is makes the typed error answer to the sentinel.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrCardInsufficient
}
