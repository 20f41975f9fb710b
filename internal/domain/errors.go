package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors cover the recoverable business outcomes callers match on.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrForbidden           = errors.New("forbidden")
	ErrPoolNotOpen         = errors.New("pool is not open for investment")
	ErrCatalystLocked      = errors.New("catalyst tranche not unlocked")
	ErrDuplicateSettlement = errors.New("transfer reference already credited")
	ErrTransferNotFound    = errors.New("transfer not found or not confirmed")
	ErrTransferReverted    = errors.New("transfer reverted on the ledger")
)

// ValidationError reports malformed or missing input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// InvalidConfigurationError reports invoice or pool terms that cannot produce a
// consistent tranche split.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// AmountRangeError reports an investment or repayment amount outside the
// allowed range. Min and Max carry the current bounds so callers can render a
// specific message instead of parsing one.
type AmountRangeError struct {
	Amount decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

func (e *AmountRangeError) Error() string {
	if e.Amount.LessThan(e.Min) {
		return fmt.Sprintf("minimum investment is %s, got %s", e.Min, e.Amount)
	}
	return fmt.Sprintf("maximum investment is %s, got %s", e.Max, e.Amount)
}

// RepaymentShortfallError reports a verified repayment that does not cover the
// total owed to the pool's active investments. The repayment is refused whole;
// partial distribution is not supported.
type RepaymentShortfallError struct {
	Verified decimal.Decimal
	Owed     decimal.Decimal
}

func (e *RepaymentShortfallError) Error() string {
	return fmt.Sprintf("repayment of %s does not cover the %s owed to investors", e.Verified, e.Owed)
}

// TrancheCapacityError reports an amount exceeding the selected tranche's
// remaining capacity.
type TrancheCapacityError struct {
	Tranche   Tranche
	Available decimal.Decimal
	Amount    decimal.Decimal
}

func (e *TrancheCapacityError) Error() string {
	return fmt.Sprintf("only %s available in %s tranche, got %s", e.Available, e.Tranche, e.Amount)
}

// AmountMismatchError reports a verified transfer whose amount is outside the
// accepted tolerance of the claimed amount.
type AmountMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("transfer amount mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// TransitionError reports an illegal or out-of-order pool lifecycle transition.
// Transitions are monotonic; a mismatch means the caller observed a stale state.
type TransitionError struct {
	PoolID   string
	Expected PoolStatus
	Actual   PoolStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("pool %s is %s, expected %s", e.PoolID, e.Actual, e.Expected)
}

// IndeterminateError marks an outbound settlement whose outcome is unknown: the
// transfer was submitted but no receipt arrived before the timeout. The funds
// may or may not have moved; the reference must be reconciled against the
// ledger, never blindly retried.
type IndeterminateError struct {
	Reference string
}

func (e *IndeterminateError) Error() string {
	return fmt.Sprintf("settlement outcome indeterminate for reference %s", e.Reference)
}
