package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

// transferSelector is the 4-byte selector of transfer(address,uint256).
const transferSelector = "a9059cbb"

// Executor issues outbound token transfers from the platform custody wallet and
// waits for the ledger to confirm them. It is not idempotent: repeating a call
// after an indeterminate outcome can double-spend, so callers must reconcile
// instead of retrying.
type Executor struct {
	client         *Client
	tokenContract  string
	custodyWallet  string
	tokenDecimals  int32
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         zerolog.Logger
}

// ExecutorOptions configures the settlement executor.
type ExecutorOptions struct {
	TokenContract  string
	CustodyWallet  string
	TokenDecimals  int
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Logger         zerolog.Logger
}

// NewExecutor constructs an executor bound to the platform custody wallet.
func NewExecutor(client *Client, opts ExecutorOptions) *Executor {
	confirmTimeout := opts.ConfirmTimeout
	if confirmTimeout <= 0 {
		confirmTimeout = 90 * time.Second
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	return &Executor{
		client:         client,
		tokenContract:  opts.TokenContract,
		custodyWallet:  opts.CustodyWallet,
		tokenDecimals:  int32(opts.TokenDecimals),
		confirmTimeout: confirmTimeout,
		pollInterval:   pollInterval,
		logger:         opts.Logger,
	}
}

// Transfer moves amount of the token from custody to toAddress and blocks until
// the ledger confirms it. A submission failure returns an ordinary error and no
// funds moved; a timeout after submission returns IndeterminateError carrying
// the reference, because the transfer may still land.
func (e *Executor) Transfer(ctx context.Context, toAddress string, amount decimal.Decimal, purpose domain.SettlementPurpose) (string, error) {
	data, err := transferCalldata(toAddress, amount, e.tokenDecimals)
	if err != nil {
		return "", err
	}

	e.logger.Info().
		Str("to", toAddress).
		Str("amount", amount.String()).
		Str("purpose", string(purpose)).
		Msg("submitting settlement transfer")

	ref, err := e.client.SendTransaction(ctx, e.custodyWallet, e.tokenContract, data)
	if err != nil {
		return "", fmt.Errorf("submit transfer: %w", err)
	}

	if err := e.awaitConfirmation(ctx, ref); err != nil {
		return ref, err
	}

	e.logger.Info().
		Str("reference", ref).
		Str("to", toAddress).
		Str("amount", amount.String()).
		Msg("settlement transfer confirmed")

	return ref, nil
}

func (e *Executor) awaitConfirmation(ctx context.Context, ref string) error {
	deadline := time.NewTimer(e.confirmTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(e.pollInterval)
	defer tick.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, ref)
		if err == nil && receipt != nil {
			if receipt.Succeeded() {
				return nil
			}
			return fmt.Errorf("reference %s: %w", ref, domain.ErrTransferReverted)
		}
		if err != nil {
			e.logger.Warn().Err(err).Str("reference", ref).Msg("receipt poll failed")
		}

		select {
		case <-ctx.Done():
			return &domain.IndeterminateError{Reference: ref}
		case <-deadline.C:
			return &domain.IndeterminateError{Reference: ref}
		case <-tick.C:
		}
	}
}

// Outcome re-checks a previously submitted reference. It is used by the
// reconciler to resolve indeterminate settlements.
func (e *Executor) Outcome(ctx context.Context, ref string) (domain.SettlementOutcome, error) {
	receipt, err := e.client.TransactionReceipt(ctx, ref)
	if err != nil {
		return domain.SettlementIndeterminate, err
	}
	if receipt == nil {
		return domain.SettlementIndeterminate, nil
	}
	if receipt.Succeeded() {
		return domain.SettlementConfirmed, nil
	}
	return domain.SettlementFailed, nil
}

// transferCalldata ABI-encodes transfer(to, amount) for the token contract.
func transferCalldata(toAddress string, amount decimal.Decimal, tokenDecimals int32) (string, error) {
	addr := strings.TrimPrefix(strings.ToLower(toAddress), "0x")
	if len(addr) != 40 {
		return "", &domain.ValidationError{Field: "to_address", Reason: "invalid settlement address"}
	}

	units := amount.Shift(tokenDecimals)
	if !units.IsInteger() || units.Sign() <= 0 {
		return "", &domain.ValidationError{Field: "amount", Reason: "amount has more precision than the token supports"}
	}

	hexUnits := new(big.Int).Set(units.BigInt()).Text(16)
	return "0x" + transferSelector +
		strings.Repeat("0", 64-len(addr)) + addr +
		strings.Repeat("0", 64-len(hexUnits)) + hexUnits, nil
}
