package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementPurpose classifies outbound transfers from the platform custody wallet.
type SettlementPurpose string

const (
	PurposeInvestmentForward SettlementPurpose = "investment_forward"
	PurposeDisbursement      SettlementPurpose = "disbursement"
	PurposeRepaymentForward  SettlementPurpose = "repayment_forward"
)

// SettlementOutcome is the recorded result of an outbound transfer attempt.
// Indeterminate means the transfer was submitted but its receipt never arrived;
// such attempts are re-checked by the reconciler, never retried.
type SettlementOutcome string

const (
	SettlementSubmitted     SettlementOutcome = "submitted"
	SettlementConfirmed     SettlementOutcome = "confirmed"
	SettlementFailed        SettlementOutcome = "failed"
	SettlementIndeterminate SettlementOutcome = "indeterminate"
)

// SettlementAttempt is the audit record of one outbound transfer.
type SettlementAttempt struct {
	ID        string
	PoolID    *string
	Purpose   SettlementPurpose
	ToAddress string
	Amount    decimal.Decimal
	Reference *string
	Status    SettlementOutcome
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VerifiedTransfer is the transient proof produced by the transfer verifier: a
// confirmed movement of a specific amount to a specific address. It authorizes
// exactly one ledger mutation and is then discarded; only the reference is kept.
type VerifiedTransfer struct {
	Reference   string
	From        string
	To          string
	Amount      decimal.Decimal
	BlockNumber uint64
	Confirmed   bool
	ExplorerURL string
}
