package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentStatus is the investment lifecycle state.
type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentRepaid    InvestmentStatus = "repaid"
	InvestmentDefaulted InvestmentStatus = "defaulted"
)

// Investment is one investor's stake in one pool. TxRef is the verified inbound
// transfer that authorized the credit; it is unique platform-wide.
type Investment struct {
	ID             string           `json:"id"`
	PoolID         string           `json:"pool_id"`
	InvestorID     string           `json:"investor_id"`
	Amount         decimal.Decimal  `json:"amount"`
	ExpectedReturn decimal.Decimal  `json:"expected_return"`
	ActualReturn   *decimal.Decimal `json:"actual_return,omitempty"`
	Status         InvestmentStatus `json:"status"`
	Tranche        Tranche          `json:"tranche"`
	TxRef          string           `json:"tx_ref"`
	ReturnTxRef    *string          `json:"return_tx_ref,omitempty"`
	InvestedAt     time.Time        `json:"invested_at"`
	RepaidAt       *time.Time       `json:"repaid_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CatalystConsents is the consent bundle required before taking first-loss risk.
type CatalystConsents struct {
	FirstLoss  bool `json:"first_loss_consent"`
	RiskOfLoss bool `json:"risk_loss_consent"`
	NotBank    bool `json:"not_bank_consent"`
}

// AllAccepted reports whether every consent has been given.
func (c CatalystConsents) AllAccepted() bool {
	return c.FirstLoss && c.RiskOfLoss && c.NotBank
}

// InvestRequest is the engine-level invest input. The transfer reference points
// at the investor's inbound token transfer to the platform custody wallet.
type InvestRequest struct {
	PoolID           string
	Amount           decimal.Decimal
	Tranche          Tranche
	TxRef            string
	TermsAccepted    bool
	CatalystConsents *CatalystConsents
}

// RepayRequest is the exporter's aggregated repayment input.
type RepayRequest struct {
	Amount decimal.Decimal
	TxRef  string
}

// PortfolioStats aggregates an investor's positions across pools.
type PortfolioStats struct {
	TotalFunding       decimal.Decimal `json:"total_funding"`
	TotalExpectedGain  decimal.Decimal `json:"total_expected_gain"`
	TotalRealizedGain  decimal.Decimal `json:"total_realized_gain"`
	PriorityAllocation decimal.Decimal `json:"priority_allocation"`
	CatalystAllocation decimal.Decimal `json:"catalyst_allocation"`
	ActiveInvestments  int             `json:"active_investments"`
	CompletedDeals     int             `json:"completed_deals"`
}
