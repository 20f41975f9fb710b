package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolStatus is the funding pool lifecycle state.
type PoolStatus string

const (
	PoolOpen      PoolStatus = "open"
	PoolFilled    PoolStatus = "filled"
	PoolDisbursed PoolStatus = "disbursed"
	PoolClosed    PoolStatus = "closed"
)

// CanTransition reports whether moving from s to next is a legal lifecycle edge.
// Open and filled pools may be closed directly (deadline expiry or administrative
// cancellation); a disbursed pool closes only through repayment.
func (s PoolStatus) CanTransition(next PoolStatus) bool {
	switch s {
	case PoolOpen:
		return next == PoolFilled || next == PoolClosed
	case PoolFilled:
		return next == PoolDisbursed || next == PoolClosed
	case PoolDisbursed:
		return next == PoolClosed
	}
	return false
}

// FundingPool is the funding vehicle opened against one approved invoice. It is
// owned by the funding service; the funded totals are only ever mutated inside
// the investment transaction that locks the pool row.
type FundingPool struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`

	TargetAmount decimal.Decimal `json:"target_amount"`
	FundedAmount decimal.Decimal `json:"funded_amount"`

	PriorityTarget decimal.Decimal `json:"priority_target"`
	PriorityFunded decimal.Decimal `json:"priority_funded"`
	CatalystTarget decimal.Decimal `json:"catalyst_target"`
	CatalystFunded decimal.Decimal `json:"catalyst_funded"`

	PriorityRate decimal.Decimal `json:"priority_rate"`
	CatalystRate decimal.Decimal `json:"catalyst_rate"`

	InvestorCount int        `json:"investor_count"`
	Status        PoolStatus `json:"status"`
	Deadline      time.Time  `json:"deadline"`
	OpenedAt      time.Time  `json:"opened_at"`
	FilledAt      *time.Time `json:"filled_at,omitempty"`
	DisbursedAt   *time.Time `json:"disbursed_at,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Remaining returns the uncommitted pool capacity.
func (p *FundingPool) Remaining() decimal.Decimal {
	return p.TargetAmount.Sub(p.FundedAmount)
}

// TrancheTarget returns the sub-target for the given tranche.
func (p *FundingPool) TrancheTarget(t Tranche) decimal.Decimal {
	if t == TrancheCatalyst {
		return p.CatalystTarget
	}
	return p.PriorityTarget
}

// TrancheFunded returns the committed amount for the given tranche.
func (p *FundingPool) TrancheFunded(t Tranche) decimal.Decimal {
	if t == TrancheCatalyst {
		return p.CatalystFunded
	}
	return p.PriorityFunded
}

// TrancheRemaining returns the uncommitted capacity of the given tranche.
func (p *FundingPool) TrancheRemaining(t Tranche) decimal.Decimal {
	return p.TrancheTarget(t).Sub(p.TrancheFunded(t))
}

// TrancheRate returns the annual interest rate (percent) of the given tranche.
func (p *FundingPool) TrancheRate(t Tranche) decimal.Decimal {
	if t == TrancheCatalyst {
		return p.CatalystRate
	}
	return p.PriorityRate
}
