package service

import (
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

// TrancheView is the funding progress of one tranche.
type TrancheView struct {
	Target        decimal.Decimal `json:"target"`
	Funded        decimal.Decimal `json:"funded"`
	Remaining     decimal.Decimal `json:"remaining"`
	Rate          decimal.Decimal `json:"interest_rate"`
	PercentFunded decimal.Decimal `json:"percent_funded"`
}

// PoolView is a funding pool enriched with derived progress figures.
type PoolView struct {
	domain.FundingPool

	Remaining     decimal.Decimal `json:"remaining"`
	PercentFunded decimal.Decimal `json:"percent_funded"`
	MinInvestment decimal.Decimal `json:"min_investment"`
	MaxInvestment decimal.Decimal `json:"max_investment"`
	Priority      TrancheView     `json:"priority"`
	Catalyst      TrancheView     `json:"catalyst"`
}

// InvestmentQuote is a side-effect-free return projection.
type InvestmentQuote struct {
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	ExpectedReturn decimal.Decimal `json:"expected_return"`
	TotalReturn    decimal.Decimal `json:"total_return"`
	Tranche        domain.Tranche  `json:"tranche"`
	TenorDays      int64           `json:"tenor_days"`
}

func buildPoolView(pool *domain.FundingPool) *PoolView {
	min, max := domain.TicketLimits(pool.TargetAmount, pool.Remaining())
	return &PoolView{
		FundingPool:   *pool,
		Remaining:     pool.Remaining(),
		PercentFunded: percentOf(pool.FundedAmount, pool.TargetAmount),
		MinInvestment: min,
		MaxInvestment: max,
		Priority:      buildTrancheView(pool, domain.TranchePriority),
		Catalyst:      buildTrancheView(pool, domain.TrancheCatalyst),
	}
}

func buildTrancheView(pool *domain.FundingPool, t domain.Tranche) TrancheView {
	return TrancheView{
		Target:        pool.TrancheTarget(t),
		Funded:        pool.TrancheFunded(t),
		Remaining:     pool.TrancheRemaining(t),
		Rate:          pool.TrancheRate(t),
		PercentFunded: percentOf(pool.TrancheFunded(t), pool.TrancheTarget(t)),
	}
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).DivRound(whole, 2)
}
