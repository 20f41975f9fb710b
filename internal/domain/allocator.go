package domain

import "github.com/shopspring/decimal"

// AmountScale is the fixed-point scale of the settlement token (2 decimals, like
// the fiat currency it tracks). All derived monetary values are rounded to it.
const AmountScale = 2

var (
	hundred        = decimal.NewFromInt(100)
	daysPerYear    = decimal.NewFromInt(365)
	minTicketRatio = decimal.RequireFromString("0.10")
	maxTicketRatio = decimal.RequireFromString("0.90")
)

// DeriveTargets splits an invoice amount into priority and catalyst sub-targets.
// The ratio is a percentage; catalyst takes the exact remainder so the two
// targets always sum to the invoice amount.
func DeriveTargets(invoiceAmount, priorityRatioPercent decimal.Decimal) (priority, catalyst decimal.Decimal, err error) {
	if priorityRatioPercent.LessThanOrEqual(decimal.Zero) || priorityRatioPercent.GreaterThanOrEqual(hundred) {
		return decimal.Zero, decimal.Zero, &InvalidConfigurationError{
			Field:  "priority_ratio",
			Reason: "priority ratio must be between 0 and 100 percent",
		}
	}
	if invoiceAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, &InvalidConfigurationError{
			Field:  "amount",
			Reason: "invoice amount must be positive",
		}
	}
	priority = invoiceAmount.Mul(priorityRatioPercent).Div(hundred).Round(AmountScale)
	catalyst = invoiceAmount.Sub(priority)
	return priority, catalyst, nil
}

// ExpectedReturn computes principal plus simple daily-prorated interest:
// principal * rate/100 * days/365, rounded to the token scale.
func ExpectedReturn(principal, annualRatePercent decimal.Decimal, daysToMaturity int64) decimal.Decimal {
	interest := principal.
		Mul(annualRatePercent).Div(hundred).
		Mul(decimal.NewFromInt(daysToMaturity)).Div(daysPerYear).
		Round(AmountScale)
	return principal.Add(interest)
}

// TicketLimits returns the allowed investment range for a pool. The nominal
// range is 10%..90% of the target; once the remaining capacity drops below the
// floor, the range collapses to [0, remaining] so the pool can be closed out.
func TicketLimits(poolTarget, poolRemaining decimal.Decimal) (min, max decimal.Decimal) {
	min = poolTarget.Mul(minTicketRatio).Round(AmountScale)
	max = poolTarget.Mul(maxTicketRatio).Round(AmountScale)
	if poolRemaining.LessThan(min) {
		return decimal.Zero, poolRemaining
	}
	return min, max
}
