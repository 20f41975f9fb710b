package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

// LogNotifier emits notifications to the structured log. Mail delivery is an
// external collaborator; anything implementing service.Notifier can replace
// this without touching the engine.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that writes to the given logger.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// InvestmentConfirmed notifies an investor that their investment was accepted.
func (n *LogNotifier) InvestmentConfirmed(_ context.Context, email, invoiceNumber string, amount, expectedReturn decimal.Decimal, tranche domain.Tranche) {
	n.logger.Info().
		Str("email", email).
		Str("invoice", invoiceNumber).
		Str("amount", amount.String()).
		Str("expected_return", expectedReturn.String()).
		Str("tranche", tranche.String()).
		Msg("investment confirmation dispatched")
}

// PoolFunded notifies the exporter that their pool reached its target.
func (n *LogNotifier) PoolFunded(_ context.Context, email, invoiceNumber string, target decimal.Decimal) {
	n.logger.Info().
		Str("email", email).
		Str("invoice", invoiceNumber).
		Str("target", target.String()).
		Msg("pool funded notification dispatched")
}
