package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vessel/internal/domain"
)

// OutcomeChecker resolves the final state of a previously submitted transfer.
type OutcomeChecker interface {
	Outcome(ctx context.Context, reference string) (domain.SettlementOutcome, error)
}

// Reconciler resolves settlement attempts whose confirmation timed out. It
// re-reads the ledger for each recorded reference and never resubmits: the
// original transfer either landed or it did not.
type Reconciler struct {
	settlements domain.SettlementLog
	checker     OutcomeChecker
	interval    time.Duration
	logger      zerolog.Logger
}

func NewReconciler(settlements domain.SettlementLog, checker OutcomeChecker, interval time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		settlements: settlements,
		checker:     checker,
		interval:    interval,
		logger:      logger,
	}
}

// Run sweeps until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Sweep(ctx); err != nil {
			r.logger.Error().Err(err).Msg("reconcile sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep re-checks every indeterminate attempt once. Attempts that are still
// unresolved on the ledger stay indeterminate and are picked up next sweep.
func (r *Reconciler) Sweep(ctx context.Context) error {
	attempts, err := r.settlements.ListIndeterminate(ctx)
	if err != nil {
		return err
	}

	for i := range attempts {
		attempt := &attempts[i]
		if attempt.Reference == nil || *attempt.Reference == "" {
			// Submission itself failed before a reference was assigned.
			if err := r.settlements.UpdateOutcome(ctx, attempt.ID, domain.SettlementFailed); err != nil {
				r.logger.Error().Err(err).Str("attempt_id", attempt.ID).Msg("failed to mark attempt failed")
			}
			continue
		}

		outcome, err := r.checker.Outcome(ctx, *attempt.Reference)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("attempt_id", attempt.ID).
				Str("reference", *attempt.Reference).
				Msg("outcome check failed")
			continue
		}
		if outcome == domain.SettlementIndeterminate || outcome == domain.SettlementSubmitted {
			continue
		}

		if err := r.settlements.UpdateOutcome(ctx, attempt.ID, outcome); err != nil {
			r.logger.Error().Err(err).Str("attempt_id", attempt.ID).Msg("failed to update outcome")
			continue
		}

		r.logger.Info().
			Str("attempt_id", attempt.ID).
			Str("reference", *attempt.Reference).
			Str("outcome", string(outcome)).
			Msg("settlement attempt reconciled")
	}
	return nil
}
