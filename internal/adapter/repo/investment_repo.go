package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

// InvestmentRepositoryPG implements domain.InvestmentRepository using PostgreSQL.
type InvestmentRepositoryPG struct {
	db DB
}

// NewInvestmentRepository creates a new investment repository.
func NewInvestmentRepository(db DB) *InvestmentRepositoryPG {
	return &InvestmentRepositoryPG{db: db}
}

const investmentColumns = `id, pool_id, investor_id, amount, expected_return, actual_return,
status, tranche, tx_ref, return_tx_ref, invested_at, repaid_at, created_at, updated_at`

// Record inserts the investment and applies the new pool funded totals in a
// single transaction with the pool row locked. Capacity and uniqueness are
// re-checked against the locked row, so concurrent invest calls cannot jointly
// overshoot the target. When the investment fills the pool, the pool moves to
// filled inside the same transaction.
func (r *InvestmentRepositoryPG) Record(ctx context.Context, inv *domain.Investment) (*domain.FundingPool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+poolColumns+` FROM funding_pools WHERE id = $1 FOR UPDATE;`, inv.PoolID)
	pool, err := scanPool(row)
	if err != nil {
		return nil, err
	}

	if pool.Status != domain.PoolOpen {
		return nil, domain.ErrPoolNotOpen
	}
	if inv.Amount.GreaterThan(pool.Remaining()) {
		min, max := domain.TicketLimits(pool.TargetAmount, pool.Remaining())
		return nil, &domain.AmountRangeError{Amount: inv.Amount, Min: min, Max: max}
	}
	if available := pool.TrancheRemaining(inv.Tranche); inv.Amount.GreaterThan(available) {
		return nil, &domain.TrancheCapacityError{Tranche: inv.Tranche, Available: available, Amount: inv.Amount}
	}

	_, err = tx.Exec(ctx, `
INSERT INTO investments (id, pool_id, investor_id, amount, expected_return, status, tranche, tx_ref, invested_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`,
		inv.ID,
		inv.PoolID,
		inv.InvestorID,
		inv.Amount,
		inv.ExpectedReturn,
		inv.Status,
		inv.Tranche.String(),
		inv.TxRef,
		inv.InvestedAt,
	)
	if isUniqueViolation(err, "investments_pool_investor_active_key") {
		return nil, fmt.Errorf("investor %s in pool %s: %w", inv.InvestorID, inv.PoolID, domain.ErrConflict)
	}
	if isUniqueViolation(err, "investments_tx_ref_key") {
		return nil, fmt.Errorf("reference %s: %w", inv.TxRef, domain.ErrDuplicateSettlement)
	}
	if err != nil {
		return nil, err
	}

	newFunded := pool.FundedAmount.Add(inv.Amount)
	priorityFunded := pool.PriorityFunded
	catalystFunded := pool.CatalystFunded
	if inv.Tranche == domain.TrancheCatalyst {
		catalystFunded = catalystFunded.Add(inv.Amount)
	} else {
		priorityFunded = priorityFunded.Add(inv.Amount)
	}

	status := pool.Status
	filled := newFunded.GreaterThanOrEqual(pool.TargetAmount)
	if filled {
		status = domain.PoolFilled
	}

	row = tx.QueryRow(ctx, `
UPDATE funding_pools
SET funded_amount = $2,
    priority_funded = $3,
    catalyst_funded = $4,
    investor_count = investor_count + 1,
    status = $5,
    filled_at = CASE WHEN $6 THEN NOW() ELSE filled_at END,
    updated_at = NOW()
WHERE id = $1
RETURNING `+poolColumns+`;
`, inv.PoolID, newFunded, priorityFunded, catalystFunded, status, filled)
	updated, err := scanPool(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// GetActiveByPoolAndInvestor returns the investor's active investment in a pool, if any.
func (r *InvestmentRepositoryPG) GetActiveByPoolAndInvestor(ctx context.Context, poolID, investorID string) (*domain.Investment, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+investmentColumns+`
FROM investments
WHERE pool_id = $1 AND investor_id = $2 AND status = 'active';
`, poolID, investorID)
	return scanInvestment(row)
}

// ListActiveByPool returns all active investments in a pool, oldest first so
// the repayment waterfall walks them in investment order.
func (r *InvestmentRepositoryPG) ListActiveByPool(ctx context.Context, poolID string) ([]domain.Investment, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+investmentColumns+`
FROM investments
WHERE pool_id = $1 AND status = 'active'
ORDER BY invested_at ASC;
`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *inv)
	}
	return items, rows.Err()
}

// MarkRepaid transitions an active investment to repaid with its realized return.
func (r *InvestmentRepositoryPG) MarkRepaid(ctx context.Context, id string, actualReturn decimal.Decimal, returnRef string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE investments
SET status = 'repaid', actual_return = $2, return_tx_ref = $3, repaid_at = NOW(), updated_at = NOW()
WHERE id = $1 AND status = 'active';
`, id, actualReturn, returnRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active investment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// TxRefExists reports whether a transfer reference was already credited anywhere.
func (r *InvestmentRepositoryPG) TxRefExists(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM investments WHERE tx_ref = $1);`, ref).Scan(&exists)
	return exists, err
}

// PortfolioStats aggregates an investor's positions.
func (r *InvestmentRepositoryPG) PortfolioStats(ctx context.Context, investorID string) (*domain.PortfolioStats, error) {
	var s domain.PortfolioStats
	err := r.db.QueryRow(ctx, `
SELECT
    COALESCE(SUM(CASE WHEN status = 'active' THEN amount ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'active' THEN expected_return - amount ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN status = 'repaid' THEN actual_return - amount ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN tranche = 'priority' AND status = 'active' THEN amount ELSE 0 END), 0),
    COALESCE(SUM(CASE WHEN tranche = 'catalyst' AND status = 'active' THEN amount ELSE 0 END), 0),
    COUNT(*) FILTER (WHERE status = 'active'),
    COUNT(*) FILTER (WHERE status = 'repaid')
FROM investments
WHERE investor_id = $1;
`, investorID).Scan(
		&s.TotalFunding,
		&s.TotalExpectedGain,
		&s.TotalRealizedGain,
		&s.PriorityAllocation,
		&s.CatalystAllocation,
		&s.ActiveInvestments,
		&s.CompletedDeals,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanInvestment(row pgx.Row) (*domain.Investment, error) {
	var (
		inv     domain.Investment
		tranche string
	)
	err := row.Scan(
		&inv.ID,
		&inv.PoolID,
		&inv.InvestorID,
		&inv.Amount,
		&inv.ExpectedReturn,
		&inv.ActualReturn,
		&inv.Status,
		&tranche,
		&inv.TxRef,
		&inv.ReturnTxRef,
		&inv.InvestedAt,
		&inv.RepaidAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("investment: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	parsed, err := domain.ParseTranche(tranche)
	if err != nil {
		return nil, err
	}
	inv.Tranche = parsed
	return &inv, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
