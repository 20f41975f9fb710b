package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"vessel/internal/domain"
)

// PoolRepositoryPG implements domain.PoolRepository using PostgreSQL.
type PoolRepositoryPG struct {
	db DB
}

// NewPoolRepository creates a new funding pool repository.
func NewPoolRepository(db DB) *PoolRepositoryPG {
	return &PoolRepositoryPG{db: db}
}

const poolColumns = `id, invoice_id, target_amount, funded_amount,
priority_target, priority_funded, catalyst_target, catalyst_funded,
priority_interest_rate, catalyst_interest_rate,
investor_count, status, deadline, opened_at, filled_at, disbursed_at, closed_at,
created_at, updated_at`

// Create inserts a new funding pool record.
func (r *PoolRepositoryPG) Create(ctx context.Context, p *domain.FundingPool) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO funding_pools (
    id, invoice_id, target_amount, priority_target, catalyst_target,
    priority_interest_rate, catalyst_interest_rate, deadline, status, opened_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`,
		p.ID,
		p.InvoiceID,
		p.TargetAmount,
		p.PriorityTarget,
		p.CatalystTarget,
		p.PriorityRate,
		p.CatalystRate,
		p.Deadline,
		p.Status,
		p.OpenedAt,
	)
	if isUniqueViolation(err, "funding_pools_invoice_id_key") {
		return fmt.Errorf("pool for invoice %s: %w", p.InvoiceID, domain.ErrConflict)
	}
	return err
}

// GetByID fetches a pool by its identifier.
func (r *PoolRepositoryPG) GetByID(ctx context.Context, id string) (*domain.FundingPool, error) {
	row := r.db.QueryRow(ctx, `SELECT `+poolColumns+` FROM funding_pools WHERE id = $1;`, id)
	return scanPool(row)
}

// GetByInvoice fetches the pool opened against an invoice.
func (r *PoolRepositoryPG) GetByInvoice(ctx context.Context, invoiceID string) (*domain.FundingPool, error) {
	row := r.db.QueryRow(ctx, `SELECT `+poolColumns+` FROM funding_pools WHERE invoice_id = $1;`, invoiceID)
	return scanPool(row)
}

// List returns pools ordered by creation time, newest first, with the total count.
func (r *PoolRepositoryPG) List(ctx context.Context, page, perPage int) ([]domain.FundingPool, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	offset := (page - 1) * perPage

	rows, err := r.db.Query(ctx, `
SELECT `+poolColumns+`
FROM funding_pools
ORDER BY created_at DESC
LIMIT $1 OFFSET $2;
`, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.FundingPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM funding_pools;`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByExporter returns every pool opened against the exporter's invoices,
// newest first.
func (r *PoolRepositoryPG) ListByExporter(ctx context.Context, exporterID string) ([]domain.FundingPool, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+prefixedPoolColumns("p")+`
FROM funding_pools p
JOIN invoices i ON i.id = p.invoice_id
WHERE i.exporter_id = $1
ORDER BY p.created_at DESC;
`, exporterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.FundingPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// UpdateStatus applies a lifecycle transition with a compare-and-set on the
// expected prior state, timestamping the edge it crosses.
func (r *PoolRepositoryPG) UpdateStatus(ctx context.Context, id string, from, to domain.PoolStatus) error {
	if !from.CanTransition(to) {
		return &domain.TransitionError{PoolID: id, Expected: from, Actual: to}
	}

	var stampCol string
	switch to {
	case domain.PoolFilled:
		stampCol = "filled_at"
	case domain.PoolDisbursed:
		stampCol = "disbursed_at"
	case domain.PoolClosed:
		stampCol = "closed_at"
	default:
		return &domain.TransitionError{PoolID: id, Expected: from, Actual: to}
	}

	tag, err := r.db.Exec(ctx, `
UPDATE funding_pools
SET status = $3, `+stampCol+` = NOW(), updated_at = NOW()
WHERE id = $1 AND status = $2;
`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		actual, err := r.currentStatus(ctx, id)
		if err != nil {
			return err
		}
		return &domain.TransitionError{PoolID: id, Expected: from, Actual: actual}
	}
	return nil
}

func (r *PoolRepositoryPG) currentStatus(ctx context.Context, id string) (domain.PoolStatus, error) {
	var status domain.PoolStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM funding_pools WHERE id = $1;`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("pool %s: %w", id, domain.ErrNotFound)
	}
	return status, err
}

// prefixedPoolColumns qualifies the pool column list with a table alias for
// joined queries.
func prefixedPoolColumns(alias string) string {
	cols := strings.Split(poolColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func scanPool(row pgx.Row) (*domain.FundingPool, error) {
	var p domain.FundingPool
	err := row.Scan(
		&p.ID,
		&p.InvoiceID,
		&p.TargetAmount,
		&p.FundedAmount,
		&p.PriorityTarget,
		&p.PriorityFunded,
		&p.CatalystTarget,
		&p.CatalystFunded,
		&p.PriorityRate,
		&p.CatalystRate,
		&p.InvestorCount,
		&p.Status,
		&p.Deadline,
		&p.OpenedAt,
		&p.FilledAt,
		&p.DisbursedAt,
		&p.ClosedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pool: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
