package repo

import (
	"context"
	"fmt"

	"vessel/internal/domain"
)

// SettlementLogPG implements domain.SettlementLog using PostgreSQL. Every
// outbound transfer attempt lands here, including indeterminate ones awaiting
// reconciliation against the token ledger.
type SettlementLogPG struct {
	db DB
}

// NewSettlementLog creates a new settlement audit log.
func NewSettlementLog(db DB) *SettlementLogPG {
	return &SettlementLogPG{db: db}
}

// Record inserts a settlement attempt.
func (r *SettlementLogPG) Record(ctx context.Context, a *domain.SettlementAttempt) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO settlement_attempts (id, pool_id, purpose, to_address, amount, reference, status)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`,
		a.ID,
		a.PoolID,
		a.Purpose,
		a.ToAddress,
		a.Amount,
		a.Reference,
		a.Status,
	)
	return err
}

// UpdateOutcome resolves a previously recorded attempt.
func (r *SettlementLogPG) UpdateOutcome(ctx context.Context, id string, status domain.SettlementOutcome) error {
	tag, err := r.db.Exec(ctx, `
UPDATE settlement_attempts SET status = $2, updated_at = NOW() WHERE id = $1;
`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settlement attempt %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListIndeterminate returns attempts whose on-ledger outcome is still unknown.
func (r *SettlementLogPG) ListIndeterminate(ctx context.Context) ([]domain.SettlementAttempt, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, pool_id, purpose, to_address, amount, reference, status, created_at, updated_at
FROM settlement_attempts
WHERE status = 'indeterminate'
ORDER BY created_at ASC;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.SettlementAttempt
	for rows.Next() {
		var a domain.SettlementAttempt
		if err := rows.Scan(
			&a.ID,
			&a.PoolID,
			&a.Purpose,
			&a.ToAddress,
			&a.Amount,
			&a.Reference,
			&a.Status,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
