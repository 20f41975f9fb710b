package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vessel/internal/domain"
)

// InvoiceRepositoryPG implements domain.InvoiceStore using PostgreSQL. The full
// invoice lifecycle (onboarding, grading, tokenization) is owned elsewhere;
// this adapter reads the terms and writes the status transitions the funding
// engine drives.
type InvoiceRepositoryPG struct {
	db DB
}

// NewInvoiceRepository creates a new invoice store.
func NewInvoiceRepository(db DB) *InvoiceRepositoryPG {
	return &InvoiceRepositoryPG{db: db}
}

// GetByID fetches invoice terms by identifier.
func (r *InvoiceRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.QueryRow(ctx, `
SELECT id, exporter_id, invoice_number, amount, priority_ratio,
       priority_interest_rate, catalyst_interest_rate,
       due_date, funding_duration_days, status
FROM invoices
WHERE id = $1;
`, id).Scan(
		&inv.ID,
		&inv.ExporterID,
		&inv.InvoiceNumber,
		&inv.Amount,
		&inv.PriorityRatio,
		&inv.PriorityRate,
		&inv.CatalystRate,
		&inv.DueDate,
		&inv.FundingDurationDays,
		&inv.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateStatus transitions the invoice status.
func (r *InvoiceRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	tag, err := r.db.Exec(ctx, `
UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1;
`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
