package repo

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// valuesRow assigns vals positionally into the scan destinations.
func valuesRow(vals ...any) simpleRow {
	return simpleRow{scan: func(dest ...any) error {
		if len(dest) != len(vals) {
			return fmt.Errorf("scan arity mismatch: %d dest, %d values", len(dest), len(vals))
		}
		for i := range dest {
			dv := reflect.ValueOf(dest[i]).Elem()
			if vals[i] == nil {
				dv.Set(reflect.Zero(dv.Type()))
				continue
			}
			dv.Set(reflect.ValueOf(vals[i]))
		}
		return nil
	}}
}

func poolRow(p domain.FundingPool) simpleRow {
	return valuesRow(
		p.ID, p.InvoiceID,
		p.TargetAmount, p.FundedAmount,
		p.PriorityTarget, p.PriorityFunded, p.CatalystTarget, p.CatalystFunded,
		p.PriorityRate, p.CatalystRate,
		p.InvestorCount, p.Status, p.Deadline, p.OpenedAt,
		p.FilledAt, p.DisbursedAt, p.ClosedAt,
		p.CreatedAt, p.UpdatedAt,
	)
}

func investmentRow(inv domain.Investment) simpleRow {
	return valuesRow(
		inv.ID, inv.PoolID, inv.InvestorID,
		inv.Amount, inv.ExpectedReturn, inv.ActualReturn,
		inv.Status, inv.Tranche.String(), inv.TxRef, inv.ReturnTxRef,
		inv.InvestedAt, inv.RepaidAt, inv.CreatedAt, inv.UpdatedAt,
	)
}

type execResult struct {
	tag pgconn.CommandTag
	err error
}

// fakeDB serves queued responses in call order and fails the test on any call
// it was not scripted for.
type fakeDB struct {
	t *testing.T

	rows  []pgx.Row
	execs []execResult

	beginErr   error
	committed  bool
	rolledBack bool
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	f.t.Helper()
	if len(f.rows) == 0 {
		f.t.Fatalf("unexpected QueryRow call")
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row
}

func (f *fakeDB) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	f.t.Helper()
	if len(f.execs) == 0 {
		f.t.Fatalf("unexpected Exec call")
	}
	res := f.execs[0]
	f.execs = f.execs[1:]
	return res.tag, res.err
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	f.t.Fatalf("unexpected Query call")
	return nil, nil
}

func (f *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeTx{db: f}, nil
}

// fakeTx delegates statements to the owning fakeDB and records the outcome.
type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t.db.Begin(ctx) }

func (t *fakeTx) Commit(_ context.Context) error {
	t.db.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.db.committed {
		t.db.rolledBack = true
	}
	return nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, fmt.Errorf("copy from not supported in fake tx")
}

func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, fmt.Errorf("prepare not supported in fake tx")
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

var repoTestNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openPool(target, funded, pTarget, pFunded, cTarget, cFunded string) domain.FundingPool {
	return domain.FundingPool{
		ID:             "pool-1",
		InvoiceID:      "inv-1",
		TargetAmount:   mustDecimal(target),
		FundedAmount:   mustDecimal(funded),
		PriorityTarget: mustDecimal(pTarget),
		PriorityFunded: mustDecimal(pFunded),
		CatalystTarget: mustDecimal(cTarget),
		CatalystFunded: mustDecimal(cFunded),
		PriorityRate:   mustDecimal("9.5"),
		CatalystRate:   mustDecimal("15"),
		Status:         domain.PoolOpen,
		Deadline:       repoTestNow.AddDate(0, 0, 14),
		OpenedAt:       repoTestNow,
		CreatedAt:      repoTestNow,
		UpdatedAt:      repoTestNow,
	}
}
