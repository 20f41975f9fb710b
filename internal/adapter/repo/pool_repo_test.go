package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"vessel/internal/domain"
)

func TestGetByIDScansPool(t *testing.T) {
	want := openPool("1000", "300", "800", "240", "200", "60")
	db := &fakeDB{t: t, rows: []pgx.Row{poolRow(want)}}

	got, err := NewPoolRepository(db).GetByID(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != want.ID || got.Status != domain.PoolOpen {
		t.Errorf("got pool %s status %s", got.ID, got.Status)
	}
	if !got.FundedAmount.Equal(want.FundedAmount) {
		t.Errorf("funded = %s, want %s", got.FundedAmount, want.FundedAmount)
	}
	if !got.Remaining().Equal(mustDecimal("700")) {
		t.Errorf("remaining = %s, want 700", got.Remaining())
	}
}

func TestGetByIDMissingPool(t *testing.T) {
	db := &fakeDB{t: t, rows: []pgx.Row{simpleRow{}}}

	_, err := NewPoolRepository(db).GetByID(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateMapsDuplicateInvoice(t *testing.T) {
	db := &fakeDB{t: t, execs: []execResult{{
		err: &pgconn.PgError{Code: "23505", ConstraintName: "funding_pools_invoice_id_key"},
	}}}

	p := openPool("1000", "0", "800", "0", "200", "0")
	err := NewPoolRepository(db).Create(context.Background(), &p)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	// No scripted responses: an illegal edge must be refused before any SQL runs.
	db := &fakeDB{t: t}

	err := NewPoolRepository(db).UpdateStatus(context.Background(), "pool-1", domain.PoolClosed, domain.PoolOpen)
	var transErr *domain.TransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
}

func TestUpdateStatusAppliesTransition(t *testing.T) {
	db := &fakeDB{t: t, execs: []execResult{{tag: pgconn.NewCommandTag("UPDATE 1")}}}

	if err := NewPoolRepository(db).UpdateStatus(context.Background(), "pool-1", domain.PoolFilled, domain.PoolDisbursed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
}

func TestUpdateStatusReportsStaleState(t *testing.T) {
	// The guarded UPDATE matches no row, so the repo reads back the actual
	// status to name the losing side of the race.
	db := &fakeDB{
		t:     t,
		execs: []execResult{{tag: pgconn.NewCommandTag("UPDATE 0")}},
		rows:  []pgx.Row{valuesRow(domain.PoolDisbursed)},
	}

	err := NewPoolRepository(db).UpdateStatus(context.Background(), "pool-1", domain.PoolFilled, domain.PoolDisbursed)
	var transErr *domain.TransitionError
	if !errors.As(err, &transErr) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
	if transErr.Actual != domain.PoolDisbursed {
		t.Errorf("actual = %s, want disbursed", transErr.Actual)
	}
}

func TestUpdateStatusMissingPool(t *testing.T) {
	db := &fakeDB{
		t:     t,
		execs: []execResult{{tag: pgconn.NewCommandTag("UPDATE 0")}},
		rows:  []pgx.Row{simpleRow{}},
	}

	err := NewPoolRepository(db).UpdateStatus(context.Background(), "gone", domain.PoolOpen, domain.PoolClosed)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
