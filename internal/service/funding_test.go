package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakePools struct {
	pools           map[string]*domain.FundingPool
	invoiceExporter map[string]string
}

func (f *fakePools) Create(_ context.Context, pool *domain.FundingPool) error {
	if _, ok := f.pools[pool.ID]; ok {
		return domain.ErrConflict
	}
	cp := *pool
	f.pools[pool.ID] = &cp
	return nil
}

func (f *fakePools) GetByID(_ context.Context, id string) (*domain.FundingPool, error) {
	p, ok := f.pools[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePools) GetByInvoice(_ context.Context, invoiceID string) (*domain.FundingPool, error) {
	for _, p := range f.pools {
		if p.InvoiceID == invoiceID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePools) ListByExporter(_ context.Context, exporterID string) ([]domain.FundingPool, error) {
	var out []domain.FundingPool
	for _, p := range f.pools {
		if f.invoiceExporter[p.InvoiceID] == exporterID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePools) List(_ context.Context, _, _ int) ([]domain.FundingPool, int64, error) {
	out := make([]domain.FundingPool, 0, len(f.pools))
	for _, p := range f.pools {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePools) UpdateStatus(_ context.Context, id string, from, to domain.PoolStatus) error {
	p, ok := f.pools[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != from {
		return &domain.TransitionError{PoolID: id, Expected: from, Actual: p.Status}
	}
	if !from.CanTransition(to) {
		return &domain.TransitionError{PoolID: id, Expected: from, Actual: p.Status}
	}
	p.Status = to
	return nil
}

type fakeInvestments struct {
	pools       *fakePools
	investments map[string]*domain.Investment
	txRefs      map[string]bool
}

func (f *fakeInvestments) Record(_ context.Context, inv *domain.Investment) (*domain.FundingPool, error) {
	pool, ok := f.pools.pools[inv.PoolID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if pool.Status != domain.PoolOpen {
		return nil, domain.ErrPoolNotOpen
	}
	if f.txRefs[inv.TxRef] {
		return nil, domain.ErrDuplicateSettlement
	}
	cp := *inv
	f.investments[inv.ID] = &cp
	f.txRefs[inv.TxRef] = true

	pool.FundedAmount = pool.FundedAmount.Add(inv.Amount)
	if inv.Tranche == domain.TrancheCatalyst {
		pool.CatalystFunded = pool.CatalystFunded.Add(inv.Amount)
	} else {
		pool.PriorityFunded = pool.PriorityFunded.Add(inv.Amount)
	}
	pool.InvestorCount++
	if pool.FundedAmount.GreaterThanOrEqual(pool.TargetAmount) {
		pool.Status = domain.PoolFilled
		filled := testNow
		pool.FilledAt = &filled
	}
	out := *pool
	return &out, nil
}

func (f *fakeInvestments) GetActiveByPoolAndInvestor(_ context.Context, poolID, investorID string) (*domain.Investment, error) {
	for _, inv := range f.investments {
		if inv.PoolID == poolID && inv.InvestorID == investorID && inv.Status == domain.InvestmentActive {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvestments) ListActiveByPool(_ context.Context, poolID string) ([]domain.Investment, error) {
	var out []domain.Investment
	for _, inv := range f.investments {
		if inv.PoolID == poolID && inv.Status == domain.InvestmentActive {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvestments) MarkRepaid(_ context.Context, id string, actualReturn decimal.Decimal, returnRef string) error {
	inv, ok := f.investments[id]
	if !ok || inv.Status != domain.InvestmentActive {
		return domain.ErrNotFound
	}
	inv.Status = domain.InvestmentRepaid
	inv.ActualReturn = &actualReturn
	inv.ReturnTxRef = &returnRef
	return nil
}

func (f *fakeInvestments) TxRefExists(_ context.Context, ref string) (bool, error) {
	return f.txRefs[ref], nil
}

func (f *fakeInvestments) PortfolioStats(_ context.Context, _ string) (*domain.PortfolioStats, error) {
	return &domain.PortfolioStats{}, nil
}

type fakeInvoices struct {
	invoices map[string]*domain.Invoice
}

func (f *fakeInvoices) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoices) UpdateStatus(_ context.Context, id string, status domain.InvoiceStatus) error {
	inv, ok := f.invoices[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Status = status
	return nil
}

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) IsCatalystUnlocked(_ context.Context, id string) (bool, error) {
	u, ok := f.users[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	return u.CatalystUnlocked, nil
}

type fakeSettlements struct {
	attempts []domain.SettlementAttempt
}

func (f *fakeSettlements) Record(_ context.Context, attempt *domain.SettlementAttempt) error {
	f.attempts = append(f.attempts, *attempt)
	return nil
}

func (f *fakeSettlements) UpdateOutcome(_ context.Context, id string, status domain.SettlementOutcome) error {
	for i := range f.attempts {
		if f.attempts[i].ID == id {
			f.attempts[i].Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeSettlements) ListIndeterminate(_ context.Context) ([]domain.SettlementAttempt, error) {
	var out []domain.SettlementAttempt
	for _, a := range f.attempts {
		if a.Status == domain.SettlementIndeterminate {
			out = append(out, a)
		}
	}
	return out, nil
}

type verifyCall struct {
	ref      string
	to       string
	expected decimal.Decimal
}

type fakeVerifier struct {
	calls []verifyCall
	err   error
}

func (f *fakeVerifier) Verify(_ context.Context, ref, expectedTo string, expectedAmount decimal.Decimal) (*domain.VerifiedTransfer, error) {
	f.calls = append(f.calls, verifyCall{ref: ref, to: expectedTo, expected: expectedAmount})
	if f.err != nil {
		return nil, f.err
	}
	return &domain.VerifiedTransfer{
		Reference: ref,
		From:      "0xinvestor",
		To:        expectedTo,
		Amount:    expectedAmount,
		Confirmed: true,
	}, nil
}

type transferCall struct {
	to      string
	amount  decimal.Decimal
	purpose domain.SettlementPurpose
}

type fakeExecutor struct {
	calls []transferCall
	err   error
	seq   int
}

func (f *fakeExecutor) Transfer(_ context.Context, to string, amount decimal.Decimal, purpose domain.SettlementPurpose) (string, error) {
	f.calls = append(f.calls, transferCall{to: to, amount: amount, purpose: purpose})
	f.seq++
	ref := fmt.Sprintf("0xout%d", f.seq)
	if f.err != nil {
		var indeterminate *domain.IndeterminateError
		if errors.As(f.err, &indeterminate) {
			return ref, f.err
		}
		return "", f.err
	}
	return ref, nil
}

type fakeNotifier struct {
	confirmed []string
	funded    []string
}

func (f *fakeNotifier) InvestmentConfirmed(_ context.Context, email, _ string, _, _ decimal.Decimal, _ domain.Tranche) {
	f.confirmed = append(f.confirmed, email)
}

func (f *fakeNotifier) PoolFunded(_ context.Context, email, _ string, _ decimal.Decimal) {
	f.funded = append(f.funded, email)
}

type fixture struct {
	svc         *FundingService
	pools       *fakePools
	investments *fakeInvestments
	invoices    *fakeInvoices
	users       *fakeUsers
	settlements *fakeSettlements
	verifier    *fakeVerifier
	executor    *fakeExecutor
	notifier    *fakeNotifier
}

func newFixture() *fixture {
	wallet := "0xabc"
	pools := &fakePools{
		pools: map[string]*domain.FundingPool{
			"pool-1": {
				ID:             "pool-1",
				InvoiceID:      "inv-1",
				TargetAmount:   d("1000"),
				PriorityTarget: d("800"),
				CatalystTarget: d("200"),
				PriorityRate:   d("9.5"),
				CatalystRate:   d("15"),
				Status:         domain.PoolOpen,
				Deadline:       testNow.AddDate(0, 0, 14),
				OpenedAt:       testNow,
			},
		},
		invoiceExporter: map[string]string{"inv-1": "exporter-1"},
	}
	f := &fixture{
		pools: pools,
		investments: &fakeInvestments{
			pools:       pools,
			investments: map[string]*domain.Investment{},
			txRefs:      map[string]bool{},
		},
		invoices: &fakeInvoices{invoices: map[string]*domain.Invoice{
			"inv-1": {
				ID:                  "inv-1",
				ExporterID:          "exporter-1",
				InvoiceNumber:       "INV-001",
				Amount:              d("1000"),
				PriorityRatio:       d("80"),
				PriorityRate:        d("9.5"),
				CatalystRate:        d("15"),
				DueDate:             testNow.AddDate(0, 0, 30),
				FundingDurationDays: 14,
				Status:              domain.InvoiceFunding,
			},
		}},
		users: &fakeUsers{users: map[string]*domain.User{
			"investor-1": {ID: "investor-1", Email: "inv1@example.com", Role: "investor", WalletAddress: &wallet},
			"investor-2": {ID: "investor-2", Email: "inv2@example.com", Role: "investor", WalletAddress: &wallet, CatalystUnlocked: true},
			"exporter-1": {ID: "exporter-1", Email: "exp@example.com", Role: "exporter", WalletAddress: &wallet},
		}},
		settlements: &fakeSettlements{},
		verifier:    &fakeVerifier{},
		executor:    &fakeExecutor{},
		notifier:    &fakeNotifier{},
	}
	f.svc = NewFundingService(Deps{
		Pools:          f.pools,
		Investments:    f.investments,
		Invoices:       f.invoices,
		Users:          f.users,
		Settlements:    f.settlements,
		Verifier:       f.verifier,
		Executor:       f.executor,
		Notifier:       f.notifier,
		CustodyWallet:  "0xcustody",
		EscrowContract: "0xescrow",
		Logger:         testLogger(),
	})
	f.svc.now = func() time.Time { return testNow }
	return f
}

func investReq(amount string) domain.InvestRequest {
	return domain.InvestRequest{
		PoolID:        "pool-1",
		Amount:        d(amount),
		Tranche:       domain.TranchePriority,
		TxRef:         "0xtx1",
		TermsAccepted: true,
	}
}

func TestInvestRecordsAndForwards(t *testing.T) {
	f := newFixture()

	inv, err := f.svc.Invest(context.Background(), "investor-1", investReq("500"))
	if err != nil {
		t.Fatalf("invest failed: %v", err)
	}

	// 500 at 9.5% for 30 days: interest = 500 * 0.095 * 30/365 = 3.90.
	if want := d("503.90"); !inv.ExpectedReturn.Equal(want) {
		t.Fatalf("expected return = %s, want %s", inv.ExpectedReturn, want)
	}
	if len(f.verifier.calls) != 1 || f.verifier.calls[0].to != "0xcustody" {
		t.Fatalf("verifier calls = %+v, want one call to custody", f.verifier.calls)
	}
	if len(f.executor.calls) != 1 || f.executor.calls[0].to != "0xescrow" {
		t.Fatalf("executor calls = %+v, want one forward to escrow", f.executor.calls)
	}
	if f.executor.calls[0].purpose != domain.PurposeInvestmentForward {
		t.Fatalf("purpose = %s, want investment_forward", f.executor.calls[0].purpose)
	}
	if len(f.settlements.attempts) != 1 || f.settlements.attempts[0].Status != domain.SettlementConfirmed {
		t.Fatalf("settlement attempts = %+v, want one confirmed", f.settlements.attempts)
	}
	if len(f.notifier.confirmed) != 1 {
		t.Fatalf("confirmed notifications = %d, want 1", len(f.notifier.confirmed))
	}

	pool, _ := f.pools.GetByID(context.Background(), "pool-1")
	if !pool.FundedAmount.Equal(d("500")) {
		t.Fatalf("funded = %s, want 500", pool.FundedAmount)
	}
}

func TestInvestFillsPool(t *testing.T) {
	f := newFixture()

	req := investReq("800")
	if _, err := f.svc.Invest(context.Background(), "investor-1", req); err != nil {
		t.Fatalf("first invest failed: %v", err)
	}

	req2 := domain.InvestRequest{
		PoolID:        "pool-1",
		Amount:        d("200"),
		Tranche:       domain.TrancheCatalyst,
		TxRef:         "0xtx2",
		TermsAccepted: true,
		CatalystConsents: &domain.CatalystConsents{
			FirstLoss: true, RiskOfLoss: true, NotBank: true,
		},
	}
	if _, err := f.svc.Invest(context.Background(), "investor-2", req2); err != nil {
		t.Fatalf("filling invest failed: %v", err)
	}

	pool, _ := f.pools.GetByID(context.Background(), "pool-1")
	if pool.Status != domain.PoolFilled {
		t.Fatalf("pool status = %s, want filled", pool.Status)
	}
	invoice, _ := f.invoices.GetByID(context.Background(), "inv-1")
	if invoice.Status != domain.InvoiceFunded {
		t.Fatalf("invoice status = %s, want funded", invoice.Status)
	}
	if len(f.notifier.funded) != 1 {
		t.Fatalf("funded notifications = %d, want 1", len(f.notifier.funded))
	}
}

func TestInvestRejectsClosedPool(t *testing.T) {
	f := newFixture()
	f.pools.pools["pool-1"].Status = domain.PoolClosed

	_, err := f.svc.Invest(context.Background(), "investor-1", investReq("500"))
	if !errors.Is(err, domain.ErrPoolNotOpen) {
		t.Fatalf("err = %v, want ErrPoolNotOpen", err)
	}
	if len(f.verifier.calls) != 0 {
		t.Fatalf("verifier should not be called for a closed pool")
	}
}

func TestInvestRejectsSecondActiveInvestment(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Invest(context.Background(), "investor-1", investReq("500")); err != nil {
		t.Fatalf("first invest failed: %v", err)
	}

	req := investReq("200")
	req.TxRef = "0xother"
	_, err := f.svc.Invest(context.Background(), "investor-1", req)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestInvestCatalystRequiresUnlock(t *testing.T) {
	f := newFixture()
	req := domain.InvestRequest{
		PoolID:        "pool-1",
		Amount:        d("150"),
		Tranche:       domain.TrancheCatalyst,
		TxRef:         "0xtx9",
		TermsAccepted: true,
		CatalystConsents: &domain.CatalystConsents{
			FirstLoss: true, RiskOfLoss: true, NotBank: true,
		},
	}

	_, err := f.svc.Invest(context.Background(), "investor-1", req)
	if !errors.Is(err, domain.ErrCatalystLocked) {
		t.Fatalf("err = %v, want ErrCatalystLocked", err)
	}
}

func TestInvestCatalystRequiresConsents(t *testing.T) {
	f := newFixture()
	req := domain.InvestRequest{
		PoolID:        "pool-1",
		Amount:        d("150"),
		Tranche:       domain.TrancheCatalyst,
		TxRef:         "0xtx9",
		TermsAccepted: true,
		CatalystConsents: &domain.CatalystConsents{
			FirstLoss: true, RiskOfLoss: false, NotBank: true,
		},
	}

	var validationErr *domain.ValidationError
	_, err := f.svc.Invest(context.Background(), "investor-2", req)
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestInvestRejectsDuplicateTxRef(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Invest(context.Background(), "investor-1", investReq("500")); err != nil {
		t.Fatalf("first invest failed: %v", err)
	}

	req := investReq("200")
	_, err := f.svc.Invest(context.Background(), "investor-2", req)
	if !errors.Is(err, domain.ErrDuplicateSettlement) {
		t.Fatalf("err = %v, want ErrDuplicateSettlement", err)
	}
}

func TestInvestEnforcesTicketLimits(t *testing.T) {
	f := newFixture()

	var rangeErr *domain.AmountRangeError
	_, err := f.svc.Invest(context.Background(), "investor-1", investReq("50"))
	if !errors.As(err, &rangeErr) {
		t.Fatalf("err = %v, want AmountRangeError", err)
	}
	if !rangeErr.Min.Equal(d("100")) || !rangeErr.Max.Equal(d("900")) {
		t.Fatalf("bounds = [%s, %s], want [100, 900]", rangeErr.Min, rangeErr.Max)
	}
}

func TestInvestEnforcesTrancheCapacity(t *testing.T) {
	f := newFixture()

	// 300 is inside the ticket range but exceeds the catalyst target of 200.
	req := domain.InvestRequest{
		PoolID:        "pool-1",
		Amount:        d("300"),
		Tranche:       domain.TrancheCatalyst,
		TxRef:         "0xtx9",
		TermsAccepted: true,
		CatalystConsents: &domain.CatalystConsents{
			FirstLoss: true, RiskOfLoss: true, NotBank: true,
		},
	}

	var capErr *domain.TrancheCapacityError
	_, err := f.svc.Invest(context.Background(), "investor-2", req)
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want TrancheCapacityError", err)
	}
	if !capErr.Available.Equal(d("200")) {
		t.Fatalf("available = %s, want 200", capErr.Available)
	}
}

func TestInvestIndeterminateForwardIsRecorded(t *testing.T) {
	f := newFixture()
	f.executor.err = &domain.IndeterminateError{Reference: "0xpending"}

	var indeterminate *domain.IndeterminateError
	_, err := f.svc.Invest(context.Background(), "investor-1", investReq("500"))
	if !errors.As(err, &indeterminate) {
		t.Fatalf("err = %v, want IndeterminateError", err)
	}
	if len(f.settlements.attempts) != 1 {
		t.Fatalf("attempts = %d, want 1", len(f.settlements.attempts))
	}
	if f.settlements.attempts[0].Status != domain.SettlementIndeterminate {
		t.Fatalf("attempt status = %s, want indeterminate", f.settlements.attempts[0].Status)
	}
	if len(f.investments.investments) != 0 {
		t.Fatalf("no investment should be recorded while the forward is unresolved")
	}
}

func TestCreatePool(t *testing.T) {
	f := newFixture()
	f.invoices.invoices["inv-2"] = &domain.Invoice{
		ID:                  "inv-2",
		ExporterID:          "exporter-1",
		InvoiceNumber:       "INV-002",
		Amount:              d("100000000"),
		PriorityRatio:       d("80"),
		PriorityRate:        d("9.5"),
		CatalystRate:        d("15"),
		DueDate:             testNow.AddDate(0, 0, 60),
		FundingDurationDays: 14,
		Status:              domain.InvoiceApproved,
	}

	pool, err := f.svc.CreatePool(context.Background(), "inv-2")
	if err != nil {
		t.Fatalf("create pool failed: %v", err)
	}
	if !pool.PriorityTarget.Equal(d("80000000")) || !pool.CatalystTarget.Equal(d("20000000")) {
		t.Fatalf("targets = %s/%s, want 80000000/20000000", pool.PriorityTarget, pool.CatalystTarget)
	}
	if want := testNow.AddDate(0, 0, 14); !pool.Deadline.Equal(want) {
		t.Fatalf("deadline = %s, want %s", pool.Deadline, want)
	}
	invoice, _ := f.invoices.GetByID(context.Background(), "inv-2")
	if invoice.Status != domain.InvoiceFunding {
		t.Fatalf("invoice status = %s, want funding", invoice.Status)
	}
}

func TestCreatePoolRejectsDuplicate(t *testing.T) {
	f := newFixture()
	f.invoices.invoices["inv-1"].Status = domain.InvoiceApproved

	_, err := f.svc.CreatePool(context.Background(), "inv-1")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestCreatePoolRejectsUnapprovedInvoice(t *testing.T) {
	f := newFixture()
	f.invoices.invoices["inv-1"].Status = domain.InvoiceRepaid

	var validationErr *domain.ValidationError
	_, err := f.svc.CreatePool(context.Background(), "inv-1")
	if !errors.As(err, &validationErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestExporterPools(t *testing.T) {
	f := newFixture()
	f.pools.pools["pool-2"] = &domain.FundingPool{
		ID:             "pool-2",
		InvoiceID:      "inv-9",
		TargetAmount:   d("5000"),
		PriorityTarget: d("4000"),
		CatalystTarget: d("1000"),
		Status:         domain.PoolOpen,
	}
	f.pools.invoiceExporter["inv-9"] = "exporter-9"

	views, err := f.svc.ExporterPools(context.Background(), "exporter-1")
	if err != nil {
		t.Fatalf("exporter pools failed: %v", err)
	}
	if len(views) != 1 || views[0].ID != "pool-1" {
		t.Fatalf("views = %+v, want only pool-1", views)
	}
	if !views[0].Remaining.Equal(d("1000")) {
		t.Fatalf("remaining = %s, want 1000", views[0].Remaining)
	}
}

func TestExporterPoolsUnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ExporterPools(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDisburse(t *testing.T) {
	f := newFixture()
	f.pools.pools["pool-1"].Status = domain.PoolFilled

	pool, err := f.svc.Disburse(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("disburse failed: %v", err)
	}
	if pool.Status != domain.PoolDisbursed {
		t.Fatalf("pool status = %s, want disbursed", pool.Status)
	}
	if len(f.executor.calls) != 1 || f.executor.calls[0].purpose != domain.PurposeDisbursement {
		t.Fatalf("executor calls = %+v, want one disbursement", f.executor.calls)
	}
	if !f.executor.calls[0].amount.Equal(d("1000")) {
		t.Fatalf("amount = %s, want 1000", f.executor.calls[0].amount)
	}
}

func TestDisburseRequiresFilled(t *testing.T) {
	f := newFixture()

	var transitionErr *domain.TransitionError
	_, err := f.svc.Disburse(context.Background(), "pool-1")
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
	if len(f.executor.calls) != 0 {
		t.Fatalf("nothing should move for an unfilled pool")
	}
}

func TestClose(t *testing.T) {
	f := newFixture()

	pool, err := f.svc.Close(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if pool.Status != domain.PoolClosed {
		t.Fatalf("pool status = %s, want closed", pool.Status)
	}
	invoice, _ := f.invoices.GetByID(context.Background(), "inv-1")
	if invoice.Status != domain.InvoiceTokenized {
		t.Fatalf("invoice status = %s, want tokenized", invoice.Status)
	}
}

func TestCloseRejectsDisbursedPool(t *testing.T) {
	f := newFixture()
	f.pools.pools["pool-1"].Status = domain.PoolDisbursed

	var transitionErr *domain.TransitionError
	_, err := f.svc.Close(context.Background(), "pool-1")
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
}

func TestRepayWaterfall(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Invest(context.Background(), "investor-1", investReq("500")); err != nil {
		t.Fatalf("invest failed: %v", err)
	}
	f.pools.pools["pool-1"].Status = domain.PoolDisbursed

	// Total owed is 503.90; repay exactly that.
	pool, err := f.svc.Repay(context.Background(), "exporter-1", "inv-1", domain.RepayRequest{
		Amount: d("503.90"),
		TxRef:  "0xrepay",
	})
	if err != nil {
		t.Fatalf("repay failed: %v", err)
	}
	if pool.Status != domain.PoolClosed {
		t.Fatalf("pool status = %s, want closed", pool.Status)
	}
	invoice, _ := f.invoices.GetByID(context.Background(), "inv-1")
	if invoice.Status != domain.InvoiceRepaid {
		t.Fatalf("invoice status = %s, want repaid", invoice.Status)
	}
	for _, inv := range f.investments.investments {
		if inv.Status != domain.InvestmentRepaid {
			t.Fatalf("investment %s status = %s, want repaid", inv.ID, inv.Status)
		}
		if inv.ActualReturn == nil || !inv.ActualReturn.Equal(inv.ExpectedReturn) {
			t.Fatalf("actual return not set to expected return")
		}
	}
	last := f.executor.calls[len(f.executor.calls)-1]
	if last.purpose != domain.PurposeRepaymentForward || last.to != "0xescrow" {
		t.Fatalf("last transfer = %+v, want repayment forward to escrow", last)
	}
}

func TestRepayRefusesShortAmount(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Invest(context.Background(), "investor-1", investReq("500")); err != nil {
		t.Fatalf("invest failed: %v", err)
	}
	f.pools.pools["pool-1"].Status = domain.PoolDisbursed

	var shortErr *domain.RepaymentShortfallError
	_, err := f.svc.Repay(context.Background(), "exporter-1", "inv-1", domain.RepayRequest{
		Amount: d("400"),
		TxRef:  "0xrepay",
	})
	if !errors.As(err, &shortErr) {
		t.Fatalf("err = %v, want RepaymentShortfallError", err)
	}
	if !shortErr.Verified.Equal(d("400")) {
		t.Fatalf("verified = %s, want 400", shortErr.Verified)
	}
	if !shortErr.Owed.GreaterThan(d("500")) {
		t.Fatalf("owed = %s, want principal plus yield", shortErr.Owed)
	}
	for _, inv := range f.investments.investments {
		if inv.Status != domain.InvestmentActive {
			t.Fatalf("investments must stay active when repayment is refused")
		}
	}
}

func TestRepayRejectsWrongExporter(t *testing.T) {
	f := newFixture()
	f.pools.pools["pool-1"].Status = domain.PoolDisbursed

	_, err := f.svc.Repay(context.Background(), "investor-1", "inv-1", domain.RepayRequest{
		Amount: d("1000"),
		TxRef:  "0xrepay",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRepayRequiresDisbursedPool(t *testing.T) {
	f := newFixture()

	var transitionErr *domain.TransitionError
	_, err := f.svc.Repay(context.Background(), "exporter-1", "inv-1", domain.RepayRequest{
		Amount: d("1000"),
		TxRef:  "0xrepay",
	})
	if !errors.As(err, &transitionErr) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
}

func TestQuote(t *testing.T) {
	f := newFixture()

	quote, err := f.svc.Quote(context.Background(), "pool-1", d("500"), domain.TranchePriority)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !quote.TotalReturn.Equal(d("503.90")) {
		t.Fatalf("total return = %s, want 503.90", quote.TotalReturn)
	}
	if !quote.ExpectedReturn.Equal(d("3.90")) {
		t.Fatalf("expected return = %s, want 3.90", quote.ExpectedReturn)
	}
	if quote.TenorDays != 30 {
		t.Fatalf("tenor = %d, want 30", quote.TenorDays)
	}
}
