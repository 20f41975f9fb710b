package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"vessel/internal/domain"
)

// TransferVerifier confirms that a transaction reference moved a specific
// amount to a specific address on the token ledger.
type TransferVerifier interface {
	Verify(ctx context.Context, ref, expectedTo string, expectedAmount decimal.Decimal) (*domain.VerifiedTransfer, error)
}

// SettlementExecutor issues outbound transfers from platform custody and waits
// for confirmation.
type SettlementExecutor interface {
	Transfer(ctx context.Context, toAddress string, amount decimal.Decimal, purpose domain.SettlementPurpose) (string, error)
}

// Notifier dispatches fire-and-forget investor/exporter notifications.
type Notifier interface {
	InvestmentConfirmed(ctx context.Context, email, invoiceNumber string, amount, expectedReturn decimal.Decimal, tranche domain.Tranche)
	PoolFunded(ctx context.Context, email, invoiceNumber string, target decimal.Decimal)
}

// FundingService owns the funding pool lifecycle, the investment ledger and the
// repayment waterfall. The relational store is the single arbiter of off-chain
// truth; the token ledger is only ever verified or appended to.
type FundingService struct {
	pools       domain.PoolRepository
	investments domain.InvestmentRepository
	invoices    domain.InvoiceStore
	users       domain.UserStore
	settlements domain.SettlementLog
	verifier    TransferVerifier
	executor    SettlementExecutor
	notifier    Notifier

	custodyWallet  string
	escrowContract string
	logger         zerolog.Logger
	now            func() time.Time
}

// Deps bundles the collaborators of the funding service.
type Deps struct {
	Pools       domain.PoolRepository
	Investments domain.InvestmentRepository
	Invoices    domain.InvoiceStore
	Users       domain.UserStore
	Settlements domain.SettlementLog
	Verifier    TransferVerifier
	Executor    SettlementExecutor
	Notifier    Notifier

	CustodyWallet  string
	EscrowContract string
	Logger         zerolog.Logger
}

// NewFundingService wires the funding engine.
func NewFundingService(d Deps) *FundingService {
	return &FundingService{
		pools:          d.Pools,
		investments:    d.Investments,
		invoices:       d.Invoices,
		users:          d.Users,
		settlements:    d.Settlements,
		verifier:       d.Verifier,
		executor:       d.Executor,
		notifier:       d.Notifier,
		custodyWallet:  d.CustodyWallet,
		escrowContract: d.EscrowContract,
		logger:         d.Logger,
		now:            time.Now,
	}
}

// CreatePool opens a funding pool against an approved or tokenized invoice.
// The invoice moves to funding; the tranche targets are derived from its terms.
func (s *FundingService) CreatePool(ctx context.Context, invoiceID string) (*domain.FundingPool, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.Fundable() {
		return nil, &domain.ValidationError{Field: "invoice", Reason: "invoice must be approved before funding"}
	}

	if _, err := s.pools.GetByInvoice(ctx, invoiceID); err == nil {
		return nil, fmt.Errorf("pool for invoice %s: %w", invoiceID, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	priorityTarget, catalystTarget, err := domain.DeriveTargets(invoice.Amount, invoice.PriorityRatio)
	if err != nil {
		return nil, err
	}

	now := s.now()
	pool := &domain.FundingPool{
		ID:             uuid.NewString(),
		InvoiceID:      invoiceID,
		TargetAmount:   invoice.Amount,
		PriorityTarget: priorityTarget,
		CatalystTarget: catalystTarget,
		PriorityRate:   invoice.PriorityRate,
		CatalystRate:   invoice.CatalystRate,
		Status:         domain.PoolOpen,
		Deadline:       now.AddDate(0, 0, invoice.FundingDurationDays),
		OpenedAt:       now,
	}
	if err := s.pools.Create(ctx, pool); err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateStatus(ctx, invoiceID, domain.InvoiceFunding); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("pool_id", pool.ID).
		Str("invoice_id", invoiceID).
		Str("target", pool.TargetAmount.String()).
		Msg("funding pool opened")

	return pool, nil
}

// GetPool returns a pool with its funding progress.
func (s *FundingService) GetPool(ctx context.Context, id string) (*PoolView, error) {
	pool, err := s.pools.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildPoolView(pool), nil
}

// GetPoolByInvoice returns the exporter's pool for an invoice, enforcing ownership.
func (s *FundingService) GetPoolByInvoice(ctx context.Context, exporterID, invoiceID string) (*PoolView, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.ExporterID != exporterID {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, domain.ErrForbidden)
	}
	pool, err := s.pools.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return buildPoolView(pool), nil
}

// ExporterPools returns every pool opened against the exporter's invoices with
// their funding progress.
func (s *FundingService) ExporterPools(ctx context.Context, exporterID string) ([]PoolView, error) {
	if _, err := s.users.GetByID(ctx, exporterID); err != nil {
		return nil, err
	}
	pools, err := s.pools.ListByExporter(ctx, exporterID)
	if err != nil {
		return nil, err
	}
	views := make([]PoolView, 0, len(pools))
	for i := range pools {
		views = append(views, *buildPoolView(&pools[i]))
	}
	return views, nil
}

// ListPools returns pools newest first with the total count.
func (s *FundingService) ListPools(ctx context.Context, page, perPage int) ([]PoolView, int64, error) {
	pools, total, err := s.pools.List(ctx, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	views := make([]PoolView, 0, len(pools))
	for i := range pools {
		views = append(views, *buildPoolView(&pools[i]))
	}
	return views, total, nil
}

// Invest validates, verifies and records one investment. The durable store
// enforces capacity and uniqueness inside a single transaction; the external
// verification happens before any ledger mutation, so a failure there leaves
// nothing to roll back.
func (s *FundingService) Invest(ctx context.Context, investorID string, req domain.InvestRequest) (*domain.Investment, error) {
	if !req.TermsAccepted {
		return nil, &domain.ValidationError{Field: "terms_accepted", Reason: "terms and conditions must be accepted"}
	}
	if req.TxRef == "" {
		return nil, &domain.ValidationError{Field: "tx_ref", Reason: "transfer reference is required; transfer to the platform wallet first"}
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ValidationError{Field: "amount", Reason: "amount must be positive"}
	}

	pool, err := s.pools.GetByID(ctx, req.PoolID)
	if err != nil {
		return nil, err
	}
	if pool.Status != domain.PoolOpen {
		return nil, domain.ErrPoolNotOpen
	}

	if existing, err := s.investments.GetActiveByPoolAndInvestor(ctx, req.PoolID, investorID); err == nil && existing != nil {
		return nil, fmt.Errorf("investor %s in pool %s: %w", investorID, req.PoolID, domain.ErrConflict)
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if req.Tranche == domain.TrancheCatalyst {
		if req.CatalystConsents == nil || !req.CatalystConsents.AllAccepted() {
			return nil, &domain.ValidationError{Field: "catalyst_consents", Reason: "all catalyst consents must be accepted"}
		}
		unlocked, err := s.users.IsCatalystUnlocked(ctx, investorID)
		if err != nil {
			return nil, err
		}
		if !unlocked {
			return nil, domain.ErrCatalystLocked
		}
	}

	investor, err := s.users.GetByID(ctx, investorID)
	if err != nil {
		return nil, err
	}
	if investor.WalletAddress == nil || *investor.WalletAddress == "" {
		return nil, &domain.ValidationError{Field: "wallet_address", Reason: "investor settlement address not set"}
	}

	min, max := domain.TicketLimits(pool.TargetAmount, pool.Remaining())
	if req.Amount.LessThan(min) || req.Amount.GreaterThan(max) {
		return nil, &domain.AmountRangeError{Amount: req.Amount, Min: min, Max: max}
	}
	if available := pool.TrancheRemaining(req.Tranche); req.Amount.GreaterThan(available) {
		return nil, &domain.TrancheCapacityError{Tranche: req.Tranche, Available: available, Amount: req.Amount}
	}

	// A reference is credited at most once platform-wide. The unique constraint
	// inside the record transaction is the backstop; this check keeps the
	// external calls from running for an already spent reference.
	if exists, err := s.investments.TxRefExists(ctx, req.TxRef); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("reference %s: %w", req.TxRef, domain.ErrDuplicateSettlement)
	}

	verified, err := s.verifier.Verify(ctx, req.TxRef, s.custodyWallet, req.Amount)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("reference", verified.Reference).
		Str("from", verified.From).
		Str("amount", verified.Amount.String()).
		Uint64("block", verified.BlockNumber).
		Msg("inbound investment transfer verified")

	forwardRef, err := s.forward(ctx, pool.ID, s.escrowContract, verified.Amount, domain.PurposeInvestmentForward)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoices.GetByID(ctx, pool.InvoiceID)
	if err != nil {
		return nil, err
	}

	rate := pool.TrancheRate(req.Tranche)
	expected := domain.ExpectedReturn(req.Amount, rate, invoice.DaysToMaturity(s.now()))

	inv := &domain.Investment{
		ID:             uuid.NewString(),
		PoolID:         pool.ID,
		InvestorID:     investorID,
		Amount:         req.Amount,
		ExpectedReturn: expected,
		Status:         domain.InvestmentActive,
		Tranche:        req.Tranche,
		TxRef:          req.TxRef,
		InvestedAt:     s.now(),
	}

	updated, err := s.investments.Record(ctx, inv)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("investment_id", inv.ID).
		Str("pool_id", pool.ID).
		Str("forward_reference", forwardRef).
		Str("amount", inv.Amount.String()).
		Msg("investment recorded")

	if updated.Status == domain.PoolFilled {
		if err := s.invoices.UpdateStatus(ctx, pool.InvoiceID, domain.InvoiceFunded); err != nil {
			return nil, err
		}
		if exporter, err := s.users.GetByID(ctx, invoice.ExporterID); err == nil {
			s.notifier.PoolFunded(ctx, exporter.Email, invoice.InvoiceNumber, pool.TargetAmount)
		} else {
			s.logger.Warn().Err(err).Str("pool_id", pool.ID).Msg("exporter lookup for funded notification failed")
		}
	}

	s.notifier.InvestmentConfirmed(ctx, investor.Email, invoice.InvoiceNumber, inv.Amount, inv.ExpectedReturn, inv.Tranche)

	return inv, nil
}

// Disburse forwards the full target amount to the exporter's settlement
// address and moves the pool to disbursed. On failure the pool stays filled;
// nothing moved unless the outcome was indeterminate, which is recorded for
// reconciliation.
func (s *FundingService) Disburse(ctx context.Context, poolID string) (*domain.FundingPool, error) {
	pool, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status != domain.PoolFilled {
		return nil, &domain.TransitionError{PoolID: poolID, Expected: domain.PoolFilled, Actual: pool.Status}
	}

	invoice, err := s.invoices.GetByID(ctx, pool.InvoiceID)
	if err != nil {
		return nil, err
	}
	exporter, err := s.users.GetByID(ctx, invoice.ExporterID)
	if err != nil {
		return nil, err
	}
	if exporter.WalletAddress == nil || *exporter.WalletAddress == "" {
		return nil, &domain.ValidationError{Field: "wallet_address", Reason: "exporter settlement address not set"}
	}

	if _, err := s.forward(ctx, pool.ID, *exporter.WalletAddress, pool.TargetAmount, domain.PurposeDisbursement); err != nil {
		return nil, err
	}

	if err := s.pools.UpdateStatus(ctx, poolID, domain.PoolFilled, domain.PoolDisbursed); err != nil {
		return nil, err
	}
	pool.Status = domain.PoolDisbursed

	s.logger.Info().
		Str("pool_id", poolID).
		Str("amount", pool.TargetAmount.String()).
		Msg("pool disbursed to exporter")

	return pool, nil
}

// Close shuts an open or filled pool (deadline expiry or administrative
// cancellation) and reverts the invoice to tokenized. Disbursed pools close
// only through repayment.
func (s *FundingService) Close(ctx context.Context, poolID string) (*domain.FundingPool, error) {
	pool, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Status != domain.PoolOpen && pool.Status != domain.PoolFilled {
		return nil, &domain.TransitionError{PoolID: poolID, Expected: domain.PoolOpen, Actual: pool.Status}
	}

	if err := s.pools.UpdateStatus(ctx, poolID, pool.Status, domain.PoolClosed); err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateStatus(ctx, pool.InvoiceID, domain.InvoiceTokenized); err != nil {
		return nil, err
	}
	pool.Status = domain.PoolClosed

	s.logger.Info().Str("pool_id", poolID).Msg("pool closed")
	return pool, nil
}

// Repay runs the repayment waterfall: verify the exporter's inbound transfer,
// forward it to the settlement contract, pay every active investment its
// expected return, close the pool and mark the invoice repaid.
func (s *FundingService) Repay(ctx context.Context, exporterID, invoiceID string, req domain.RepayRequest) (*domain.FundingPool, error) {
	if req.TxRef == "" {
		return nil, &domain.ValidationError{Field: "tx_ref", Reason: "repayment transfer reference is required"}
	}

	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.ExporterID != exporterID {
		return nil, fmt.Errorf("invoice %s: %w", invoiceID, domain.ErrForbidden)
	}

	pool, err := s.pools.GetByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if pool.Status != domain.PoolDisbursed {
		return nil, &domain.TransitionError{PoolID: pool.ID, Expected: domain.PoolDisbursed, Actual: pool.Status}
	}

	verified, err := s.verifier.Verify(ctx, req.TxRef, s.custodyWallet, req.Amount)
	if err != nil {
		return nil, err
	}

	investments, err := s.investments.ListActiveByPool(ctx, pool.ID)
	if err != nil {
		return nil, err
	}

	totalOwed := decimal.Zero
	for i := range investments {
		totalOwed = totalOwed.Add(investments[i].ExpectedReturn)
	}
	if verified.Amount.LessThan(totalOwed) {
		return nil, &domain.RepaymentShortfallError{Verified: verified.Amount, Owed: totalOwed}
	}

	forwardRef, err := s.forward(ctx, pool.ID, s.escrowContract, verified.Amount, domain.PurposeRepaymentForward)
	if err != nil {
		return nil, err
	}

	for i := range investments {
		inv := &investments[i]
		if err := s.investments.MarkRepaid(ctx, inv.ID, inv.ExpectedReturn, forwardRef); err != nil {
			return nil, err
		}
	}

	if err := s.pools.UpdateStatus(ctx, pool.ID, domain.PoolDisbursed, domain.PoolClosed); err != nil {
		return nil, err
	}
	if err := s.invoices.UpdateStatus(ctx, invoiceID, domain.InvoiceRepaid); err != nil {
		return nil, err
	}
	pool.Status = domain.PoolClosed

	s.logger.Info().
		Str("pool_id", pool.ID).
		Str("invoice_id", invoiceID).
		Int("investments", len(investments)).
		Str("amount", verified.Amount.String()).
		Msg("repayment waterfall completed")

	return pool, nil
}

// Quote computes the expected return of a prospective investment without side effects.
func (s *FundingService) Quote(ctx context.Context, poolID string, amount decimal.Decimal, tranche domain.Tranche) (*InvestmentQuote, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ValidationError{Field: "amount", Reason: "amount must be positive"}
	}
	pool, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoices.GetByID(ctx, pool.InvoiceID)
	if err != nil {
		return nil, err
	}

	rate := pool.TrancheRate(tranche)
	days := invoice.DaysToMaturity(s.now())
	total := domain.ExpectedReturn(amount, rate, days)

	return &InvestmentQuote{
		Principal:      amount,
		InterestRate:   rate,
		ExpectedReturn: total.Sub(amount),
		TotalReturn:    total,
		Tranche:        tranche,
		TenorDays:      days,
	}, nil
}

// Portfolio aggregates the investor's positions across pools.
func (s *FundingService) Portfolio(ctx context.Context, investorID string) (*domain.PortfolioStats, error) {
	if _, err := s.users.GetByID(ctx, investorID); err != nil {
		return nil, err
	}
	return s.investments.PortfolioStats(ctx, investorID)
}

// forward issues an outbound transfer and records the attempt in the audit
// log. Indeterminate outcomes are persisted so the reconciler can resolve
// them; they are never retried here.
func (s *FundingService) forward(ctx context.Context, poolID, to string, amount decimal.Decimal, purpose domain.SettlementPurpose) (string, error) {
	ref, err := s.executor.Transfer(ctx, to, amount, purpose)

	attempt := &domain.SettlementAttempt{
		ID:        uuid.NewString(),
		PoolID:    &poolID,
		Purpose:   purpose,
		ToAddress: to,
		Amount:    amount,
		Status:    domain.SettlementConfirmed,
	}
	if ref != "" {
		attempt.Reference = &ref
	}

	var indeterminate *domain.IndeterminateError
	switch {
	case err == nil:
	case errors.As(err, &indeterminate):
		attempt.Status = domain.SettlementIndeterminate
	default:
		attempt.Status = domain.SettlementFailed
	}

	if logErr := s.settlements.Record(ctx, attempt); logErr != nil {
		s.logger.Error().Err(logErr).
			Str("pool_id", poolID).
			Str("purpose", string(purpose)).
			Msg("failed to record settlement attempt")
	}

	if err != nil {
		return "", fmt.Errorf("forward %s: %w", purpose, err)
	}
	return ref, nil
}
