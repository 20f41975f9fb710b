package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PoolRepository defines persistence for funding pools.
type PoolRepository interface {
	Create(ctx context.Context, pool *FundingPool) error
	GetByID(ctx context.Context, id string) (*FundingPool, error)
	GetByInvoice(ctx context.Context, invoiceID string) (*FundingPool, error)
	List(ctx context.Context, page, perPage int) ([]FundingPool, int64, error)
	ListByExporter(ctx context.Context, exporterID string) ([]FundingPool, error)
	// UpdateStatus applies a lifecycle transition with a compare-and-set on the
	// expected prior state. It returns a TransitionError when the pool has moved on.
	UpdateStatus(ctx context.Context, id string, from, to PoolStatus) error
}

// InvestmentRepository defines persistence for investments. Record is the
// critical section: it must lock the pool row, re-check capacity and uniqueness
// and apply the new funded totals in one transaction.
type InvestmentRepository interface {
	Record(ctx context.Context, inv *Investment) (*FundingPool, error)
	GetActiveByPoolAndInvestor(ctx context.Context, poolID, investorID string) (*Investment, error)
	ListActiveByPool(ctx context.Context, poolID string) ([]Investment, error)
	MarkRepaid(ctx context.Context, id string, actualReturn decimal.Decimal, returnRef string) error
	TxRefExists(ctx context.Context, ref string) (bool, error)
	PortfolioStats(ctx context.Context, investorID string) (*PortfolioStats, error)
}

// InvoiceStore is the collaborator interface for invoice terms and status
// transitions. The generic invoice data layer lives outside this engine.
type InvoiceStore interface {
	GetByID(ctx context.Context, id string) (*Invoice, error)
	UpdateStatus(ctx context.Context, id string, status InvoiceStatus) error
}

// UserStore resolves investors and exporters, their settlement addresses and
// catalyst eligibility.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*User, error)
	IsCatalystUnlocked(ctx context.Context, userID string) (bool, error)
}

// SettlementLog records outbound transfer attempts, including indeterminate
// outcomes awaiting reconciliation.
type SettlementLog interface {
	Record(ctx context.Context, attempt *SettlementAttempt) error
	UpdateOutcome(ctx context.Context, id string, status SettlementOutcome) error
	ListIndeterminate(ctx context.Context) ([]SettlementAttempt, error)
}
