package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the subset of the invoice lifecycle this engine drives.
type InvoiceStatus string

const (
	InvoiceApproved  InvoiceStatus = "approved"
	InvoiceTokenized InvoiceStatus = "tokenized"
	InvoiceFunding   InvoiceStatus = "funding"
	InvoiceFunded    InvoiceStatus = "funded"
	InvoiceRepaid    InvoiceStatus = "repaid"
)

// Invoice carries the receivable terms a pool is opened against. Onboarding and
// document verification live outside this engine; this is the read model it needs.
type Invoice struct {
	ID                  string
	ExporterID          string
	InvoiceNumber       string
	Amount              decimal.Decimal
	PriorityRatio       decimal.Decimal // percent of the target allocated to the priority tranche
	PriorityRate        decimal.Decimal
	CatalystRate        decimal.Decimal
	DueDate             time.Time
	FundingDurationDays int
	Status              InvoiceStatus
}

// Fundable reports whether a pool may be opened against the invoice.
func (i *Invoice) Fundable() bool {
	return i.Status == InvoiceApproved || i.Status == InvoiceTokenized
}

// DaysToMaturity returns the whole days between now and the invoice due date.
func (i *Invoice) DaysToMaturity(now time.Time) int64 {
	d := int64(i.DueDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
