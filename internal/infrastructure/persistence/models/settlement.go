package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate
type InvoiceModel struct {
	AuditedAggregateModel
	Number             string                      `gorm:"type:varchar(50);not null;index"`
	Direction          settlement.InvoiceDirection `gorm:"type:varchar(20);not null"`
	PartnerID          uuid.UUID                   `gorm:"type:uuid;not null;index:idx_invoices_partner_issue,priority:1"`
	Currency           valueobject.Currency        `gorm:"type:varchar(3);not null"`
	TotalAmount        decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	PaidAmount         decimal.Decimal             `gorm:"type:decimal(18,2);not null;default:0"`
	OutstandingBalance decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	Status             settlement.InvoiceStatus    `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	IssueDate          time.Time                   `gorm:"type:date;not null;index:idx_invoices_partner_issue,priority:2"`
	DueDate            time.Time                   `gorm:"type:date;not null"`
	Description        string                      `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *settlement.Invoice {
	return &settlement.Invoice{
		AuditedAggregateRoot: m.AuditedAggregateModel.ToDomain(),
		Number:               m.Number,
		Direction:            m.Direction,
		PartnerID:            m.PartnerID,
		Currency:             m.Currency,
		TotalAmount:          m.TotalAmount,
		PaidAmount:           m.PaidAmount,
		OutstandingBalance:   m.OutstandingBalance,
		Status:               m.Status,
		IssueDate:            valueobject.BusinessDate(m.IssueDate),
		DueDate:              valueobject.BusinessDate(m.DueDate),
		Description:          m.Description,
	}
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(i *settlement.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:             i.Number,
		Direction:          i.Direction,
		PartnerID:          i.PartnerID,
		Currency:           i.Currency,
		TotalAmount:        i.TotalAmount,
		PaidAmount:         i.PaidAmount,
		OutstandingBalance: i.OutstandingBalance,
		Status:             i.Status,
		IssueDate:          i.IssueDate,
		DueDate:            i.DueDate,
		Description:        i.Description,
	}
	m.AuditedAggregateModel.FromDomain(i.AuditedAggregateRoot)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate
type PaymentModel struct {
	AuditedAggregateModel
	Number            string                      `gorm:"type:varchar(50);not null;index"`
	Direction         settlement.PaymentDirection `gorm:"type:varchar(20);not null"`
	PartnerID         uuid.UUID                   `gorm:"type:uuid;not null;index:idx_payments_partner_date,priority:1"`
	Currency          valueobject.Currency        `gorm:"type:varchar(3);not null"`
	Amount            decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	ProcessingFees    decimal.Decimal             `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount       decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	AllocatedAmount   decimal.Decimal             `gorm:"type:decimal(18,2);not null;default:0"`
	UnallocatedAmount decimal.Decimal             `gorm:"type:decimal(18,2);not null"`
	IsFullyAllocated  bool                        `gorm:"not null;default:false"`
	PaymentDate       time.Time                   `gorm:"type:date;not null;index:idx_payments_partner_date,priority:2"`
	Reference         string                      `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *settlement.Payment {
	return &settlement.Payment{
		AuditedAggregateRoot: m.AuditedAggregateModel.ToDomain(),
		Number:               m.Number,
		Direction:            m.Direction,
		PartnerID:            m.PartnerID,
		Currency:             m.Currency,
		Amount:               m.Amount,
		ProcessingFees:       m.ProcessingFees,
		TotalAmount:          m.TotalAmount,
		AllocatedAmount:      m.AllocatedAmount,
		UnallocatedAmount:    m.UnallocatedAmount,
		IsFullyAllocated:     m.IsFullyAllocated,
		PaymentDate:          valueobject.BusinessDate(m.PaymentDate),
		Reference:            m.Reference,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *settlement.Payment) *PaymentModel {
	m := &PaymentModel{
		Number:            p.Number,
		Direction:         p.Direction,
		PartnerID:         p.PartnerID,
		Currency:          p.Currency,
		Amount:            p.Amount,
		ProcessingFees:    p.ProcessingFees,
		TotalAmount:       p.TotalAmount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		IsFullyAllocated:  p.IsFullyAllocated,
		PaymentDate:       p.PaymentDate,
		Reference:         p.Reference,
	}
	m.AuditedAggregateModel.FromDomain(p.AuditedAggregateRoot)
	return m
}

// AllocationModel is the persistence model for an allocation. Rows are insert-only.
type AllocationModel struct {
	ID              uuid.UUID            `gorm:"type:uuid;primary_key"`
	PaymentID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	InvoiceID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	PartnerID       uuid.UUID            `gorm:"type:uuid;not null;index"`
	Currency        valueobject.Currency `gorm:"type:varchar(3);not null"`
	Amount          decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	BaseAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Rate            decimal.Decimal      `gorm:"type:decimal(18,8);not null"`
	RateDate        time.Time            `gorm:"type:date;not null"`
	TransactionDate time.Time            `gorm:"type:date;not null"`
	ReversalOf      *uuid.UUID           `gorm:"type:uuid;uniqueIndex:uq_allocations_reversal_of"`
	CreatedBy       string               `gorm:"type:varchar(100);not null"`
	CreatedAt       time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain Allocation
func (m *AllocationModel) ToDomain() *settlement.Allocation {
	return &settlement.Allocation{
		ID:              m.ID,
		PaymentID:       m.PaymentID,
		InvoiceID:       m.InvoiceID,
		PartnerID:       m.PartnerID,
		Currency:        m.Currency,
		Amount:          m.Amount,
		BaseAmount:      m.BaseAmount,
		Rate:            m.Rate,
		RateDate:        valueobject.BusinessDate(m.RateDate),
		TransactionDate: valueobject.BusinessDate(m.TransactionDate),
		ReversalOf:      m.ReversalOf,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

// AllocationModelFromDomain creates a persistence model from a domain Allocation
func AllocationModelFromDomain(a *settlement.Allocation) *AllocationModel {
	return &AllocationModel{
		ID:              a.ID,
		PaymentID:       a.PaymentID,
		InvoiceID:       a.InvoiceID,
		PartnerID:       a.PartnerID,
		Currency:        a.Currency,
		Amount:          a.Amount,
		BaseAmount:      a.BaseAmount,
		Rate:            a.Rate,
		RateDate:        a.RateDate,
		TransactionDate: a.TransactionDate,
		ReversalOf:      a.ReversalOf,
		CreatedBy:       a.CreatedBy,
		CreatedAt:       a.CreatedAt,
	}
}

// LedgerEntryModel is the persistence model for a ledger entry.
// Seq is assigned by the database and orders entries within a transaction date.
type LedgerEntryModel struct {
	Seq             int64                    `gorm:"primaryKey;autoIncrement"`
	ID              uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex"`
	NaturalKey      string                   `gorm:"type:varchar(255);not null;uniqueIndex:uq_ledger_entries_natural_key"`
	PartnerID       uuid.UUID                `gorm:"type:uuid;not null;index:idx_ledger_entries_partner_date,priority:1"`
	Currency        valueobject.Currency     `gorm:"type:varchar(3);not null"`
	Amount          decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	BaseAmount      decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Rate            decimal.Decimal          `gorm:"type:decimal(18,8);not null"`
	ReferenceType   settlement.ReferenceType `gorm:"type:varchar(20);not null"`
	ReferenceID     uuid.UUID                `gorm:"type:uuid;not null"`
	InvoiceID       *uuid.UUID               `gorm:"type:uuid;index"`
	PaymentID       *uuid.UUID               `gorm:"type:uuid;index"`
	TransactionDate time.Time                `gorm:"type:date;not null;index:idx_ledger_entries_partner_date,priority:2"`
	CreatedBy       string                   `gorm:"type:varchar(100);not null"`
	CreatedAt       time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the persistence model to a domain LedgerEntry
func (m *LedgerEntryModel) ToDomain() *settlement.LedgerEntry {
	return &settlement.LedgerEntry{
		ID:              m.ID,
		Seq:             m.Seq,
		PartnerID:       m.PartnerID,
		Currency:        m.Currency,
		Amount:          m.Amount,
		BaseAmount:      m.BaseAmount,
		Rate:            m.Rate,
		ReferenceType:   m.ReferenceType,
		ReferenceID:     m.ReferenceID,
		InvoiceID:       m.InvoiceID,
		PaymentID:       m.PaymentID,
		TransactionDate: valueobject.BusinessDate(m.TransactionDate),
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
}

// LedgerEntryModelFromDomain creates a persistence model from a domain LedgerEntry.
// Seq is left zero so the database assigns it.
func LedgerEntryModelFromDomain(e *settlement.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:              e.ID,
		NaturalKey:      e.NaturalKey(),
		PartnerID:       e.PartnerID,
		Currency:        e.Currency,
		Amount:          e.Amount,
		BaseAmount:      e.BaseAmount,
		Rate:            e.Rate,
		ReferenceType:   e.ReferenceType,
		ReferenceID:     e.ReferenceID,
		InvoiceID:       e.InvoiceID,
		PaymentID:       e.PaymentID,
		TransactionDate: e.TransactionDate,
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
	}
}
