package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RecordInvoiceRequest is the input for issuing an invoice
type RecordInvoiceRequest struct {
	Number      string
	Direction   string
	PartnerID   uuid.UUID
	Currency    string
	Amount      decimal.Decimal
	IssueDate   time.Time
	DueDate     time.Time
	Description string
}

// RecordPaymentRequest is the input for recording a payment
type RecordPaymentRequest struct {
	Number      string
	Direction   string
	PartnerID   uuid.UUID
	Currency    string
	Amount      decimal.Decimal
	Fees        decimal.Decimal
	PaymentDate time.Time
	Reference   string
}

// AllocateRequest is the input for allocating a payment to an invoice
type AllocateRequest struct {
	PaymentID uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	// TransactionDate defaults to today
	TransactionDate time.Time
}

// InvoiceListFilter is the input for listing invoices
type InvoiceListFilter struct {
	PartnerID *uuid.UUID
	Status    string
	Direction string
	Currency  string
	Page      int
	PageSize  int
}

// PaymentListFilter is the input for listing payments
type PaymentListFilter struct {
	PartnerID      *uuid.UUID
	Direction      string
	Currency       string
	FullyAllocated *bool
	Page           int
	PageSize       int
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Number             string          `json:"number"`
	Direction          string          `json:"direction"`
	PartnerID          uuid.UUID       `json:"partner_id"`
	Currency           string          `json:"currency"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Status             string          `json:"status"`
	IssueDate          string          `json:"issue_date"`
	DueDate            string          `json:"due_date"`
	Description        string          `json:"description,omitempty"`
	CreatedBy          string          `json:"created_by"`
	UpdatedBy          string          `json:"updated_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Version            int             `json:"version"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                uuid.UUID       `json:"id"`
	Number            string          `json:"number"`
	Direction         string          `json:"direction"`
	PartnerID         uuid.UUID       `json:"partner_id"`
	Currency          string          `json:"currency"`
	Amount            decimal.Decimal `json:"amount"`
	ProcessingFees    decimal.Decimal `json:"processing_fees"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	IsFullyAllocated  bool            `json:"is_fully_allocated"`
	PaymentDate       string          `json:"payment_date"`
	Reference         string          `json:"reference,omitempty"`
	CreatedBy         string          `json:"created_by"`
	UpdatedBy         string          `json:"updated_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// AllocationResponse represents an allocation in API responses
type AllocationResponse struct {
	ID              uuid.UUID       `json:"id"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	PartnerID       uuid.UUID       `json:"partner_id"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	Rate            decimal.Decimal `json:"rate"`
	RateDate        string          `json:"rate_date"`
	TransactionDate string          `json:"transaction_date"`
	ReversalOf      *uuid.UUID      `json:"reversal_of,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AllocationResult is returned by Allocate and Reverse with the updated documents
type AllocationResult struct {
	Allocation AllocationResponse `json:"allocation"`
	Payment    PaymentResponse    `json:"payment"`
	Invoice    InvoiceResponse    `json:"invoice"`
	Attempts   int                `json:"-"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	Seq             int64           `json:"seq"`
	PartnerID       uuid.UUID       `json:"partner_id"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	Rate            decimal.Decimal `json:"rate"`
	ReferenceType   string          `json:"reference_type"`
	ReferenceID     uuid.UUID       `json:"reference_id"`
	InvoiceID       *uuid.UUID      `json:"invoice_id,omitempty"`
	PaymentID       *uuid.UUID      `json:"payment_id,omitempty"`
	TransactionDate string          `json:"transaction_date"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BalanceRowResponse is one currency row of a balance report
type BalanceRowResponse struct {
	Currency        string          `json:"currency"`
	Leftover        decimal.Decimal `json:"leftover"`
	Unpaid          decimal.Decimal `json:"unpaid"`
	PartiallyPaid   decimal.Decimal `json:"partially_paid"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	Overdue         decimal.Decimal `json:"overdue"`
	Rate            decimal.Decimal `json:"rate"`
	RateDate        string          `json:"rate_date"`
	LeftoverBase    decimal.Decimal `json:"leftover_base"`
	OutstandingBase decimal.Decimal `json:"outstanding_base"`
	OverdueBase     decimal.Decimal `json:"overdue_base"`
}

// BalanceReportResponse represents a balance report in API responses
type BalanceReportResponse struct {
	PartnerID            uuid.UUID            `json:"partner_id"`
	PartnerName          string               `json:"partner_name"`
	AsOf                 string               `json:"as_of"`
	BaseCurrency         string               `json:"base_currency"`
	Rows                 []BalanceRowResponse `json:"rows"`
	TotalLeftoverBase    decimal.Decimal      `json:"total_leftover_base"`
	TotalOutstandingBase decimal.Decimal      `json:"total_outstanding_base"`
	TotalOverdueBase     decimal.Decimal      `json:"total_overdue_base"`
	GeneratedAt          time.Time            `json:"generated_at"`
}

// ExchangeRateResponse represents a stored or resolved rate
type ExchangeRateResponse struct {
	Currency      string          `json:"currency"`
	Rate          decimal.Decimal `json:"rate"`
	RequestedDate string          `json:"requested_date,omitempty"`
	EffectiveDate string          `json:"effective_date"`
	Fallback      bool            `json:"fallback"`
	Source        string          `json:"source,omitempty"`
}

func toInvoiceResponse(i *settlement.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:                 i.ID,
		Number:             i.Number,
		Direction:          i.Direction.String(),
		PartnerID:          i.PartnerID,
		Currency:           i.Currency.String(),
		TotalAmount:        i.TotalAmount,
		PaidAmount:         i.PaidAmount,
		OutstandingBalance: i.OutstandingBalance,
		Status:             i.Status.String(),
		IssueDate:          valueobject.FormatBusinessDate(i.IssueDate),
		DueDate:            valueobject.FormatBusinessDate(i.DueDate),
		Description:        i.Description,
		CreatedBy:          i.CreatedBy,
		UpdatedBy:          i.UpdatedBy,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
		Version:            i.Version,
	}
}

func toPaymentResponse(p *settlement.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		Number:            p.Number,
		Direction:         p.Direction.String(),
		PartnerID:         p.PartnerID,
		Currency:          p.Currency.String(),
		Amount:            p.Amount,
		ProcessingFees:    p.ProcessingFees,
		TotalAmount:       p.TotalAmount,
		AllocatedAmount:   p.AllocatedAmount,
		UnallocatedAmount: p.UnallocatedAmount,
		IsFullyAllocated:  p.IsFullyAllocated,
		PaymentDate:       valueobject.FormatBusinessDate(p.PaymentDate),
		Reference:         p.Reference,
		CreatedBy:         p.CreatedBy,
		UpdatedBy:         p.UpdatedBy,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
}

func toAllocationResponse(a *settlement.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:              a.ID,
		PaymentID:       a.PaymentID,
		InvoiceID:       a.InvoiceID,
		PartnerID:       a.PartnerID,
		Currency:        a.Currency.String(),
		Amount:          a.Amount,
		BaseAmount:      a.BaseAmount,
		Rate:            a.Rate,
		RateDate:        valueobject.FormatBusinessDate(a.RateDate),
		TransactionDate: valueobject.FormatBusinessDate(a.TransactionDate),
		ReversalOf:      a.ReversalOf,
		CreatedBy:       a.CreatedBy,
		CreatedAt:       a.CreatedAt,
	}
}

func toLedgerEntryResponse(e *settlement.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:              e.ID,
		Seq:             e.Seq,
		PartnerID:       e.PartnerID,
		Currency:        e.Currency.String(),
		Amount:          e.Amount,
		BaseAmount:      e.BaseAmount,
		Rate:            e.Rate,
		ReferenceType:   string(e.ReferenceType),
		ReferenceID:     e.ReferenceID,
		InvoiceID:       e.InvoiceID,
		PaymentID:       e.PaymentID,
		TransactionDate: valueobject.FormatBusinessDate(e.TransactionDate),
		CreatedBy:       e.CreatedBy,
		CreatedAt:       e.CreatedAt,
	}
}

// ToBalanceReportResponse converts a domain report for transport and export
func ToBalanceReportResponse(r *settlement.BalanceReport, partnerName string) *BalanceReportResponse {
	rows := make([]BalanceRowResponse, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = BalanceRowResponse{
			Currency:        row.Currency.String(),
			Leftover:        row.Leftover,
			Unpaid:          row.Unpaid,
			PartiallyPaid:   row.PartiallyPaid,
			Outstanding:     row.Outstanding,
			Overdue:         row.Overdue,
			Rate:            row.Rate,
			RateDate:        valueobject.FormatBusinessDate(row.RateDate),
			LeftoverBase:    row.LeftoverBase,
			OutstandingBase: row.OutstandingBase,
			OverdueBase:     row.OverdueBase,
		}
	}
	return &BalanceReportResponse{
		PartnerID:            r.PartnerID,
		PartnerName:          partnerName,
		AsOf:                 valueobject.FormatBusinessDate(r.AsOf),
		BaseCurrency:         r.BaseCurrency.String(),
		Rows:                 rows,
		TotalLeftoverBase:    r.TotalLeftoverBase,
		TotalOutstandingBase: r.TotalOutstandingBase,
		TotalOverdueBase:     r.TotalOverdueBase,
		GeneratedAt:          r.GeneratedAt,
	}
}
