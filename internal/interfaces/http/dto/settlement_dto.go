package dto

import "github.com/shopspring/decimal"

// DateLayout is the layout of business dates in requests and query strings
const DateLayout = "2006-01-02"

// CreateInvoiceRequest is the body of POST /invoices
type CreateInvoiceRequest struct {
	Number      string          `json:"number" binding:"required,max=64" example:"INV-2025-0001"`
	Direction   string          `json:"direction" binding:"required,oneof=RECEIVABLE PAYABLE receivable payable" example:"RECEIVABLE"`
	PartnerID   string          `json:"partner_id" binding:"required,uuid"`
	Currency    string          `json:"currency" binding:"required,len=3,alpha" example:"USD"`
	Amount      decimal.Decimal `json:"amount" binding:"money2dp" swaggertype:"string" example:"1250.00"`
	IssueDate   string          `json:"issue_date" binding:"omitempty,datetime=2006-01-02" example:"2025-01-10"`
	DueDate     string          `json:"due_date" binding:"omitempty,datetime=2006-01-02" example:"2025-02-10"`
	Description string          `json:"description" binding:"max=500"`
}

// CreatePaymentRequest is the body of POST /payments
type CreatePaymentRequest struct {
	Number      string          `json:"number" binding:"required,max=64" example:"PAY-2025-0001"`
	Direction   string          `json:"direction" binding:"required,oneof=INCOMING OUTGOING incoming outgoing" example:"INCOMING"`
	PartnerID   string          `json:"partner_id" binding:"required,uuid"`
	Currency    string          `json:"currency" binding:"required,len=3,alpha" example:"USD"`
	Amount      decimal.Decimal `json:"amount" binding:"money2dp" swaggertype:"string" example:"1000.00"`
	Fees        decimal.Decimal `json:"processing_fees" binding:"money2dp" swaggertype:"string" example:"12.50"`
	PaymentDate string          `json:"payment_date" binding:"omitempty,datetime=2006-01-02" example:"2025-01-15"`
	Reference   string          `json:"reference" binding:"max=255"`
}

// CreateAllocationRequest is the body of POST /allocations
type CreateAllocationRequest struct {
	PaymentID       string          `json:"payment_id" binding:"required,uuid"`
	InvoiceID       string          `json:"invoice_id" binding:"required,uuid"`
	Amount          decimal.Decimal `json:"amount" binding:"money2dp" swaggertype:"string" example:"500.00"`
	TransactionDate string          `json:"transaction_date" binding:"omitempty,datetime=2006-01-02" example:"2025-01-15"`
}

// ReverseAllocationRequest is the optional body of POST /allocations/:id/reverse
type ReverseAllocationRequest struct {
	TransactionDate string `json:"transaction_date" binding:"omitempty,datetime=2006-01-02"`
}

// InvoiceListQuery holds the query parameters of GET /invoices
type InvoiceListQuery struct {
	PartnerID string `form:"partner_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=OPEN PARTIALLY_PAID CLOSED"`
	Direction string `form:"direction" binding:"omitempty,oneof=RECEIVABLE PAYABLE"`
	Currency  string `form:"currency" binding:"omitempty,len=3,alpha"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PaymentListQuery holds the query parameters of GET /payments
type PaymentListQuery struct {
	PartnerID      string `form:"partner_id" binding:"omitempty,uuid"`
	Direction      string `form:"direction" binding:"omitempty,oneof=INCOMING OUTGOING"`
	Currency       string `form:"currency" binding:"omitempty,len=3,alpha"`
	FullyAllocated *bool  `form:"fully_allocated"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// LedgerQuery holds the query parameters of GET /partners/:id/ledger
type LedgerQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// BalanceQuery holds the query parameters of GET /partners/:id/balance
type BalanceQuery struct {
	AsOf   string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
	Format string `form:"format" binding:"omitempty,oneof=json xlsx pdf"`
}

// LedgerTotalsQuery holds the query parameters of GET /partners/:id/ledger/totals
type LedgerTotalsQuery struct {
	Currency string `form:"currency" binding:"required,len=3"`
	AsOf     string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// RateQuery holds the query parameters of GET /exchange-rates
type RateQuery struct {
	Currency string `form:"currency" binding:"required,len=3,alpha"`
	Date     string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// RateHistoryQuery holds the query parameters of GET /exchange-rates/history
type RateHistoryQuery struct {
	Currency string `form:"currency" binding:"omitempty,len=3,alpha"`
	From     string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To       string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// RateSyncRequest is the optional body of POST /exchange-rates/sync
type RateSyncRequest struct {
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02" example:"2025-01-10"`
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
