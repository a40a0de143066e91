package persistence

import (
	"strings"

	"github.com/logistics/settlement/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxPageSize = 200

// InvoiceSortFields whitelists the invoice columns a listing may order by
var InvoiceSortFields = sortFields{
	def: "issue_date",
	allowed: map[string]bool{
		"created_at":          true,
		"issue_date":          true,
		"due_date":            true,
		"number":              true,
		"status":              true,
		"currency":            true,
		"total_amount":        true,
		"outstanding_balance": true,
	},
}

// PaymentSortFields whitelists the payment columns a listing may order by
var PaymentSortFields = sortFields{
	def: "payment_date",
	allowed: map[string]bool{
		"created_at":         true,
		"payment_date":       true,
		"number":             true,
		"currency":           true,
		"total_amount":       true,
		"unallocated_amount": true,
	},
}

type sortFields struct {
	def     string
	allowed map[string]bool
}

// column returns requested when whitelisted, otherwise the default column
func (s sortFields) column(requested string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if s.allowed[requested] {
		return requested
	}
	return s.def
}

// applyOrdering orders by a whitelisted column, then by id so pages are stable
func applyOrdering(query *gorm.DB, f shared.Filter, fields sortFields) *gorm.DB {
	desc := !strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc")
	return query.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: fields.column(f.OrderBy)}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}})
}

// applyPagination limits the query to the filter's page. A non-positive page
// size returns every row.
func applyPagination(query *gorm.DB, f shared.Filter) *gorm.DB {
	if f.PageSize <= 0 {
		return query
	}
	size := min(f.PageSize, maxPageSize)
	page := shared.Filter{Page: f.Page, PageSize: size}
	return query.Offset(page.Offset()).Limit(size)
}
