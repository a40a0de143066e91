package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LedgerService reads the ledger entry log
type LedgerService struct {
	repos TransactionalRepositories
	refs  referenceChecker
	cfg   serviceConfig
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(repos TransactionalRepositories, partners settlement.PartnerDirectory, opts ...Option) *LedgerService {
	return &LedgerService{
		repos: repos,
		refs:  referenceChecker{partners: partners},
		cfg:   newServiceConfig(opts),
	}
}

// ListByPartner returns the partner's entries within [from, to], ordered by
// transaction date then insertion order. A zero bound is open.
func (s *LedgerService) ListByPartner(ctx context.Context, partnerID uuid.UUID, from, to time.Time) ([]LedgerEntryResponse, error) {
	if _, err := s.refs.partner(ctx, partnerID); err != nil {
		return nil, err
	}
	dates := shared.DateRange{}
	if !from.IsZero() {
		dates.From = valueobject.BusinessDate(from)
	}
	if !to.IsZero() {
		dates.To = valueobject.BusinessDate(to)
	}
	if !dates.From.IsZero() && !dates.To.IsZero() && dates.To.Before(dates.From) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Date range end is before its start")
	}

	entries, err := s.repos.Ledger().ListByPartner(ctx, partnerID, dates)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = toLedgerEntryResponse(&entries[i])
	}
	return out, nil
}

// LedgerTotalsResponse is one currency's balance recomputed from the entry log.
// Net is the signed native sum of the entries.
type LedgerTotalsResponse struct {
	Currency    string          `json:"currency"`
	AsOf        string          `json:"as_of"`
	Net         decimal.Decimal `json:"net"`
	Invoiced    decimal.Decimal `json:"invoiced"`
	Paid        decimal.Decimal `json:"paid"`
	Allocated   decimal.Decimal `json:"allocated"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Leftover    decimal.Decimal `json:"leftover"`
}

// Recompute sums the partner's entries in currency up to asOf from the entry
// log alone. A currency without entries yields zero totals.
func (s *LedgerService) Recompute(ctx context.Context, partnerID uuid.UUID, currency string, asOf time.Time) (*LedgerTotalsResponse, error) {
	c, err := s.refs.currency(ctx, currency)
	if err != nil {
		return nil, err
	}
	day := s.cfg.dateOrToday(asOf)
	entries, err := s.ListByPartnerEntries(ctx, partnerID, day)
	if err != nil {
		return nil, err
	}
	t, ok := settlement.RecomputeTotals(entries, day)[c]
	if !ok {
		t = settlement.NewLedgerTotals(c)
	}
	return &LedgerTotalsResponse{
		Currency:    c.String(),
		AsOf:        valueobject.FormatBusinessDate(day),
		Net:         t.Net,
		Invoiced:    t.Invoiced,
		Paid:        t.Paid,
		Allocated:   t.Allocated,
		Outstanding: t.Outstanding(),
		Leftover:    t.Leftover(),
	}, nil
}

// ListByPartnerEntries returns raw entries up to asOf
func (s *LedgerService) ListByPartnerEntries(ctx context.Context, partnerID uuid.UUID, asOf time.Time) ([]settlement.LedgerEntry, error) {
	if _, err := s.refs.partner(ctx, partnerID); err != nil {
		return nil, err
	}
	return s.repos.Ledger().ListByPartner(ctx, partnerID, shared.DateRange{To: valueobject.BusinessDate(asOf)})
}
