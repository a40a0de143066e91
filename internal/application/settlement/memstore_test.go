package settlement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory implementation of every settlement repository.
// Execute serializes transactions and restores the previous state when fn fails.
type memStore struct {
	tx sync.Mutex
	mu sync.Mutex

	invoices    map[uuid.UUID]settlement.Invoice
	payments    map[uuid.UUID]settlement.Payment
	allocations []settlement.Allocation
	ledger      []settlement.LedgerEntry
	rates       map[string]settlement.ExchangeRate
	seq         int64

	writes          int
	paymentConflict int // number of upcoming payment saves to reject
}

func newMemStore() *memStore {
	return &memStore{
		invoices: make(map[uuid.UUID]settlement.Invoice),
		payments: make(map[uuid.UUID]settlement.Payment),
		rates:    make(map[string]settlement.ExchangeRate),
	}
}

type memState struct {
	invoices    map[uuid.UUID]settlement.Invoice
	payments    map[uuid.UUID]settlement.Payment
	allocations []settlement.Allocation
	ledger      []settlement.LedgerEntry
	rates       map[string]settlement.ExchangeRate
	seq         int64
}

func (s *memStore) snapshot() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := memState{
		invoices:    make(map[uuid.UUID]settlement.Invoice, len(s.invoices)),
		payments:    make(map[uuid.UUID]settlement.Payment, len(s.payments)),
		allocations: append([]settlement.Allocation(nil), s.allocations...),
		ledger:      append([]settlement.LedgerEntry(nil), s.ledger...),
		rates:       make(map[string]settlement.ExchangeRate, len(s.rates)),
		seq:         s.seq,
	}
	for k, v := range s.invoices {
		st.invoices[k] = v
	}
	for k, v := range s.payments {
		st.payments[k] = v
	}
	for k, v := range s.rates {
		st.rates[k] = v
	}
	return st
}

func (s *memStore) restore(st memState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices, s.payments, s.rates = st.invoices, st.payments, st.rates
	s.allocations, s.ledger, s.seq = st.allocations, st.ledger, st.seq
}

func (s *memStore) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.tx.Lock()
	defer s.tx.Unlock()
	st := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(st)
		return err
	}
	return nil
}

func (s *memStore) Read(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.tx.Lock()
	defer s.tx.Unlock()
	return fn(s)
}

func (s *memStore) Invoices() settlement.InvoiceRepository       { return memInvoices{s} }
func (s *memStore) Payments() settlement.PaymentRepository       { return memPayments{s} }
func (s *memStore) Allocations() settlement.AllocationRepository { return memAllocations{s} }
func (s *memStore) Ledger() settlement.LedgerEntryRepository     { return memLedger{s} }
func (s *memStore) Rates() settlement.ExchangeRateRepository     { return memRates{s} }

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *memStore) invoice(id uuid.UUID) settlement.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices[id]
}

func (s *memStore) payment(id uuid.UUID) settlement.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[id]
}

func (s *memStore) addRate(currency valueobject.Currency, date time.Time, rate string) {
	r, err := settlement.NewExchangeRate(currency, date, decimal.RequireFromString(rate), "test")
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[rateKey(r.Currency, r.Date)] = *r
}

func rateKey(c valueobject.Currency, d time.Time) string {
	return c.String() + "|" + valueobject.FormatBusinessDate(d)
}

type memInvoices struct{ s *memStore }

func (r memInvoices) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r memInvoices) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r memInvoices) FindAll(ctx context.Context, filter settlement.InvoiceFilter) ([]settlement.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.Invoice
	for _, inv := range r.s.invoices {
		if filter.PartnerID != nil && inv.PartnerID != *filter.PartnerID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r memInvoices) Count(ctx context.Context, filter settlement.InvoiceFilter) (int64, error) {
	all, err := r.FindAll(ctx, filter)
	return int64(len(all)), err
}

func (r memInvoices) FindOpenByPartner(ctx context.Context, partnerID uuid.UUID, asOf time.Time) ([]settlement.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.Invoice
	for _, inv := range r.s.invoices {
		if inv.PartnerID == partnerID && inv.OutstandingBalance.IsPositive() && !inv.IssueDate.After(asOf) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r memInvoices) Create(ctx context.Context, inv *settlement.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *inv
	stored.ClearDomainEvents()
	r.s.invoices[inv.ID] = stored
	r.s.writes++
	return nil
}

func (r memInvoices) SaveWithLock(ctx context.Context, inv *settlement.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.invoices[inv.ID]
	if !ok || current.Version != inv.Version-1 {
		return shared.ErrConcurrentModification
	}
	stored := *inv
	stored.ClearDomainEvents()
	r.s.invoices[inv.ID] = stored
	r.s.writes++
	return nil
}

type memPayments struct{ s *memStore }

func (r memPayments) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memPayments) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r memPayments) FindAll(ctx context.Context, filter settlement.PaymentFilter) ([]settlement.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.Payment
	for _, p := range r.s.payments {
		if filter.PartnerID != nil && p.PartnerID != *filter.PartnerID {
			continue
		}
		if filter.FullyAllocated != nil && p.IsFullyAllocated != *filter.FullyAllocated {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r memPayments) Count(ctx context.Context, filter settlement.PaymentFilter) (int64, error) {
	all, err := r.FindAll(ctx, filter)
	return int64(len(all)), err
}

func (r memPayments) FindOpenByPartner(ctx context.Context, partnerID uuid.UUID, asOf time.Time) ([]settlement.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.Payment
	for _, p := range r.s.payments {
		if p.PartnerID == partnerID && p.UnallocatedAmount.IsPositive() && !p.PaymentDate.After(asOf) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPayments) Create(ctx context.Context, p *settlement.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *p
	stored.ClearDomainEvents()
	r.s.payments[p.ID] = stored
	r.s.writes++
	return nil
}

func (r memPayments) SaveWithLock(ctx context.Context, p *settlement.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.paymentConflict > 0 {
		r.s.paymentConflict--
		return shared.ErrConcurrentModification
	}
	current, ok := r.s.payments[p.ID]
	if !ok || current.Version != p.Version-1 {
		return shared.ErrConcurrentModification
	}
	stored := *p
	stored.ClearDomainEvents()
	r.s.payments[p.ID] = stored
	r.s.writes++
	return nil
}

type memAllocations struct{ s *memStore }

func (r memAllocations) FindByID(ctx context.Context, id uuid.UUID) (*settlement.Allocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.allocations {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (r memAllocations) FindReversalOf(ctx context.Context, id uuid.UUID) (*settlement.Allocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.allocations {
		if a.ReversalOf != nil && *a.ReversalOf == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (r memAllocations) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]settlement.Allocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.Allocation
	for _, a := range r.s.allocations {
		if a.PaymentID == paymentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAllocations) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]settlement.Allocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.Allocation
	for _, a := range r.s.allocations {
		if a.InvoiceID == invoiceID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r memAllocations) Create(ctx context.Context, a *settlement.Allocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.allocations = append(r.s.allocations, *a)
	r.s.writes++
	return nil
}

type memLedger struct{ s *memStore }

func (r memLedger) Append(ctx context.Context, entry *settlement.LedgerEntry) (*settlement.LedgerEntry, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.ledger {
		if e.NaturalKey() == entry.NaturalKey() {
			return &e, false, nil
		}
	}
	r.s.seq++
	stored := *entry
	stored.Seq = r.s.seq
	r.s.ledger = append(r.s.ledger, stored)
	r.s.writes++
	return &stored, true, nil
}

func (r memLedger) ListByPartner(ctx context.Context, partnerID uuid.UUID, dates shared.DateRange) ([]settlement.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.LedgerEntry
	for _, e := range r.s.ledger {
		if e.PartnerID == partnerID && dates.Contains(e.TransactionDate) {
			out = append(out, e)
		}
	}
	settlement.SortLedgerEntries(out)
	return out, nil
}

type memRates struct{ s *memStore }

func (r memRates) FindExact(ctx context.Context, currency valueobject.Currency, date time.Time) (*settlement.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rate, ok := r.s.rates[rateKey(currency, date)]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (r memRates) FindLatestOnOrBefore(ctx context.Context, currency valueobject.Currency, date time.Time) (*settlement.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *settlement.ExchangeRate
	for _, rate := range r.s.rates {
		if rate.Currency != currency || rate.Date.After(date) {
			continue
		}
		if best == nil || rate.Date.After(best.Date) {
			found := rate
			best = &found
		}
	}
	return best, nil
}

func (r memRates) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rate := range r.s.rates {
		if rate.Date.Equal(valueobject.BusinessDate(date)) {
			return true, nil
		}
	}
	return false, nil
}

func (r memRates) InsertIfAbsent(ctx context.Context, rate *settlement.ExchangeRate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := rateKey(rate.Currency, rate.Date)
	if _, ok := r.s.rates[key]; ok {
		return false, nil
	}
	r.s.rates[key] = *rate
	r.s.writes++
	return true, nil
}

func (r memRates) FindAll(ctx context.Context, filter settlement.ExchangeRateFilter) ([]settlement.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []settlement.ExchangeRate
	for _, rate := range r.s.rates {
		if filter.Currency != nil && rate.Currency != *filter.Currency {
			continue
		}
		out = append(out, rate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

var (
	_ TransactionScope          = (*memStore)(nil)
	_ SnapshotScope             = (*memStore)(nil)
	_ TransactionalRepositories = (*memStore)(nil)
)
