package settlement

import (
	"context"

	"github.com/logistics/settlement/internal/domain/settlement"
)

// TransactionScope provides transactional access to settlement repositories.
// All repository operations made through the repositories passed to fn are
// part of one database transaction: committed if fn returns nil, rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// SnapshotScope runs read-only work against a single consistent snapshot
// (a repeatable-read transaction), so concurrent writers cannot make two
// reads inside fn disagree.
type SnapshotScope interface {
	Read(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all settlement repositories within a transaction.
//
// Payments and invoices are aggregate roots and are saved with a version check.
// Allocations and ledger entries are insert-only.
type TransactionalRepositories interface {
	Invoices() settlement.InvoiceRepository
	Payments() settlement.PaymentRepository
	Allocations() settlement.AllocationRepository
	Ledger() settlement.LedgerEntryRepository
	Rates() settlement.ExchangeRateRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	invoices    settlement.InvoiceRepository
	payments    settlement.PaymentRepository
	allocations settlement.AllocationRepository
	ledger      settlement.LedgerEntryRepository
	rates       settlement.ExchangeRateRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	invoices settlement.InvoiceRepository,
	payments settlement.PaymentRepository,
	allocations settlement.AllocationRepository,
	ledger settlement.LedgerEntryRepository,
	rates settlement.ExchangeRateRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoices:    invoices,
		payments:    payments,
		allocations: allocations,
		ledger:      ledger,
		rates:       rates,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Read runs the function without a snapshot (for testing/compatibility).
func (s *NoOpTransactionScope) Read(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Invoices returns the invoice repository.
func (s *NoOpTransactionScope) Invoices() settlement.InvoiceRepository { return s.invoices }

// Payments returns the payment repository.
func (s *NoOpTransactionScope) Payments() settlement.PaymentRepository { return s.payments }

// Allocations returns the allocation repository.
func (s *NoOpTransactionScope) Allocations() settlement.AllocationRepository { return s.allocations }

// Ledger returns the ledger entry repository.
func (s *NoOpTransactionScope) Ledger() settlement.LedgerEntryRepository { return s.ledger }

// Rates returns the exchange rate repository.
func (s *NoOpTransactionScope) Rates() settlement.ExchangeRateRepository { return s.rates }

// Ensure NoOpTransactionScope implements the scope interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ SnapshotScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
