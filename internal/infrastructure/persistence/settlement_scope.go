package persistence

import (
	"context"
	"database/sql"

	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/settlement"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Repositories handed to fn share the transaction; errors roll it back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a read-committed transaction. Rows loaded through
// FindByIDForUpdate stay locked until commit.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
	return translateError(err)
}

// GormSnapshotScope implements SnapshotScope with a read-only transaction at
// the configured isolation level (repeatable read by default).
type GormSnapshotScope struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
}

// NewGormSnapshotScope creates a new GormSnapshotScope.
// Pass sql.LevelDefault for drivers without repeatable read, such as SQLite.
func NewGormSnapshotScope(db *gorm.DB, isolation sql.IsolationLevel) *GormSnapshotScope {
	return &GormSnapshotScope{db: db, isolation: isolation}
}

// ParseIsolationLevel maps a configuration value onto sql.IsolationLevel.
// Unknown values yield repeatable read.
func ParseIsolationLevel(s string) sql.IsolationLevel {
	switch s {
	case "default":
		return sql.LevelDefault
	case "read_committed":
		return sql.LevelReadCommitted
	case "serializable":
		return sql.LevelSerializable
	default:
		return sql.LevelRepeatableRead
	}
}

// Read runs fn inside a single snapshot. Every read in fn sees the same data.
func (s *GormSnapshotScope) Read(ctx context.Context, fn func(repos appsettlement.TransactionalRepositories) error) error {
	opts := &sql.TxOptions{Isolation: s.isolation, ReadOnly: s.isolation != sql.LevelDefault}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	}, opts)
	return translateError(err)
}

// GormRepositories provides all settlement repositories bound to one *gorm.DB,
// which is either the root handle or a transaction.
type GormRepositories struct {
	tx *gorm.DB
}

// NewGormRepositories binds the settlement repositories to db
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{tx: db}
}

// Invoices returns the invoice repository
func (r *GormRepositories) Invoices() settlement.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// Payments returns the payment repository
func (r *GormRepositories) Payments() settlement.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// Allocations returns the allocation repository
func (r *GormRepositories) Allocations() settlement.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// Ledger returns the ledger entry repository
func (r *GormRepositories) Ledger() settlement.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// Rates returns the exchange rate repository
func (r *GormRepositories) Rates() settlement.ExchangeRateRepository {
	return NewGormExchangeRateRepository(r.tx)
}

var (
	_ appsettlement.TransactionScope          = (*GormTransactionScope)(nil)
	_ appsettlement.SnapshotScope             = (*GormSnapshotScope)(nil)
	_ appsettlement.TransactionalRepositories = (*GormRepositories)(nil)
)
