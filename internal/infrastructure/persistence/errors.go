package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
)

// SQLSTATE codes the settlement store reacts to
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
)

const reversalOfConstraint = "uq_allocations_reversal_of"

// translateError maps driver errors onto domain errors. Serialization
// failures and deadlocks become CONCURRENT_MODIFICATION so the allocation
// engine retries them; a second reversal of the same allocation becomes
// ALLOCATION_ALREADY_REVERSED. Anything else is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return shared.NewDomainError(shared.CodeConcurrentModification, "Transaction aborted by a concurrent update: "+pgErr.Message)
		case sqlStateUniqueViolation:
			if pgErr.ConstraintName == reversalOfConstraint {
				return settlement.ErrAllocationAlreadyReversed
			}
		}
		return err
	}

	// SQLite reports constraint and lock failures only through the message
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: allocations.reversal_of"):
		return settlement.ErrAllocationAlreadyReversed
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database table is locked"):
		return shared.NewDomainError(shared.CodeConcurrentModification, "Transaction aborted by a concurrent update: "+msg)
	}
	return err
}
