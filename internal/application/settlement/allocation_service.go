package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/logistics/settlement/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used in logs, metrics and profiles
const (
	OperationAllocate = "allocate"
	OperationReverse  = "reverse_allocation"
)

// AllocationService allocates payments to invoices.
//
// Every allocation loads the payment and then the invoice with row locks,
// applies the change in memory and writes payment, invoice, allocation and
// ledger entry in one transaction. Version conflicts and serialization
// failures surface as CONCURRENT_MODIFICATION and are retried.
type AllocationService struct {
	scope     TransactionScope
	repos     TransactionalRepositories
	allocator *settlement.Allocator
	cfg       serviceConfig
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(scope TransactionScope, repos TransactionalRepositories, opts ...Option) *AllocationService {
	cfg := newServiceConfig(opts)
	return &AllocationService{
		scope:     scope,
		repos:     repos,
		allocator: settlement.NewAllocator(cfg.allocationPolicy),
		cfg:       cfg,
	}
}

// Allocate allocates req.Amount of a payment to an invoice
func (s *AllocationService) Allocate(ctx context.Context, actor string, req AllocateRequest) (*AllocationResult, error) {
	if err := valueobject.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	date := s.cfg.dateOrToday(req.TransactionDate)
	actor = shared.NormalizeActor(actor)

	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", OperationAllocate)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.StringFixed(valueobject.MoneyScale),
		telemetry.SpanAttrActor, actor,
	)

	var (
		result   *AllocationResult
		events   []shared.DomainEvent
		attempts int
		err      error
	)
	start := time.Now()
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(OperationAllocate), func(c context.Context) {
		attempts, err = s.withRetry(c, OperationAllocate, func() error {
			return s.scope.Execute(c, func(repos TransactionalRepositories) error {
				payment, invoice, err := lockPair(c, repos, req.PaymentID, req.InvoiceID)
				if err != nil {
					return err
				}
				if err := s.allocator.Check(payment, invoice, req.Amount); err != nil {
					return err
				}
				rate, err := s.cfg.resolver(repos).Resolve(c, invoice.Currency, date)
				if err != nil {
					return err
				}
				posting, err := s.allocator.Post(payment, invoice, req.Amount, rate, date, actor)
				if err != nil {
					return err
				}
				if err := persistPosting(c, repos, payment, invoice, posting); err != nil {
					return err
				}

				telemetry.SetAttributes(span,
					telemetry.SpanAttrAllocationID, posting.Allocation.ID.String(),
					telemetry.SpanAttrPartnerID, payment.PartnerID.String(),
					telemetry.SpanAttrCurrency, string(invoice.Currency),
					telemetry.SpanAttrRateDate, valueobject.FormatBusinessDate(rate.EffectiveDate),
				)
				events = append(aggregateEvents(payment, invoice), settlement.NewAllocationPostedEvent(posting.Allocation))
				result = newAllocationResult(posting.Allocation, payment, invoice)
				return nil
			})
		})
	})
	s.finish(ctx, span, OperationAllocate, attempts, err, start)
	if err != nil {
		return nil, err
	}
	result.Attempts = attempts

	s.cfg.logger.Info("Allocation posted",
		zap.String("allocation_id", result.Allocation.ID.String()),
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("invoice_id", req.InvoiceID.String()),
		zap.String("amount", req.Amount.StringFixed(valueobject.MoneyScale)),
		zap.String("base_amount", result.Allocation.BaseAmount.StringFixed(valueobject.MoneyScale)),
		zap.Int("attempts", result.Attempts),
		zap.String("actor", actor),
	)
	s.cfg.publish(ctx, events...)
	return result, nil
}

// ReverseAllocation appends a negating allocation for allocationID and
// restores the payment and invoice balances. The original is not modified.
func (s *AllocationService) ReverseAllocation(ctx context.Context, actor string, allocationID uuid.UUID, date time.Time) (*AllocationResult, error) {
	day := s.cfg.dateOrToday(date)
	actor = shared.NormalizeActor(actor)

	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", OperationReverse)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllocationID, allocationID.String(),
		telemetry.SpanAttrActor, actor,
	)

	var (
		result   *AllocationResult
		events   []shared.DomainEvent
		attempts int
		err      error
	)
	start := time.Now()
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(OperationReverse), func(c context.Context) {
		attempts, err = s.withRetry(c, OperationReverse, func() error {
			return s.scope.Execute(c, func(repos TransactionalRepositories) error {
				original, err := repos.Allocations().FindByID(c, allocationID)
				if err != nil {
					return err
				}
				if original == nil {
					return settlement.NewAllocationNotFoundError(allocationID)
				}

				payment, invoice, err := lockPair(c, repos, original.PaymentID, original.InvoiceID)
				if err != nil {
					return err
				}
				// Checked under the payment lock so concurrent reversals serialize here.
				existing, err := repos.Allocations().FindReversalOf(c, original.ID)
				if err != nil {
					return err
				}
				rate, err := s.cfg.resolver(repos).Resolve(c, original.Currency, day)
				if err != nil {
					return err
				}
				posting, err := s.allocator.Reverse(original, existing != nil, payment, invoice, rate, day, actor)
				if err != nil {
					return err
				}
				if err := persistPosting(c, repos, payment, invoice, posting); err != nil {
					return err
				}

				events = append(aggregateEvents(payment, invoice), settlement.NewAllocationReversedEvent(posting.Allocation))
				result = newAllocationResult(posting.Allocation, payment, invoice)
				return nil
			})
		})
	})
	s.finish(ctx, span, OperationReverse, attempts, err, start)
	if err != nil {
		return nil, err
	}
	result.Attempts = attempts

	s.cfg.logger.Info("Allocation reversed",
		zap.String("allocation_id", result.Allocation.ID.String()),
		zap.String("reversal_of", allocationID.String()),
		zap.String("amount", result.Allocation.Amount.StringFixed(valueobject.MoneyScale)),
		zap.String("actor", actor),
	)
	s.cfg.publish(ctx, events...)
	return result, nil
}

// GetAllocation returns an allocation by ID
func (s *AllocationService) GetAllocation(ctx context.Context, id uuid.UUID) (*AllocationResponse, error) {
	a, err := s.repos.Allocations().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, settlement.NewAllocationNotFoundError(id)
	}
	resp := toAllocationResponse(a)
	return &resp, nil
}

// ListByPayment returns all allocations of a payment, reversals included
func (s *AllocationService) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]AllocationResponse, error) {
	allocations, err := s.repos.Allocations().FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return toAllocationResponses(allocations), nil
}

// ListByInvoice returns all allocations against an invoice, reversals included
func (s *AllocationService) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]AllocationResponse, error) {
	allocations, err := s.repos.Allocations().FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return toAllocationResponses(allocations), nil
}

// withRetry runs fn, retrying CONCURRENT_MODIFICATION failures up to maxRetries
// times with linear backoff. Any other error is returned immediately.
func (s *AllocationService) withRetry(ctx context.Context, op string, fn func() error) (int, error) {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, shared.ErrConcurrentModification) || attempt > s.cfg.maxRetries {
			return attempt, err
		}

		s.cfg.logger.Warn("Concurrent modification, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(s.cfg.retryBackoff * time.Duration(attempt)):
		}
	}
}

func (s *AllocationService) finish(ctx context.Context, span trace.Span, op string, attempts int, err error, start time.Time) {
	telemetry.SetAttributes(span, telemetry.SpanAttrAttempts, attempts)
	defer telemetry.EndSpan(span, err)

	outcome := ResultSuccess
	if err != nil {
		outcome = shared.CodeOf(err)
		if outcome == "" {
			outcome = ResultFailure
		}
		s.cfg.logger.Debug("Allocation rejected",
			zap.String("operation", op),
			zap.String("code", outcome),
			zap.Error(err),
		)
	}
	s.cfg.metrics.AllocationCompleted(ctx, op, outcome, attempts, time.Since(start))
}

// lockPair loads the payment then the invoice with row locks. The fixed order
// keeps two allocations sharing either document from deadlocking.
func lockPair(ctx context.Context, repos TransactionalRepositories, paymentID, invoiceID uuid.UUID) (*settlement.Payment, *settlement.Invoice, error) {
	payment, err := repos.Payments().FindByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, settlement.NewPaymentNotFoundError(paymentID)
	}
	invoice, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if invoice == nil {
		return nil, nil, settlement.NewInvoiceNotFoundError(invoiceID)
	}
	return payment, invoice, nil
}

func persistPosting(ctx context.Context, repos TransactionalRepositories, payment *settlement.Payment, invoice *settlement.Invoice, posting *settlement.Posting) error {
	if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
		return err
	}
	if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
		return err
	}
	if err := repos.Allocations().Create(ctx, posting.Allocation); err != nil {
		return err
	}
	_, _, err := repos.Ledger().Append(ctx, posting.Entry)
	return err
}

func newAllocationResult(a *settlement.Allocation, p *settlement.Payment, i *settlement.Invoice) *AllocationResult {
	return &AllocationResult{
		Allocation: toAllocationResponse(a),
		Payment:    toPaymentResponse(p),
		Invoice:    toInvoiceResponse(i),
	}
}

func toAllocationResponses(allocations []settlement.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocations))
	for i := range allocations {
		out[i] = toAllocationResponse(&allocations[i])
	}
	return out
}
