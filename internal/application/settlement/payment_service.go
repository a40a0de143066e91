package settlement

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// PaymentService records and reads payments
type PaymentService struct {
	scope TransactionScope
	repos TransactionalRepositories
	refs  referenceChecker
	cfg   serviceConfig
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	scope TransactionScope,
	repos TransactionalRepositories,
	partners settlement.PartnerDirectory,
	currencies settlement.CurrencyCatalog,
	opts ...Option,
) *PaymentService {
	return &PaymentService{
		scope: scope,
		repos: repos,
		refs:  referenceChecker{partners: partners, currencies: currencies},
		cfg:   newServiceConfig(opts),
	}
}

// FeePolicy returns the configured fee policy
func (s *PaymentService) FeePolicy() settlement.FeePolicy {
	return s.cfg.feePolicy
}

// RecordPayment records a payment and logs its opening ledger entry in one transaction
func (s *PaymentService) RecordPayment(ctx context.Context, actor string, req RecordPaymentRequest) (*PaymentResponse, error) {
	if _, err := s.refs.partner(ctx, req.PartnerID); err != nil {
		return nil, err
	}
	currency, err := s.refs.currency(ctx, req.Currency)
	if err != nil {
		return nil, err
	}

	pay, err := settlement.NewPayment(settlement.NewPaymentParams{
		Number:      req.Number,
		Direction:   settlement.PaymentDirection(strings.ToUpper(req.Direction)),
		PartnerID:   req.PartnerID,
		Currency:    currency,
		Amount:      req.Amount,
		Fees:        req.Fees,
		FeePolicy:   s.cfg.feePolicy,
		PaymentDate: s.cfg.dateOrToday(req.PaymentDate),
		Reference:   req.Reference,
		Actor:       actor,
	})
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		rate, err := s.cfg.resolver(repos).Resolve(ctx, pay.Currency, pay.PaymentDate)
		if err != nil {
			return err
		}
		entry, err := settlement.ReceiptEntry(pay, rate)
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, pay); err != nil {
			return err
		}
		_, _, err = repos.Ledger().Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cfg.logger.Info("Payment recorded",
		zap.String("payment_id", pay.ID.String()),
		zap.String("number", pay.Number),
		zap.String("partner_id", pay.PartnerID.String()),
		zap.String("total", pay.Leftover().String()),
		zap.String("fee_policy", string(s.cfg.feePolicy)),
		zap.String("actor", pay.CreatedBy),
	)
	s.cfg.publish(ctx, aggregateEvents(pay)...)

	resp := toPaymentResponse(pay)
	return &resp, nil
}

// GetPayment returns a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	pay, err := s.repos.Payments().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pay == nil {
		return nil, settlement.NewPaymentNotFoundError(id)
	}
	resp := toPaymentResponse(pay)
	return &resp, nil
}

// ListPayments returns a page of payments
func (s *PaymentService) ListPayments(ctx context.Context, f PaymentListFilter) (*shared.Paginated[PaymentResponse], error) {
	filter := settlement.PaymentFilter{
		Filter:         pageFilter(f.Page, f.PageSize),
		PartnerID:      f.PartnerID,
		FullyAllocated: f.FullyAllocated,
	}
	if f.Direction != "" {
		dir := settlement.PaymentDirection(strings.ToUpper(f.Direction))
		if !dir.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid payment direction "+f.Direction)
		}
		filter.Direction = &dir
	}
	if f.Currency != "" {
		c, err := valueobject.ParseCurrency(f.Currency)
		if err != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
		filter.Currency = &c
	}

	payments, err := s.repos.Payments().FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Payments().Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = toPaymentResponse(&payments[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}
