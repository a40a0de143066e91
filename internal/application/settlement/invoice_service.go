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

// InvoiceService issues and reads invoices
type InvoiceService struct {
	scope TransactionScope
	repos TransactionalRepositories
	refs  referenceChecker
	cfg   serviceConfig
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope TransactionScope,
	repos TransactionalRepositories,
	partners settlement.PartnerDirectory,
	currencies settlement.CurrencyCatalog,
	opts ...Option,
) *InvoiceService {
	return &InvoiceService{
		scope: scope,
		repos: repos,
		refs:  referenceChecker{partners: partners, currencies: currencies},
		cfg:   newServiceConfig(opts),
	}
}

// RecordInvoice issues an invoice and logs its opening ledger entry in one transaction
func (s *InvoiceService) RecordInvoice(ctx context.Context, actor string, req RecordInvoiceRequest) (*InvoiceResponse, error) {
	if _, err := s.refs.partner(ctx, req.PartnerID); err != nil {
		return nil, err
	}
	currency, err := s.refs.currency(ctx, req.Currency)
	if err != nil {
		return nil, err
	}

	inv, err := settlement.NewInvoice(settlement.NewInvoiceParams{
		Number:      req.Number,
		Direction:   settlement.InvoiceDirection(strings.ToUpper(req.Direction)),
		PartnerID:   req.PartnerID,
		Currency:    currency,
		Amount:      req.Amount,
		IssueDate:   s.cfg.dateOrToday(req.IssueDate),
		DueDate:     req.DueDate,
		Description: req.Description,
		Actor:       actor,
	})
	if err != nil {
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		rate, err := s.cfg.resolver(repos).Resolve(ctx, inv.Currency, inv.IssueDate)
		if err != nil {
			return err
		}
		entry, err := settlement.IssuanceEntry(inv, rate)
		if err != nil {
			return err
		}
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		_, _, err = repos.Ledger().Append(ctx, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cfg.logger.Info("Invoice issued",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.String("partner_id", inv.PartnerID.String()),
		zap.String("amount", inv.Outstanding().String()),
		zap.String("actor", inv.CreatedBy),
	)
	s.cfg.publish(ctx, aggregateEvents(inv)...)

	resp := toInvoiceResponse(inv)
	return &resp, nil
}

// GetInvoice returns an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repos.Invoices().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, settlement.NewInvoiceNotFoundError(id)
	}
	resp := toInvoiceResponse(inv)
	return &resp, nil
}

// ListInvoices returns a page of invoices
func (s *InvoiceService) ListInvoices(ctx context.Context, f InvoiceListFilter) (*shared.Paginated[InvoiceResponse], error) {
	filter := settlement.InvoiceFilter{Filter: pageFilter(f.Page, f.PageSize), PartnerID: f.PartnerID}
	if f.Status != "" {
		status := settlement.InvoiceStatus(strings.ToUpper(f.Status))
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid invoice status "+f.Status)
		}
		filter.Status = &status
	}
	if f.Direction != "" {
		dir := settlement.InvoiceDirection(strings.ToUpper(f.Direction))
		if !dir.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid invoice direction "+f.Direction)
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

	invoices, err := s.repos.Invoices().FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repos.Invoices().Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		items[i] = toInvoiceResponse(&invoices[i])
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

func pageFilter(page, pageSize int) shared.Filter {
	f := shared.DefaultFilter()
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 && pageSize <= 100 {
		f.PageSize = pageSize
	}
	return f
}
