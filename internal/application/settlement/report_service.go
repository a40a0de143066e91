package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// ReportFormat is an output format for balance reports
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatPDF  ReportFormat = "pdf"
)

// ParseReportFormat parses a format name, defaulting to JSON
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ReportFormatJSON, nil
	case ReportFormatJSON, ReportFormatXLSX, ReportFormatPDF:
		return f, nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unsupported report format %q", s))
}

// ReportRenderer renders a balance report into a document
type ReportRenderer interface {
	// Render returns the document bytes and its content type
	Render(report *BalanceReportResponse, format ReportFormat) ([]byte, string, error)
}

// ReportArchive stores rendered reports
type ReportArchive interface {
	// Archive stores data under key and returns the stored object's key
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ExportedReport is a rendered balance report
type ExportedReport struct {
	Filename    string
	ContentType string
	Data        []byte
	ArchiveKey  string
}

// ReportService builds partner balance reports
type ReportService struct {
	snapshot SnapshotScope
	refs     referenceChecker
	renderer ReportRenderer
	archive  ReportArchive
	cfg      serviceConfig
}

// NewReportService creates a new ReportService. renderer and archive may be nil
// when only JSON reports are served.
func NewReportService(snapshot SnapshotScope, partners settlement.PartnerDirectory, renderer ReportRenderer, archive ReportArchive, opts ...Option) *ReportService {
	return &ReportService{
		snapshot: snapshot,
		refs:     referenceChecker{partners: partners},
		renderer: renderer,
		archive:  archive,
		cfg:      newServiceConfig(opts),
	}
}

// BuildReport computes the partner's balances as of asOf inside one snapshot.
// A missing rate for any currency with a balance fails the whole report.
func (s *ReportService) BuildReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time) (*BalanceReportResponse, error) {
	start := time.Now()
	resp, err := s.build(ctx, partnerID, asOf)
	s.cfg.metrics.ReportBuilt(ctx, string(ReportFormatJSON), resultLabel(err), time.Since(start))
	return resp, err
}

// ExportReport builds the report and renders it as format. When an archive is
// configured the document is also stored there.
func (s *ReportService) ExportReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time, format ReportFormat) (*ExportedReport, error) {
	if format == ReportFormatJSON {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "JSON reports are not exported as documents")
	}
	if s.renderer == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Report export is not configured")
	}

	start := time.Now()
	out, err := s.export(ctx, partnerID, asOf, format)
	s.cfg.metrics.ReportBuilt(ctx, string(format), resultLabel(err), time.Since(start))
	return out, err
}

func (s *ReportService) export(ctx context.Context, partnerID uuid.UUID, asOf time.Time, format ReportFormat) (*ExportedReport, error) {
	report, err := s.build(ctx, partnerID, asOf)
	if err != nil {
		return nil, err
	}
	data, contentType, err := s.renderer.Render(report, format)
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", format, err)
	}

	out := &ExportedReport{
		Filename:    fmt.Sprintf("balance_%s_%s.%s", partnerID, report.AsOf, format),
		ContentType: contentType,
		Data:        data,
	}
	if s.archive != nil {
		key := fmt.Sprintf("reports/%s/%s.%s", partnerID, report.AsOf, format)
		stored, err := s.archive.Archive(ctx, key, data, contentType)
		if err != nil {
			// The caller still gets the document; archiving is best effort.
			s.cfg.logger.Warn("Failed to archive balance report", zap.String("key", key), zap.Error(err))
		} else {
			out.ArchiveKey = stored
		}
	}
	return out, nil
}

func (s *ReportService) build(ctx context.Context, partnerID uuid.UUID, asOf time.Time) (*BalanceReportResponse, error) {
	partner, err := s.refs.partner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	day := s.cfg.dateOrToday(asOf)

	var report *settlement.BalanceReport
	err = s.snapshot.Read(ctx, func(repos TransactionalRepositories) error {
		invoices, err := repos.Invoices().FindOpenByPartner(ctx, partnerID, day)
		if err != nil {
			return err
		}
		payments, err := repos.Payments().FindOpenByPartner(ctx, partnerID, day)
		if err != nil {
			return err
		}
		report, err = settlement.BuildBalanceReport(ctx, partnerID, day, invoices, payments, s.cfg.resolver(repos))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cfg.logger.Debug("Balance report built",
		zap.String("partner_id", partnerID.String()),
		zap.String("as_of", valueobject.FormatBusinessDate(day)),
		zap.Int("rows", len(report.Rows)),
		zap.String("total_outstanding_base", report.TotalOutstandingBase.StringFixed(valueobject.MoneyScale)),
	)
	return ToBalanceReportResponse(report, partner.Name), nil
}

func resultLabel(err error) string {
	if err == nil {
		return ResultSuccess
	}
	if code := shared.CodeOf(err); code != "" {
		return code
	}
	return ResultFailure
}
