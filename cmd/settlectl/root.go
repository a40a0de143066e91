package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/bootstrap"
	"github.com/logistics/settlement/internal/infrastructure/config"
	"github.com/logistics/settlement/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var version = "dev"

type ledgerLister interface {
	ListByPartner(ctx context.Context, partnerID uuid.UUID, from, to time.Time) ([]appsettlement.LedgerEntryResponse, error)
}

type reportBuilder interface {
	BuildReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time) (*appsettlement.BalanceReportResponse, error)
	ExportReport(ctx context.Context, partnerID uuid.UUID, asOf time.Time, format appsettlement.ReportFormat) (*appsettlement.ExportedReport, error)
}

type rateSyncer interface {
	RunOnce(ctx context.Context, date time.Time) (*appsettlement.SyncResult, error)
}

// services is what the subcommands need from the engine
type services struct {
	Ledger  ledgerLister
	Reports reportBuilder
	Sync    rateSyncer
}

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	configPath string
	logLevel   string
}

// opener connects to the engine. The returned func releases it.
type opener func(ctx context.Context, opts globalOptions) (*services, func(), error)

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	opts := globalOptions{}
	root := &cobra.Command{
		Use:   "settlectl",
		Short: "Operate the settlement engine from the command line",
		Long: `settlectl runs settlement tasks directly against the database configured in
config.toml or SETTLE_* environment variables. A .env file in the working
directory is loaded first.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.toml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")

	connect := func(cmd *cobra.Command) (*services, func(), error) {
		return open(cmd.Context(), opts)
	}
	root.AddCommand(
		newSyncRatesCmd(connect),
		newReportCmd(connect),
		newLedgerCmd(connect),
	)
	return root
}

// openServices wires the real engine through bootstrap
func openServices(ctx context.Context, opts globalOptions) (*services, func(), error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(&logger.Config{
		Level:       opts.logLevel,
		Format:      "console",
		Output:      "stderr",
		TimeFormat:  "15:04:05",
		Service:     "settlectl",
		Environment: cfg.App.Env,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		_ = logger.Sync(log)
		return nil, nil, err
	}
	release := func() {
		if err := app.Close(context.Background()); err != nil {
			log.Warn("Error releasing resources", zap.Error(err))
		}
		_ = logger.Sync(log)
	}
	return &services{Ledger: app.Ledger, Reports: app.Reports, Sync: app.Synchronizer}, release, nil
}

// parseDateFlag returns the zero time for an empty value
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}

func parsePartnerFlag(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, fmt.Errorf("--partner is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--partner must be a UUID, got %q", value)
	}
	return id, nil
}
