package main

import (
	"encoding/json"
	"fmt"
	"os"

	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/spf13/cobra"
)

func newReportCmd(connect connectFunc) *cobra.Command {
	var partner, asOf, format, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a partner balance report",
		Long: `Builds the per-currency balance report of one partner with totals converted
to the base currency. JSON is written to stdout unless --out is given; xlsx and
pdf are written to --out, or to the report's own file name.`,
		Example: `  settlectl report --partner 6f1c... --as-of 2025-01-31
  settlectl report --partner 6f1c... --format xlsx --out balance.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			partnerID, err := parsePartnerFlag(partner)
			if err != nil {
				return err
			}
			day, err := parseDateFlag("as-of", asOf)
			if err != nil {
				return err
			}
			f, err := appsettlement.ParseReportFormat(format)
			if err != nil {
				return err
			}
			svc, release, err := connect(cmd)
			if err != nil {
				return err
			}
			defer release()

			if f == appsettlement.ReportFormatJSON {
				report, err := svc.Reports.BuildReport(cmd.Context(), partnerID, day)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				if out == "" {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return err
				}
				return writeFile(cmd, out, data)
			}

			exported, err := svc.Reports.ExportReport(cmd.Context(), partnerID, day, f)
			if err != nil {
				return err
			}
			if out == "" {
				out = exported.Filename
			}
			if err := writeFile(cmd, out, exported.Data); err != nil {
				return err
			}
			if exported.ArchiveKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "archived as %s\n", exported.ArchiveKey)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&partner, "partner", "", "Partner ID (required)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Report date (YYYY-MM-DD, default: today)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, xlsx or pdf")
	cmd.Flags().StringVar(&out, "out", "", "Output file")
	_ = cmd.MarkFlagRequired("partner")
	return cmd
}

func writeFile(cmd *cobra.Command, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
