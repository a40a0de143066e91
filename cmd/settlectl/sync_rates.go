package main

import (
	"encoding/json"
	"fmt"

	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/spf13/cobra"
)

type connectFunc func(cmd *cobra.Command) (*services, func(), error)

func newSyncRatesCmd(connect connectFunc) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "sync-rates",
		Short: "Fetch and store exchange rates for one business date",
		Long: `Runs the exchange rate synchronizer once. A date that is already synchronized
is skipped without contacting the provider. The command exits non-zero when
the provider is unavailable.`,
		Example: `  settlectl sync-rates
  settlectl sync-rates --date 2025-01-10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			svc, release, err := connect(cmd)
			if err != nil {
				return err
			}
			defer release()

			result, err := svc.Sync.RunOnce(cmd.Context(), day)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Outcome == appsettlement.SyncOutcomeFailed {
				return fmt.Errorf("rate sync failed: %s", result.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Business date (YYYY-MM-DD, default: today)")
	return cmd
}
