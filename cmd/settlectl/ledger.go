package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLedgerCmd(connect connectFunc) *cobra.Command {
	var partner, from, to string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List a partner's ledger entries",
		Long: `Lists the ledger entries of one partner in posting order. Positive amounts
increase what the partner owes, negative amounts decrease it.`,
		Example: `  settlectl ledger --partner 6f1c...
  settlectl ledger --partner 6f1c... --from 2025-01-01 --to 2025-01-31 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			partnerID, err := parsePartnerFlag(partner)
			if err != nil {
				return err
			}
			fromDate, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			toDate, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}
			if !fromDate.IsZero() && !toDate.IsZero() && toDate.Before(fromDate) {
				return fmt.Errorf("--to must not be before --from")
			}
			svc, release, err := connect(cmd)
			if err != nil {
				return err
			}
			defer release()

			entries, err := svc.Ledger.ListByPartner(cmd.Context(), partnerID, fromDate, toDate)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "SEQ\tDATE\tCURRENCY\tAMOUNT\tBASE AMOUNT\tREFERENCE\t")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
					e.Seq, e.TransactionDate, e.Currency, e.Amount.StringFixed(2), e.BaseAmount.StringFixed(2), e.ReferenceType)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&partner, "partner", "", "Partner ID (required)")
	cmd.Flags().StringVar(&from, "from", "", "First transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last transaction date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.MarkFlagRequired("partner")
	return cmd
}
