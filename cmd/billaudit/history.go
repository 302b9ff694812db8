package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gyeh/billaudit/internal/logging"
)

var historyOpts struct {
	limit  int
	asJSON bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently audited bills, newest first",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyOpts.limit, "limit", 20, "Maximum bills to list (0 for all)")
	f.BoolVar(&historyOpts.asJSON, "json", false, "Print full records as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ledger := openLedger(context.Background(), log)
	defer ledger.Close()

	bills := ledger.Bills(historyOpts.limit)
	if historyOpts.asJSON {
		return printJSON(bills)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORDED\tHOSPITAL\tCITY\tITEMS\tTOTAL\tSAVINGS")
	for _, b := range bills {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.2f\n",
			b.Timestamp.Format("2006-01-02 15:04"), orDash(b.HospitalName), orDash(b.City),
			len(b.LineItems), b.TotalAmount, b.PotentialSavings)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
