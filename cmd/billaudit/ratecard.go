package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/logging"
	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/parquetio"
)

var ratecardOpts struct {
	service string
	out     string
	file    string
}

var ratecardCmd = &cobra.Command{
	Use:   "ratecard",
	Short: "Inspect, export or import the learned rate card",
}

var ratecardShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print learned averages per service",
	RunE:  runRatecardShow,
}

var ratecardExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every retained observation to a Parquet file",
	RunE:  runRatecardExport,
}

var ratecardImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Record observations from a Parquet file",
	RunE:  runRatecardImport,
}

func init() {
	ratecardShowCmd.Flags().StringVar(&ratecardOpts.service, "service", "", "Show the observations of one service")
	ratecardExportCmd.Flags().StringVar(&ratecardOpts.out, "out", "", "Parquet output path (required)")
	_ = ratecardExportCmd.MarkFlagRequired("out")
	ratecardImportCmd.Flags().StringVar(&ratecardOpts.file, "file", "", "Parquet input path (required)")
	_ = ratecardImportCmd.MarkFlagRequired("file")

	ratecardCmd.AddCommand(ratecardShowCmd, ratecardExportCmd, ratecardImportCmd)
	rootCmd.AddCommand(ratecardCmd)
}

func sortedKeys(rc model.RateCard) []string {
	keys := make([]string, 0, len(rc))
	for k := range rc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runRatecardShow(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ledger := openLedger(context.Background(), log)
	defer ledger.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if ratecardOpts.service != "" {
		e, ok := ledger.Entry(ratecardOpts.service)
		if !ok {
			return fmt.Errorf("no observations for %q", ratecardOpts.service)
		}
		fmt.Fprintf(w, "SERVICE\t%s\nAVERAGE\t%.2f\nUPDATED\t%s\n\n", e.ServiceKey, e.AveragePrice, e.LastUpdated.Format("2006-01-02 15:04"))
		fmt.Fprintln(w, "OBSERVED\tCITY\tPRICE")
		for _, o := range e.Observations {
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", o.Timestamp.Format("2006-01-02 15:04"), o.City, o.Price)
		}
		return w.Flush()
	}

	card := ledger.Snapshot()
	fmt.Fprintln(w, "SERVICE\tOBSERVATIONS\tAVERAGE\tUPDATED")
	for _, k := range sortedKeys(card) {
		e := card[k]
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\n", k, len(e.Observations), e.AveragePrice, e.LastUpdated.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runRatecardExport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ledger := openLedger(context.Background(), log)
	defer ledger.Close()

	card := ledger.Snapshot()
	rows := model.ObservationRows(card, sortedKeys(card))
	if err := parquetio.WriteFile(ratecardOpts.out, rows); err != nil {
		log.Error().Err(err).Msg("export failed")
		os.Exit(exitcode.RenderError)
	}
	log.Info().Int("services", len(card)).Int("rows", len(rows)).Str("path", ratecardOpts.out).Msg("rate card exported")
	return nil
}

func runRatecardImport(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	reader, err := parquetio.Open(ratecardOpts.file)
	if err != nil {
		log.Error().Err(err).Msg("failed to open parquet file")
		os.Exit(exitcode.ValidationError)
	}
	rows, err := reader.ReadAll(0)
	reader.Close()
	if err != nil {
		log.Error().Err(err).Msg("failed to read parquet file")
		os.Exit(exitcode.ValidationError)
	}
	// Oldest first; the ledger places each row by timestamp and retention keeps the newest.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ObservedAt.Before(rows[j].ObservedAt) })

	ledger := openLedger(ctx, log)
	defer ledger.Close()

	imported, skipped := 0, 0
	for _, r := range rows {
		if r.Price <= 0 {
			skipped++
			continue
		}
		if err := ledger.RecordObservationAt(ctx, r.ServiceKey, r.Price, r.City, r.ObservedAt); err != nil {
			log.Error().Err(err).Str("service", r.ServiceKey).Msg("import stopped")
			ledger.Close()
			os.Exit(exitcode.StoreError)
		}
		imported++
	}
	log.Info().Int("imported", imported).Int("skipped", skipped).Msg("rate card import complete")
	return nil
}
