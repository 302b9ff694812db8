package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/extract"
	"github.com/gyeh/billaudit/internal/logging"
	"github.com/gyeh/billaudit/internal/pipeline"
)

var analyzeOpts struct {
	image   string
	tier    string
	out     string
	noLearn bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract a bill from an image or PDF and audit it",
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.image, "image", "", "Bill image or PDF (required)")
	f.StringVar(&analyzeOpts.tier, "tier", "", "Force a pricing tier: METRO, TIER2 or GOVERNMENT_SCHEME")
	f.StringVar(&analyzeOpts.out, "out", "", "Also write the audit result JSON to this file")
	f.BoolVar(&analyzeOpts.noLearn, "no-learn", false, "Do not feed the result back into the rate card")
	_ = analyzeCmd.MarkFlagRequired("image")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.ValidateWithLLM(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	data, err := os.ReadFile(analyzeOpts.image)
	if err != nil {
		log.Error().Err(err).Msg("failed to read bill document")
		os.Exit(exitcode.ValidationError)
	}
	engine, err := newEngine()
	if err != nil {
		log.Error().Err(err).Msg("pricing configuration invalid")
		os.Exit(exitcode.UsageError)
	}
	extractor, err := extract.NewVisionExtractor(newLLMClient(log),
		cfg.LLM.ExtractModel, cfg.LLM.FallbackModel, cfg.LLM.CacheSize, log)
	if err != nil {
		log.Error().Err(err).Msg("extractor setup failed")
		os.Exit(exitcode.UsageError)
	}

	ledger := openLedger(ctx, log)
	worker, err := newWorker(ledger, log, analyzeOpts.noLearn)
	if err != nil {
		ledger.Close()
		log.Error().Err(err).Msg("learning configuration invalid")
		os.Exit(exitcode.UsageError)
	}
	opts := pipeline.Options{Tier: analyzeOpts.tier, Extractor: extractor}
	if worker != nil {
		opts.Learner = worker
	}

	doc := extract.Document{Name: filepath.Base(analyzeOpts.image), Data: data}
	result, summary, err := pipeline.New(engine, ledger, log, opts).Analyze(ctx, doc)

	if worker != nil {
		worker.Close()
	}
	if cerr := ledger.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("closing rate card store")
	}
	if err != nil {
		logPhaseError(log, err, analyzeOpts.image)
		os.Exit(exitCodeFor(err))
	}

	if analyzeOpts.out != "" {
		if err := writeJSONFile(analyzeOpts.out, result); err != nil {
			log.Error().Err(err).Msg("failed to write result")
			os.Exit(exitcode.RenderError)
		}
	}
	log.Info().
		Str("extract_duration", summary.DurationExtract.String()).
		Int("flagged", summary.Flagged).
		Msg("analysis complete")
	if err := printJSON(result); err != nil {
		return fmt.Errorf("print result: %w", err)
	}
	return nil
}
