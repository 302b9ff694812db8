package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/logging"
	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/pipeline"
)

var auditOpts struct {
	files       []string
	tier        string
	concurrency int
	noLearn     bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit extracted bill JSON files against the rate card",
	RunE:  runAudit,
}

func init() {
	f := auditCmd.Flags()
	f.StringSliceVar(&auditOpts.files, "file", nil, "Bill JSON file (repeatable, required)")
	f.StringVar(&auditOpts.tier, "tier", "", "Force a pricing tier: METRO, TIER2 or GOVERNMENT_SCHEME")
	f.IntVar(&auditOpts.concurrency, "concurrency", 4, "Bills audited in parallel")
	f.BoolVar(&auditOpts.noLearn, "no-learn", false, "Do not feed results back into the rate card")
	_ = auditCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(auditCmd)
}

type auditOutcome struct {
	File    string             `json:"file"`
	Result  *model.AuditResult `json:"result,omitempty"`
	Error   string             `json:"error,omitempty"`
	summary *model.AuditSummary
	err     error
}

func runAudit(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if auditOpts.concurrency < 1 {
		log.Error().Int("concurrency", auditOpts.concurrency).Msg("--concurrency must be at least 1")
		os.Exit(exitcode.UsageError)
	}
	engine, err := newEngine()
	if err != nil {
		log.Error().Err(err).Msg("pricing configuration invalid")
		os.Exit(exitcode.UsageError)
	}

	ledger := openLedger(ctx, log)
	worker, err := newWorker(ledger, log, auditOpts.noLearn)
	if err != nil {
		ledger.Close()
		log.Error().Err(err).Msg("learning configuration invalid")
		os.Exit(exitcode.UsageError)
	}

	opts := pipeline.Options{Tier: auditOpts.tier}
	if worker != nil {
		opts.Learner = worker
	}
	p := pipeline.New(engine, ledger, log, opts)

	outcomes := make([]auditOutcome, len(auditOpts.files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(auditOpts.concurrency)
	for i, path := range auditOpts.files {
		g.Go(func() error {
			out := auditOutcome{File: path}
			raw, err := os.ReadFile(path)
			if err != nil {
				out.err = fmt.Errorf("read bill: %w", err)
			} else {
				out.Result, out.summary, out.err = p.AuditJSON(gctx, filepath.Base(path), raw)
			}
			if out.err != nil {
				out.Error = out.err.Error()
				logPhaseError(log, out.err, path)
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	if worker != nil {
		worker.Close()
	}
	if err := ledger.Close(); err != nil {
		log.Warn().Err(err).Msg("closing rate card store")
	}

	failed, lastErr := 0, error(nil)
	var savings float64
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			lastErr = o.err
			continue
		}
		savings += o.summary.PotentialSavings
	}

	if len(outcomes) == 1 {
		if lastErr != nil {
			os.Exit(exitCodeFor(lastErr))
		}
		if err := printJSON(outcomes[0].Result); err != nil {
			return err
		}
		return nil
	}

	if err := printJSON(outcomes); err != nil {
		return err
	}
	log.Info().
		Int("bills", len(outcomes)).
		Int("failed", failed).
		Float64("potential_savings", savings).
		Msg("batch audit complete")

	switch {
	case failed == len(outcomes):
		os.Exit(exitCodeFor(lastErr))
	case failed > 0:
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}
