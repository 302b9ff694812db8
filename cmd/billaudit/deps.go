package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"github.com/gyeh/billaudit/internal/audit"
	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/learn"
	"github.com/gyeh/billaudit/internal/llm"
	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/pipeline"
	"github.com/gyeh/billaudit/internal/pricing"
	"github.com/gyeh/billaudit/internal/ratecard"
	"github.com/gyeh/billaudit/internal/tier"
)

// newResolver builds the resolver from the pricing section of cfg.
func newResolver() (*pricing.Resolver, error) {
	table, err := cfg.TierTable()
	if err != nil {
		return nil, err
	}
	return pricing.NewResolver(table, tier.NewClassifier(cfg.Pricing.MetroCities), nil), nil
}

func newEngine() (*audit.Engine, error) {
	r, err := newResolver()
	if err != nil {
		return nil, err
	}
	return audit.NewEngine(r, cfg.Pricing.FlagRatio), nil
}

// openLedger opens the configured store or exits with StoreError.
func openLedger(ctx context.Context, log zerolog.Logger) *ratecard.Ledger {
	ledger, err := ratecard.Open(ctx, &cfg, log)
	if err != nil {
		log.Error().Err(err).Str("store", cfg.Store.Kind).Msg("rate card store unavailable")
		os.Exit(exitcode.StoreError)
	}
	return ledger
}

// newWorker starts the learning worker unless learning is disabled.
func newWorker(ledger *ratecard.Ledger, log zerolog.Logger, disabled bool) (*learn.Worker, error) {
	if disabled {
		return nil, nil
	}
	policy, err := learn.ParsePolicy(cfg.Learning.Record)
	if err != nil {
		return nil, err
	}
	return learn.NewWorker(learn.NewLearner(ledger, policy), log, cfg.Learning.QueueSize), nil
}

func newLLMClient(log zerolog.Logger) *llm.Client {
	return llm.New(llm.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Timeout:           cfg.LLM.Timeout,
	}, log)
}

// exitCodeFor maps a pipeline failure to the process exit code.
func exitCodeFor(err error) int {
	var pe *pipeline.PhaseError
	switch {
	case errors.Is(err, model.ErrMalformedBill):
		return exitcode.ValidationError
	case errors.Is(err, ratecard.ErrStorageUnavailable):
		return exitcode.StoreError
	case errors.As(err, &pe) && pe.Phase == pipeline.PhaseExtract:
		return exitcode.ExtractError
	default:
		return exitcode.AuditError
	}
}

func logPhaseError(log zerolog.Logger, err error, source string) {
	ev := log.Error().Err(err).Str("source", source)
	var pe *pipeline.PhaseError
	if errors.As(err, &pe) {
		ev = ev.Str("phase", pe.Phase)
	}
	ev.Msg("audit failed")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
