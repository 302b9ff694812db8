// Package pipeline runs a bill through extraction, intake, audit and the
// learning hand-off.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/billaudit/internal/audit"
	"github.com/gyeh/billaudit/internal/extract"
	"github.com/gyeh/billaudit/internal/intake"
	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/normalize"
)

// Phases reported in PhaseError.
const (
	PhaseExtract = "extract"
	PhaseIntake  = "intake"
	PhaseAudit   = "audit"
	PhaseLearn   = "learn"
)

// PhaseError wraps an error with the phase where it occurred.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// RateCard supplies the snapshot each audit runs against.
type RateCard interface {
	Snapshot() model.RateCard
}

// Learner accepts finished audits for background learning.
type Learner interface {
	Submit(result *model.AuditResult) error
}

// Options tune a Pipeline.
type Options struct {
	// Tier forces a pricing tier for bills that do not name one.
	Tier string
	// Learner receives every successful audit; nil disables learning.
	Learner Learner
	// Extractor is required only by Analyze.
	Extractor extract.Extractor
}

// Pipeline is safe for concurrent use when its dependencies are.
type Pipeline struct {
	engine *audit.Engine
	card   RateCard
	opts   Options
	log    zerolog.Logger
}

func New(engine *audit.Engine, card RateCard, log zerolog.Logger, opts Options) *Pipeline {
	return &Pipeline{engine: engine, card: card, opts: opts, log: log}
}

// AuditJSON audits a bill given as extraction JSON: intake → audit → learn.
// A learning hand-off failure is logged; the audit result is still returned.
func (p *Pipeline) AuditJSON(ctx context.Context, source string, raw []byte) (*model.AuditResult, *model.AuditSummary, error) {
	start := time.Now()
	summary := &model.AuditSummary{Source: source, SHA256: normalize.BytesHash(raw)}

	bill, err := intake.Parse(raw)
	if err != nil {
		return nil, summary, &PhaseError{Phase: PhaseIntake, Err: err}
	}
	if bill.Tier == "" {
		bill.Tier = p.opts.Tier
	}

	auditStart := time.Now()
	result, err := p.engine.Audit(bill, p.card.Snapshot())
	if err != nil {
		return nil, summary, &PhaseError{Phase: PhaseAudit, Err: err}
	}
	summary.DurationAudit = time.Since(auditStart)

	summary.Items = len(result.LineItems)
	for _, it := range result.LineItems {
		if it.Flagged {
			summary.Flagged++
		}
		if it.Indeterminate {
			summary.Indeterminate++
		}
	}
	summary.TotalAmount = result.TotalAmount
	summary.PotentialSavings = result.PotentialSavings

	if p.opts.Learner != nil {
		if err := p.opts.Learner.Submit(result); err != nil {
			p.log.Warn().Err(&PhaseError{Phase: PhaseLearn, Err: err}).Str("source", source).Msg("bill not queued for learning")
		} else {
			summary.Learned = true
		}
	}

	summary.DurationTotal = time.Since(start)
	p.log.Info().
		Str("source", source).
		Str("city_tier", result.CityTier).
		Int("items", summary.Items).
		Int("flagged", summary.Flagged).
		Float64("potential_savings", summary.PotentialSavings).
		Str("duration", summary.DurationTotal.String()).
		Msg("bill audited")
	return result, summary, nil
}

// Analyze extracts a bill from an image or PDF and audits it.
func (p *Pipeline) Analyze(ctx context.Context, doc extract.Document) (*model.AuditResult, *model.AuditSummary, error) {
	if p.opts.Extractor == nil {
		return nil, nil, &PhaseError{Phase: PhaseExtract, Err: fmt.Errorf("no extractor configured")}
	}
	start := time.Now()
	p.log.Info().Str("document", doc.Name).Int("bytes", len(doc.Data)).Msg("starting extraction")
	raw, err := p.opts.Extractor.Extract(ctx, doc)
	if err != nil {
		return nil, &model.AuditSummary{Source: doc.Name}, &PhaseError{Phase: PhaseExtract, Err: err}
	}
	extractDur := time.Since(start)

	result, summary, err := p.AuditJSON(ctx, doc.Name, raw)
	summary.SHA256 = normalize.BytesHash(doc.Data)
	summary.DurationExtract = extractDur
	summary.DurationTotal = time.Since(start)
	return result, summary, err
}
