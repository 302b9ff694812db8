package main

import (
	"errors"
	"testing"

	"github.com/gyeh/billaudit/internal/exitcode"
	"github.com/gyeh/billaudit/internal/model"
	"github.com/gyeh/billaudit/internal/pipeline"
	"github.com/gyeh/billaudit/internal/ratecard"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed", &pipeline.PhaseError{Phase: pipeline.PhaseIntake, Err: &model.InputError{Field: "line_items", Reason: "missing"}}, exitcode.ValidationError},
		{"storage", &ratecard.StorageError{Op: "load", Err: errors.New("down")}, exitcode.StoreError},
		{"extract", &pipeline.PhaseError{Phase: pipeline.PhaseExtract, Err: errors.New("quota")}, exitcode.ExtractError},
		{"other", errors.New("boom"), exitcode.AuditError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewEngine_UsesConfiguredTiers(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	cfg.Pricing.Tiers = map[string]map[string]float64{"TIER2": {"room": 3000}}
	cfg.Pricing.MetroCities = []string{"jaipur"}

	r, err := newResolver()
	if err != nil {
		t.Fatalf("newResolver: %v", err)
	}
	if got := r.Resolve("Room Rent", "Jaipur", nil); got != 4000 {
		t.Errorf("jaipur as metro: got %v, want 4000", got)
	}
	if got := r.Resolve("Room Rent", "Mumbai", nil); got != 3000 {
		t.Errorf("mumbai as tier-2 override: got %v, want 3000", got)
	}
}
