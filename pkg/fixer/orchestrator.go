// Package fixer drives pages towards an audit PASS: the hybrid orchestrator
// combines the rule engine with the optional rewrite assist, and Loop
// repeats hybrid rounds under a bounded budget.
package fixer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/enforce"
	"github.com/dtnitsch/landing-ops/pkg/rewrite"
)

// Assist describes what happened with the rewrite step of a round.
type Assist string

const (
	AssistDisabled Assist = "disabled"
	AssistSkipped  Assist = "skipped"
	AssistFailed   Assist = "failed"
	AssistApplied  Assist = "applied"
)

// Orchestrator runs one hybrid enforcement round.
type Orchestrator struct {
	engine   *enforce.Engine
	rewriter rewrite.Rewriter
	logger   *slog.Logger
}

// NewOrchestrator wires the rule engine with an optional rewriter; a nil
// rewriter disables the assist.
func NewOrchestrator(engine *enforce.Engine, rw rewrite.Rewriter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{engine: engine, rewriter: rw, logger: logger}
}

// Engine returns the rule engine used for every round.
func (o *Orchestrator) Engine() *enforce.Engine {
	return o.engine
}

func (o *Orchestrator) constraints(t models.Targeting) rewrite.Constraints {
	r := o.engine.Rubric()
	return rewrite.Constraints{
		TitleLen:          [2]int{r.Enforce.Title.Min, r.Enforce.Title.Max},
		DescriptionLen:    [2]int{r.Enforce.Description.Min, r.Enforce.Description.Max},
		MinBodyWords:      r.Enforce.MinWords,
		MinH2:             r.MinH2For(t),
		MinFAQ:            r.Enforce.MinFAQ,
		MinSupportingHits: r.Enforce.MinSupporting,
		MaxDensityPct:     r.Enforce.MaxDensityPct,
	}
}

// Fix runs RuleFix, consults the rewriter when the quick check says the
// page is unlikely to pass, and re-runs RuleFix over any merged patch. The
// rewriter's failures never escape: the rule-only page is returned.
func (o *Orchestrator) Fix(ctx context.Context, p models.Page, t models.Targeting, runID int64, issues []models.Issue) (models.Page, Assist) {
	fixed := o.engine.RuleFix(p, t, runID)
	if o.rewriter == nil {
		return fixed, AssistDisabled
	}
	if o.engine.QuickCheck(fixed, t) {
		return fixed, AssistSkipped
	}

	patch, err := o.rewriter.Rewrite(ctx, rewrite.Request{
		Page:        fixed,
		Issues:      issues,
		Targeting:   t,
		Constraints: o.constraints(t),
	})
	if err != nil || patch.Empty() {
		if err == nil {
			err = rewrite.ErrNoPatch
		}
		level := slog.LevelWarn
		if errors.Is(err, rewrite.ErrNoPatch) {
			level = slog.LevelInfo
		}
		o.logger.Log(ctx, level, "rewrite assist unavailable, keeping rule fix", "run_id", runID, "error", err)
		return fixed, AssistFailed
	}

	merged := rewrite.Merge(fixed, patch)
	return o.engine.RuleFix(merged, t, runID), AssistApplied
}
