package fixer

import (
	"context"
	"log/slog"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/audit"
)

// State of the convergence loop.
type State string

const (
	StateEvaluating State = "EVALUATING"
	StateFixing     State = "FIXING"
	StateConverged  State = "CONVERGED"
	StateExhausted  State = "EXHAUSTED"
)

const (
	MinRounds     = 1
	MaxRounds     = 6
	DefaultRounds = 3
)

// ClampRounds bounds a caller-supplied round budget to [MinRounds, MaxRounds].
func ClampRounds(n int) int {
	return max(MinRounds, min(MaxRounds, n))
}

// Round records one FIXING pass.
type Round struct {
	N       int            `json:"round"`
	Overall models.Verdict `json:"overall"`
	Score   int            `json:"score"`
	Assist  Assist         `json:"assist"`
}

// Result is the terminal outcome of a loop. Exhausting the budget is a
// normal result, not an error.
type Result struct {
	State   State              `json:"state"`
	Rounds  int                `json:"rounds"`
	Initial models.AuditResult `json:"initial_audit"`
	Audit   models.AuditResult `json:"audit"`
	Page    models.Page        `json:"page"`
	Diff    *models.PageDiff   `json:"diff,omitempty"`
	History []Round            `json:"history"`
}

// Converged reports whether the final audit passed.
func (r *Result) Converged() bool {
	return r.State == StateConverged
}

// Loop is the fix-to-pass state machine.
type Loop struct {
	orch    *Orchestrator
	auditor *audit.Auditor
	logger  *slog.Logger
}

// NewLoop builds a loop over orch, judged by auditor.
func NewLoop(orch *Orchestrator, auditor *audit.Auditor, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{orch: orch, auditor: auditor, logger: logger}
}

// Run audits p and, unless it already passes, runs hybrid rounds followed
// by FitForPass until the audit passes or maxRounds (clamped) is used up.
// The context is checked between rounds.
func (l *Loop) Run(ctx context.Context, p models.Page, t models.Targeting, runID int64, maxRounds int) (*Result, error) {
	maxRounds = ClampRounds(maxRounds)
	state := StateEvaluating
	first := p.Clone()
	current := p.Clone()
	res := l.auditor.Audit(current, t)
	out := &Result{Initial: res, History: []Round{}}

	if res.Overall == models.VerdictPass {
		diff := Diff(first, current)
		out.State = StateConverged
		out.Audit = res
		out.Page = current
		out.Diff = &diff
		return out, nil
	}

	engine := l.orch.Engine()
	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state = StateFixing
		next, assist := l.orch.Fix(ctx, current, t, runID, res.Issues)
		current = engine.FitForPass(next, t)
		res = l.auditor.Audit(current, t)
		out.Rounds = round
		out.History = append(out.History, Round{N: round, Overall: res.Overall, Score: res.Score, Assist: assist})
		l.logger.Debug("fix round done", "run_id", runID, "round", round, "overall", res.Overall, "score", res.Score, "assist", assist)

		if res.Overall == models.VerdictPass {
			state = StateConverged
			break
		}
		if round >= maxRounds {
			state = StateExhausted
			break
		}
	}

	diff := Diff(first, current)
	out.State = state
	out.Audit = res
	out.Page = current
	out.Diff = &diff
	return out, nil
}
