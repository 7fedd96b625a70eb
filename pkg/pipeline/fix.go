package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/audit"
	"github.com/dtnitsch/landing-ops/pkg/fixer"
	"github.com/dtnitsch/landing-ops/pkg/render"
)

// AuditOutcome is the recorded audit and the updated run.
type AuditOutcome struct {
	Run   *models.Run        `json:"run"`
	Audit models.AuditResult `json:"audit"`
}

// FixOutcome carries the page the loop started from and its result.
type FixOutcome struct {
	Run    *models.Run   `json:"run"`
	Before models.Page   `json:"before_page"`
	Result *fixer.Result `json:"result"`
}

// AlreadyPass reports whether the run passed before any fix round.
func (f *FixOutcome) AlreadyPass() bool {
	return f.Result != nil && f.Result.Rounds == 0 && f.Result.Converged()
}

// ExportOutcome is the written artifact and the updated run.
type ExportOutcome struct {
	Run    *models.Run         `json:"run"`
	Record models.ExportRecord `json:"export"`
}

// AutoOutcome is a fix followed by an export attempt. Blocked is set
// instead of Export when the fix did not reach PASS.
type AutoOutcome struct {
	Fix     *FixOutcome         `json:"fix"`
	Export  *ExportOutcome      `json:"export,omitempty"`
	Blocked *ExportBlockedError `json:"-"`
}

// Run returns the most recent run state of the outcome.
func (a *AutoOutcome) Run() *models.Run {
	if a.Export != nil {
		return a.Export.Run
	}
	return a.Fix.Run
}

// ExportKey names a run's artifact within a sink.
func ExportKey(id int64) string {
	return fmt.Sprintf("run_%d.html", id)
}

// Audit scores the run's current snapshot and records the result. Any
// verdict moves the run to AUDIT_DONE.
func (s *Service) Audit(ctx context.Context, id int64) (*AuditOutcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	start := time.Now()

	out, err := s.audit(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logJob(ctx, id, JobAudit, StatusOK, start, map[string]any{"audit": out.Audit})
	return out, nil
}

func (s *Service) audit(ctx context.Context, id int64) (*AuditOutcome, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	res := audit.New(s.rubric.Current()).Audit(s.Snapshot(run, ""), run.Targeting)
	if err := s.store.RecordAudit(ctx, id, res); err != nil {
		return nil, fmt.Errorf("failed to record audit: %w", err)
	}
	s.metrics.ObserveAudit(res.Score)

	run, err = s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return &AuditOutcome{Run: run, Audit: res}, nil
}

// Fix runs the convergence loop with a budget of rounds (clamped to
// [1,6], zero meaning the default). A run that already passes only has its
// audit recorded; otherwise the fixed page, audit and diff are recorded and
// the run moves to FIXED whatever the final verdict.
func (s *Service) Fix(ctx context.Context, id int64, rounds int) (*FixOutcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	start := time.Now()

	out, err := s.fix(ctx, id, rounds)
	if err != nil {
		return nil, err
	}
	status := StatusOK
	if !out.Result.Converged() {
		status = StatusWarn
	}
	s.logJob(ctx, id, JobFix, status, start, fixDetail(out))
	return out, nil
}

func fixDetail(out *FixOutcome) map[string]any {
	return map[string]any{
		"state":        out.Result.State,
		"rounds":       out.Result.Rounds,
		"before_audit": out.Result.Initial,
		"after_audit":  out.Result.Audit,
		"diff":         out.Result.Diff,
		"history":      out.Result.History,
	}
}

func (s *Service) fix(ctx context.Context, id int64, rounds int) (*FixOutcome, error) {
	if rounds <= 0 {
		rounds = fixer.DefaultRounds
	}
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	before := s.Snapshot(run, "")
	res, err := s.loop(s.rubric.Current()).Run(ctx, before, run.Targeting, id, rounds)
	if err != nil {
		return nil, fmt.Errorf("failed to fix run %d: %w", id, err)
	}

	if res.Rounds == 0 {
		err = s.store.RecordAudit(ctx, id, res.Audit)
	} else {
		err = s.store.RecordFixedPage(ctx, id, res.Page, res.Audit, res.Diff)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record fix result: %w", err)
	}

	assists := make([]string, 0, len(res.History))
	for _, r := range res.History {
		assists = append(assists, string(r.Assist))
	}
	s.metrics.ObserveAudit(res.Audit.Score)
	s.metrics.ObserveFix(string(res.State), res.Rounds, assists)

	run, err = s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return &FixOutcome{Run: run, Before: before, Result: res}, nil
}

// Export renders the run and writes it to the sink. It refuses with
// *ExportBlockedError, writing nothing, unless the latest audit is PASS.
func (s *Service) Export(ctx context.Context, id int64) (*ExportOutcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	start := time.Now()

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.export(ctx, run)
	if err != nil {
		var blocked *ExportBlockedError
		if errors.As(err, &blocked) {
			s.logJob(ctx, id, JobExport, StatusErr, start, map[string]any{"error": err.Error(), "audit_overall": blocked.Verdict})
		}
		return nil, err
	}
	s.logJob(ctx, id, JobExport, StatusOK, start, map[string]any{"export": out.Record})
	return out, nil
}

func (s *Service) export(ctx context.Context, run *models.Run) (*ExportOutcome, error) {
	if v := run.Verdict(); v != models.VerdictPass {
		return nil, &ExportBlockedError{RunID: run.ID, Verdict: v, Stage: run.Stage, Hint: exportHint}
	}

	page := s.Snapshot(run, "")
	html, err := s.renderer.RenderBytes(page, run.Targeting, render.Options{CanonicalFallback: s.CanonicalURL(run.ID)})
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(html)

	loc, err := s.sink.Put(ctx, ExportKey(run.ID), html, "text/html; charset=utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	rec := models.ExportRecord{
		Path:      loc,
		Sink:      s.sink.Name(),
		SHA256:    hex.EncodeToString(sum[:]),
		Timestamp: s.now(),
	}
	if err := s.store.RecordExport(ctx, run.ID, rec); err != nil {
		return nil, fmt.Errorf("failed to record export: %w", err)
	}

	updated, err := s.store.GetRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return &ExportOutcome{Run: updated, Record: rec}, nil
}

// Auto fixes the run (zero rounds meaning DefaultAutoRounds) and exports
// it when the fix reached PASS. A blocked export is reported on the
// outcome, not returned as an error.
func (s *Service) Auto(ctx context.Context, id int64, rounds int) (*AutoOutcome, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	start := time.Now()

	out, err := s.auto(ctx, id, rounds)
	if err != nil {
		return nil, err
	}
	detail := fixDetail(out.Fix)
	status := StatusOK
	if out.Blocked != nil {
		status = StatusErr
		detail["error"] = out.Blocked.Error()
	} else {
		detail["export"] = out.Export.Record
	}
	s.logJob(ctx, id, JobAuto, status, start, detail)
	return out, nil
}

func (s *Service) auto(ctx context.Context, id int64, rounds int) (*AutoOutcome, error) {
	if rounds <= 0 {
		rounds = DefaultAutoRounds
	}
	fx, err := s.fix(ctx, id, rounds)
	if err != nil {
		return nil, err
	}
	out := &AutoOutcome{Fix: fx}

	exp, err := s.export(ctx, fx.Run)
	var blocked *ExportBlockedError
	switch {
	case errors.As(err, &blocked):
		out.Blocked = blocked
	case err != nil:
		return nil, err
	default:
		out.Export = exp
	}
	return out, nil
}

// OpenExport reads back a run's last export artifact.
func (s *Service) OpenExport(ctx context.Context, id int64) ([]byte, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Export == nil || run.Export.Path == "" {
		return nil, fmt.Errorf("run %d: %w", id, ErrNoExport)
	}
	return s.sink.Get(ctx, run.Export.Path)
}

// Preview renders the current snapshot, or one variant of it, as a
// noindex page. It is not gated on the audit.
func (s *Service) Preview(ctx context.Context, id int64, variant string) ([]byte, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	page := s.Snapshot(run, variant)
	return s.renderer.RenderBytes(page, run.Targeting, render.Options{CanonicalFallback: s.CanonicalURL(id), Preview: true})
}
