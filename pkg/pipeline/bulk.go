package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/manifest"
	"golang.org/x/sync/errgroup"
)

// Bulk actions.
const (
	ActionAudit  = "AUDIT"
	ActionFix    = "FIX"
	ActionAuto   = "AUTO"
	ActionExport = "EXPORT"
)

// ValidAction reports whether a (already upper-cased) is a bulk action.
func ValidAction(a string) bool {
	switch a {
	case ActionAudit, ActionFix, ActionAuto, ActionExport:
		return true
	}
	return false
}

// DedupeIDs drops non-positive and repeated ids, keeping first-seen order.
func DedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func errorType(err error) string {
	var blocked *ExportBlockedError
	switch {
	case errors.As(err, &blocked):
		return "export_blocked"
	case errors.Is(err, models.ErrRunNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}

// Bulk applies action to every id with bounded concurrency. A failing item
// is recorded in its result and never stops the others. The manifest is
// saved through the export sink; a save failure is logged only.
func (s *Service) Bulk(ctx context.Context, action string, ids []int64, rounds int) (*manifest.BulkManifest, error) {
	action = strings.ToUpper(strings.TrimSpace(action))
	if !ValidAction(action) {
		return nil, fmt.Errorf("%w: action must be AUDIT|FIX|AUTO|EXPORT", ErrInvalidInput)
	}
	ids = DedupeIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: run_ids is empty", ErrInvalidInput)
	}
	if rounds <= 0 {
		rounds = DefaultAutoRounds
	}

	start := time.Now()
	s.logger.Info("bulk action started", "action", action, "count", len(ids), "workers", s.workers)

	items := make([]manifest.ItemSummary, len(ids))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			items[i] = s.bulkItem(ctx, action, id, rounds)
			return nil
		})
	}
	_ = g.Wait()

	m := manifest.Summarize(action, items, s.now())
	if _, err := manifest.Save(ctx, &m, s.sink); err != nil {
		s.logger.Warn("failed to save bulk manifest", "action", action, "error", err)
	}
	s.logger.Info("bulk action finished", "action", action, "ok", m.OK, "warn", m.Warn, "failed", m.Failed, "elapsed_ms", time.Since(start).Milliseconds())
	return &m, nil
}

func (s *Service) bulkItem(ctx context.Context, action string, id int64, rounds int) manifest.ItemSummary {
	unlock := s.locks.Lock(id)
	defer unlock()
	start := time.Now()

	item := manifest.ItemSummary{RunID: id}
	detail := map[string]any{}
	var run *models.Run
	var err error

	switch action {
	case ActionAudit:
		var out *AuditOutcome
		if out, err = s.audit(ctx, id); err == nil {
			run = out.Run
			detail["audit"] = out.Audit
		}
	case ActionFix:
		var out *FixOutcome
		if out, err = s.fix(ctx, id, rounds); err == nil {
			run = out.Run
			item.Rounds, item.LoopState = out.Result.Rounds, string(out.Result.State)
			detail = fixDetail(out)
		}
	case ActionAuto:
		var out *AutoOutcome
		if out, err = s.auto(ctx, id, rounds); err == nil {
			run = out.Run()
			item.Rounds, item.LoopState = out.Fix.Result.Rounds, string(out.Fix.Result.State)
			detail = fixDetail(out.Fix)
			if out.Blocked != nil {
				item.Status = manifest.StatusWarn
				item.Hint = out.Blocked.Hint
			} else {
				detail["export"] = out.Export.Record
			}
		}
	case ActionExport:
		if run, err = s.store.GetRun(ctx, id); err == nil {
			var out *ExportOutcome
			if out, err = s.export(ctx, run); err == nil {
				run = out.Run
				detail["export"] = out.Record
			}
		}
	}
	item.ElapsedMS = time.Since(start).Milliseconds()

	if err != nil {
		item.Status = manifest.StatusErr
		item.ErrorType = errorType(err)
		item.ErrorMessage = err.Error()
		var blocked *ExportBlockedError
		if errors.As(err, &blocked) {
			item.Overall = string(blocked.Verdict)
			item.Hint = blocked.Hint
		}
		s.logger.Warn("bulk item failed", "action", action, "run_id", id, "error", err)
		// a missing run has nowhere to hang a job log
		if !errors.Is(err, models.ErrRunNotFound) {
			s.logJob(ctx, id, jobBulk+action, StatusErr, start, map[string]any{"error": err.Error()})
		}
		return item
	}

	item.OK = true
	if item.Status == "" {
		item.Status = manifest.StatusOK
	}
	item.Stage = string(run.Stage)
	item.Overall = string(run.Verdict())
	if run.Audit != nil {
		score := run.Audit.Score
		item.Score = &score
	}
	if run.Export != nil {
		item.ExportPath = run.Export.Path
	}
	s.logJob(ctx, id, jobBulk+action, item.Status, start, detail)
	return item
}
