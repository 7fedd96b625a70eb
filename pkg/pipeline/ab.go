package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/abtest"
	"github.com/dtnitsch/landing-ops/pkg/audit"
	"github.com/dtnitsch/landing-ops/pkg/rewrite"
)

// Optimize drafts the A/B copy pack, grades each variant and moves the run
// to AB_READY.
func (s *Service) Optimize(ctx context.Context, id int64) (*models.Run, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	start := time.Now()

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	r := s.rubric.Current()
	pack, err := s.optimizerFor(r).Optimize(ctx, rewrite.OptimizeRequest{
		Targeting:       run.Targeting,
		MetaTitle:       run.MetaTitle,
		MetaDescription: run.MetaDescription,
		LandingText:     run.LandingText,
	})
	if err != nil {
		s.logJob(ctx, id, JobOptimize, StatusErr, start, map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("failed to optimize run %d: %w", id, err)
	}

	auditor := audit.New(r)
	qc := make(map[string]models.QCResult, len(pack.Variants))
	status := StatusOK
	for key, v := range pack.Variants {
		res := auditor.CheckCopy(v.QCText())
		qc[key] = res
		if res.Grade == models.VerdictFail {
			status = StatusWarn
		}
	}

	if err := s.store.RecordOptimize(ctx, id, pack, qc); err != nil {
		return nil, fmt.Errorf("failed to record optimize pack: %w", err)
	}
	s.logJob(ctx, id, JobOptimize, status, start, map[string]any{"source": pack.Source, "qc": qc})
	return s.store.GetRun(ctx, id)
}

// RecordEvent appends a view or cta_click for a variant.
func (s *Service) RecordEvent(ctx context.Context, id int64, variant, eventName string) (models.Event, error) {
	v := abtest.NormalizeVariant(variant)
	if !abtest.ValidVariant(v) {
		return models.Event{}, fmt.Errorf("%w: variant must be A or B", ErrInvalidInput)
	}
	name := strings.ToLower(strings.TrimSpace(eventName))
	if !abtest.ValidEvent(name) {
		return models.Event{}, fmt.Errorf("%w: event_name must be view or cta_click", ErrInvalidInput)
	}
	if _, err := s.store.GetRun(ctx, id); err != nil {
		return models.Event{}, err
	}

	ev, err := s.store.AddEvent(ctx, models.Event{RunID: id, Variant: v, EventName: name, Timestamp: s.now()})
	if err != nil {
		return models.Event{}, err
	}
	s.metrics.ObserveEvent(v, name)
	return ev, nil
}

// Summary computes the A/B statistics from the run's event log.
func (s *Service) Summary(ctx context.Context, id int64) (models.ABSummary, error) {
	if _, err := s.store.GetRun(ctx, id); err != nil {
		return models.ABSummary{}, err
	}
	events, err := s.store.ListEvents(ctx, id)
	if err != nil {
		return models.ABSummary{}, err
	}
	return abtest.Summarize(events, s.rubric.Current().AB), nil
}

// Approve records the promoted variant. choice is A, B or RECOMMENDED; a
// recommendation the data cannot support yet returns
// *abtest.NoRecommendationError.
func (s *Service) Approve(ctx context.Context, id int64, choice string) (*models.Run, error) {
	choice = abtest.NormalizeVariant(choice)
	if !abtest.ValidVariant(choice) && choice != abtest.ChoiceRecommended {
		return nil, fmt.Errorf("%w: variant must be A, B or RECOMMENDED", ErrInvalidInput)
	}

	unlock := s.locks.Lock(id)
	defer unlock()
	start := time.Now()

	summary, err := s.Summary(ctx, id)
	if err != nil {
		return nil, err
	}
	approval, err := abtest.Decide(choice, summary, s.now())
	if err != nil {
		var nr *abtest.NoRecommendationError
		if errors.As(err, &nr) {
			s.logJob(ctx, id, JobApprove, StatusErr, start, map[string]any{"error": err.Error(), "summary": summary})
		}
		return nil, err
	}

	if err := s.store.RecordApproval(ctx, id, approval); err != nil {
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}
	s.logJob(ctx, id, JobApprove, StatusOK, start, map[string]any{"approved": approval})
	return s.store.GetRun(ctx, id)
}
