// Package pipeline drives a run through its lifecycle: draft, A/B copy and
// approval, audit, fix-to-pass and the PASS-gated export. Every operation
// goes through an injected Store and leaves a job log row behind.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/audit"
	"github.com/dtnitsch/landing-ops/pkg/enforce"
	"github.com/dtnitsch/landing-ops/pkg/fixer"
	"github.com/dtnitsch/landing-ops/pkg/metrics"
	"github.com/dtnitsch/landing-ops/pkg/render"
	"github.com/dtnitsch/landing-ops/pkg/rewrite"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
	"github.com/dtnitsch/landing-ops/pkg/storage"
)

// Job names written to the job log.
const (
	JobRunNew   = "RUN_NEW"
	JobOptimize = "OPTIMIZE_AB"
	JobApprove  = "APPROVE"
	JobAudit    = "SEO_AUDIT"
	JobFix      = "FIX_TO_PASS"
	JobExport   = "EXPORT"
	JobAuto     = "AUTO_PASS_EXPORT"
	jobBulk     = "BULK_"
)

// Job log statuses.
const (
	StatusOK   = "OK"
	StatusWarn = "WARN"
	StatusErr  = "ERR"
)

const (
	// DefaultAutoRounds is the fix budget for AUTO and bulk actions.
	DefaultAutoRounds = 2
	defaultWorkers    = 4
	exportHint        = "Run audit, then fix or auto, until the verdict is PASS."
)

// ErrInvalidInput marks caller mistakes such as an unknown variant.
var ErrInvalidInput = errors.New("invalid input")

// ErrNoExport is returned when a run has never been exported.
var ErrNoExport = errors.New("run has no export")

// ExportBlockedError refuses an export whose latest audit is not PASS.
type ExportBlockedError struct {
	RunID   int64
	Verdict models.Verdict
	Stage   models.Stage
	Hint    string
}

func (e *ExportBlockedError) Error() string {
	return fmt.Sprintf("export blocked for run %d: requires PASS (current=%s)", e.RunID, e.Verdict)
}

// Store is the persistence the service needs. pkg/db implements it.
type Store interface {
	CreateRun(ctx context.Context, in models.NewRun) (*models.Run, error)
	GetRun(ctx context.Context, id int64) (*models.Run, error)
	RecordOptimize(ctx context.Context, id int64, pack *models.OptimizePack, qc map[string]models.QCResult) error
	RecordApproval(ctx context.Context, id int64, approval *models.Approval) error
	RecordAudit(ctx context.Context, id int64, audit models.AuditResult) error
	RecordFixedPage(ctx context.Context, id int64, page models.Page, audit models.AuditResult, diff *models.PageDiff) error
	RecordExport(ctx context.Context, id int64, rec models.ExportRecord) error
	AddEvent(ctx context.Context, e models.Event) (models.Event, error)
	ListEvents(ctx context.Context, runID int64) ([]models.Event, error)
	AddJobLog(ctx context.Context, l models.JobLog) error
}

// Options wires a Service. Store and Sink are required.
type Options struct {
	Store     Store
	Sink      storage.Sink
	Rubric    *rubric.Holder
	Rewriter  rewrite.Rewriter
	Optimizer rewrite.Optimizer
	Renderer  *render.Renderer
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	BaseURL   string
	Workers   int
	Now       func() time.Time
}

// Service runs pipeline operations. Operations on the same run id are
// serialized; different runs proceed concurrently.
type Service struct {
	store     Store
	sink      storage.Sink
	rubric    *rubric.Holder
	rewriter  rewrite.Rewriter
	optimizer rewrite.Optimizer
	renderer  *render.Renderer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	baseURL   string
	workers   int
	now       func() time.Time
	locks     keyedMutex
}

// New validates opts and fills defaults.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("pipeline: export sink is required")
	}
	if opts.Rubric == nil {
		opts.Rubric = rubric.NewHolder(nil)
	}
	if opts.Renderer == nil {
		r, err := render.New()
		if err != nil {
			return nil, err
		}
		opts.Renderer = r
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:     opts.Store,
		sink:      opts.Sink,
		rubric:    opts.Rubric,
		rewriter:  opts.Rewriter,
		optimizer: opts.Optimizer,
		renderer:  opts.Renderer,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		workers:   opts.Workers,
		now:       opts.Now,
	}, nil
}

// Rubric returns the active rubric table.
func (s *Service) Rubric() *rubric.Rubric {
	return s.rubric.Current()
}

// CanonicalURL is the fallback canonical for a run.
func (s *Service) CanonicalURL(id int64) string {
	return fmt.Sprintf("%s/r/%d", s.baseURL, id)
}

// loop builds the fix loop over the current rubric so a reloaded table
// takes effect on the next operation.
func (s *Service) loop(r *rubric.Rubric) *fixer.Loop {
	auditor := audit.New(r)
	orch := fixer.NewOrchestrator(enforce.New(r, s.baseURL), s.rewriter, s.logger)
	return fixer.NewLoop(orch, auditor, s.logger)
}

// optimizerFor puts the configured optimizer in front of the template one
// for the current rubric.
func (s *Service) optimizerFor(r *rubric.Rubric) rewrite.Optimizer {
	tmpl := rewrite.NewTemplateOptimizer(r)
	if s.optimizer == nil {
		return tmpl
	}
	return &rewrite.Fallback{Primary: s.optimizer, Secondary: tmpl, Logger: s.logger}
}

// logJob records an operation in the job log and metrics. A failed write is
// logged and otherwise ignored so it never fails the operation itself.
func (s *Service) logJob(ctx context.Context, runID int64, job, status string, start time.Time, detail map[string]any) {
	elapsed := time.Since(start)
	s.metrics.ObserveJob(job, status, elapsed)

	data, err := json.Marshal(detail)
	if err != nil {
		s.logger.Warn("failed to encode job detail", "run_id", runID, "job", job, "error", err)
		data = nil
	}
	entry := models.JobLog{
		RunID:     runID,
		JobName:   job,
		Status:    status,
		Detail:    string(data),
		ElapsedMS: elapsed.Milliseconds(),
		Timestamp: s.now(),
	}
	if err := s.store.AddJobLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to write job log", "run_id", runID, "job", job, "error", err)
	}
	s.logger.Info("job finished", "run_id", runID, "job", job, "status", status, "elapsed_ms", entry.ElapsedMS)
}

// CreateRun stores a new DRAFT run. An empty intent defaults to purchase.
func (s *Service) CreateRun(ctx context.Context, in models.NewRun) (*models.Run, error) {
	start := time.Now()
	if strings.TrimSpace(in.Intent) == "" {
		in.Intent = models.IntentPurchase
	}
	run, err := s.store.CreateRun(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	s.logJob(ctx, run.ID, JobRunNew, StatusOK, start, map[string]any{
		"primary_keyword": run.PrimaryKeyword,
		"intent":          run.Intent,
	})
	return run, nil
}

// GetRun loads a run.
func (s *Service) GetRun(ctx context.Context, id int64) (*models.Run, error) {
	return s.store.GetRun(ctx, id)
}
