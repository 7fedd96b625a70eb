package models

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by stores when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Stage is a run's lifecycle label.
type Stage string

const (
	StageDraft     Stage = "DRAFT"
	StageABReady   Stage = "AB_READY"
	StageApproved  Stage = "APPROVED"
	StageAuditDone Stage = "AUDIT_DONE"
	StageFixed     Stage = "FIXED"
	StageExported  Stage = "EXPORTED"
)

// Stages lists every stage in lifecycle order.
var Stages = []Stage{StageDraft, StageABReady, StageApproved, StageAuditDone, StageFixed, StageExported}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Run is the persisted record for one landing page.
type Run struct {
	ID              int64     `json:"run_id"`
	Stage           Stage     `json:"stage"`
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	LandingText     string    `json:"landing_text"`
	Targeting
	H1            string    `json:"h1"`
	BodyHTML      string    `json:"body_html"`
	CTA           string    `json:"cta"`
	FAQ           []FAQItem `json:"faq"`
	CanonicalURL  string    `json:"canonical_url"`
	OGTitle       string    `json:"og_title"`
	OGDescription string    `json:"og_description"`
	BuyURL        string    `json:"buy_url"`
	Products      []Product `json:"products"`

	Optimize *OptimizePack       `json:"optimize,omitempty"`
	QC       map[string]QCResult `json:"qc,omitempty"`
	Approved *Approval           `json:"approved,omitempty"`
	Audit    *AuditResult        `json:"audit,omitempty"`
	Fixed    *Page               `json:"fixed,omitempty"`
	FixDiff  *PageDiff           `json:"fix_diff,omitempty"`
	Export   *ExportRecord       `json:"export,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Verdict returns the latest recorded audit verdict, UNKNOWN when none.
func (r *Run) Verdict() Verdict {
	if r.Audit == nil || r.Audit.Overall == "" {
		return VerdictUnknown
	}
	return r.Audit.Overall
}

// NewRun is the input for creating a draft run.
type NewRun struct {
	MetaTitle          string    `json:"meta_title" binding:"max=300"`
	MetaDescription    string    `json:"meta_description" binding:"max=1000"`
	LandingText        string    `json:"landing_text"`
	PrimaryKeyword     string    `json:"primary_keyword" binding:"max=100"`
	SupportingKeywords []string  `json:"supporting_keywords" binding:"max=20,dive,max=100"`
	Intent             string    `json:"intent" binding:"max=20"`
	H1                 string    `json:"h1"`
	BodyHTML           string    `json:"body_html"`
	CTA                string    `json:"cta"`
	FAQ                []FAQItem `json:"faq"`
	CanonicalURL       string    `json:"canonical_url"`
	BuyURL             string    `json:"buy_url" binding:"omitempty,url"`
	Products           []Product `json:"products"`
}

// RunSummary is the compact listing row.
type RunSummary struct {
	ID             int64     `json:"run_id"`
	Stage          Stage     `json:"stage"`
	MetaTitle      string    `json:"meta_title"`
	PrimaryKeyword string    `json:"primary_keyword"`
	Intent         string    `json:"intent"`
	AuditOverall   Verdict   `json:"audit_overall,omitempty"`
	AuditScore     *int      `json:"audit_score,omitempty"`
	ApprovedVar    string    `json:"approved_variant,omitempty"`
	Exported       bool      `json:"exported"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Query   string
	Stage   Stage
	Verdict Verdict
	Sort    string // "updated" (default), "created", "score"
	Limit   int
	Offset  int
}

// FieldChange is one before/after scalar.
type FieldChange struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// FAQDelta is the FAQ count before and after a fix.
type FAQDelta struct {
	BeforeCount int `json:"before_count"`
	AfterCount  int `json:"after_count"`
}

// PageDiff is computed once between the first and the final page of a fix.
type PageDiff struct {
	Changed map[string]FieldChange `json:"changed"`
	FAQ     FAQDelta               `json:"faq"`
}

// ExportRecord locates a rendered export artifact.
type ExportRecord struct {
	Path      string    `json:"path"`
	Sink      string    `json:"sink"`
	SHA256    string    `json:"sha256"`
	Timestamp time.Time `json:"ts"`
}

// JobLog is one row of the operation audit trail.
type JobLog struct {
	ID        int64     `json:"id"`
	RunID     int64     `json:"run_id"`
	JobName   string    `json:"job_name"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail_json"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Timestamp time.Time `json:"ts"`
}

// StoreSummary aggregates row counts for the admin view.
type StoreSummary struct {
	Runs    int           `json:"runs"`
	Events  int           `json:"events"`
	JobLogs int           `json:"job_logs"`
	Stages  map[Stage]int `json:"stages"`
}
