// Package rewrite is the optional text-generation assist: a Rewriter that
// proposes a partial page patch and an Optimizer that drafts A/B copy.
// Replies are untrusted; anything malformed is reported as ErrNoPatch and
// callers carry on without it.
package rewrite

import (
	"context"
	"errors"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/go-playground/validator/v10"
)

// ErrNoPatch means the assist produced nothing usable.
var ErrNoPatch = errors.New("rewrite: no usable patch")

var validate = validator.New()

// Constraints are the thresholds the assist is asked to respect.
type Constraints struct {
	TitleLen          [2]int  `json:"meta_title_length"`
	DescriptionLen    [2]int  `json:"meta_description_length"`
	MinBodyWords      int     `json:"min_body_words"`
	MinH2             int     `json:"min_h2_sections"`
	MinFAQ            int     `json:"min_faq"`
	MinSupportingHits int     `json:"supporting_keywords_min_hits"`
	MaxDensityPct     float64 `json:"keyword_density_max_pct"`
}

// Request is the bounded payload sent to a Rewriter.
type Request struct {
	Page        models.Page      `json:"current_page"`
	Issues      []models.Issue   `json:"issues"`
	Targeting   models.Targeting `json:"targeting"`
	Constraints Constraints      `json:"constraints"`
}

// Patch is the subset of page fields a Rewriter may return.
type Patch struct {
	MetaTitle       string           `json:"meta_title" validate:"max=200"`
	MetaDescription string           `json:"meta_description" validate:"max=500"`
	H1              string           `json:"h1" validate:"max=200"`
	BodyHTML        string           `json:"body_html" validate:"max=200000"`
	CTA             string           `json:"cta" validate:"max=100"`
	FAQ             []models.FAQItem `json:"faq" validate:"max=20"`
}

// Empty reports whether the patch carries no field worth merging.
func (p *Patch) Empty() bool {
	if p == nil {
		return true
	}
	for _, s := range []string{p.MetaTitle, p.MetaDescription, p.H1, p.BodyHTML, p.CTA} {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return len(completeFAQ(p.FAQ)) == 0
}

// Rewriter proposes a patch for a page that failed the quick check.
type Rewriter interface {
	Rewrite(ctx context.Context, req Request) (*Patch, error)
}

// OptimizeRequest is the context for drafting an A/B pack.
type OptimizeRequest struct {
	Targeting       models.Targeting
	MetaTitle       string
	MetaDescription string
	LandingText     string
}

// Optimizer drafts two copy variants for a run.
type Optimizer interface {
	Optimize(ctx context.Context, req OptimizeRequest) (*models.OptimizePack, error)
}

func completeFAQ(in []models.FAQItem) []models.FAQItem {
	var out []models.FAQItem
	for _, f := range in {
		if f.Complete() {
			out = append(out, models.FAQItem{Q: strings.TrimSpace(f.Q), A: strings.TrimSpace(f.A)})
		}
	}
	return out
}

// Merge overlays the non-empty fields of patch on p. FAQ is replaced only
// when the patch has at least one complete entry.
func Merge(p models.Page, patch *Patch) models.Page {
	out := p.Clone()
	if patch == nil {
		return out
	}
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&out.MetaTitle, patch.MetaTitle)
	set(&out.MetaDescription, patch.MetaDescription)
	set(&out.H1, patch.H1)
	set(&out.BodyHTML, patch.BodyHTML)
	set(&out.CTA, patch.CTA)
	if faq := completeFAQ(patch.FAQ); len(faq) > 0 {
		out.FAQ = faq
	}
	out.SyncFAQJSONLD()
	return out
}
