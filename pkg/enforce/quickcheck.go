package enforce

import (
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/dtnitsch/landing-ops/pkg/audit"
)

// QuickCheck reports whether a page is likely to pass without running the
// full audit. It reads the rubric's quickcheck block, which is looser than
// the audit thresholds; a true result only means the rewrite assist is not
// worth calling.
func (e *Engine) QuickCheck(p models.Page, t models.Targeting) bool {
	q := e.r.QuickCheck
	if !q.Title.Contains(analytics.RuneLen(strings.TrimSpace(p.MetaTitle))) {
		return false
	}
	if !q.Description.Contains(analytics.RuneLen(strings.TrimSpace(p.MetaDescription))) {
		return false
	}
	if strings.TrimSpace(p.H1) == "" || strings.TrimSpace(p.CanonicalURL) == "" {
		return false
	}
	if p.CompleteFAQCount() < q.MinFAQ {
		return false
	}
	if audit.CountH2(p.BodyHTML) < e.r.MinH2For(t) {
		return false
	}

	body := analytics.MeasureBody(p.BodyHTML)
	if body.Words < q.MinWords {
		return false
	}
	kw := t.Keyword()
	if kw != "" {
		if !body.InFirst(kw, e.r.Audit.FirstWords) {
			return false
		}
		if body.DensityOf(kw) > q.MaxDensityPct {
			return false
		}
	}
	if sup := t.Supporting(); len(sup) > 0 && body.Hits(sup) < min(q.MinSupporting, len(sup)) {
		return false
	}
	for _, phrase := range q.RequiredPhrases {
		if !strings.Contains(body.Text, phrase) {
			return false
		}
	}
	return true
}
