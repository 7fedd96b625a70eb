// Package enforce rewrites a page snapshot so it meets as many rubric
// thresholds as can be reached mechanically. Every function here is pure;
// RuleFix applied to its own output returns the same page.
package enforce

import (
	"fmt"
	"html"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/dtnitsch/landing-ops/pkg/audit"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
)

const (
	// maxPadAppends bounds how often a pad phrase is appended to a short field.
	maxPadAppends = 8
	// maxSettlePasses bounds how often the body steps are rerun.
	maxSettlePasses = 6
)

// Engine applies the enforcement rules of one rubric.
type Engine struct {
	r       *rubric.Rubric
	baseURL string
}

// New returns an engine for r (the default rubric when nil). baseURL is
// used to backfill canonical URLs.
func New(r *rubric.Rubric, baseURL string) *Engine {
	if r == nil {
		r = rubric.Default()
	}
	return &Engine{r: r, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Rubric returns the table the engine was built with.
func (e *Engine) Rubric() *rubric.Rubric {
	return e.r
}

// CanonicalFor returns the fallback canonical URL of a run.
func (e *Engine) CanonicalFor(runID int64) string {
	base := e.baseURL
	if base == "" {
		base = "https://example.com"
	}
	return fmt.Sprintf("%s/r/%d", base, runID)
}

// RuleFix runs the deterministic transform chain. runID <= 0 skips the
// canonical backfill.
func (e *Engine) RuleFix(p models.Page, t models.Targeting, runID int64) models.Page {
	out := trimmed(p)
	kw := t.Keyword()
	filler := e.fillKeyword(kw)
	c := e.r.Copy

	out.MetaTitle = clampLen(out.MetaTitle, e.r.Enforce.Title, rubric.Fill(c.TitlePad, filler))
	out.MetaDescription = clampLen(out.MetaDescription, e.r.Enforce.Description, rubric.Fill(c.DescriptionPad, filler))
	out.H1 = ensureKeywordInH1(out.H1, kw, filler)
	if out.CTA == "" {
		out.CTA = e.defaultCTA(t)
	}
	out.BodyHTML = e.ensureSections(out.BodyHTML, t, filler, e.r.MinH2For(t))
	out.FAQ = e.ensureFAQ(out.FAQ, filler)
	out.BodyHTML = e.settleBody(out.BodyHTML, t, filler)

	if out.CanonicalURL == "" && runID > 0 {
		out.CanonicalURL = e.CanonicalFor(runID)
	}
	backfillOG(&out)
	out.SyncFAQJSONLD()
	return out
}

// settleBody runs the length, lead, supporting, disclaimer and density
// steps until the body stops changing. Density reduction shortens the body
// and can drop it back under the word minimum, so one pass is not enough.
func (e *Engine) settleBody(body string, t models.Targeting, filler string) string {
	for pass := 0; pass < maxSettlePasses; pass++ {
		next := e.ensureBodyLength(body, filler)
		next = e.ensureLead(next, t)
		next = e.ensureSupporting(next, t)
		next = e.ensureDisclaimer(next)
		next = e.ReduceKeywordDensity(next, t.Keyword(), t.Supporting()...)
		if next == body {
			return body
		}
		body = next
	}
	return body
}

// trimmed returns a deep copy with surrounding whitespace removed.
func trimmed(p models.Page) models.Page {
	out := p.Clone()
	out.MetaTitle = strings.TrimSpace(out.MetaTitle)
	out.MetaDescription = strings.TrimSpace(out.MetaDescription)
	out.CanonicalURL = strings.TrimSpace(out.CanonicalURL)
	out.OGTitle = strings.TrimSpace(out.OGTitle)
	out.OGDescription = strings.TrimSpace(out.OGDescription)
	out.H1 = strings.TrimSpace(out.H1)
	out.BodyHTML = strings.TrimSpace(out.BodyHTML)
	out.CTA = strings.TrimSpace(out.CTA)
	return out
}

// fillKeyword is the text substituted for {kw} in canned copy. Pages
// without a primary keyword get the neutral phrase so templates still read.
func (e *Engine) fillKeyword(kw string) string {
	if kw != "" {
		return kw
	}
	return e.r.Enforce.NeutralPhrase
}

func (e *Engine) defaultCTA(t models.Targeting) string {
	if t.IsPurchase() {
		return e.r.Copy.CTAPurchase
	}
	return e.r.Copy.CTAOther
}

// clampLen collapses whitespace, appends pad until the window minimum is
// met and truncates at the maximum on a rune boundary.
func clampLen(s string, w rubric.Window, pad string) string {
	s = strings.Join(strings.Fields(s), " ")
	pad = strings.Join(strings.Fields(pad), " ")
	for i := 0; analytics.RuneLen(s) < w.Min && pad != "" && i < maxPadAppends; i++ {
		if s == "" {
			s = pad
		} else {
			s = s + " " + pad
		}
	}
	if analytics.RuneLen(s) > w.Max {
		s = strings.TrimSpace(analytics.TruncateRunes(s, w.Max))
	}
	return s
}

func ensureKeywordInH1(h1, kw, fallback string) string {
	h1 = strings.TrimSpace(h1)
	if h1 == "" {
		return fallback
	}
	if kw != "" && !strings.Contains(analytics.Normalize(h1), analytics.Normalize(kw)) {
		return kw + " " + h1
	}
	return h1
}

func backfillOG(p *models.Page) {
	if p.OGTitle == "" {
		p.OGTitle = p.MetaTitle
	}
	if p.OGDescription == "" {
		p.OGDescription = p.MetaDescription
	}
}

func appendBlock(body, block string) string {
	if body == "" {
		return block
	}
	return body + "\n" + block
}

// fillBody substitutes {kw} with the HTML-escaped keyword for body markup.
func fillBody(tmpl, kw string) string {
	return rubric.Fill(tmpl, html.EscapeString(kw))
}

// sectionCandidates returns the canned H2 sections in order, purchase
// sections last.
func (e *Engine) sectionCandidates(t models.Targeting, filler string) []string {
	c := e.r.Copy
	out := make([]string, 0, len(c.Sections)+len(c.PurchaseSections))
	for _, s := range c.Sections {
		out = append(out, fillBody(s, filler))
	}
	if t.IsPurchase() {
		for _, s := range c.PurchaseSections {
			out = append(out, fillBody(s, filler))
		}
	}
	return out
}

func (e *Engine) ensureSections(body string, t models.Targeting, filler string, minH2 int) string {
	current := audit.CountH2(body)
	if current >= minH2 {
		return body
	}
	for _, s := range e.sectionCandidates(t, filler) {
		if current >= minH2 {
			break
		}
		body = appendBlock(body, s)
		current = audit.CountH2(body)
	}
	return body
}

func (e *Engine) ensureFAQ(faq []models.FAQItem, filler string) []models.FAQItem {
	out := append([]models.FAQItem(nil), faq...)
	existing := make(map[string]struct{}, len(out))
	complete := 0
	for _, f := range out {
		existing[strings.TrimSpace(f.Q)] = struct{}{}
		if f.Complete() {
			complete++
		}
	}
	for _, cand := range e.r.Copy.FAQ {
		if complete >= e.r.Enforce.MinFAQ {
			break
		}
		item := models.FAQItem{Q: rubric.Fill(cand.Q, filler), A: rubric.Fill(cand.A, filler)}
		if _, ok := existing[item.Q]; ok {
			continue
		}
		out = append(out, item)
		existing[item.Q] = struct{}{}
		complete++
	}
	return out
}

// ensureBodyLength appends expansion blocks, preferring ones the body does
// not already contain, until the word minimum or the cycle cap is reached.
func (e *Engine) ensureBodyLength(body, filler string) string {
	blocks := make([]string, len(e.r.Copy.Expansions))
	for i, b := range e.r.Copy.Expansions {
		blocks[i] = fillBody(b, filler)
	}
	if len(blocks) == 0 {
		return body
	}

	words := analytics.WordCount(analytics.StripTags(body))
	next := 0
	for cycle := 0; words < e.r.Enforce.MinWords && cycle < e.r.Enforce.MaxExpandCycles; cycle++ {
		idx := next % len(blocks)
		for i := 0; i < len(blocks); i++ {
			j := (next + i) % len(blocks)
			if !strings.Contains(body, blocks[j]) {
				idx = j
				break
			}
		}
		body = appendBlock(body, blocks[idx])
		next = idx + 1
		words = analytics.WordCount(analytics.StripTags(body))
	}
	return body
}

// keywordList renders " (a, b, c)" for lead paragraphs.
func keywordList(supporting []string) string {
	if len(supporting) == 0 {
		return ""
	}
	if len(supporting) > 3 {
		supporting = supporting[:3]
	}
	escaped := make([]string, len(supporting))
	for i, s := range supporting {
		escaped[i] = html.EscapeString(s)
	}
	return " (" + strings.Join(escaped, ", ") + ")"
}

func (e *Engine) leadFor(t models.Targeting) string {
	tmpl := e.r.Copy.LeadOther
	if t.IsPurchase() {
		tmpl = e.r.Copy.LeadPurchase
	}
	tmpl = strings.ReplaceAll(tmpl, "{keywords}", keywordList(t.Supporting()))
	return fillBody(tmpl, t.Keyword())
}

// ensureLead prepends a keyword lead when the keyword is missing from the
// opening words of the body.
func (e *Engine) ensureLead(body string, t models.Targeting) string {
	kw := t.Keyword()
	if kw == "" {
		return body
	}
	if analytics.MeasureBody(body).InFirst(kw, e.r.Audit.FirstWords) {
		return body
	}
	lead := e.leadFor(t)
	if body == "" {
		return lead
	}
	return lead + "\n" + body
}

// ensureSupporting names the missing supporting keywords when fewer than
// min(MinSupporting, len) are present.
func (e *Engine) ensureSupporting(body string, t models.Targeting) string {
	sup := t.Supporting()
	need := min(e.r.Enforce.MinSupporting, len(sup))
	if need == 0 {
		return body
	}
	stats := analytics.MeasureBody(body)
	if stats.Hits(sup) >= need {
		return body
	}
	var missing []string
	for _, s := range sup {
		if stats.Hits([]string{s}) == 0 {
			missing = append(missing, "<b>"+html.EscapeString(s)+"</b>")
		}
	}
	line := strings.ReplaceAll(e.r.Copy.SupportingLine, "{keywords}", strings.Join(missing, ", "))
	return appendBlock(body, fillBody(line, t.Keyword()))
}

func (e *Engine) ensureDisclaimer(body string) string {
	if _, ok := analytics.MeasureBody(body).ContainsAny(e.r.Compliance.DisclaimerPhrases); ok {
		return body
	}
	return appendBlock(body, e.r.Copy.Disclaimer)
}
