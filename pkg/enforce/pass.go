package enforce

import (
	"regexp"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/dtnitsch/landing-ops/pkg/audit"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
)

var (
	h1Open  = regexp.MustCompile(`(?i)<h1\b`)
	h1Close = regexp.MustCompile(`(?i)</h1\s*>`)
	h2Text  = regexp.MustCompile(`(?is)<h2\b[^>]*>(.*?)</h2>`)
)

// FitForPass tightens a rule-fixed page to the audit's own windows, which
// are narrower than the enforcement windows: title and description lengths,
// keyword placement, a single H1 and the audit's H2 minimum for every
// intent. It runs after each hybrid round of the convergence loop.
func (e *Engine) FitForPass(p models.Page, t models.Targeting) models.Page {
	out := trimmed(p)
	kw := t.Keyword()
	filler := e.fillKeyword(kw)
	c := e.r.Copy

	title := out.MetaTitle
	if kw != "" && !containsFold(title, kw) {
		if title == "" {
			title = rubric.Fill(c.PassTitleFallback, kw)
		} else {
			title = kw + " " + title
		}
	}
	titlePad := c.PassTitlePadOther
	if t.IsPurchase() {
		titlePad = c.PassTitlePadPurchase
	}
	out.MetaTitle = clampLen(title, e.r.Audit.Title, rubric.Fill(titlePad, filler))

	desc := out.MetaDescription
	if kw != "" && !containsFold(desc, kw) {
		if desc == "" {
			desc = rubric.Fill(c.PassDescriptionLead, kw)
		} else {
			desc = kw + " " + desc
		}
	}
	desc = clampLen(desc, e.r.Audit.Description, rubric.Fill(c.PassDescriptionPad, filler))
	out.MetaDescription = ensureSentenceEnd(desc, e.r.Audit.Description.Max)

	out.H1 = ensureKeywordInH1(out.H1, kw, filler)
	out.BodyHTML = e.ensureLead(out.BodyHTML, t)
	out.BodyHTML = demoteBodyH1(out.BodyHTML, out.H1 != "")
	out.BodyHTML = e.topUpSections(out.BodyHTML, t, filler, e.r.Audit.MinH2)

	backfillOG(&out)
	out.SyncFAQJSONLD()
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(analytics.Normalize(s), analytics.Normalize(sub))
}

// ensureSentenceEnd terminates text with a period, cutting the last rune
// when there is no room left.
func ensureSentenceEnd(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(lastRune(text), ".!?") {
		return text
	}
	if analytics.RuneLen(text)+1 <= maxLen {
		return text + "."
	}
	r := []rune(analytics.TruncateRunes(text, maxLen))
	r[len(r)-1] = '.'
	return string(r)
}

func lastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return ""
	}
	return string(r[len(r)-1])
}

// demoteBodyH1 rewrites <h1> blocks in the body as <h2>. When the page
// carries its own H1 field every body H1 is demoted, otherwise the first
// one is kept.
func demoteBodyH1(body string, hasH1Field bool) string {
	if audit.CountH1(body) == 0 || (!hasH1Field && audit.CountH1(body) == 1) {
		return body
	}
	skip := 0
	if !hasH1Field {
		skip = 1
	}
	opens := h1Open.FindAllStringIndex(body, -1)
	closes := h1Close.FindAllStringIndex(body, -1)
	if skip >= len(opens) || skip >= len(closes) {
		return body
	}
	cut := opens[skip][0]
	tail := h1Open.ReplaceAllString(body[cut:], "<h2")
	tail = h1Close.ReplaceAllString(tail, "</h2>")
	return body[:cut] + tail
}

// topUpSections appends canned sections whose heading is not already in
// the body until the H2 count reaches minH2.
func (e *Engine) topUpSections(body string, t models.Targeting, filler string, minH2 int) string {
	current := audit.CountH2(body)
	if current >= minH2 {
		return body
	}
	present := make(map[string]struct{})
	for _, m := range h2Text.FindAllStringSubmatch(body, -1) {
		present[analytics.Normalize(analytics.StripTags(m[1]))] = struct{}{}
	}
	candidates := append(e.sectionCandidates(t, filler), e.sectionCandidates(models.Targeting{Intent: models.IntentPurchase}, filler)...)
	for _, s := range candidates {
		if current >= minH2 {
			break
		}
		heading := ""
		if m := h2Text.FindStringSubmatch(s); m != nil {
			heading = analytics.Normalize(analytics.StripTags(m[1]))
		}
		if _, ok := present[heading]; ok {
			continue
		}
		present[heading] = struct{}{}
		body = appendBlock(body, s)
		current = audit.CountH2(body)
	}
	return body
}
