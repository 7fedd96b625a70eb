// Package audit scores a page snapshot against the rubric. Audits never
// fail: missing or degenerate input simply produces more issues.
package audit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
)

var (
	h1Pattern = regexp.MustCompile(`(?is)<h1\b[^>]*>.*?</h1>`)
	h2Pattern = regexp.MustCompile(`(?is)<h2\b[^>]*>.*?</h2>`)
)

// CountH1 counts <h1> blocks in markup.
func CountH1(markup string) int {
	return len(h1Pattern.FindAllStringIndex(markup, -1))
}

// CountH2 counts <h2> blocks in markup.
func CountH2(markup string) int {
	return len(h2Pattern.FindAllStringIndex(markup, -1))
}

// Auditor evaluates pages against one rubric.
type Auditor struct {
	r *rubric.Rubric
}

// New returns an auditor for r, or for the default rubric when r is nil.
func New(r *rubric.Rubric) *Auditor {
	if r == nil {
		r = rubric.Default()
	}
	return &Auditor{r: r}
}

// Measure computes the signals an audit is based on.
func (a *Auditor) Measure(p models.Page, t models.Targeting) models.Signals {
	body := analytics.MeasureBody(p.BodyHTML)
	kw := t.Keyword()
	supporting := t.Supporting()

	s := models.Signals{
		TitleLen:          analytics.RuneLen(strings.TrimSpace(p.MetaTitle)),
		DescLen:           analytics.RuneLen(strings.TrimSpace(p.MetaDescription)),
		H1Count:           CountH1(p.BodyHTML),
		H2Count:           CountH2(p.BodyHTML),
		WordCount:         body.Words,
		FAQCount:          p.CompleteFAQCount(),
		SupportingKwHits:  body.Hits(supporting),
		SupportingKwTotal: len(supporting),
	}
	if strings.TrimSpace(p.H1) != "" && s.H1Count == 0 {
		s.H1Count = 1
	}
	s.HasFAQJSONLD = p.HasFAQJSONLD

	if nkw := analytics.Normalize(kw); nkw != "" {
		s.PrimaryKwInH1 = strings.Contains(analytics.Normalize(p.H1), nkw)
		s.PrimaryKwInFirst = body.InFirst(kw, a.r.Audit.FirstWords)
		s.PrimaryKwOccurrence = analytics.Occurrences(body.Normalized, nkw)
		s.PrimaryKwDensity = body.DensityOf(kw)
	}

	s.BannedTerm = a.bannedTerm(body.Text, p)
	_, s.HasDisclaimer = body.ContainsAny(a.r.Compliance.DisclaimerPhrases)
	return s
}

func (a *Auditor) bannedTerm(bodyText string, p models.Page) string {
	for _, w := range a.r.Compliance.BannedTerms {
		if w == "" {
			continue
		}
		if strings.Contains(bodyText, w) || strings.Contains(p.MetaTitle, w) || strings.Contains(p.MetaDescription, w) {
			return w
		}
	}
	return ""
}

// Audit evaluates every rule and returns a fresh result.
func (a *Auditor) Audit(p models.Page, t models.Targeting) models.AuditResult {
	r := a.r
	s := a.Measure(p, t)
	kw := t.Keyword()
	title := strings.TrimSpace(p.MetaTitle)
	desc := strings.TrimSpace(p.MetaDescription)

	var issues []models.Issue
	penalty := 0
	add := func(id, message, hint string) {
		def := r.Rule(id)
		issues = append(issues, models.Issue{RuleID: id, Severity: def.Severity, Message: message, FixHint: hint})
		penalty += def.Penalty
	}

	// T rules
	if title == "" {
		add("T001", "Meta title이 비어 있습니다.", "primary keyword를 포함한 35~55자 title을 작성하세요.")
	} else if !r.Audit.Title.Contains(s.TitleLen) {
		add("T002", fmt.Sprintf("Meta title 길이가 권장 범위(%d~%d자)가 아닙니다. (len=%d)", r.Audit.Title.Min, r.Audit.Title.Max, s.TitleLen),
			"너무 짧으면 USP와 키워드를 보강하고, 너무 길면 군더더기를 줄이세요.")
	}
	if desc == "" {
		add("T003", "Meta description이 비어 있습니다.", "90~150자 안에서 혜택과 차별점을 과장 없이 작성하세요.")
	} else if !r.Audit.Description.Contains(s.DescLen) {
		add("T004", fmt.Sprintf("Meta description 길이가 권장 범위(%d~%d자)가 아닙니다. (len=%d)", r.Audit.Description.Min, r.Audit.Description.Max, s.DescLen),
			"너무 짧으면 설명을 보강하고, 너무 길면 핵심만 남기세요.")
	}
	if strings.TrimSpace(p.CanonicalURL) == "" {
		add("T005", "Canonical URL이 없습니다.", "배포 URL이 정해지면 canonical을 고정하세요.")
	}
	if s.H1Count != 1 {
		add("T006", fmt.Sprintf("H1 개수가 1개가 아닙니다. (count=%d)", s.H1Count), "H1을 하나로 통합하고 primary keyword를 포함하세요.")
	}
	if strings.TrimSpace(p.OGTitle) == "" || strings.TrimSpace(p.OGDescription) == "" {
		add("T007", "OpenGraph 태그(og:title/og:description)가 부족합니다.", "meta title/description을 재사용해 OG를 채우세요.")
	}

	// C rules
	if kw != "" && !s.PrimaryKwInH1 {
		add("C001", "H1에 primary keyword가 없습니다.", "H1에 primary keyword를 자연스럽게 포함하세요.")
	}
	if kw != "" && !s.PrimaryKwInFirst {
		add("C002", fmt.Sprintf("본문 처음 %d단어 안에 primary keyword가 없습니다.", r.Audit.FirstWords), "첫 단락에 primary keyword를 한 번 포함하세요.")
	}
	if s.SupportingKwTotal > 0 && s.SupportingKwHits < r.Audit.MinSupporting {
		add("C003", fmt.Sprintf("Supporting keyword 커버리지가 부족합니다. (hits=%d)", s.SupportingKwHits), "섹션마다 supporting keyword를 자연스럽게 포함하세요.")
	}
	if s.H2Count < r.Audit.MinH2 {
		add("C004", fmt.Sprintf("H2 섹션 수가 부족합니다. (h2=%d)", s.H2Count),
			fmt.Sprintf("intent(%s)에 맞는 H2 섹션을 %d개 이상 구성하세요.", t.Intent, r.Audit.MinH2))
	}
	if s.WordCount < r.Audit.MinWords {
		add("C005", fmt.Sprintf("본문이 얇습니다. (단어 수 %d)", s.WordCount), fmt.Sprintf("섹션을 확장해 %d단어 이상으로 보강하세요.", r.Audit.MinWords))
	}
	if kw != "" && s.PrimaryKwDensity > r.Audit.MaxDensityPct {
		add("C007", fmt.Sprintf("Primary keyword 반복이 과다합니다. (density≈%.2f%%)", s.PrimaryKwDensity), "동의어나 지시어로 반복을 줄이세요.")
	}

	// E rules
	if s.BannedTerm != "" {
		add("E002", fmt.Sprintf("금칙/오인 표현 감지: '%s'", s.BannedTerm), "효능 단정이나 치료 표현을 삭제하거나 완화하세요.")
	}
	if !s.HasDisclaimer {
		add("E001", "개인차/주의 문구가 부족합니다.", "하단에 개인차와 패치 테스트 안내 문구를 추가하세요.")
	}

	// S rules
	if s.FAQCount < r.Audit.MinFAQ {
		add("S001", fmt.Sprintf("FAQ가 부족합니다. (faq_count=%d)", s.FAQCount), fmt.Sprintf("FAQ를 %d개 이상 추가하세요.", r.Audit.MinFAQ))
	}
	if s.FAQCount >= r.Audit.MinFAQ && !s.HasFAQJSONLD {
		add("S002", "FAQ JSON-LD가 없습니다.", "FAQPage JSON-LD를 생성해 삽입하세요.")
	}

	return models.AuditResult{
		Overall:       Verdict(issues, r.Audit.WarnsForWarn),
		Score:         max(0, 100-penalty),
		Issues:        issues,
		Signals:       s,
		RubricVersion: r.Version,
	}
}

// Verdict is FAIL when any issue fails, WARN when at least warnThreshold
// issues warn, PASS otherwise. INFO issues never count.
func Verdict(issues []models.Issue, warnThreshold int) models.Verdict {
	warns := 0
	for _, i := range issues {
		switch i.Severity {
		case models.SeverityFail:
			return models.VerdictFail
		case models.SeverityWarn:
			warns++
		}
	}
	if warns >= warnThreshold {
		return models.VerdictWarn
	}
	return models.VerdictPass
}
