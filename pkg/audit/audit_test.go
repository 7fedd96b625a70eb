package audit

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTargeting = models.Targeting{
	PrimaryKeyword:     "보습 크림",
	SupportingKeywords: []string{"세라마이드", "판테놀"},
	Intent:             models.IntentPurchase,
}

func completeFAQ(n int) []models.FAQItem {
	out := make([]models.FAQItem, n)
	for i := range out {
		out[i] = models.FAQItem{Q: "질문 " + string(rune('A'+i)), A: "답변입니다."}
	}
	return out
}

func passingPage() models.Page {
	body := "<p>보습 크림 고르는 법: 세라마이드 판테놀 성분을 확인하세요.</p>" +
		"<h2>핵심</h2><h2>성분</h2><h2>루틴</h2>" +
		"<p>" + strings.Repeat("정보 ", 400) + "</p>" +
		"<p>피부 상태에 따라 개인차가 있습니다.</p>"
	p := models.Page{
		MetaTitle:       "보습 크림 추천 가이드 | 세라마이드 성분과 사용 루틴 정리",
		MetaDescription: "보습 크림을 고를 때 확인할 성분과 사용 루틴, 자주 묻는 질문을 과장 없이 정리했습니다. 피부 상태에 따라 개인차가 있습니다.",
		CanonicalURL:    "https://example.com/r/abc",
		OGTitle:         "보습 크림 가이드",
		OGDescription:   "보습 크림 정리",
		H1:              "보습 크림 고르는 법",
		BodyHTML:        body,
		CTA:             "지금 구매하기",
		FAQ:             completeFAQ(3),
	}
	p.SyncFAQJSONLD()
	return p
}

func ruleIDs(res models.AuditResult) []string {
	ids := make([]string, 0, len(res.Issues))
	for _, i := range res.Issues {
		ids = append(ids, i.RuleID)
	}
	return ids
}

func TestAuditPassingPage(t *testing.T) {
	res := New(nil).Audit(passingPage(), testTargeting)
	assert.Equal(t, models.VerdictPass, res.Overall, "issues: %v", ruleIDs(res))
	assert.Equal(t, 100, res.Score)
	assert.Empty(t, res.Issues)
	assert.Equal(t, 1, res.Signals.H1Count)
	assert.Equal(t, 3, res.Signals.H2Count)
	assert.Equal(t, 2, res.Signals.SupportingKwHits)
}

func TestAuditEmptyPage(t *testing.T) {
	res := New(nil).Audit(models.Page{}, models.Targeting{})

	assert.Equal(t, models.VerdictFail, res.Overall)
	assert.Equal(t, 0, res.Score, "score must floor at zero")
	assert.Equal(t,
		[]string{"T001", "T003", "T005", "T006", "T007", "C004", "C005", "E001", "S001"},
		ruleIDs(res))
}

func TestAuditLengthWarnings(t *testing.T) {
	p := passingPage()
	p.MetaTitle = "짧은 제목"
	p.MetaDescription = "짧은 설명"
	res := New(nil).Audit(p, testTargeting)

	assert.True(t, res.Has("T002"))
	assert.True(t, res.Has("T004"))
	assert.Equal(t, models.VerdictWarn, res.Overall)
	assert.Equal(t, 80, res.Score)
}

func TestAuditH1Counting(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		h1     string
		want   int
		failed bool
	}{
		{"field fallback", "<p>x</p>", "보습 크림", 1, false},
		{"markup wins", "<h1>보습 크림</h1><H1 class=\"x\">두번째</H1>", "보습 크림", 2, true},
		{"none", "<p>x</p>", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := passingPage()
			p.BodyHTML = tt.body + p.BodyHTML
			p.H1 = tt.h1
			res := New(nil).Audit(p, testTargeting)
			assert.Equal(t, tt.want, res.Signals.H1Count)
			assert.Equal(t, tt.failed, res.Has("T006"))
		})
	}
}

func TestAuditDensityTriggersC007(t *testing.T) {
	p := passingPage()
	p.BodyHTML = "<h2>a</h2><h2>b</h2><h2>c</h2><p>" +
		strings.Repeat("보습 크림 좋아요 ", 20) + strings.Repeat("정보 ", 350) +
		"개인차</p>"
	res := New(nil).Audit(p, testTargeting)

	require.True(t, res.Has("C007"), "issues: %v", ruleIDs(res))
	assert.Equal(t, 20, res.Signals.PrimaryKwOccurrence)
	assert.Greater(t, res.Signals.PrimaryKwDensity, 3.0)
	assert.Equal(t, models.VerdictFail, res.Overall)
}

func TestAuditBannedTermFirstMatch(t *testing.T) {
	p := passingPage()
	p.MetaTitle = "보습 크림 치료 가이드 | 세라마이드 성분과 사용 루틴 정리"
	p.BodyHTML += "<p>완치 사례</p>"
	res := New(nil).Audit(p, testTargeting)

	var e002 []models.Issue
	for _, i := range res.Issues {
		if i.RuleID == "E002" {
			e002 = append(e002, i)
		}
	}
	require.Len(t, e002, 1)
	// 완치 precedes 치료 in the term table.
	assert.Contains(t, e002[0].Message, "완치")
	assert.Equal(t, "완치", res.Signals.BannedTerm)
}

func TestAuditFAQJSONLDFlag(t *testing.T) {
	p := passingPage()
	p.HasFAQJSONLD = false
	res := New(nil).Audit(p, testTargeting)
	assert.True(t, res.Has("S002"))
	assert.False(t, res.Has("S001"))

	p.FAQ = completeFAQ(2)
	res = New(nil).Audit(p, testTargeting)
	assert.True(t, res.Has("S001"))
	assert.False(t, res.Has("S002"))
}

func TestAuditSupportingCoverage(t *testing.T) {
	p := passingPage()
	tg := testTargeting
	tg.SupportingKeywords = []string{"히알루론산", "스쿠알란"}
	assert.True(t, New(nil).Audit(p, tg).Has("C003"))

	tg.SupportingKeywords = nil
	assert.False(t, New(nil).Audit(p, tg).Has("C003"))
}

func TestVerdict(t *testing.T) {
	fail := models.Issue{Severity: models.SeverityFail}
	warn := models.Issue{Severity: models.SeverityWarn}
	info := models.Issue{Severity: models.SeverityInfo}

	tests := []struct {
		name   string
		issues []models.Issue
		want   models.Verdict
	}{
		{"empty", nil, models.VerdictPass},
		{"info only", []models.Issue{info, info, info}, models.VerdictPass},
		{"one warn", []models.Issue{warn, info}, models.VerdictPass},
		{"two warns", []models.Issue{warn, warn}, models.VerdictWarn},
		{"fail dominates", []models.Issue{warn, warn, fail}, models.VerdictFail},
		{"single fail", []models.Issue{fail}, models.VerdictFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Verdict(tt.issues, 2); got != tt.want {
				t.Errorf("Verdict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildFAQJSONLD(t *testing.T) {
	faq := []models.FAQItem{{Q: " 질문 ", A: "답변"}, {Q: "빈 답변"}, {Q: "둘", A: "예"}}
	ld := BuildFAQJSONLD(faq)

	require.Len(t, ld.MainEntity, 2)
	assert.Equal(t, "질문", ld.MainEntity[0].Name)

	raw, err := json.Marshal(ld)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"@type":"FAQPage"`)
	assert.Contains(t, string(raw), `"acceptedAnswer"`)
}

func TestCheckCopy(t *testing.T) {
	a := New(nil)

	res := a.CheckCopy("보습 크림 가이드")
	assert.Equal(t, models.VerdictPass, res.Grade)
	assert.Empty(t, res.Hits)

	res = a.CheckCopy("즉시 효과")
	assert.Equal(t, models.VerdictWarn, res.Grade)
	assert.Equal(t, []string{"즉시"}, res.Hits)

	res = a.CheckCopy("아토피 치료 즉시")
	assert.Equal(t, models.VerdictFail, res.Grade)
	assert.Contains(t, res.Hits, "치료")
	assert.Contains(t, res.Hits, "즉시")
}
