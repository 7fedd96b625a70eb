package enforce

import (
	"strings"
	"testing"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/dtnitsch/landing-ops/pkg/audit"
	"github.com/google/go-cmp/cmp"
)

var purchase = models.Targeting{
	PrimaryKeyword:     "보습 크림",
	SupportingKeywords: []string{"세라마이드", "민감 피부"},
	Intent:             models.IntentPurchase,
}

var informational = models.Targeting{
	PrimaryKeyword: "수분 크림",
	Intent:         models.IntentInformational,
}

// thinPage has an empty title and description, one section and no FAQ.
func thinPage() models.Page {
	return models.Page{
		BodyHTML: "<h2>소개</h2><p>짧은 본문입니다.</p>",
	}
}

func densePage() models.Page {
	return models.Page{
		MetaTitle: "보습 크림 추천",
		H1:        "보습 크림",
		BodyHTML: "<h2>a</h2><h2>b</h2><h2>c</h2><p>" +
			strings.Repeat("보습 크림 좋아요 ", 20) + strings.Repeat("정보 ", 350) + "개인차</p>",
	}
}

func samplePages() map[string]models.Page {
	return map[string]models.Page{
		"empty": {},
		"thin":  thinPage(),
		"dense": densePage(),
		"long title": {
			MetaTitle:       strings.Repeat("아주 긴 제목 ", 20),
			MetaDescription: strings.Repeat("설명 ", 120),
			H1:              "다른 헤드라인",
			CTA:             "신청하기",
			FAQ:             []models.FAQItem{{Q: "질문?", A: "답"}, {Q: "빈 답변"}},
		},
		"complete": {
			MetaTitle:       "보습 크림 고르는 기준과 사용 루틴 총정리 가이드",
			MetaDescription: strings.Repeat("보습 크림 설명 문장입니다. ", 6),
			CanonicalURL:    "https://shop.example/p/1",
			H1:              "보습 크림 가이드",
			BodyHTML:        "<p>보습 크림 세라마이드 민감 피부</p><h2>a</h2><h2>b</h2><h2>c</h2><p>" + strings.Repeat("단어 ", 380) + "개인차</p>",
		},
	}
}

func TestRuleFixIdempotent(t *testing.T) {
	e := New(nil, "https://example.com")
	for name, p := range samplePages() {
		for _, tg := range []models.Targeting{purchase, informational, {}} {
			t.Run(name+"/"+tg.Intent, func(t *testing.T) {
				once := e.RuleFix(p, tg, 7)
				twice := e.RuleFix(once, tg, 7)
				if diff := cmp.Diff(once, twice); diff != "" {
					t.Errorf("RuleFix() not idempotent (-once +twice):\n%s", diff)
				}
			})
		}
	}
}

func TestRuleFixFAQInvariant(t *testing.T) {
	e := New(nil, "")
	for name, p := range samplePages() {
		p.HasFAQJSONLD = !p.HasFAQJSONLD
		got := e.RuleFix(p, purchase, 0)
		if got.HasFAQJSONLD != (got.CompleteFAQCount() >= 3) {
			t.Errorf("%s: HasFAQJSONLD = %v with %d complete entries", name, got.HasFAQJSONLD, got.CompleteFAQCount())
		}
	}
}

func TestRuleFixMonotonicScore(t *testing.T) {
	e := New(nil, "https://example.com")
	a := audit.New(nil)
	for name, p := range samplePages() {
		before := a.Audit(p, purchase).Score
		after := a.Audit(e.RuleFix(p, purchase, 1), purchase).Score
		if after < before {
			t.Errorf("%s: score after RuleFix = %d, before = %d", name, after, before)
		}
	}
}

func TestRuleFixAloneSatisfiesMechanicalRules(t *testing.T) {
	e := New(nil, "https://example.com")
	fixed := e.RuleFix(thinPage(), purchase, 42)
	res := audit.New(nil).Audit(fixed, purchase)

	allowed := map[string]bool{"C001": true, "C002": true, "C007": true}
	for _, i := range res.Issues {
		if !allowed[i.RuleID] {
			t.Errorf("unexpected issue %s: %s", i.RuleID, i.Message)
		}
	}
	if fixed.CanonicalURL != "https://example.com/r/42" {
		t.Errorf("CanonicalURL = %q", fixed.CanonicalURL)
	}
	if fixed.CTA != "지금 구매하기" {
		t.Errorf("CTA = %q, want purchase default", fixed.CTA)
	}
}

func TestRuleFixWindows(t *testing.T) {
	e := New(nil, "")
	r := e.Rubric()
	for name, p := range samplePages() {
		got := e.RuleFix(p, purchase, 0)
		if n := analytics.RuneLen(got.MetaTitle); !r.Enforce.Title.Contains(n) {
			t.Errorf("%s: title length %d outside %v", name, n, r.Enforce.Title)
		}
		if n := analytics.RuneLen(got.MetaDescription); !r.Enforce.Description.Contains(n) {
			t.Errorf("%s: description length %d outside %v", name, n, r.Enforce.Description)
		}
		if got.OGTitle == "" || got.OGDescription == "" {
			t.Errorf("%s: OG fields not backfilled", name)
		}
		if !strings.Contains(got.H1, "보습 크림") {
			t.Errorf("%s: H1 = %q, want keyword", name, got.H1)
		}
	}
}

func TestRuleFixKeepsExistingFAQ(t *testing.T) {
	e := New(nil, "")
	p := models.Page{FAQ: []models.FAQItem{{Q: "아침과 저녁 모두 사용해도 되나요?", A: "네."}}}
	got := e.RuleFix(p, purchase, 0)

	if got.FAQ[0].A != "네." {
		t.Errorf("FAQ[0] = %+v, want original entry first", got.FAQ[0])
	}
	seen := map[string]int{}
	for _, f := range got.FAQ {
		seen[f.Q]++
		if seen[f.Q] > 1 {
			t.Errorf("duplicate FAQ question %q", f.Q)
		}
	}
	if got.CompleteFAQCount() != 3 {
		t.Errorf("CompleteFAQCount() = %d, want 3", got.CompleteFAQCount())
	}
}

func TestReduceKeywordDensity(t *testing.T) {
	e := New(nil, "")
	a := audit.New(nil)
	p := densePage()

	if !a.Audit(p, purchase).Has("C007") {
		t.Fatal("dense page should trigger C007 before fixing")
	}
	body := e.ReduceKeywordDensity(p.BodyHTML, "보습 크림")
	if d := analytics.MeasureBody(body).DensityOf("보습 크림"); d > 3.0 {
		t.Errorf("density after reduction = %.2f, want <= 3.0", d)
	}
	if !strings.Contains(body, "해당 제품") {
		t.Error("neutral phrase not substituted")
	}
	if !analytics.MeasureBody(body).InFirst("보습 크림", 120) {
		t.Error("first occurrence must survive")
	}

	p.BodyHTML = body
	if a.Audit(p, purchase).Has("C007") {
		t.Error("C007 still reported after reduction")
	}
}

func TestReduceKeywordDensityFallback(t *testing.T) {
	e := New(nil, "")
	// Three occurrences in a short body cannot be fixed by the alternating
	// pass, which starts at the fourth occurrence.
	body := "<p>보습 크림 하나 보습 크림 둘 보습 크림 셋</p>"
	got := e.ReduceKeywordDensity(body, "보습 크림")
	if n := strings.Count(got, "보습 크림"); n != 1 {
		t.Errorf("occurrences = %d, want 1 after fallback; body %q", n, got)
	}
	if again := e.ReduceKeywordDensity(got, "보습 크림"); again != got {
		t.Errorf("second reduction changed body: %q", again)
	}
}

func TestReduceKeywordDensitySkipsNeutralKeyword(t *testing.T) {
	e := New(nil, "")
	body := strings.Repeat("제품 ", 10)
	if got := e.ReduceKeywordDensity(body, "제품"); got != body {
		t.Errorf("ReduceKeywordDensity() changed body for keyword inside neutral phrase")
	}
}

func TestQuickCheck(t *testing.T) {
	e := New(nil, "https://example.com")
	if e.QuickCheck(thinPage(), purchase) {
		t.Error("QuickCheck(thin) = true, want false")
	}

	fixed := e.RuleFix(thinPage(), purchase, 1)
	fixed.BodyHTML += "<p>이상 반응이 있으면 사용을 멈추세요.</p>"
	if !e.QuickCheck(fixed, purchase) {
		t.Error("QuickCheck(fixed) = false, want true")
	}

	fixed.CanonicalURL = ""
	if e.QuickCheck(fixed, purchase) {
		t.Error("QuickCheck() without canonical = true, want false")
	}
}

func TestFitForPass(t *testing.T) {
	e := New(nil, "")
	r := e.Rubric()
	p := models.Page{
		MetaTitle:       "짧은 제목",
		MetaDescription: "짧은 설명",
		H1:              "헤드라인",
		BodyHTML:        "<h1>첫째</h1><h2>하나</h2><h1 class=\"x\">둘째</h1><p>본문</p>",
		FAQ:             []models.FAQItem{{Q: "a", A: "b"}, {Q: "c", A: "d"}, {Q: "e", A: "f"}},
	}
	got := e.FitForPass(p, purchase)

	if n := analytics.RuneLen(got.MetaTitle); !r.Audit.Title.Contains(n) {
		t.Errorf("title length %d outside %v: %q", n, r.Audit.Title, got.MetaTitle)
	}
	if !strings.HasPrefix(got.MetaTitle, "보습 크림") {
		t.Errorf("MetaTitle = %q, want keyword prefix", got.MetaTitle)
	}
	if n := analytics.RuneLen(got.MetaDescription); !r.Audit.Description.Contains(n) {
		t.Errorf("description length %d outside %v", n, r.Audit.Description)
	}
	if !strings.HasSuffix(got.MetaDescription, ".") {
		t.Errorf("MetaDescription = %q, want sentence end", got.MetaDescription)
	}
	if got.H1 != "보습 크림 헤드라인" {
		t.Errorf("H1 = %q", got.H1)
	}
	if n := audit.CountH1(got.BodyHTML); n != 0 {
		t.Errorf("body H1 count = %d, want 0", n)
	}
	if n := audit.CountH2(got.BodyHTML); n < r.Audit.MinH2 {
		t.Errorf("H2 count = %d, want >= %d", n, r.Audit.MinH2)
	}
	if !analytics.MeasureBody(got.BodyHTML).InFirst("보습 크림", 120) {
		t.Error("keyword lead missing")
	}
	if !got.HasFAQJSONLD {
		t.Error("HasFAQJSONLD = false with 3 complete entries")
	}
}

func TestFitForPassTopsUpInformational(t *testing.T) {
	e := New(nil, "")
	fixed := e.RuleFix(models.Page{BodyHTML: strings.Repeat("단어 ", 400)}, informational, 0)
	if n := audit.CountH2(fixed.BodyHTML); n != 2 {
		t.Fatalf("RuleFix H2 = %d, want informational minimum 2", n)
	}
	got := e.FitForPass(fixed, informational)
	if n := audit.CountH2(got.BodyHTML); n != 3 {
		t.Errorf("FitForPass H2 = %d, want 3", n)
	}
}

func TestEnsureSentenceEnd(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"끝났다.", 10, "끝났다."},
		{"물음표?", 10, "물음표?"},
		{"마침표 없음", 10, "마침표 없음."},
		{"abcde", 5, "abcd."},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := ensureSentenceEnd(tt.in, tt.max); got != tt.want {
			t.Errorf("ensureSentenceEnd(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestClampLen(t *testing.T) {
	r := New(nil, "").Rubric()
	got := clampLen("", r.Enforce.Title, "패드")
	if n := analytics.RuneLen(got); n < r.Enforce.Title.Min {
		t.Errorf("clampLen() = %q (%d runes), want >= %d", got, n, r.Enforce.Title.Min)
	}
	long := strings.Repeat("가", 100)
	if got := clampLen(long, r.Enforce.Title, "패드"); analytics.RuneLen(got) != r.Enforce.Title.Max {
		t.Errorf("clampLen() length = %d, want %d", analytics.RuneLen(got), r.Enforce.Title.Max)
	}
}

func TestRuleFixIdempotentLongKeyword(t *testing.T) {
	e := New(nil, "https://example.com")
	kw := "아주 촉촉한 보습 크림"
	tg := models.Targeting{PrimaryKeyword: kw, Intent: models.IntentPurchase}
	// The filler sizes straddle the word minimum once density reduction has
	// shortened every replaced keyword from four words to two.
	for n := 15; n <= 35; n++ {
		p := models.Page{BodyHTML: "<p>" + strings.Repeat(kw+" ", 20) + strings.Repeat("가 나 다 ", n) + "</p>"}
		once := e.RuleFix(p, tg, 3)
		twice := e.RuleFix(once, tg, 3)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("filler %d: RuleFix() not idempotent (-once +twice):\n%s", n, diff)
		}
		if w := analytics.MeasureBody(once.BodyHTML).Words; w < e.Rubric().Enforce.MinWords {
			t.Errorf("filler %d: words = %d, want >= %d", n, w, e.Rubric().Enforce.MinWords)
		}
	}
}

func TestRuleFixIdempotentSupportingContainsPrimary(t *testing.T) {
	e := New(nil, "https://example.com")
	tg := models.Targeting{
		PrimaryKeyword:     "크림",
		SupportingKeywords: []string{"수분크림", "보습크림"},
		Intent:             models.IntentPurchase,
	}
	for name, p := range samplePages() {
		t.Run(name, func(t *testing.T) {
			once := e.RuleFix(p, tg, 5)
			twice := e.RuleFix(once, tg, 5)
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("RuleFix() not idempotent (-once +twice):\n%s", diff)
			}
			if hits := analytics.MeasureBody(once.BodyHTML).Hits(tg.Supporting()); hits < 2 {
				t.Errorf("supporting hits = %d, want 2", hits)
			}
		})
	}
}

func TestReduceKeywordDensityAcrossMarkup(t *testing.T) {
	e := New(nil, "")
	tests := []struct {
		name string
		kw   string
		body string
		keep string
	}{
		{
			name: "split by tag",
			kw:   "보습 크림",
			body: "<p>" + strings.Repeat("<b>보습</b> 크림 좋아요 ", 40) + strings.Repeat("정보 ", 300) + "</p>",
			keep: "<b>",
		},
		{
			name: "escaped entity",
			kw:   "P&G 크림",
			body: "<p>" + strings.Repeat("P&amp;G 크림 추천 ", 30) + strings.Repeat("단어 ", 300) + "</p>",
			keep: "P&amp;G",
		},
		{
			name: "attribute untouched",
			kw:   "크림",
			body: `<p><a href="/shop/크림">크림</a> ` + strings.Repeat("크림 좋아요 ", 30) + strings.Repeat("단어 ", 200) + "</p>",
			keep: `href="/shop/크림"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := analytics.MeasureBody(tt.body).DensityOf(tt.kw); d <= 3.0 {
				t.Fatalf("density before = %.2f, want above 3.0", d)
			}
			got := e.ReduceKeywordDensity(tt.body, tt.kw)
			if d := analytics.MeasureBody(got).DensityOf(tt.kw); d > 3.0 {
				t.Errorf("density after reduction = %.2f, want <= 3.0", d)
			}
			if !strings.Contains(got, tt.keep) {
				t.Errorf("body lost %q", tt.keep)
			}
			if !strings.Contains(got, "해당 제품") {
				t.Error("neutral phrase not substituted")
			}
			if again := e.ReduceKeywordDensity(got, tt.kw); again != got {
				t.Error("second reduction changed body")
			}
		})
	}
}

func TestReduceKeywordDensityKeepsSupportingMentions(t *testing.T) {
	e := New(nil, "")
	body := "<p>" + strings.Repeat("크림 좋아요 ", 20) + "<b>수분크림</b>, <b>보습크림</b> " + strings.Repeat("단어 ", 200) + "</p>"
	got := e.ReduceKeywordDensity(body, "크림", "수분크림", "보습크림")
	if !strings.Contains(got, "<b>수분크림</b>, <b>보습크림</b>") {
		t.Errorf("supporting mentions rewritten: %q", got)
	}
	if d := analytics.MeasureBody(got).DensityOf("크림"); d > 3.0 {
		t.Errorf("density after reduction = %.2f, want <= 3.0", d)
	}
}
