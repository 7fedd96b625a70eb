package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/landing-ops/models"
	"github.com/google/go-cmp/cmp"
)

const landingHTML = `<!doctype html>
<html><head>
<title>  세라마이드 보습 크림 | 브랜드 </title>
<meta property="og:description" content="건조한 피부를 위한 보습 크림">
<link rel="canonical" href="/product/cream">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"FAQPage","mainEntity":[
 {"@type":"Question","name":"하루에 몇 번 바르나요?","acceptedAnswer":{"@type":"Answer","text":"<p>아침과 저녁</p>"}},
 {"@type":"Question","name":"답이 없는 질문","acceptedAnswer":{"@type":"Answer","text":""}}]}</script>
<script type="application/ld+json">{not json</script>
</head><body>
<h1>세라마이드 보습 크림</h1>
<p>피부 장벽을 지키는 세라마이드 보습 크림입니다.</p>
<h4>사용 방법</h4>
<ul><li>세안 후 바릅니다</li><li> </li><li>아침 &amp; 저녁</li></ul>
</body></html>`

func TestParseHeadFields(t *testing.T) {
	page, err := (&Parser{}).Parse(models.ParseRequest{URL: "https://shop.example.com/a/b", HTML: landingHTML})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if page.Title != "세라마이드 보습 크림 | 브랜드" {
		t.Errorf("Title = %q", page.Title)
	}
	if page.MetaDescription != "건조한 피부를 위한 보습 크림" {
		t.Errorf("MetaDescription = %q, want og:description fallback", page.MetaDescription)
	}
	if page.CanonicalURL != "https://shop.example.com/product/cream" {
		t.Errorf("CanonicalURL = %q", page.CanonicalURL)
	}
	if page.H1 != "세라마이드 보습 크림" {
		t.Errorf("H1 = %q", page.H1)
	}
	want := []models.FAQItem{{Q: "하루에 몇 번 바르나요?", A: "아침과 저녁"}}
	if diff := cmp.Diff(want, page.FAQ); diff != "" {
		t.Errorf("FAQ mismatch (-want +got):\n%s", diff)
	}
	if page.WordCount == 0 || !strings.Contains(page.Text, "피부 장벽") {
		t.Errorf("Text = %q, WordCount = %d", page.Text, page.WordCount)
	}
}

func TestReduce(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(landingHTML))
	if err != nil {
		t.Fatal(err)
	}
	got := reduce(doc.Find("body"), 0)
	want := strings.Join([]string{
		"<h2>세라마이드 보습 크림</h2>",
		"<p>피부 장벽을 지키는 세라마이드 보습 크림입니다.</p>",
		"<h2>사용 방법</h2>",
		"<ul><li>세안 후 바릅니다</li><li>아침 &amp; 저녁</li></ul>",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("reduce() mismatch (-want +got):\n%s", diff)
	}

	if got := reduce(doc.Find("body"), 2); strings.Count(got, "\n") != 1 {
		t.Errorf("reduce(max 2) = %q, want two blocks", got)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  a  \n\n  b\tc ", "a b c"},
		{"", ""},
		{"\n \n", ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseRejectsBadURL(t *testing.T) {
	if _, err := (&Parser{}).Parse(models.ParseRequest{URL: "://bad", HTML: "<p>x</p>"}); err == nil {
		t.Error("Parse() error = nil, want error")
	}
}
