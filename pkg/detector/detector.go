package detector

import (
	"net/url"
	"strings"
	"sync"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/pemistahl/lingua-go"
)

// Languages the importer distinguishes. Landing pages in scope are Korean;
// the others are what shows up on marketplaces next to them.
var languages = []lingua.Language{lingua.Korean, lingua.English, lingua.Japanese, lingua.Chinese}

var (
	langOnce sync.Once
	langDet  lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	langOnce.Do(func() {
		langDet = lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build()
	})
	return langDet
}

// Purchase cues in copy and URL paths. Two or more make a page purchase
// intent.
var (
	purchaseTerms = []string{"구매", "장바구니", "주문", "결제", "할인", "가격", "배송", "쿠폰", "정가", "buy now", "add to cart"}
	purchasePaths = []string{"/product", "/goods", "/shop", "/item", "/p/"}
)

// Result is what detection adds to an imported page.
type Result struct {
	Language   string
	Confidence float64
	Intent     string
	Keywords   []string
}

type Detector struct {
	analytics *analytics.Analytics
}

func New() *Detector {
	return &Detector{analytics: &analytics.Analytics{}}
}

// Language returns the ISO 639-1 code of text and the detector's
// confidence. A .kr host decides when the text is inconclusive.
func (d *Detector) Language(text, rawURL string) (string, float64) {
	det := languageDetector()
	if lang, ok := det.DetectLanguageOf(text); ok {
		return strings.ToLower(lang.IsoCode639_1().String()), det.ComputeLanguageConfidence(text, lang)
	}
	if countryOf(rawURL) == "kr" {
		return "ko", 0
	}
	return "unknown", 0
}

// Intent classifies a page as purchase or informational from cue words in
// its text and its URL path.
func Intent(text, rawURL string) string {
	lower := strings.ToLower(text)
	score := 0
	for _, term := range purchaseTerms {
		if strings.Contains(lower, term) {
			score++
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		path := strings.ToLower(u.Path)
		for _, p := range purchasePaths {
			if strings.Contains(path, p) {
				score += 2
				break
			}
		}
	}
	if score >= 2 {
		return models.IntentPurchase
	}
	return models.IntentInformational
}

// Analyze fills language, intent and keyword suggestions on page.
func (d *Detector) Analyze(page *models.ImportedPage) Result {
	text := strings.TrimSpace(page.Title + " " + page.H1 + " " + page.Text)
	res := Result{Intent: Intent(text, page.URL)}
	res.Language, res.Confidence = d.Language(text, page.URL)
	res.Keywords = d.analytics.SuggestKeywords(page.Title+" "+page.H1+" "+page.Text, "", 6)

	page.Language = res.Language
	page.LanguageConfidence = res.Confidence
	page.Intent = res.Intent
	page.Keywords = res.Keywords
	return res
}

// countryOf guesses a country from the host's TLD.
func countryOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	parts := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(parts) < 2 {
		return "unknown"
	}
	switch tld := parts[len(parts)-1]; tld {
	case "kr", "jp", "cn", "uk", "us":
		return tld
	}
	return "unknown"
}
