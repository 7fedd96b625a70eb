package detector

import (
	"testing"

	"github.com/dtnitsch/landing-ops/models"
)

func TestIntent(t *testing.T) {
	tests := []struct {
		name string
		text string
		url  string
		want string
	}{
		{"purchase words", "지금 구매하시면 무료 배송과 할인 쿠폰", "https://shop.example.com/", models.IntentPurchase},
		{"product path", "보습 크림 가격 안내", "https://example.com/product/12", models.IntentPurchase},
		{"guide", "보습 크림 바르는 순서와 계절별 관리 방법", "https://example.com/blog/guide", models.IntentInformational},
		{"single cue", "가격 비교 없이 성분만 정리했습니다", "https://example.com/post", models.IntentInformational},
	}
	for _, tt := range tests {
		if got := Intent(tt.text, tt.url); got != tt.want {
			t.Errorf("Intent(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestLanguage(t *testing.T) {
	d := New()
	lang, conf := d.Language("건조한 피부를 위한 보습 크림 선택 기준과 사용 루틴을 정리했습니다.", "https://example.com")
	if lang != "ko" {
		t.Errorf("Language() = %q, want ko", lang)
	}
	if conf <= 0 {
		t.Errorf("Language() confidence = %v, want > 0", conf)
	}

	if lang, _ := d.Language("", "https://brand.co.kr/"); lang != "ko" {
		t.Errorf("Language(empty, .kr) = %q, want ko", lang)
	}
	if lang, _ := d.Language("", "https://brand.example/"); lang != "unknown" {
		t.Errorf("Language(empty) = %q, want unknown", lang)
	}
}

func TestAnalyze(t *testing.T) {
	page := &models.ImportedPage{
		URL:   "https://example.com/goods/1",
		Title: "세라마이드 보습 크림",
		Text:  "세라마이드 보습 크림은 세라마이드 성분으로 피부 장벽을 지킵니다. 주문 후 배송은 이틀 걸립니다.",
	}
	res := New().Analyze(page)
	if page.Intent != models.IntentPurchase || res.Intent != page.Intent {
		t.Errorf("Analyze() intent = %q", page.Intent)
	}
	if page.Language != "ko" {
		t.Errorf("Analyze() language = %q", page.Language)
	}
	if len(page.Keywords) == 0 || page.Keywords[0] != "세라마이드" {
		t.Errorf("Analyze() keywords = %v, want 세라마이드 first", page.Keywords)
	}
}
