package analytics

import (
	"sort"
	"strings"
	"unicode"
)

type Analytics struct{}

// commonWords are ignored in frequency analysis. Landing copy is mostly
// Korean with English brand names, so both sets are covered.
var commonWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {},
	"to": {}, "was": {}, "with": {}, "you": {}, "your": {}, "our": {}, "we": {},

	// Common web/UI noise words
	"click": {}, "button": {}, "link": {}, "menu": {}, "page": {}, "site": {},
	"home": {}, "search": {}, "login": {}, "cart": {},

	// Korean function words and filler that survive whitespace tokenization
	"및": {}, "등": {}, "더": {}, "수": {}, "것": {}, "이": {}, "그": {}, "저": {},
	"위한": {}, "위해": {}, "있는": {}, "있습니다": {}, "합니다": {}, "하는": {},
	"하세요": {}, "있어요": {}, "좋습니다": {}, "있으며": {}, "그리고": {},
	"또는": {}, "하지만": {}, "때문에": {}, "통해": {}, "대한": {}, "함께": {},
	"지금": {}, "바로": {}, "보기": {}, "자세히": {}, "구매하기": {}, "장바구니": {},
	"로그인": {}, "회원가입": {}, "검색": {}, "메뉴": {}, "홈": {},
}

// IsStopword checks if a word is a common stopword that should be filtered out.
func IsStopword(word string) bool {
	_, exists := commonWords[strings.ToLower(word)]
	return exists
}

// WordFrequency counts lowercased tokens, trimming anything that is not a
// letter or digit from token edges.
func (a *Analytics) WordFrequency(text string) map[string]int {
	words := strings.Fields(strings.ToLower(text))
	frequencies := make(map[string]int)

	for _, word := range words {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})

		// Single runes are almost always particles or list markers.
		if word == "" || len([]rune(word)) < 2 {
			continue
		}
		if _, exists := commonWords[word]; exists {
			continue
		}

		frequencies[word]++
	}

	return frequencies
}

type wordCount struct {
	Word  string
	Count int
}

// TopNWords returns the n most frequent words, ties broken alphabetically
// so the result is stable.
func (a *Analytics) TopNWords(text string, n int) []string {
	frequencies := a.WordFrequency(text)

	counts := make([]wordCount, 0, len(frequencies))
	for k, v := range frequencies {
		counts = append(counts, wordCount{k, v})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Word < counts[j].Word
	})

	limit := min(n, len(counts))
	topN := make([]string, limit)
	for i := 0; i < limit; i++ {
		topN[i] = counts[i].Word
	}

	return topN
}

// SuggestKeywords returns up to n frequent words that are not already part
// of the primary keyword.
func (a *Analytics) SuggestKeywords(text, primary string, n int) []string {
	primary = Normalize(primary)
	var out []string
	for _, w := range a.TopNWords(text, n*3) {
		if primary != "" && strings.Contains(primary, w) {
			continue
		}
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}
