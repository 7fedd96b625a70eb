package analytics

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripTags replaces every markup tag with a space and unescapes entities.
func StripTags(markup string) string {
	if markup == "" {
		return ""
	}
	return html.UnescapeString(tagPattern.ReplaceAllString(markup, " "))
}

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Normalize collapses whitespace runs to one space and lowercases.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// FirstWords returns the first n whitespace tokens joined by single spaces.
func FirstWords(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

// Occurrences counts non-overlapping matches of needle in haystack. Both
// are expected to be normalized already.
func Occurrences(haystack, needle string) int {
	if needle == "" {
		return 0
	}
	return strings.Count(haystack, needle)
}

// Density is occurrences of keyword per 100 words of text.
func Density(text, keyword string) float64 {
	words := WordCount(text)
	if words == 0 {
		return 0
	}
	return float64(Occurrences(Normalize(text), Normalize(keyword))) / float64(words) * 100
}

// RuneLen counts characters, which is what the length windows measure.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateRunes cuts s to at most n characters.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// BodyStats are the measurements shared by the audit and the enforcement
// engine so both see the same numbers.
type BodyStats struct {
	Text       string
	Normalized string
	Words      int
}

// MeasureBody strips and normalizes markup once.
func MeasureBody(markup string) BodyStats {
	text := StripTags(markup)
	return BodyStats{
		Text:       text,
		Normalized: Normalize(text),
		Words:      WordCount(text),
	}
}

// DensityOf returns keyword density for already-measured body stats.
func (b BodyStats) DensityOf(keyword string) float64 {
	if b.Words == 0 {
		return 0
	}
	return float64(Occurrences(b.Normalized, Normalize(keyword))) / float64(b.Words) * 100
}

// InFirst reports whether keyword appears in the first n words.
func (b BodyStats) InFirst(keyword string, n int) bool {
	kw := Normalize(keyword)
	if kw == "" {
		return false
	}
	return strings.Contains(Normalize(FirstWords(b.Text, n)), kw)
}

// Hits counts keywords present anywhere in the body.
func (b BodyStats) Hits(keywords []string) int {
	n := 0
	for _, k := range keywords {
		if nk := Normalize(k); nk != "" && strings.Contains(b.Normalized, nk) {
			n++
		}
	}
	return n
}

// ContainsAny returns the first phrase found in the raw body text.
func (b BodyStats) ContainsAny(phrases []string) (string, bool) {
	for _, p := range phrases {
		if p != "" && strings.Contains(b.Text, p) {
			return p, true
		}
	}
	return "", false
}
