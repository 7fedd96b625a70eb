package enforce

import (
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/dtnitsch/landing-ops/pkg/analytics"
	xhtml "golang.org/x/net/html"
)

// spaceRun is any run strings.Fields would split on.
const spaceRun = `[\s\v\x{85}\p{Z}]+`

// keywordPattern matches kw in body text, tolerating any whitespace run
// between its words and ignoring case.
func keywordPattern(kw string) *regexp.Regexp {
	words := strings.Fields(kw)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(words, spaceRun))
}

// segment is one token of the body. Text tokens carry their unescaped
// text; everything else is kept byte for byte.
type segment struct {
	raw    string
	text   string
	isText bool
	frozen bool
	off    int
}

// textLayout is the body as the audit reads it: text nodes joined with a
// space standing in for every tag, so keyword matches found here are the
// ones density counts, even when a tag splits them.
type textLayout struct {
	segs     []segment
	flat     string
	editable []bool
}

func layoutOf(body string) (*textLayout, bool) {
	z := xhtml.NewTokenizer(strings.NewReader(body))
	l := &textLayout{}
	var flat strings.Builder
	rawText := false
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			if z.Err() != io.EOF {
				return nil, false
			}
			break
		}
		seg := segment{raw: string(z.Raw()), off: flat.Len()}
		switch tt {
		case xhtml.TextToken:
			seg.isText = true
			seg.text = string(z.Text())
			seg.frozen = rawText
			flat.WriteString(seg.text)
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			rawText = string(name) == "script" || string(name) == "style"
			flat.WriteByte(' ')
		default:
			rawText = false
			flat.WriteByte(' ')
		}
		l.segs = append(l.segs, seg)
	}

	l.flat = flat.String()
	l.editable = make([]bool, len(l.flat))
	for i := range l.editable {
		l.editable[i] = true
	}
	for _, s := range l.segs {
		if s.frozen {
			l.lock(s.off, s.off+len(s.text))
		}
	}
	return l, true
}

func (l *textLayout) lock(start, end int) {
	for i := start; i < end; i++ {
		l.editable[i] = false
	}
}

// protect locks every mention of the given phrases so substitution cannot
// rewrite a keyword nested inside one of them.
func (l *textLayout) protect(phrases []string) {
	for _, p := range phrases {
		if strings.TrimSpace(p) == "" {
			continue
		}
		for _, m := range keywordPattern(p).FindAllStringIndex(l.flat, -1) {
			l.lock(m[0], m[1])
		}
	}
}

// matches returns the keyword matches that lie entirely in editable text.
func (l *textLayout) matches(re *regexp.Regexp) [][]int {
	var out [][]int
	for _, m := range re.FindAllStringIndex(l.flat, -1) {
		ok := true
		for i := m[0]; i < m[1]; i++ {
			if !l.editable[i] {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, m)
		}
	}
	return out
}

// render rebuilds the body with each cut replaced by neutral. A cut that
// spans tags leaves the tags in place and puts the phrase where the match
// began. Untouched tokens keep their original bytes.
func (l *textLayout) render(cuts [][]int, neutral string) string {
	if len(cuts) == 0 {
		return l.rawBody()
	}
	drop := make([]bool, len(l.flat))
	starts := make(map[int]bool, len(cuts))
	for _, c := range cuts {
		starts[c[0]] = true
		for i := c[0]; i < c[1]; i++ {
			drop[i] = true
		}
	}

	var b strings.Builder
	for _, s := range l.segs {
		if !s.isText {
			b.WriteString(s.raw)
			continue
		}
		var t strings.Builder
		changed := false
		for i := s.off; i < s.off+len(s.text); i++ {
			if starts[i] {
				t.WriteString(neutral)
			}
			if drop[i] {
				changed = true
				continue
			}
			t.WriteByte(l.flat[i])
		}
		if !changed {
			b.WriteString(s.raw)
			continue
		}
		b.WriteString(html.EscapeString(t.String()))
	}
	return b.String()
}

func (l *textLayout) rawBody() string {
	var b strings.Builder
	for _, s := range l.segs {
		b.WriteString(s.raw)
	}
	return b.String()
}

// replaceOccurrences swaps the n-th eligible match (1-based) for neutral
// whenever keep(n) is false. Mentions of the protected phrases are never
// touched.
func replaceOccurrences(body string, re *regexp.Regexp, protected []string, neutral string, keep func(n int) bool) string {
	l, ok := layoutOf(body)
	if !ok {
		return body
	}
	l.protect(protected)
	var cuts [][]int
	for i, m := range l.matches(re) {
		if !keep(i + 1) {
			cuts = append(cuts, m)
		}
	}
	if len(cuts) == 0 {
		return body
	}
	return l.render(cuts, neutral)
}

// ReduceKeywordDensity lowers primary keyword density to the enforcement
// maximum. Every second occurrence from DensityStartAt on is replaced with
// the neutral phrase, density is measured again, and the pass repeats up to
// DensityMaxPasses times. If that still leaves the body too dense, every
// occurrence after the first is replaced. Only text is rewritten, and
// mentions of the supporting keywords are left alone.
func (e *Engine) ReduceKeywordDensity(body, kw string, supporting ...string) string {
	kw = strings.TrimSpace(kw)
	rules := e.r.Enforce
	neutral := rules.NeutralPhrase
	if kw == "" || body == "" || strings.Contains(analytics.Normalize(neutral), analytics.Normalize(kw)) {
		return body
	}
	over := func(b string) bool {
		return analytics.MeasureBody(b).DensityOf(kw) > rules.MaxDensityPct
	}
	if !over(body) {
		return body
	}

	// a supporting keyword that is part of kw goes away with kw anyway
	nkw := analytics.Normalize(kw)
	var protected []string
	for _, s := range supporting {
		if ns := analytics.Normalize(s); ns != "" && !strings.Contains(nkw, ns) {
			protected = append(protected, s)
		}
	}

	re := keywordPattern(kw)
	start := rules.DensityStartAt
	for pass := 0; pass < rules.DensityMaxPasses; pass++ {
		next := replaceOccurrences(body, re, protected, neutral, func(n int) bool {
			return n < start || (n-start)%2 != 0
		})
		if next == body {
			break
		}
		body = next
		if !over(body) {
			return body
		}
	}

	return replaceOccurrences(body, re, protected, neutral, func(n int) bool { return n == 1 })
}
