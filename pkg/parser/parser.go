package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/analytics"
	"github.com/go-shiori/go-readability"
)

type Parser struct{}

// Parse reads the head fields straight from the raw document and lets
// go-readability find the main content, which is reduced to h2/h3/p/ul
// markup the audit understands. When readability finds nothing the whole
// <body> is reduced instead.
func (p *Parser) Parse(req models.ParseRequest) (*models.ImportedPage, error) {
	pageURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(req.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &models.ImportedPage{
		URL:             req.URL,
		Title:           normalizeText(doc.Find("head title").First().Text()),
		MetaDescription: metaContent(doc, `meta[name="description"]`, `meta[property="og:description"]`),
		CanonicalURL:    resolve(pageURL, attr(doc, `link[rel="canonical"]`, "href")),
		H1:              normalizeText(doc.Find("h1").First().Text()),
		FAQ:             faqFromJSONLD(doc),
	}
	if page.Title == "" {
		page.Title = metaContent(doc, `meta[property="og:title"]`)
	}

	content := doc.Find("body")
	rp := readability.NewParser()
	article, err := rp.Parse(strings.NewReader(req.HTML), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		if cdoc, cerr := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); cerr == nil {
			content = cdoc.Selection
		}
		page.Excerpt = normalizeText(article.Excerpt)
		page.SiteName = normalizeText(article.SiteName)
	}

	page.BodyHTML = reduce(content, req.MaxBodyBlocks)
	page.Text = normalizeText(analytics.StripTags(page.BodyHTML))
	page.WordCount = analytics.WordCount(page.Text)
	return page, nil
}

// reduce rebuilds content as flat landing markup. Headings become h2 (h3
// stays h3), paragraphs stay paragraphs and lists keep their items.
func reduce(content *goquery.Selection, maxBlocks int) string {
	var b strings.Builder
	blocks := 0
	content.Find("h1,h2,h3,h4,p,ul,ol").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if maxBlocks > 0 && blocks >= maxBlocks {
			return false
		}
		// list items are emitted with their list
		if s.ParentsFiltered("ul,ol").Length() > 0 {
			return true
		}

		tag := goquery.NodeName(s)
		switch tag {
		case "ul", "ol":
			var items []string
			s.Find("li").Each(func(j int, li *goquery.Selection) {
				if text := normalizeText(li.Text()); text != "" {
					items = append(items, "<li>"+html.EscapeString(text)+"</li>")
				}
			})
			if len(items) == 0 {
				return true
			}
			b.WriteString("<ul>" + strings.Join(items, "") + "</ul>\n")
		default:
			text := normalizeText(s.Text())
			if text == "" {
				return true
			}
			if tag == "h1" || tag == "h4" {
				tag = "h2"
			}
			fmt.Fprintf(&b, "<%s>%s</%s>\n", tag, html.EscapeString(text), tag)
		}
		blocks++
		return true
	})
	return strings.TrimSpace(b.String())
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v := attr(doc, sel, "content"); v != "" {
			return normalizeText(v)
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

type ldQuestion struct {
	Type           string `json:"@type"`
	Name           string `json:"name"`
	AcceptedAnswer struct {
		Text string `json:"text"`
	} `json:"acceptedAnswer"`
}

type ldFAQPage struct {
	Type       any          `json:"@type"`
	MainEntity []ldQuestion `json:"mainEntity"`
}

func isFAQType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "FAQPage"
	case []any:
		for _, x := range v {
			if s, ok := x.(string); ok && s == "FAQPage" {
				return true
			}
		}
	}
	return false
}

// faqFromJSONLD collects questions from FAQPage JSON-LD blocks. Malformed
// blocks are skipped.
func faqFromJSONLD(doc *goquery.Document) []models.FAQItem {
	var out []models.FAQItem
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		var ld ldFAQPage
		if err := json.Unmarshal([]byte(s.Text()), &ld); err != nil || !isFAQType(ld.Type) {
			return
		}
		for _, q := range ld.MainEntity {
			item := models.FAQItem{Q: normalizeText(q.Name), A: normalizeText(analytics.StripTags(q.AcceptedAnswer.Text))}
			if item.Complete() {
				out = append(out, item)
			}
		}
	})
	return out
}

// normalizeText trims each line and joins the non-empty ones with a space.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
