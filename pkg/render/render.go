// Package render turns a page snapshot into a static landing page.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/audit"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	maxProducts = 6
	maxChips    = 6
)

// Options tweak a single render.
type Options struct {
	// CanonicalFallback is used when the page has no canonical URL.
	CanonicalFallback string
	// Preview marks the page noindex, for the public preview route.
	Preview bool
}

// Renderer executes the embedded landing template.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("export.html.tmpl").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type productView struct {
	Name  string
	Price string
	Desc  string
	Img   string
	URL   template.URL
}

type pageView struct {
	Title          string
	Description    string
	Canonical      string
	OGTitle        string
	OGDescription  string
	FAQJSONLD      template.JS
	Preview        bool
	Intent         string
	PrimaryKeyword string
	Keywords       []string
	H1             string
	HeroSub        string
	CTALabel       string
	CTAHref        template.URL
	Body           template.HTML
	Products       []productView
	FAQ            []models.FAQItem
}

// safeURL allows http(s), root-relative and fragment links; anything else
// collapses to fallback.
func safeURL(raw, fallback string) template.URL {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case raw == "":
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(raw, "/"), strings.HasPrefix(raw, "#"):
		return template.URL(raw)
	}
	return template.URL(fallback)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func (r *Renderer) view(p models.Page, t models.Targeting, opts Options) (pageView, error) {
	v := pageView{
		Title:          strings.TrimSpace(p.MetaTitle),
		Description:    strings.TrimSpace(p.MetaDescription),
		Canonical:      firstNonEmpty(p.CanonicalURL, opts.CanonicalFallback),
		OGTitle:        firstNonEmpty(p.OGTitle, p.MetaTitle),
		OGDescription:  firstNonEmpty(p.OGDescription, p.MetaDescription),
		Preview:        opts.Preview,
		Intent:         strings.TrimSpace(t.Intent),
		PrimaryKeyword: t.Keyword(),
		H1:             firstNonEmpty(p.H1, t.Keyword()),
	}
	// Body markup comes from the run's own editors and the fix engine.
	v.Body = template.HTML(strings.TrimSpace(p.BodyHTML))
	if kws := t.Supporting(); len(kws) > 0 {
		v.Keywords = kws[:min(len(kws), maxChips)]
	}

	buy := safeURL(p.BuyURL, "#products")
	v.CTAHref = buy
	if t.IsPurchase() {
		v.HeroSub = "1분 진단으로 루틴/성분/제품 방향을 빠르게 잡아드려요."
		v.CTALabel = firstNonEmpty(p.CTA, "맞춤 추천 받기")
	} else {
		v.HeroSub = "핵심 정보를 먼저 요약하고, 선택 기준을 정리해드려요."
		v.CTALabel = firstNonEmpty(p.CTA, "핵심 요약 보기")
	}

	for _, prod := range p.Products[:min(len(p.Products), maxProducts)] {
		v.Products = append(v.Products, productView{
			Name:  firstNonEmpty(prod.Name, "상품명"),
			Price: strings.TrimSpace(prod.Price),
			Desc:  strings.TrimSpace(prod.Desc),
			Img:   string(safeURL(prod.Img, "")),
			URL:   safeURL(firstNonEmpty(prod.URL, string(buy)), "#products"),
		})
	}

	for _, f := range p.FAQ {
		if f.Complete() {
			v.FAQ = append(v.FAQ, models.FAQItem{Q: strings.TrimSpace(f.Q), A: strings.TrimSpace(f.A)})
		}
	}
	if p.HasFAQJSONLD && len(v.FAQ) >= 3 {
		ld, err := json.Marshal(audit.BuildFAQJSONLD(v.FAQ))
		if err != nil {
			return v, fmt.Errorf("failed to encode FAQ JSON-LD: %w", err)
		}
		v.FAQJSONLD = template.JS(ld)
	}
	return v, nil
}

// Render writes the landing page for p to w.
func (r *Renderer) Render(w io.Writer, p models.Page, t models.Targeting, opts Options) error {
	v, err := r.view(p, t, opts)
	if err != nil {
		return err
	}
	if err := r.tmpl.ExecuteTemplate(w, "export.html.tmpl", v); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// RenderBytes renders into memory.
func (r *Renderer) RenderBytes(p models.Page, t models.Targeting, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, p, t, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
