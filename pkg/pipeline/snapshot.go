package pipeline

import (
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/abtest"
)

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// draftPage flattens the run's draft fields. Landing text stands in for an
// empty body, one <br/> per line.
func draftPage(run *models.Run) models.Page {
	body := run.BodyHTML
	if strings.TrimSpace(body) == "" {
		body = strings.ReplaceAll(run.LandingText, "\n", "<br/>")
	}
	p := models.Page{
		MetaTitle:       run.MetaTitle,
		MetaDescription: run.MetaDescription,
		CanonicalURL:    run.CanonicalURL,
		OGTitle:         firstNonEmpty(run.OGTitle, run.MetaTitle),
		OGDescription:   firstNonEmpty(run.OGDescription, run.MetaDescription),
		H1:              firstNonEmpty(run.H1, run.PrimaryKeyword),
		BodyHTML:        body,
		CTA:             run.CTA,
		FAQ:             run.FAQ,
		BuyURL:          run.BuyURL,
		Products:        run.Products,
	}
	return p.Clone()
}

func overlayVariant(p *models.Page, v models.Variant) {
	p.MetaTitle = firstNonEmpty(v.MetaTitle, p.MetaTitle)
	p.MetaDescription = firstNonEmpty(v.MetaDescription, p.MetaDescription)
	p.H1 = firstNonEmpty(v.HeroHeadline, p.H1)
	p.CTA = firstNonEmpty(v.CTA, p.CTA)
	if len(v.FAQ) > 0 {
		p.FAQ = append([]models.FAQItem(nil), v.FAQ...)
	}
}

// overlayFixed replaces the page with the fixed one, keeping the earlier
// FAQ, buy URL and products where the fixed page has none.
func overlayFixed(p *models.Page, fixed models.Page) {
	f := fixed.Clone()
	f.OGTitle = firstNonEmpty(f.OGTitle, f.MetaTitle, p.OGTitle)
	f.OGDescription = firstNonEmpty(f.OGDescription, f.MetaDescription, p.OGDescription)
	if len(f.FAQ) == 0 {
		f.FAQ = p.FAQ
	}
	f.BuyURL = firstNonEmpty(f.BuyURL, p.BuyURL)
	if len(f.Products) == 0 {
		f.Products = p.Products
	}
	*p = f
}

// Snapshot builds the page a run represents. With variant A or B only that
// variant is laid over the draft, which is what the preview shows. With no
// variant the approved variant and then the fixed page are applied. A
// missing canonical falls back to {base}/r/{id}.
func (s *Service) Snapshot(run *models.Run, variant string) models.Page {
	p := draftPage(run)

	if strings.TrimSpace(variant) != "" {
		if v, ok := run.Optimize.Pick(abtest.NormalizeVariant(variant)); ok {
			overlayVariant(&p, v)
		}
	} else {
		if run.Approved != nil {
			if v, ok := run.Optimize.Pick(abtest.NormalizeVariant(run.Approved.Variant)); ok {
				overlayVariant(&p, v)
			}
		}
		if run.Fixed != nil {
			overlayFixed(&p, *run.Fixed)
		}
	}

	if strings.TrimSpace(p.CanonicalURL) == "" && s.baseURL != "" {
		p.CanonicalURL = s.CanonicalURL(run.ID)
	}
	p.SyncFAQJSONLD()
	return p
}
