package models

import "strings"

// Page is the flattened, editable snapshot of a landing page.
type Page struct {
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	CanonicalURL    string    `json:"canonical_url"`
	OGTitle         string    `json:"og_title"`
	OGDescription   string    `json:"og_description"`
	H1              string    `json:"h1"`
	BodyHTML        string    `json:"body_html"`
	CTA             string    `json:"cta"`
	FAQ             []FAQItem `json:"faq"`
	HasFAQJSONLD    bool      `json:"has_faq_jsonld"`

	// Landing extensions, carried through fix and export but never audited.
	BuyURL   string    `json:"buy_url,omitempty"`
	Products []Product `json:"products,omitempty"`
}

// FAQItem is one question/answer pair.
type FAQItem struct {
	Q string `json:"q" validate:"required,max=300"`
	A string `json:"a" validate:"required,max=1000"`
}

// Complete reports whether both question and answer carry text.
func (f FAQItem) Complete() bool {
	return strings.TrimSpace(f.Q) != "" && strings.TrimSpace(f.A) != ""
}

// Product is a card rendered in the export's product grid.
type Product struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
	Desc  string `json:"desc,omitempty"`
	Img   string `json:"img,omitempty"`
	URL   string `json:"url,omitempty"`
}

// CompleteFAQCount counts FAQ entries with both question and answer.
func (p *Page) CompleteFAQCount() int {
	n := 0
	for _, f := range p.FAQ {
		if f.Complete() {
			n++
		}
	}
	return n
}

// SyncFAQJSONLD restores the has_faq_jsonld invariant after a mutation.
func (p *Page) SyncFAQJSONLD() {
	p.HasFAQJSONLD = p.CompleteFAQCount() >= 3
}

// Clone returns a deep copy so callers can mutate slices freely.
func (p Page) Clone() Page {
	out := p
	if p.FAQ != nil {
		out.FAQ = append([]FAQItem(nil), p.FAQ...)
	}
	if p.Products != nil {
		out.Products = append([]Product(nil), p.Products...)
	}
	return out
}

// Intent values seen in practice. Any intent containing "구매" is treated
// as purchase intent.
const (
	IntentPurchase      = "구매형"
	IntentInformational = "정보형"
)

// Targeting is the keyword and intent metadata a page is judged against.
type Targeting struct {
	PrimaryKeyword     string   `json:"primary_keyword"`
	SupportingKeywords []string `json:"supporting_keywords"`
	Intent             string   `json:"intent"`
}

// IsPurchase reports whether the intent is purchase-oriented.
func (t Targeting) IsPurchase() bool {
	return strings.Contains(t.Intent, "구매")
}

// Keyword returns the trimmed primary keyword.
func (t Targeting) Keyword() string {
	return strings.TrimSpace(t.PrimaryKeyword)
}

// Supporting returns trimmed, non-empty, de-duplicated supporting keywords
// in their original order.
func (t Targeting) Supporting() []string {
	return CleanKeywords(t.SupportingKeywords)
}

// CleanKeywords trims, drops empties and de-duplicates while keeping order.
func CleanKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
