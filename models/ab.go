package models

import "time"

const (
	VariantA = "A"
	VariantB = "B"

	EventView     = "view"
	EventCTAClick = "cta_click"
)

// Event is one recorded interaction with a variant.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	RunID     int64     `json:"run_id"`
	Variant   string    `json:"variant"`
	EventName string    `json:"event_name"`
	Timestamp time.Time `json:"ts"`
}

// VariantStats holds the counts for one variant.
type VariantStats struct {
	Views  int     `json:"view"`
	Clicks int     `json:"click"`
	CTR    float64 `json:"ctr"`
}

// ABSummary is derived from the event log at request time.
type ABSummary struct {
	A                VariantStats `json:"A"`
	B                VariantStats `json:"B"`
	Uplift           float64      `json:"uplift"`
	Z                float64      `json:"z"`
	PValue           float64      `json:"p_value"`
	MinViewsRequired int          `json:"min_views_required"`
	RecommendVariant *string      `json:"recommend_variant"`
}

// Approval methods.
const (
	ApprovalManual      = "manual"
	ApprovalRecommended = "recommended"
	ApprovalFallback    = "recommended_fallback_max_ctr"
)

// Approval records which variant was promoted and how.
type Approval struct {
	Variant   string     `json:"variant"`
	Method    string     `json:"method"`
	Timestamp time.Time  `json:"ts"`
	Summary   *ABSummary `json:"summary,omitempty"`
}

// Variant is one generated copy option of an optimization pack.
type Variant struct {
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	HeroHeadline    string    `json:"hero_headline"`
	HeroSub         string    `json:"hero_sub"`
	CTA             string    `json:"cta"`
	FAQ             []FAQItem `json:"faq"`
}

// QCText joins the copy fields that compliance QC inspects.
func (v Variant) QCText() string {
	return v.MetaTitle + "\n" + v.MetaDescription + "\n" + v.HeroHeadline + "\n" + v.HeroSub + "\n" + v.CTA
}

// OptimizePack is the A/B copy pack generated for a run.
type OptimizePack struct {
	Variants map[string]Variant `json:"variants"`
	Notes    []string           `json:"notes"`
	Source   string             `json:"source,omitempty"`
}

// Pick returns the variant for key, if present.
func (o *OptimizePack) Pick(key string) (Variant, bool) {
	if o == nil || o.Variants == nil {
		return Variant{}, false
	}
	v, ok := o.Variants[key]
	return v, ok
}
