package rewrite

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
)

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// ExtractJSON pulls the outermost JSON object out of a model reply that may
// be wrapped in a code fence or surrounded by prose. It returns "" when no
// object-shaped text is found.
func ExtractJSON(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = fenceOpen.ReplaceAllString(t, "")
		t = fenceClose.ReplaceAllString(t, "")
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return ""
	}
	return t[start : end+1]
}

// DecodePatch parses and validates a rewrite reply.
func DecodePatch(text string) (*Patch, error) {
	raw := ExtractJSON(text)
	if raw == "" {
		return nil, ErrNoPatch
	}
	var p Patch
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPatch, err)
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPatch, err)
	}
	if p.Empty() {
		return nil, ErrNoPatch
	}
	return &p, nil
}

type variantWire struct {
	MetaTitle       string           `json:"meta_title" validate:"required,max=200"`
	MetaDescription string           `json:"meta_description" validate:"required,max=500"`
	HeroHeadline    string           `json:"hero_headline" validate:"max=200"`
	HeroSub         string           `json:"hero_sub" validate:"max=500"`
	CTA             string           `json:"cta" validate:"max=100"`
	FAQ             []models.FAQItem `json:"faq" validate:"max=20"`
}

type packWire struct {
	Variants map[string]variantWire `json:"variants" validate:"required"`
	Notes    []string               `json:"notes"`
}

// DecodePack parses an optimizer reply. Both variants must be present and
// carry a title and description.
func DecodePack(text string) (*models.OptimizePack, error) {
	raw := ExtractJSON(text)
	if raw == "" {
		return nil, ErrNoPatch
	}
	var w packWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPatch, err)
	}
	pack := &models.OptimizePack{Variants: make(map[string]models.Variant, 2), Notes: w.Notes}
	for _, key := range []string{models.VariantA, models.VariantB} {
		v, ok := w.Variants[key]
		if !ok {
			return nil, fmt.Errorf("%w: variant %s missing", ErrNoPatch, key)
		}
		if err := validate.Struct(&v); err != nil {
			return nil, fmt.Errorf("%w: variant %s: %v", ErrNoPatch, key, err)
		}
		pack.Variants[key] = models.Variant{
			MetaTitle:       strings.TrimSpace(v.MetaTitle),
			MetaDescription: strings.TrimSpace(v.MetaDescription),
			HeroHeadline:    strings.TrimSpace(v.HeroHeadline),
			HeroSub:         strings.TrimSpace(v.HeroSub),
			CTA:             strings.TrimSpace(v.CTA),
			FAQ:             completeFAQ(v.FAQ),
		}
	}
	if pack.Notes == nil {
		pack.Notes = []string{}
	}
	return pack, nil
}
