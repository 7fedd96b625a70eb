package audit

import (
	"strings"

	"github.com/dtnitsch/landing-ops/models"
)

// FAQAnswer is the acceptedAnswer node of a schema.org Question.
type FAQAnswer struct {
	Type string `json:"@type"`
	Text string `json:"text"`
}

// FAQQuestion is one mainEntity entry.
type FAQQuestion struct {
	Type           string    `json:"@type"`
	Name           string    `json:"name"`
	AcceptedAnswer FAQAnswer `json:"acceptedAnswer"`
}

// FAQPage is the minimal schema.org FAQPage object embedded in exports.
type FAQPage struct {
	Context    string        `json:"@context"`
	Type       string        `json:"@type"`
	MainEntity []FAQQuestion `json:"mainEntity"`
}

// BuildFAQJSONLD builds the structured-data object from complete FAQ
// entries. Incomplete pairs are skipped.
func BuildFAQJSONLD(faq []models.FAQItem) FAQPage {
	out := FAQPage{
		Context:    "https://schema.org",
		Type:       "FAQPage",
		MainEntity: []FAQQuestion{},
	}
	for _, f := range faq {
		if !f.Complete() {
			continue
		}
		out.MainEntity = append(out.MainEntity, FAQQuestion{
			Type:           "Question",
			Name:           strings.TrimSpace(f.Q),
			AcceptedAnswer: FAQAnswer{Type: "Answer", Text: strings.TrimSpace(f.A)},
		})
	}
	return out
}
