// Package abtest turns recorded view/click events into CTR statistics and
// an approval decision.
package abtest

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
)

// ChoiceRecommended asks Decide to pick the variant from the statistics.
const ChoiceRecommended = "RECOMMENDED"

// ValidVariant reports whether v names a test arm.
func ValidVariant(v string) bool {
	return v == models.VariantA || v == models.VariantB
}

// ValidEvent reports whether name is a recordable event.
func ValidEvent(name string) bool {
	return name == models.EventView || name == models.EventCTAClick
}

// NormalizeVariant upper-cases and trims a variant or choice string.
func NormalizeVariant(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

func ctr(clicks, views int) float64 {
	if views <= 0 {
		return 0
	}
	return float64(clicks) / float64(views)
}

// pValueTwoSided is 2(1 - Φ(|z|)).
func pValueTwoSided(z float64) float64 {
	phi := 0.5 * (1 + math.Erf(math.Abs(z)/math.Sqrt2))
	return 2 * (1 - phi)
}

// Summarize counts events per variant and runs a pooled two-proportion
// z-test. A recommendation is only made once both variants have at least
// rules.MinViews views and the p-value is below rules.Alpha.
func Summarize(events []models.Event, rules rubric.ABRules) models.ABSummary {
	var a, b models.VariantStats
	for _, e := range events {
		var s *models.VariantStats
		switch e.Variant {
		case models.VariantA:
			s = &a
		case models.VariantB:
			s = &b
		default:
			continue
		}
		switch e.EventName {
		case models.EventView:
			s.Views++
		case models.EventCTAClick:
			s.Clicks++
		}
	}
	a.CTR = ctr(a.Clicks, a.Views)
	b.CTR = ctr(b.Clicks, b.Views)

	sum := models.ABSummary{
		A:                a,
		B:                b,
		Uplift:           b.CTR - a.CTR,
		PValue:           1,
		MinViewsRequired: rules.MinViews,
	}
	if a.Views > 0 && b.Views > 0 {
		pool := float64(a.Clicks+b.Clicks) / float64(a.Views+b.Views)
		stderr := math.Sqrt(math.Max(pool*(1-pool)*(1/float64(a.Views)+1/float64(b.Views)), 1e-12))
		sum.Z = (b.CTR - a.CTR) / stderr
		sum.PValue = pValueTwoSided(sum.Z)
	}

	if a.Views >= rules.MinViews && b.Views >= rules.MinViews && sum.PValue < rules.Alpha {
		v := models.VariantA
		if b.CTR > a.CTR {
			v = models.VariantB
		}
		sum.RecommendVariant = &v
	}
	return sum
}

// NoRecommendationError is returned when RECOMMENDED is requested but the
// data cannot support any choice yet.
type NoRecommendationError struct {
	Summary models.ABSummary
	Hint    string
}

func (e *NoRecommendationError) Error() string {
	return "no recommended variant yet (need more events or significance)"
}

// Decide resolves an approval choice. A or B are taken as-is. RECOMMENDED
// takes the significant recommendation, or the higher-CTR variant (ties to
// A) when both variants reached the view threshold without significance.
func Decide(choice string, summary models.ABSummary, now time.Time) (*models.Approval, error) {
	choice = NormalizeVariant(choice)
	if ValidVariant(choice) {
		return &models.Approval{Variant: choice, Method: models.ApprovalManual, Timestamp: now}, nil
	}
	if choice != ChoiceRecommended {
		return nil, fmt.Errorf("invalid variant %q: must be A, B or RECOMMENDED", choice)
	}

	s := summary
	if s.RecommendVariant != nil && ValidVariant(*s.RecommendVariant) {
		return &models.Approval{Variant: *s.RecommendVariant, Method: models.ApprovalRecommended, Timestamp: now, Summary: &s}, nil
	}
	if s.MinViewsRequired > 0 && s.A.Views >= s.MinViewsRequired && s.B.Views >= s.MinViewsRequired {
		v := models.VariantA
		if s.B.CTR > s.A.CTR {
			v = models.VariantB
		}
		return &models.Approval{Variant: v, Method: models.ApprovalFallback, Timestamp: now, Summary: &s}, nil
	}
	return nil, &NoRecommendationError{
		Summary: s,
		Hint:    fmt.Sprintf("Record View/CTA Click을 더 쌓아주세요. (min_views_required=%d)", s.MinViewsRequired),
	}
}
