// Package rubric holds the versioned threshold and term tables that the
// audit, enforcement and A/B packages read. Tuning the rubric is a data
// change: Load overlays a YAML file on the built-in defaults.
package rubric

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"gopkg.in/yaml.v3"
)

// Window is an inclusive [Min, Max] character-length range.
type Window struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Contains reports whether n lies inside the window.
func (w Window) Contains(n int) bool {
	return n >= w.Min && n <= w.Max
}

// RuleDef is the severity and penalty of one audit rule.
type RuleDef struct {
	Severity models.Severity `yaml:"severity"`
	Penalty  int             `yaml:"penalty"`
}

// AuditRules are the authoritative thresholds.
type AuditRules struct {
	Title         Window             `yaml:"title"`
	Description   Window             `yaml:"description"`
	MinH2         int                `yaml:"min_h2"`
	MinWords      int                `yaml:"min_words"`
	MinFAQ        int                `yaml:"min_faq"`
	MinSupporting int                `yaml:"min_supporting_hits"`
	MaxDensityPct float64            `yaml:"max_density_pct"`
	FirstWords    int                `yaml:"first_words"`
	WarnsForWarn  int                `yaml:"warns_for_warn"`
	Rules         map[string]RuleDef `yaml:"rules"`
}

// EnforceRules drive the deterministic rewrite.
type EnforceRules struct {
	Title            Window  `yaml:"title"`
	Description      Window  `yaml:"description"`
	MinH2Purchase    int     `yaml:"min_h2_purchase"`
	MinH2Other       int     `yaml:"min_h2_other"`
	MinWords         int     `yaml:"min_words"`
	MaxExpandCycles  int     `yaml:"max_expand_cycles"`
	MinFAQ           int     `yaml:"min_faq"`
	MinSupporting    int     `yaml:"min_supporting_hits"`
	MaxDensityPct    float64 `yaml:"max_density_pct"`
	DensityStartAt   int     `yaml:"density_start_at"`
	DensityMaxPasses int     `yaml:"density_max_passes"`
	NeutralPhrase    string  `yaml:"neutral_phrase"`
}

// QuickCheckRules are the cheap "likely pass" thresholds. They are looser
// than the audit on purpose; they only decide whether the assist is worth
// calling.
type QuickCheckRules struct {
	Title           Window   `yaml:"title"`
	Description     Window   `yaml:"description"`
	MinWords        int      `yaml:"min_words"`
	MinFAQ          int      `yaml:"min_faq"`
	MinSupporting   int      `yaml:"min_supporting_hits"`
	MaxDensityPct   float64  `yaml:"max_density_pct"`
	RequiredPhrases []string `yaml:"required_phrases"`
}

// Compliance lists are scanned by the E rules.
type Compliance struct {
	BannedTerms       []string `yaml:"banned_terms"`
	DisclaimerPhrases []string `yaml:"disclaimer_phrases"`
}

// QCRules grade generated variant copy.
type QCRules struct {
	Fail     []string `yaml:"fail"`
	Warn     []string `yaml:"warn"`
	FailNote string   `yaml:"fail_note"`
	WarnNote string   `yaml:"warn_note"`
}

// ABRules are the recommendation thresholds.
type ABRules struct {
	MinViews int     `yaml:"min_views"`
	Alpha    float64 `yaml:"alpha"`
}

// Copy holds the canned text the enforcement engine appends. "{kw}" is
// replaced with the primary keyword and "{keywords}" with a list.
type Copy struct {
	TitlePad             string           `yaml:"title_pad"`
	DescriptionPad       string           `yaml:"description_pad"`
	PassTitlePadPurchase string           `yaml:"pass_title_pad_purchase"`
	PassTitlePadOther    string           `yaml:"pass_title_pad_other"`
	PassTitleFallback    string           `yaml:"pass_title_fallback"`
	PassDescriptionPad   string           `yaml:"pass_description_pad"`
	PassDescriptionLead  string           `yaml:"pass_description_lead"`
	CTAPurchase          string           `yaml:"cta_purchase"`
	CTAOther             string           `yaml:"cta_other"`
	Sections             []string         `yaml:"sections"`
	PurchaseSections     []string         `yaml:"purchase_sections"`
	FAQ                  []models.FAQItem `yaml:"faq"`
	Expansions           []string         `yaml:"expansions"`
	LeadPurchase         string           `yaml:"lead_purchase"`
	LeadOther            string           `yaml:"lead_other"`
	SupportingLine       string           `yaml:"supporting_line"`
	Disclaimer           string           `yaml:"disclaimer"`
}

// Rubric is one complete, versioned table.
type Rubric struct {
	Version    string          `yaml:"version"`
	Audit      AuditRules      `yaml:"audit"`
	Enforce    EnforceRules    `yaml:"enforce"`
	QuickCheck QuickCheckRules `yaml:"quickcheck"`
	Compliance Compliance      `yaml:"compliance"`
	QC         QCRules         `yaml:"qc"`
	AB         ABRules         `yaml:"ab"`
	Copy       Copy            `yaml:"copy"`
}

// Rule returns the definition for id; unknown ids are WARN with no penalty.
func (r *Rubric) Rule(id string) RuleDef {
	if d, ok := r.Audit.Rules[id]; ok {
		return d
	}
	return RuleDef{Severity: models.SeverityWarn}
}

// MinH2For returns the enforcement section minimum for an intent.
func (r *Rubric) MinH2For(t models.Targeting) int {
	if t.IsPurchase() {
		return r.Enforce.MinH2Purchase
	}
	return r.Enforce.MinH2Other
}

// Load reads a YAML rubric from path and overlays it on Default().
func Load(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rubric: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML data on Default() and validates the result.
func Parse(data []byte) (*Rubric, error) {
	r := Default()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse rubric: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate rejects tables that would make the engines misbehave.
func (r *Rubric) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(strings.TrimSpace(r.Version) != "", "version is required")
	for name, w := range map[string]Window{
		"audit.title":            r.Audit.Title,
		"audit.description":      r.Audit.Description,
		"enforce.title":          r.Enforce.Title,
		"enforce.description":    r.Enforce.Description,
		"quickcheck.title":       r.QuickCheck.Title,
		"quickcheck.description": r.QuickCheck.Description,
	} {
		check(w.Min > 0 && w.Min <= w.Max, "%s window [%d,%d] is invalid", name, w.Min, w.Max)
	}
	check(r.Audit.MaxDensityPct > 0, "audit.max_density_pct must be positive")
	check(r.Enforce.MaxDensityPct > 0, "enforce.max_density_pct must be positive")
	check(r.Enforce.MaxExpandCycles >= 0 && r.Enforce.MaxExpandCycles <= 10, "enforce.max_expand_cycles must be within [0,10]")
	check(r.Enforce.DensityStartAt >= 2, "enforce.density_start_at must be at least 2")
	check(r.Enforce.NeutralPhrase != "", "enforce.neutral_phrase is required")
	check(r.AB.MinViews >= 0, "ab.min_views must not be negative")
	check(r.AB.Alpha > 0 && r.AB.Alpha < 1, "ab.alpha must be within (0,1)")
	check(len(r.Copy.Sections) >= r.Enforce.MinH2Other, "copy.sections must cover min_h2_other")
	check(len(r.Copy.Sections)+len(r.Copy.PurchaseSections) >= r.Enforce.MinH2Purchase, "copy sections must cover min_h2_purchase")
	check(len(r.Copy.FAQ) >= r.Enforce.MinFAQ, "copy.faq must cover enforce.min_faq")
	check(len(r.Copy.Expansions) > 0, "copy.expansions must not be empty")
	for _, id := range RuleIDs {
		_, ok := r.Audit.Rules[id]
		check(ok, "audit.rules.%s is missing", id)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid rubric %q: %w", r.Version, errors.Join(errs...))
	}
	return nil
}

// Fill substitutes {kw} in a copy template.
func Fill(tmpl, kw string) string {
	return strings.TrimSpace(strings.ReplaceAll(tmpl, "{kw}", kw))
}
