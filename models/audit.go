package models

// Severity of a single rubric violation.
type Severity string

const (
	SeverityFail Severity = "FAIL"
	SeverityWarn Severity = "WARN"
	SeverityInfo Severity = "INFO"
)

// Verdict summarizes an audit.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictWarn    Verdict = "WARN"
	VerdictFail    Verdict = "FAIL"
	VerdictUnknown Verdict = "UNKNOWN"
)

// Issue is one rubric violation with a remediation hint.
type Issue struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	FixHint  string   `json:"fix_hint"`
}

// Signals are the diagnostic measurements an audit was computed from.
type Signals struct {
	TitleLen            int     `json:"title_len"`
	DescLen             int     `json:"desc_len"`
	H1Count             int     `json:"h1_count"`
	H2Count             int     `json:"h2_count"`
	WordCount           int     `json:"word_count"`
	PrimaryKwInH1       bool    `json:"primary_kw_in_h1"`
	PrimaryKwInFirst    bool    `json:"primary_kw_in_first120"`
	SupportingKwHits    int     `json:"supporting_kw_hits"`
	SupportingKwTotal   int     `json:"supporting_kw_total"`
	FAQCount            int     `json:"faq_count"`
	HasFAQJSONLD        bool    `json:"has_faq_jsonld"`
	PrimaryKwDensity    float64 `json:"primary_kw_density_pct"`
	PrimaryKwOccurrence int     `json:"primary_kw_occurrences"`
	BannedTerm          string  `json:"banned_term,omitempty"`
	HasDisclaimer       bool    `json:"has_disclaimer"`
}

// AuditResult is produced fresh by every audit and never mutated.
type AuditResult struct {
	Overall       Verdict `json:"overall"`
	Score         int     `json:"score"`
	Issues        []Issue `json:"issues"`
	Signals       Signals `json:"signals"`
	RubricVersion string  `json:"rubric_version,omitempty"`
}

// Has reports whether an issue with the given rule id is present.
func (a AuditResult) Has(ruleID string) bool {
	for _, i := range a.Issues {
		if i.RuleID == ruleID {
			return true
		}
	}
	return false
}

// QCResult grades generated copy against the compliance term lists.
type QCResult struct {
	Grade Verdict  `json:"grade"`
	Hits  []string `json:"hits"`
	Notes []string `json:"notes"`
}
