package models

// ImportedPage is what the importer extracts from a live landing page.
type ImportedPage struct {
	URL             string    `json:"url"`
	FinalURL        string    `json:"final_url,omitempty"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	CanonicalURL    string    `json:"canonical_url,omitempty"`
	H1              string    `json:"h1"`
	BodyHTML        string    `json:"body_html"`
	Text            string    `json:"text"`
	FAQ             []FAQItem `json:"faq,omitempty"`

	// Readability enrichment (from go-readability)
	Excerpt  string `json:"excerpt,omitempty"`
	SiteName string `json:"site_name,omitempty"`

	// Detection (from pkg/detector)
	Language           string   `json:"language"` // ISO-639-1 if possible (e.g. "ko")
	LanguageConfidence float64  `json:"language_confidence,omitempty"`
	Intent             string   `json:"intent"`
	WordCount          int      `json:"word_count"`
	Keywords           []string `json:"keywords,omitempty"`
	FromCache          bool     `json:"from_cache,omitempty"`
}
