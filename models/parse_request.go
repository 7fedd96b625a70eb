package models

// ParseRequest carries raw HTML to the landing parser.
type ParseRequest struct {
	URL  string
	HTML string

	// MaxBodyBlocks caps how many content blocks are kept; 0 keeps all.
	MaxBodyBlocks int `json:"max_body_blocks,omitempty"`
}
