package manifest

// Item statuses. WARN is a completed item that did not reach its goal,
// such as an AUTO run whose export was blocked.
const (
	StatusOK   = "OK"
	StatusWarn = "WARN"
	StatusErr  = "ERR"
)

// BulkManifest summarizes one bulk action over many runs. It is returned to
// the caller and written next to the exports.
type BulkManifest struct {
	GeneratedAt string         `json:"generated_at"`
	Action      string         `json:"action"`
	Total       int            `json:"total"`
	OK          int            `json:"ok"`
	Warn        int            `json:"warn"`
	Failed      int            `json:"failed"`
	Verdicts    map[string]int `json:"verdicts"`
	Results     []ItemSummary  `json:"results"`
	Location    string         `json:"location,omitempty"`
}

// ItemSummary is the outcome for a single run id.
type ItemSummary struct {
	RunID        int64  `json:"run_id"`
	OK           bool   `json:"ok"`
	Status       string `json:"status"`
	Stage        string `json:"stage,omitempty"`
	Overall      string `json:"overall,omitempty"`
	Score        *int   `json:"score,omitempty"`
	Rounds       int    `json:"rounds,omitempty"`
	LoopState    string `json:"loop_state,omitempty"`
	ExportPath   string `json:"export_path,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	Hint         string `json:"hint,omitempty"`
	ElapsedMS    int64  `json:"elapsed_ms"`
}
