package audit

import (
	"strings"

	"github.com/dtnitsch/landing-ops/models"
)

// CheckCopy grades free text, usually a generated variant, against the
// rubric's QC term lists. A fail term anywhere makes the grade FAIL.
func (a *Auditor) CheckCopy(text string) models.QCResult {
	qc := a.r.QC
	res := models.QCResult{Grade: models.VerdictPass, Hits: []string{}, Notes: []string{}}

	var fails, warns []string
	for _, w := range qc.Fail {
		if w != "" && strings.Contains(text, w) {
			fails = append(fails, w)
		}
	}
	for _, w := range qc.Warn {
		if w != "" && strings.Contains(text, w) {
			warns = append(warns, w)
		}
	}

	switch {
	case len(fails) > 0:
		res.Grade = models.VerdictFail
		res.Notes = append(res.Notes, qc.FailNote)
	case len(warns) > 0:
		res.Grade = models.VerdictWarn
		res.Notes = append(res.Notes, qc.WarnNote)
	}
	res.Hits = append(res.Hits, fails...)
	res.Hits = append(res.Hits, warns...)
	return res
}
