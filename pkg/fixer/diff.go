package fixer

import (
	"strings"

	"github.com/dtnitsch/landing-ops/models"
)

// Diff lists the scalar fields that changed between before and after plus
// the FAQ entry counts.
func Diff(before, after models.Page) models.PageDiff {
	fields := []struct {
		name   string
		before string
		after  string
	}{
		{"meta_title", before.MetaTitle, after.MetaTitle},
		{"meta_description", before.MetaDescription, after.MetaDescription},
		{"canonical_url", before.CanonicalURL, after.CanonicalURL},
		{"og_title", before.OGTitle, after.OGTitle},
		{"og_description", before.OGDescription, after.OGDescription},
		{"h1", before.H1, after.H1},
		{"cta", before.CTA, after.CTA},
	}
	d := models.PageDiff{
		Changed: make(map[string]models.FieldChange),
		FAQ:     models.FAQDelta{BeforeCount: len(before.FAQ), AfterCount: len(after.FAQ)},
	}
	for _, f := range fields {
		b, a := strings.TrimSpace(f.before), strings.TrimSpace(f.after)
		if b != a {
			d.Changed[f.name] = models.FieldChange{Before: b, After: a}
		}
	}
	return d
}
