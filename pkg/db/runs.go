package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/models"
)

const runColumns = `run_id, stage, meta_title, meta_description, landing_text,
	primary_keyword, supporting_keywords, intent, h1, body_html, cta, faq,
	canonical_url, og_title, og_description, buy_url, products,
	optimize_json, qc_json, approved_json, audit_json, fixed_json, fix_diff_json, export_json,
	created_at, updated_at`

func now() time.Time {
	return time.Now().UTC()
}

// timeLayout is fixed width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// encode marshals v for a NOT NULL JSON column.
func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(b), nil
}

// encodeNullable marshals v for a nullable JSON column.
func encodeNullable(v any) (sql.NullString, error) {
	s, err := encode(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if s == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: s, Valid: true}, nil
}

func decode(s sql.NullString, dst any) error {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}

// CreateRun inserts a DRAFT run and returns it.
func (db *DB) CreateRun(ctx context.Context, in models.NewRun) (*models.Run, error) {
	supporting, err := encode(models.CleanKeywords(in.SupportingKeywords))
	if err != nil {
		return nil, err
	}
	faq := in.FAQ
	if faq == nil {
		faq = []models.FAQItem{}
	}
	faqJSON, err := encode(faq)
	if err != nil {
		return nil, err
	}
	products := in.Products
	if products == nil {
		products = []models.Product{}
	}
	productsJSON, err := encode(products)
	if err != nil {
		return nil, err
	}

	ts := formatTime(now())
	result, err := db.ExecContext(ctx, `
		INSERT INTO runs (stage, meta_title, meta_description, landing_text,
			primary_keyword, supporting_keywords, intent, h1, body_html, cta, faq,
			canonical_url, buy_url, products, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, models.StageDraft,
		strings.TrimSpace(in.MetaTitle), strings.TrimSpace(in.MetaDescription), in.LandingText,
		strings.TrimSpace(in.PrimaryKeyword), supporting, strings.TrimSpace(in.Intent),
		strings.TrimSpace(in.H1), in.BodyHTML, strings.TrimSpace(in.CTA), faqJSON,
		strings.TrimSpace(in.CanonicalURL), strings.TrimSpace(in.BuyURL), productsJSON, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get run ID: %w", err)
	}
	return db.GetRun(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		r                                                  models.Run
		supporting, faq, products                          string
		optimize, qc, approved, audit, fixed, diff, export sql.NullString
		created, updated                                   string
	)
	err := row.Scan(&r.ID, &r.Stage, &r.MetaTitle, &r.MetaDescription, &r.LandingText,
		&r.PrimaryKeyword, &supporting, &r.Intent, &r.H1, &r.BodyHTML, &r.CTA, &faq,
		&r.CanonicalURL, &r.OGTitle, &r.OGDescription, &r.BuyURL, &products,
		&optimize, &qc, &approved, &audit, &fixed, &diff, &export,
		&created, &updated)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		src sql.NullString
		dst any
	}{
		{sql.NullString{String: supporting, Valid: true}, &r.SupportingKeywords},
		{sql.NullString{String: faq, Valid: true}, &r.FAQ},
		{sql.NullString{String: products, Valid: true}, &r.Products},
		{optimize, &r.Optimize},
		{qc, &r.QC},
		{approved, &r.Approved},
		{audit, &r.Audit},
		{fixed, &r.Fixed},
		{diff, &r.FixDiff},
		{export, &r.Export},
	} {
		if err := decode(col.src, col.dst); err != nil {
			return nil, fmt.Errorf("failed to decode run %d: %w", r.ID, err)
		}
	}
	if r.SupportingKeywords == nil {
		r.SupportingKeywords = []string{}
	}
	if r.FAQ == nil {
		r.FAQ = []models.FAQItem{}
	}
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}

// GetRun loads a run by id, returning ErrRunNotFound when missing.
func (db *DB) GetRun(ctx context.Context, id int64) (*models.Run, error) {
	row := db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// updateRun sets the given columns plus stage and updated_at.
func (db *DB) updateRun(ctx context.Context, id int64, stage models.Stage, cols []string, args ...any) error {
	sets := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "stage = ?", "updated_at = ?")
	args = append(args, stage, formatTime(now()), id)

	result, err := db.ExecContext(ctx, "UPDATE runs SET "+strings.Join(sets, ", ")+" WHERE run_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}

// RecordOptimize stores the A/B pack with its per-variant QC and moves the
// run to AB_READY.
func (db *DB) RecordOptimize(ctx context.Context, id int64, pack *models.OptimizePack, qc map[string]models.QCResult) error {
	packJSON, err := encodeNullable(pack)
	if err != nil {
		return err
	}
	qcJSON, err := encodeNullable(qc)
	if err != nil {
		return err
	}
	return db.updateRun(ctx, id, models.StageABReady, []string{"optimize_json", "qc_json"}, packJSON, qcJSON)
}

// RecordApproval stores the promoted variant, drops the latest audit and
// moves the run to APPROVED.
func (db *DB) RecordApproval(ctx context.Context, id int64, approval *models.Approval) error {
	approvedJSON, err := encodeNullable(approval)
	if err != nil {
		return err
	}
	// the approved copy changes the snapshot the audit described
	return db.updateRun(ctx, id, models.StageApproved,
		[]string{"approved_json", "audit_json", "audit_overall", "audit_score"},
		approvedJSON, nil, nil, nil)
}

// RecordAudit stores the latest audit and moves the run to AUDIT_DONE.
func (db *DB) RecordAudit(ctx context.Context, id int64, audit models.AuditResult) error {
	auditJSON, err := encodeNullable(audit)
	if err != nil {
		return err
	}
	return db.updateRun(ctx, id, models.StageAuditDone,
		[]string{"audit_json", "audit_overall", "audit_score"},
		auditJSON, string(audit.Overall), audit.Score)
}

// RecordFixedPage stores the fixed page, its audit and the diff, and moves
// the run to FIXED.
func (db *DB) RecordFixedPage(ctx context.Context, id int64, page models.Page, audit models.AuditResult, diff *models.PageDiff) error {
	fixedJSON, err := encodeNullable(page)
	if err != nil {
		return err
	}
	auditJSON, err := encodeNullable(audit)
	if err != nil {
		return err
	}
	diffJSON, err := encodeNullable(diff)
	if err != nil {
		return err
	}
	return db.updateRun(ctx, id, models.StageFixed,
		[]string{"fixed_json", "fix_diff_json", "audit_json", "audit_overall", "audit_score"},
		fixedJSON, diffJSON, auditJSON, string(audit.Overall), audit.Score)
}

// RecordExport stores the export location and moves the run to EXPORTED.
func (db *DB) RecordExport(ctx context.Context, id int64, rec models.ExportRecord) error {
	exportJSON, err := encodeNullable(rec)
	if err != nil {
		return err
	}
	return db.updateRun(ctx, id, models.StageExported, []string{"export_json"}, exportJSON)
}

// DeleteRun removes a run; events and job logs cascade.
func (db *DB) DeleteRun(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of run %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListRuns returns one page of run summaries matching f and the total
// number of matches.
func (db *DB) ListRuns(ctx context.Context, f models.RunFilter) ([]models.RunSummary, int, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		where = append(where, "(meta_title LIKE ? OR primary_keyword LIKE ? OR CAST(run_id AS TEXT) = ?)")
		args = append(args, like, like, q)
	}
	if f.Stage != "" {
		where = append(where, "stage = ?")
		args = append(args, f.Stage)
	}
	switch f.Verdict {
	case "":
	case models.VerdictUnknown:
		where = append(where, "audit_overall IS NULL")
	default:
		where = append(where, "audit_overall = ?")
		args = append(args, f.Verdict)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	order := "updated_at DESC, run_id DESC"
	switch f.Sort {
	case "created":
		order = "created_at DESC, run_id DESC"
	case "score":
		order = "audit_score IS NULL, audit_score DESC, run_id DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(f.Offset, 0)

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, stage, meta_title, primary_keyword, intent, audit_overall, audit_score,
			approved_json, export_json IS NOT NULL, updated_at
		FROM runs`+clause+" ORDER BY "+order+" LIMIT ? OFFSET ?", append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.RunSummary{}
	for rows.Next() {
		var (
			s        models.RunSummary
			overall  sql.NullString
			score    sql.NullInt64
			approved sql.NullString
			updated  string
		)
		if err := rows.Scan(&s.ID, &s.Stage, &s.MetaTitle, &s.PrimaryKeyword, &s.Intent,
			&overall, &score, &approved, &s.Exported, &updated); err != nil {
			return nil, 0, fmt.Errorf("failed to scan run summary: %w", err)
		}
		s.AuditOverall = models.Verdict(overall.String)
		if score.Valid {
			v := int(score.Int64)
			s.AuditScore = &v
		}
		var a models.Approval
		if err := decode(approved, &a); err == nil {
			s.ApprovedVar = a.Variant
		}
		s.UpdatedAt = parseTime(updated)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, total, nil
}

// Summary counts rows per table and runs per stage.
func (db *DB) Summary(ctx context.Context) (models.StoreSummary, error) {
	s := models.StoreSummary{Stages: make(map[models.Stage]int)}
	for _, c := range []struct {
		table string
		dst   *int
	}{
		{"runs", &s.Runs},
		{"events", &s.Events},
		{"job_logs", &s.JobLogs},
	} {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return s, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	rows, err := db.QueryContext(ctx, "SELECT stage, COUNT(*) FROM runs GROUP BY stage")
	if err != nil {
		return s, fmt.Errorf("failed to count stages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			stage models.Stage
			n     int
		)
		if err := rows.Scan(&stage, &n); err != nil {
			return s, fmt.Errorf("failed to scan stage count: %w", err)
		}
		s.Stages[stage] = n
	}
	return s, rows.Err()
}
