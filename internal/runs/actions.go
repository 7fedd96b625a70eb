package runs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dtnitsch/landing-ops/internal/common"
	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/caching"
	"github.com/dtnitsch/landing-ops/pkg/fetcher"
	"github.com/dtnitsch/landing-ops/pkg/importer"
	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// validate checks NewRun with the same binding tags the HTTP API uses.
var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

// readNewRun decodes a YAML or JSON run file. Keys follow the API's JSON
// names.
func readNewRun(path string) (models.NewRun, error) {
	var in models.NewRun
	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("failed to read run file: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return in, fmt.Errorf("failed to parse run file %s: %w", path, err)
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return in, fmt.Errorf("failed to parse run file %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("failed to parse run file %s: %w", path, err)
	}
	return in, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return models.CleanKeywords(strings.Split(s, ","))
}

// newRunFromFlags overlays set flags on in.
func newRunFromFlags(c *cli.Context, in models.NewRun) models.NewRun {
	for flag, dst := range map[string]*string{
		"keyword":     &in.PrimaryKeyword,
		"intent":      &in.Intent,
		"title":       &in.MetaTitle,
		"description": &in.MetaDescription,
		"text":        &in.LandingText,
		"h1":          &in.H1,
		"body":        &in.BodyHTML,
		"cta":         &in.CTA,
		"canonical":   &in.CanonicalURL,
		"buy-url":     &in.BuyURL,
	} {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	if c.IsSet("supporting") {
		in.SupportingKeywords = splitList(c.String("supporting"))
	}
	return in
}

func NewAction(c *cli.Context) error {
	var in models.NewRun
	if path := c.String("file"); path != "" {
		var err error
		if in, err = readNewRun(path); err != nil {
			return err
		}
	}
	in = newRunFromFlags(c, in)
	if strings.TrimSpace(in.PrimaryKeyword) == "" && strings.TrimSpace(in.LandingText) == "" && strings.TrimSpace(in.BodyHTML) == "" {
		return fmt.Errorf("a run needs at least --keyword, --text or --body")
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("invalid run input: %w", err)
	}

	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	run, err := app.Service.CreateRun(c.Context, in)
	if err != nil {
		return err
	}
	return common.Print(c, map[string]any{"run_id": run.ID, "stage": run.Stage, "primary_keyword": run.PrimaryKeyword})
}

// ImportAction fetches a live page and seeds a DRAFT run from it.
func ImportAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("URL is required")
	}
	rawURL, err := common.ValidateURL(c.Args().First())
	if err != nil {
		return err
	}

	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := []fetcher.Option{fetcher.WithTimeout(c.Duration("timeout"))}
	if !c.Bool("no-cache") {
		cache, err := caching.NewCache(app.Config.CacheDir, app.Config.CacheTTL)
		if err != nil {
			return fmt.Errorf("failed to open fetch cache: %w", err)
		}
		opts = append(opts, fetcher.WithCache(cache))
	}
	im := importer.New(fetcher.NewFetcher(opts...), app.Logger)

	page, err := im.Import(c.Context, rawURL, c.Int("max-blocks"))
	if err != nil {
		return err
	}
	if c.Bool("dry-run") {
		return common.Print(c, page)
	}

	in := importer.ToNewRun(page, c.String("keyword"), splitList(c.String("supporting")))
	if c.IsSet("intent") {
		in.Intent = c.String("intent")
	}
	if c.IsSet("buy-url") {
		in.BuyURL = c.String("buy-url")
	}
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("imported page does not make a valid run: %w", err)
	}
	run, err := app.Service.CreateRun(c.Context, in)
	if err != nil {
		return err
	}
	return common.Print(c, map[string]any{
		"run_id":              run.ID,
		"stage":               run.Stage,
		"source_url":          page.FinalURL,
		"from_cache":          page.FromCache,
		"language":            page.Language,
		"intent":              run.Intent,
		"primary_keyword":     run.PrimaryKeyword,
		"supporting_keywords": run.SupportingKeywords,
		"words":               page.WordCount,
	})
}

func GetAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	run, err := app.Service.GetRun(c.Context, id)
	if err != nil {
		return err
	}
	return common.Print(c, common.FilterFields(run, c.String("fields")))
}

func ListAction(c *cli.Context) error {
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	f := models.RunFilter{
		Query:   c.String("q"),
		Stage:   models.Stage(strings.ToUpper(c.String("stage"))),
		Verdict: models.Verdict(strings.ToUpper(c.String("verdict"))),
		Sort:    c.String("sort"),
		Limit:   c.Int("limit"),
		Offset:  c.Int("offset"),
	}
	if f.Stage != "" && !f.Stage.Valid() {
		return fmt.Errorf("unknown stage: %s", f.Stage)
	}
	items, total, err := app.Store.ListRuns(c.Context, f)
	if err != nil {
		return err
	}
	if c.IsSet("format") {
		return common.Print(c, map[string]any{"total": total, "items": items})
	}

	if len(items) == 0 {
		fmt.Println("No runs found")
		return nil
	}
	fmt.Printf("%-6s %-10s %-8s %-6s %-4s %-20s %-30s\n", "ID", "Stage", "Verdict", "Score", "A/B", "Updated", "Keyword")
	fmt.Println(strings.Repeat("-", 90))
	for _, s := range items {
		verdict, score := "-", "-"
		if s.AuditOverall != "" {
			verdict = string(s.AuditOverall)
		}
		if s.AuditScore != nil {
			score = fmt.Sprint(*s.AuditScore)
		}
		ab := s.ApprovedVar
		if ab == "" {
			ab = "-"
		}
		fmt.Printf("%-6d %-10s %-8s %-6s %-4s %-20s %-30s\n",
			s.ID, s.Stage, verdict, score, ab, s.UpdatedAt.Format("2006-01-02 15:04:05"), s.PrimaryKeyword)
	}
	fmt.Printf("\nShowing %d of %d runs\n", len(items), total)
	return nil
}
