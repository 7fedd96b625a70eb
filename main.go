package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dtnitsch/landing-ops/internal/api"
	"github.com/dtnitsch/landing-ops/internal/db"
	"github.com/dtnitsch/landing-ops/internal/experiment"
	"github.com/dtnitsch/landing-ops/internal/ops"
	"github.com/dtnitsch/landing-ops/internal/runs"
	"github.com/dtnitsch/landing-ops/pkg/fixer"
	"github.com/dtnitsch/landing-ops/pkg/pipeline"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	// .env is optional
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "lops",
		Usage:   "audit, fix, A/B test and export SEO landing pages",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "lops.yaml", Usage: "YAML config file (optional)", EnvVars: []string{"LOPS_CONFIG"}},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "export-dir", Usage: "local export directory"},
			&cli.StringFlag{Name: "rubric", Usage: "rubric YAML file (default: built-in)"},
			&cli.StringFlag{Name: "base-url", Usage: "public base URL for canonical fallbacks"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "yaml", Usage: "output format: yaml or json"},
			&cli.BoolFlag{Name: "no-rewrite", Usage: "disable the language-model assist"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
			&cli.BoolFlag{Name: "verbose", Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: api.ServeAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "listen address (default from config, :8080)"},
					&cli.BoolFlag{Name: "debug", Usage: "gin debug mode"},
				},
			},
			{
				Name:  "run",
				Usage: "create and inspect runs",
				Subcommands: []*cli.Command{
					{
						Name:      "new",
						Usage:     "create a DRAFT run from flags and/or a YAML/JSON file",
						ArgsUsage: " ",
						Action:    runs.NewAction,
						Flags:     newRunFlags(),
					},
					{
						Name:      "import",
						Usage:     "create a DRAFT run from a live page",
						ArgsUsage: "<url>",
						Action:    runs.ImportAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "primary keyword (default: top suggestion)"},
							&cli.StringFlag{Name: "supporting", Aliases: []string{"s"}, Usage: "comma separated supporting keywords"},
							&cli.StringFlag{Name: "intent", Usage: "override detected intent"},
							&cli.StringFlag{Name: "buy-url", Usage: "purchase link for the CTA"},
							&cli.IntFlag{Name: "max-blocks", Value: 80, Usage: "max body blocks kept from the page"},
							&cli.DurationFlag{Name: "timeout", Value: 15 * time.Second, Usage: "fetch timeout"},
							&cli.BoolFlag{Name: "no-cache", Usage: "bypass the fetch cache"},
							&cli.BoolFlag{Name: "dry-run", Usage: "print the extracted page without creating a run"},
						},
					},
					{
						Name:      "get",
						Usage:     "show a run",
						ArgsUsage: "<run-id>",
						Action:    runs.GetAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "fields", Usage: "comma separated JSON keys to keep (e.g. run_id,stage,audit)"},
						},
					},
					{
						Name:   "list",
						Usage:  "list runs",
						Action: runs.ListAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "q", Usage: "search title, keyword or id"},
							&cli.StringFlag{Name: "stage", Usage: "filter by stage"},
							&cli.StringFlag{Name: "verdict", Usage: "filter by PASS, WARN, FAIL or UNKNOWN"},
							&cli.StringFlag{Name: "sort", Value: "updated", Usage: "updated, created or score"},
							&cli.IntFlag{Name: "limit", Value: 50},
							&cli.IntFlag{Name: "offset"},
						},
					},
				},
			},
			{
				Name:      "audit",
				Usage:     "audit the current snapshot of a run",
				ArgsUsage: "<run-id>",
				Action:    ops.AuditAction,
			},
			{
				Name:      "fix",
				Usage:     "run the fix-to-pass loop",
				ArgsUsage: "<run-id>",
				Action:    ops.FixAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rounds", Aliases: []string{"r"}, Value: fixer.DefaultRounds, Usage: fmt.Sprintf("max rounds (%d-%d)", fixer.MinRounds, fixer.MaxRounds)},
					&cli.BoolFlag{Name: "show-page", Usage: "include the fixed page"},
				},
			},
			{
				Name:      "export",
				Usage:     "render a PASS run to static HTML",
				ArgsUsage: "<run-id>",
				Action:    ops.ExportAction,
			},
			{
				Name:      "auto",
				Usage:     "fix then export in one step",
				ArgsUsage: "<run-id>",
				Action:    ops.AutoAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rounds", Aliases: []string{"r"}, Value: pipeline.DefaultAutoRounds},
				},
			},
			{
				Name:      "bulk",
				Usage:     "apply AUDIT, FIX, AUTO or EXPORT to many runs",
				ArgsUsage: "<run-id>[,<run-id>...] ...",
				Action:    ops.BulkAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "action", Aliases: []string{"a"}, Required: true, Usage: "AUDIT, FIX, AUTO or EXPORT"},
					&cli.IntFlag{Name: "rounds", Aliases: []string{"r"}, Value: pipeline.DefaultAutoRounds},
					&cli.BoolFlag{Name: "strict", Usage: "exit non-zero when any run fails"},
				},
			},
			{
				Name:  "ab",
				Usage: "A/B copy variants and CTR decisions",
				Subcommands: []*cli.Command{
					{
						Name:      "optimize",
						Usage:     "draft and grade A/B copy",
						ArgsUsage: "<run-id>",
						Action:    experiment.OptimizeAction,
					},
					{
						Name:      "event",
						Usage:     "record view or cta_click events",
						ArgsUsage: "<run-id>",
						Action:    experiment.EventAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "variant", Required: true, Usage: "A or B"},
							&cli.StringFlag{Name: "event", Value: "view", Usage: "view or cta_click"},
							&cli.IntFlag{Name: "count", Value: 1},
						},
					},
					{
						Name:      "summary",
						Usage:     "CTR per variant and significance",
						ArgsUsage: "<run-id>",
						Action:    experiment.SummaryAction,
					},
					{
						Name:      "approve",
						Usage:     "approve A, B or the recommended variant",
						ArgsUsage: "<run-id>",
						Action:    experiment.ApproveAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "variant", Value: "RECOMMENDED", Usage: "A, B or RECOMMENDED"},
						},
					},
				},
			},
			{
				Name:  "db",
				Usage: "inspect and prune the run store",
				Subcommands: []*cli.Command{
					{
						Name:   "summary",
						Usage:  "row counts and runs per stage",
						Action: db.SummaryAction,
					},
					{
						Name:      "logs",
						Usage:     "job log of a run",
						ArgsUsage: "<run-id>",
						Action:    db.LogsAction,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 50},
							&cli.BoolFlag{Name: "full", Usage: "do not truncate detail"},
						},
					},
					{
						Name:      "reset-events",
						Usage:     "delete a run's A/B events",
						ArgsUsage: "<run-id>",
						Action:    db.ResetEventsAction,
					},
					{
						Name:      "delete",
						Usage:     "delete runs with their events and logs",
						ArgsUsage: "<run-id> ...",
						Action:    db.DeleteAction,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "confirm deletion"},
						},
					},
				},
			},
			{
				Name:  "rubric",
				Usage: "inspect rubric tables",
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "print the active rubric",
						ArgsUsage: "[file]",
						Action:    ops.RubricShowAction,
					},
					{
						Name:      "check",
						Usage:     "validate a rubric file",
						ArgsUsage: "<file>",
						Action:    ops.RubricCheckAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRunFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Usage: "YAML or JSON run input; flags override its fields"},
		&cli.StringFlag{Name: "keyword", Aliases: []string{"k"}, Usage: "primary keyword"},
		&cli.StringFlag{Name: "supporting", Aliases: []string{"s"}, Usage: "comma separated supporting keywords"},
		&cli.StringFlag{Name: "intent", Usage: "구매형 (default) or 정보형"},
		&cli.StringFlag{Name: "title", Usage: "meta title"},
		&cli.StringFlag{Name: "description", Usage: "meta description"},
		&cli.StringFlag{Name: "text", Usage: "plain landing text"},
		&cli.StringFlag{Name: "h1"},
		&cli.StringFlag{Name: "body", Usage: "body HTML"},
		&cli.StringFlag{Name: "cta"},
		&cli.StringFlag{Name: "canonical", Usage: "canonical URL"},
		&cli.StringFlag{Name: "buy-url", Usage: "purchase link for the CTA"},
	}
}
