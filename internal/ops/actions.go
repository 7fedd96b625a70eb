package ops

import (
	"fmt"
	"os"

	"github.com/dtnitsch/landing-ops/internal/common"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func AuditAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Service.Audit(c.Context, id)
	if err != nil {
		return err
	}
	return common.Print(c, map[string]any{"run_id": id, "stage": out.Run.Stage, "audit": out.Audit})
}

func FixAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Service.Fix(c.Context, id, c.Int("rounds"))
	if err != nil {
		return err
	}
	res := out.Result
	if out.AlreadyPass() {
		return common.Print(c, map[string]any{"run_id": id, "status": "already_pass", "audit": res.Audit})
	}
	report := map[string]any{
		"run_id":  id,
		"stage":   out.Run.Stage,
		"state":   res.State,
		"rounds":  res.Rounds,
		"overall": res.Audit.Overall,
		"score":   res.Audit.Score,
		"history": res.History,
		"diff":    res.Diff,
	}
	if c.Bool("show-page") {
		report["fixed"] = res.Page
	}
	if !res.Converged() {
		report["issues"] = res.Audit.Issues
	}
	return common.Print(c, report)
}

func ExportAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Service.Export(c.Context, id)
	if err != nil {
		return err
	}
	return common.Print(c, map[string]any{"run_id": id, "stage": out.Run.Stage, "export": out.Record})
}

// AutoAction fixes then exports. A blocked export prints the outcome and
// still fails the command.
func AutoAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.Service.Auto(c.Context, id, c.Int("rounds"))
	if err != nil {
		return err
	}
	res := out.Fix.Result
	report := map[string]any{
		"run_id":  id,
		"stage":   out.Run().Stage,
		"rounds":  res.Rounds,
		"overall": res.Audit.Overall,
		"score":   res.Audit.Score,
	}
	if out.Blocked != nil {
		report["issues"] = res.Audit.Issues
		report["hint"] = out.Blocked.Hint
		if err := common.Print(c, report); err != nil {
			return err
		}
		return out.Blocked
	}
	report["export"] = out.Export.Record
	return common.Print(c, report)
}

func BulkAction(c *cli.Context) error {
	ids, err := common.ParseRunIDs(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("at least one run id is required")
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	m, err := app.Service.Bulk(c.Context, c.String("action"), ids, c.Int("rounds"))
	if err != nil {
		return err
	}
	if err := common.Print(c, m); err != nil {
		return err
	}
	if m.Failed > 0 && c.Bool("strict") {
		return fmt.Errorf("%d of %d runs failed", m.Failed, m.Total)
	}
	return nil
}

// RubricShowAction prints the active rubric table as YAML.
func RubricShowAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return err
	}
	path := cfg.RubricPath
	if c.NArg() > 0 {
		path = c.Args().First()
	}
	h, err := rubric.Open(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(h.Current())
	if err != nil {
		return fmt.Errorf("failed to marshal rubric: %w", err)
	}
	if path == "" {
		fmt.Println("# built-in rubric")
	} else {
		fmt.Printf("# rubric: %s\n", path)
	}
	_, err = os.Stdout.Write(data)
	return err
}

// RubricCheckAction loads and validates a rubric file without using it.
func RubricCheckAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("rubric file is required")
	}
	path := c.Args().First()
	r, err := rubric.Load(path)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %s (version %s, %d rules)\n", path, r.Version, len(r.Audit.Rules))
	return nil
}
