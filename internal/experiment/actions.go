package experiment

import (
	"errors"
	"fmt"

	"github.com/dtnitsch/landing-ops/internal/common"
	"github.com/dtnitsch/landing-ops/pkg/abtest"
	"github.com/urfave/cli/v2"
)

func OptimizeAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	run, err := app.Service.Optimize(c.Context, id)
	if err != nil {
		return err
	}
	return common.Print(c, map[string]any{"run_id": id, "stage": run.Stage, "optimize": run.Optimize, "qc": run.QC})
}

// EventAction records --count events of one kind, for seeding tests and
// backfilling tracked traffic.
func EventAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	count := c.Int("count")
	if count <= 0 {
		return fmt.Errorf("--count must be positive")
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	for i := 0; i < count; i++ {
		if _, err := app.Service.RecordEvent(c.Context, id, c.String("variant"), c.String("event")); err != nil {
			return err
		}
	}
	sum, err := app.Service.Summary(c.Context, id)
	if err != nil {
		return err
	}
	return common.Print(c, map[string]any{"run_id": id, "recorded": count, "summary": sum})
}

func SummaryAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	sum, err := app.Service.Summary(c.Context, id)
	if err != nil {
		return err
	}
	return common.Print(c, map[string]any{"run_id": id, "summary": sum})
}

func ApproveAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	run, err := app.Service.Approve(c.Context, id, c.String("variant"))
	if err != nil {
		var nr *abtest.NoRecommendationError
		if errors.As(err, &nr) {
			return fmt.Errorf("%w\nhint: %s", err, nr.Hint)
		}
		return err
	}
	return common.Print(c, map[string]any{"run_id": id, "stage": run.Stage, "approved": run.Approved})
}
