package db

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dtnitsch/landing-ops/internal/common"
	"github.com/dtnitsch/landing-ops/models"
	"github.com/urfave/cli/v2"
)

func SummaryAction(c *cli.Context) error {
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	sum, err := app.Store.Summary(c.Context)
	if err != nil {
		return err
	}
	if c.IsSet("format") {
		return common.Print(c, sum)
	}

	fmt.Printf("Database: %s\n\n", app.Store.Path())
	fmt.Printf("%-12s %d\n", "Runs", sum.Runs)
	fmt.Printf("%-12s %d\n", "Events", sum.Events)
	fmt.Printf("%-12s %d\n", "Job logs", sum.JobLogs)
	fmt.Println()
	for _, st := range models.Stages {
		fmt.Printf("  %-12s %d\n", st, sum.Stages[st])
	}
	return nil
}

// LogsAction prints a run's job log, newest first.
func LogsAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Service.GetRun(c.Context, id); err != nil {
		return err
	}
	logs, err := app.Store.ListJobLogs(c.Context, id, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list job logs: %w", err)
	}
	if c.IsSet("format") {
		return common.Print(c, logs)
	}
	if len(logs) == 0 {
		fmt.Println("No job logs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-20s %-6s %-8s %s\n", "ID", "Time", "Job", "Status", "Ms", "Detail")
	fmt.Println(strings.Repeat("-", 110))
	for _, l := range logs {
		detail := l.Detail
		if !c.Bool("full") && len(detail) > 60 {
			detail = detail[:57] + "..."
		}
		fmt.Printf("%-6d %-20s %-20s %-6s %-8d %s\n",
			l.ID, l.Timestamp.Format("2006-01-02 15:04:05"), l.JobName, l.Status, l.ElapsedMS, detail)
	}
	fmt.Printf("\nTotal: %d entries\n", len(logs))
	return nil
}

func ResetEventsAction(c *cli.Context) error {
	id, err := common.RunIDArg(c)
	if err != nil {
		return err
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Service.GetRun(c.Context, id); err != nil {
		return err
	}
	n, err := app.Store.ResetEvents(c.Context, id)
	if err != nil {
		return err
	}
	app.Logger.Info("events reset", "run_id", id, "deleted", n)
	fmt.Printf("Deleted %d events for run %d\n", n, id)
	return nil
}

func DeleteAction(c *cli.Context) error {
	ids, err := common.ParseRunIDs(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("at least one run id is required")
	}
	if !c.Bool("yes") {
		return fmt.Errorf("refusing to delete %d run(s) without --yes", len(ids))
	}
	app, err := common.Open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := app.Store.DeleteRun(c.Context, id); err != nil {
			return err
		}
		app.Logger.Info("run deleted", "run_id", id)
		fmt.Printf("Deleted run %d\n", id)
	}
	return nil
}
