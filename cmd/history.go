package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/pitch/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints the most recent archived sends.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.history()
	if err != nil {
		return err
	}

	runs, err := repo.ListRuns(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlain("No sends recorded.\n")
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("%d sends", len(runs)))
	for _, run := range runs {
		r.writePlain("%s  %s  %-9s %3d recipients  %s\n",
			run.ID, run.StartedAt.Local().Format(time.DateTime), run.Status, run.RecipientCount, run.Subject)
		if run.Summary != "" {
			r.writePlain("    %s\n", run.Summary)
		}
	}
	return nil
}

// HistoryShow prints one archived send and its log.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	repo, err := r.history()
	if err != nil {
		return err
	}

	run, err := repo.GetRun(ctx, id)
	if err != nil {
		return err
	}
	lines, err := repo.Lines(ctx, id)
	if err != nil {
		return err
	}

	r.writePlainHeader(run.Subject)
	r.writePlain("Run:        %s\n", run.ID)
	r.writePlain("Campaign:   %s\n", run.CampaignID)
	r.writePlain("Track:      %s\n", run.TrackID)
	r.writePlain("Status:     %s\n", run.Status)
	r.writePlain("Recipients: %d\n", run.RecipientCount)
	r.writePlain("Started:    %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.FinishedAt != nil {
		r.writePlain("Duration:   %s\n", run.Duration().Round(time.Millisecond))
	}

	r.writePlainln("Log:")
	for _, line := range lines {
		r.writePlain("%3d  %s\n", line.Position, formatLine(line))
	}
	return nil
}
