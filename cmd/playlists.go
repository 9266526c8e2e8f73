package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/shared"
	"github.com/desertthunder/pitch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// newSession builds a session configured from the loaded config.
func (r *Runner) newSession(opts tasks.SessionOptions) *tasks.Session {
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	opts.IdleTimeout = r.config.Backend.IdleTimeout()
	opts.DefaultLanguage = r.config.Campaign.DefaultLanguage
	opts.DefaultCap = r.config.Campaign.DefaultCap
	return tasks.NewSession(r.outreach(), opts)
}

// loadSource fills the session from --playlists or --sheet, then applies --query when set.
func (r *Runner) loadSource(ctx context.Context, cmd *cli.Command, s *tasks.Session, required bool) error {
	snapshot, sheet := cmd.String("playlists"), cmd.String("sheet")

	switch {
	case snapshot != "" && sheet != "":
		return fmt.Errorf("%w: use either --playlists or --sheet", shared.ErrValidation)
	case sheet != "":
		if _, err := s.Ingest.Ingest(ctx, sheet); err != nil {
			return err
		}
	case snapshot != "":
		if _, err := s.Ingest.LoadSnapshot(snapshot); err != nil {
			return err
		}
	case required:
		return fmt.Errorf("%w: --playlists or --sheet", shared.ErrMissingArgument)
	}

	if query := cmd.String("query"); strings.TrimSpace(query) != "" {
		result, err := s.Filter.Apply(ctx, query)
		if err != nil {
			return err
		}
		r.logger.Debug("filter applied", "status", result.Status, "matched", result.Matched)
	}
	return nil
}

// PlaylistsShow lists the visible playlists of a snapshot.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	s := r.newSession(tasks.SessionOptions{})
	if err := r.loadSource(ctx, cmd, s, true); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(s.Set.Visible(), true)
	}

	r.printPlaylists(s)
	return nil
}

// Ingest uploads a spreadsheet and writes the parsed playlists to a snapshot file.
func (r *Runner) Ingest(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: spreadsheet path", shared.ErrMissingArgument)
	}

	s := r.newSession(tasks.SessionOptions{})
	n, err := s.Ingest.Ingest(ctx, path)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if err := writeSnapshot(output, s.Set.All()); err != nil {
		return err
	}

	r.writePlain("✓ Loaded %d playlists from %s\n", n, path)
	r.writePlain("Snapshot saved to: %s\n", output)
	return nil
}

// Filter applies the AI filter and prints, and optionally saves, the matching playlists.
func (r *Runner) Filter(ctx context.Context, cmd *cli.Command) error {
	s := r.newSession(tasks.SessionOptions{})
	if err := r.loadSource(ctx, cmd, s, true); err != nil {
		return err
	}

	r.printPlaylists(s)

	if output := cmd.String("output"); output != "" {
		if err := writeSnapshot(output, s.Set.Visible()); err != nil {
			return err
		}
		r.writePlain("Matching playlists saved to: %s\n", output)
	}
	return nil
}

// Export writes the visible playlists as CSV or XLSX.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	columns, err := models.ParseColumns(cmd.String("columns"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	format, err := models.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFormat, err)
	}

	s := r.newSession(tasks.SessionOptions{})
	if err := r.loadSource(ctx, cmd, s, true); err != nil {
		return err
	}

	labels := r.config.Export.Labels
	if cmd.IsSet("labels") {
		labels = cmd.Bool("labels")
	}
	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Export.OutputDir
	}

	result, err := s.Export(models.ExportRequest{
		Columns:   columns,
		Format:    format,
		TrackName: cmd.String("track-name"),
		Labels:    labels,
	}, dir)
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %d playlists to %s\n", result.Rows, result.Path)
	return nil
}

func (r *Runner) printPlaylists(s *tasks.Session) {
	r.writePlainHeader(s.Set.CountSummary())
	for i, p := range s.Set.Visible() {
		contact := "no contact"
		if models.HasValidEmail(p) {
			contact = p.Email
		}
		r.writePlain("%3d. %s | %s | %s", i+1, p.Name, p.OwnerName, contact)
		if !p.Followers.IsZero() {
			r.writePlain(" | %s followers", p.Followers)
		}
		r.writePlain("\n")
	}

	if keywords := s.Keywords(); len(keywords) > 0 {
		r.writePlainln("Keywords: %s", strings.Join(keywords, ", "))
	}
}

// writeSnapshot saves playlists in the format [tasks.ReadSnapshot] reads.
func writeSnapshot(path string, playlists []models.Playlist) error {
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	data, err := json.MarshalIndent(map[string]any{"playlists": playlists}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
