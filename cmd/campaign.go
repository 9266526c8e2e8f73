package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/tasks"
	"github.com/urfave/cli/v3"
)

// previewFromFlags loads the playlists and generates a preview from the track flags.
func (r *Runner) previewFromFlags(ctx context.Context, cmd *cli.Command, s *tasks.Session) (*models.Campaign, error) {
	if err := r.loadSource(ctx, cmd, s, true); err != nil {
		return nil, err
	}

	return s.Campaign.GeneratePreview(ctx, tasks.PreviewInput{
		TrackID:         cmd.String("track-id"),
		TrackName:       cmd.String("track-name"),
		SongDescription: cmd.String("description"),
		Language:        cmd.String("language"),
	})
}

// CampaignPreview generates and prints an email preview.
func (r *Runner) CampaignPreview(ctx context.Context, cmd *cli.Command) error {
	s := r.newSession(tasks.SessionOptions{})
	campaign, err := r.previewFromFlags(ctx, cmd, s)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"subject":       campaign.Subject,
			"preview_body":  campaign.PreviewBody,
			"template_body": campaign.TemplateBody,
			"variations":    campaign.Variations,
		}, true)
	}

	r.printCampaign(campaign)
	return nil
}

// CampaignSend generates a preview, applies edits, asks for confirmation and streams the send log.
func (r *Runner) CampaignSend(ctx context.Context, cmd *cli.Command) error {
	recorder, err := r.recorder()
	if err != nil {
		return err
	}

	s := r.newSession(tasks.SessionOptions{Recorder: recorder})
	campaign, err := r.previewFromFlags(ctx, cmd, s)
	if err != nil {
		return err
	}

	edits := tasks.Edits{}
	if cmd.IsSet("subject") {
		subject := cmd.String("subject")
		edits.Subject = &subject
	}
	if path := cmd.String("template"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		body := string(data)
		edits.TemplateBody = &body
	}
	if cmd.IsSet("bcc") {
		bcc := cmd.String("bcc")
		edits.BCC = &bcc
	}
	if campaign, err = s.Campaign.Edit(edits); err != nil {
		return err
	}

	r.printCampaign(campaign)

	capInput := cmd.String("cap")
	if capInput == "" {
		capInput = fmt.Sprint(r.config.Campaign.DefaultCap)
	}
	plan, err := s.Campaign.RequestSend(capInput)
	if err != nil {
		return err
	}

	r.writePlainln(plan.Summary)
	if !cmd.Bool("yes") {
		ok, err := r.confirm("Send now?")
		if err != nil {
			return err
		}
		if !ok {
			if err := s.Campaign.Decline(); err != nil {
				return err
			}
			r.writePlain("Send cancelled.\n")
			return nil
		}
	}

	r.writePlainHeader("Sending")
	result, err := s.Campaign.Confirm(ctx, func(line models.SendLine) {
		r.writePlain("%s\n", formatLine(line))
	})
	if result != nil {
		r.writePlainln("Run %s: %d frames for %d recipients", result.RunID, result.Frames, result.Recipients)
	}
	return err
}

func (r *Runner) printCampaign(c *models.Campaign) {
	r.writePlainHeader("Email Preview")
	r.writePlain("Subject: %s\n", c.Subject)
	r.writePlainln("%s", c.PreviewBody)
	r.writePlainln("Template:\n%s", c.TemplateBody)
	if c.BCC != "" {
		r.writePlain("BCC: %s\n", c.BCC)
	}

	keys := make([]string, 0, len(c.Variations))
	for k := range c.Variations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.writePlain("Variations: %s\n", strings.Join(keys, ", "))
}

// confirm asks a yes/no question on the runner's input. Anything but y or yes is a no.
func (r *Runner) confirm(prompt string) (bool, error) {
	r.writePlain("%s [y/N]: ", prompt)

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func formatLine(line models.SendLine) string {
	if line.Event == "" {
		return line.Text
	}
	return fmt.Sprintf("[%s] %s", line.Event, line.Text)
}
