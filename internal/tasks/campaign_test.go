package tasks

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/services"
	"github.com/desertthunder/pitch/internal/shared"
	tu "github.com/desertthunder/pitch/internal/testing"
)

func TestCampaignController_GeneratePreview(t *testing.T) {
	ctx := context.Background()
	input := PreviewInput{TrackID: "track-1", TrackName: "Night Drive", SongDescription: "moody synthwave"}

	t.Run("No Contactable Playlists Fails Locally", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(5, 0), SessionOptions{})

		_, err := s.Campaign.GeneratePreview(ctx, input)
		assert.ErrorIs(t, err, shared.ErrNoContactable)
		assert.Zero(t, fb.TotalCalls())
		assert.Equal(t, models.Idle, s.Campaign.State())
	})

	t.Run("Filtered Out Contactables Count As None", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(5, 2), SessionOptions{})
		s.Set.SetVisible([]string{"pl-003", "pl-004"})

		_, err := s.Campaign.GeneratePreview(ctx, input)
		assert.ErrorIs(t, err, shared.ErrNoContactable)
		assert.Zero(t, fb.TotalCalls())
	})

	t.Run("Missing Track And Description", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(2, 2), SessionOptions{})

		_, err := s.Campaign.GeneratePreview(ctx, PreviewInput{SongDescription: "x"})
		assert.ErrorIs(t, err, shared.ErrNoTrackSelected)

		_, err = s.Campaign.GeneratePreview(ctx, PreviewInput{TrackID: "t", SongDescription: "   "})
		assert.ErrorIs(t, err, shared.ErrMissingDescription)

		assert.Zero(t, fb.TotalCalls())
	})

	t.Run("Uses First Visible Contactable Playlist", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(5, 5), SessionOptions{})
		s.Set.SetVisible([]string{"pl-004", "pl-002"})
		fb.Preview = previewFixture()

		c, err := s.Campaign.GeneratePreview(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, models.PreviewReady, s.Campaign.State())
		assert.Equal(t, "New single for {{playlist_name}}", c.Subject)
		assert.Equal(t, "Hi {{curator_name}}", c.TemplateBody)
		assert.True(t, c.HasVariations())
		assert.Equal(t, models.DefaultLanguage, c.Language)

		sent := fb.LastBody(tu.PreviewPath)
		assert.Equal(t, "pl-002", sent["playlist"].(map[string]any)["id"])
		assert.Equal(t, "English", sent["language"])
	})

	t.Run("Failure Shows Placeholders And Returns To Idle", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(2, 2), SessionOptions{})
		readyCampaign(t, s, fb)

		fb.Preview = map[string]any{"error": "AI API Key is not configured."}
		fb.PreviewStatus = http.StatusInternalServerError

		c, err := s.Campaign.GeneratePreview(ctx, input)
		require.Error(t, err)
		require.NotNil(t, c)

		assert.Equal(t, "Error", c.Subject)
		assert.Equal(t, "Failed to generate: AI API Key is not configured.", c.PreviewBody)
		assert.Equal(t, "An error occurred: AI API Key is not configured.", c.TemplateBody)
		assert.False(t, c.HasVariations())
		assert.Equal(t, models.Idle, s.Campaign.State())
	})

	t.Run("Error Field In Success Body Is A Failure", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(2, 2), SessionOptions{})
		fb.Preview = map[string]any{"error": "quota"}

		c, err := s.Campaign.GeneratePreview(ctx, input)
		require.Error(t, err)
		assert.Equal(t, "Failed to generate: quota", c.PreviewBody)
	})

	t.Run("Custom Language Is Passed Through", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(1, 1), SessionOptions{DefaultLanguage: "Spanish"})
		fb.Preview = previewFixture()

		c, err := s.Campaign.GeneratePreview(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "Spanish", c.Language)

		in := input
		in.Language = "German"
		_, err = s.Campaign.GeneratePreview(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "German", fb.LastBody(tu.PreviewPath)["language"])
	})
}

func TestCampaignController_RequestSend(t *testing.T) {
	t.Run("Cap Truncates In Display Order", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(60, 50), SessionOptions{})
		readyCampaign(t, s, fb)

		plan, err := s.Campaign.RequestSend("10")
		require.NoError(t, err)

		assert.Equal(t, 10, plan.Count)
		assert.Equal(t, 50, plan.Available)
		assert.True(t, plan.Truncated)
		assert.Len(t, plan.Recipients, 10)
		assert.Equal(t, "pl-000", plan.Recipients[0].ID)
		assert.Equal(t, "pl-009", plan.Recipients[9].ID)
		assert.Equal(t, "You are about to send emails to 10 currently visible contactable playlists. (Limited from 50 total)", plan.Summary)
		assert.Equal(t, models.SendConfirming, s.Campaign.State())

		require.NoError(t, s.Campaign.Decline())
		assert.Equal(t, models.PreviewReady, s.Campaign.State())

		plan, err = s.Campaign.RequestSend("60")
		require.NoError(t, err)
		assert.Equal(t, 50, plan.Count)
		assert.False(t, plan.Truncated)
		assert.Equal(t, "You are about to send emails to 50 currently visible contactable playlists.", plan.Summary)
	})

	t.Run("Cap Above Maximum Is Clamped", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(320, 320), SessionOptions{})
		readyCampaign(t, s, fb)

		plan, err := s.Campaign.RequestSend("1000")
		require.NoError(t, err)
		assert.Equal(t, 300, plan.Count)
		assert.True(t, plan.Truncated)
	})

	t.Run("Invalid Cap", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(3, 3), SessionOptions{})
		readyCampaign(t, s, fb)

		for _, in := range []string{"", "0", "-4", "ten"} {
			_, err := s.Campaign.RequestSend(in)
			assert.ErrorIs(t, err, shared.ErrInvalidCap, "input %q", in)
		}
		assert.Equal(t, models.PreviewReady, s.Campaign.State())
	})

	t.Run("Empty Content After Edit", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(3, 3), SessionOptions{})
		readyCampaign(t, s, fb)

		blank := "   "
		_, err := s.Campaign.Edit(Edits{Subject: &blank})
		require.NoError(t, err)

		_, err = s.Campaign.RequestSend("5")
		assert.ErrorIs(t, err, shared.ErrEmptyContent)
		assert.Equal(t, models.PreviewReady, s.Campaign.State())
	})

	t.Run("Contactables Filtered Away After Preview", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(4, 2), SessionOptions{})
		readyCampaign(t, s, fb)
		s.Set.SetVisible([]string{"pl-003"})

		_, err := s.Campaign.RequestSend("5")
		assert.ErrorIs(t, err, shared.ErrNoContactable)
	})

	t.Run("Requires A Ready Preview", func(t *testing.T) {
		s, _ := newTestSession(t, tu.MakePlaylists(2, 2), SessionOptions{})

		_, err := s.Campaign.RequestSend("5")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, s.Campaign.Decline(), shared.ErrInvalidState)
	})
}

func TestCampaignController_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("Streams Frames And Clears Campaign", func(t *testing.T) {
		rec := newMemRecorder()
		progress := make(chan ProgressUpdate, 32)
		s, fb := newTestSession(t, tu.MakePlaylists(4, 3), SessionOptions{Recorder: rec, Progress: progress})
		readyCampaign(t, s, fb)

		bcc := "me@example.com"
		_, err := s.Campaign.Edit(Edits{BCC: &bcc})
		require.NoError(t, err)
		_, err = s.Campaign.RequestSend("2")
		require.NoError(t, err)

		fb.SendChunks = []string{
			"event: status\ndata: Fetching track",
			" details...\n\nevent: success\ndata: -> Email sent to curator0@example.com.\n\n",
			tu.SSE("error", "-> Error: mailbox full") + tu.SSE("done", "Finished."),
		}

		var mu sync.Mutex
		var seen []models.SendLine
		result, err := s.Campaign.Confirm(ctx, func(l models.SendLine) {
			mu.Lock()
			seen = append(seen, l)
			mu.Unlock()
		})
		require.NoError(t, err)

		want := []string{
			"Initializing email process for 2 playlists...",
			"Fetching track details...",
			"-> Email sent to curator0@example.com.",
			"-> Error: mailbox full",
			"Finished.",
		}
		assert.Equal(t, want, texts(result.Lines))
		assert.Equal(t, want, texts(seen))
		assert.Equal(t, want, texts(s.Campaign.Log()))
		assert.True(t, result.Lines[3].IsError())
		assert.Equal(t, "Finished.", result.Summary)
		assert.Equal(t, 4, result.Frames)
		assert.False(t, result.Failed)

		assert.Equal(t, models.Idle, s.Campaign.State())
		assert.Nil(t, s.Campaign.Campaign())

		sent := fb.LastBody(tu.SendPath)
		assert.Len(t, sent["playlists"], 2)
		assert.Equal(t, "track-1", sent["track_id"])
		assert.Equal(t, "me@example.com", sent["bcc_email"])
		assert.Equal(t, "Hi {{curator_name}}", sent["template_body"])
		assert.Equal(t, 1, fb.Calls(tu.SendPath))

		run := rec.runs[result.RunID]
		require.NotNil(t, run)
		assert.Equal(t, models.RunCompleted, run.Status)
		assert.Equal(t, "Finished.", run.Summary)
		assert.Len(t, rec.lines[result.RunID], 5)

		var phases []Phase
		for len(progress) > 0 {
			phases = append(phases, (<-progress).Phase)
		}
		assert.Contains(t, phases, SendStart)
		assert.Contains(t, phases, SendFrame)
		assert.Equal(t, SendDone, phases[len(phases)-1])
	})

	t.Run("Broken Stream Keeps Partial Log And Campaign", func(t *testing.T) {
		rec := newMemRecorder()
		s, fb := newTestSession(t, tu.MakePlaylists(3, 3), SessionOptions{Recorder: rec})
		readyCampaign(t, s, fb)
		_, err := s.Campaign.RequestSend("3")
		require.NoError(t, err)

		fb.SendChunks = []string{tu.SSE("status", "Connecting to SMTP server...")}
		fb.SendTruncate = true

		result, err := s.Campaign.Confirm(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrTransport)

		require.Len(t, result.Lines, 3)
		assert.Equal(t, "Connecting to SMTP server...", result.Lines[1].Text)
		last := result.Lines[2]
		assert.True(t, last.IsError())
		assert.True(t, strings.HasPrefix(last.Text, "❌ Network or processing error: "))
		assert.True(t, result.Failed)

		assert.Equal(t, models.Idle, s.Campaign.State())
		require.NotNil(t, s.Campaign.Campaign())
		assert.Equal(t, "track-1", s.Campaign.Campaign().TrackID)
		assert.Equal(t, models.RunFailed, rec.runs[result.RunID].Status)
	})

	t.Run("Rejected Send Is Logged", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(2, 2), SessionOptions{})
		readyCampaign(t, s, fb)
		_, err := s.Campaign.RequestSend("2")
		require.NoError(t, err)
		fb.SendStatus = http.StatusServiceUnavailable

		result, err := s.Campaign.Confirm(ctx, nil)
		require.Error(t, err)
		assert.Equal(t, []string{
			"Initializing email process for 2 playlists...",
			"❌ Network or processing error: send rejected",
		}, texts(result.Lines))
		assert.Equal(t, 1, fb.Calls(tu.SendPath))
	})

	t.Run("Archive Failures Do Not Abort The Send", func(t *testing.T) {
		rec := newMemRecorder()
		rec.failing = true
		s, fb := newTestSession(t, tu.MakePlaylists(1, 1), SessionOptions{Recorder: rec})
		readyCampaign(t, s, fb)
		_, err := s.Campaign.RequestSend("1")
		require.NoError(t, err)
		fb.SendChunks = []string{tu.SSE("done", "Finished.")}

		result, err := s.Campaign.Confirm(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "Finished.", result.Summary)
	})

	t.Run("Requires Confirmation State", func(t *testing.T) {
		s, fb := newTestSession(t, tu.MakePlaylists(1, 1), SessionOptions{})
		readyCampaign(t, s, fb)

		_, err := s.Campaign.Confirm(ctx, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Zero(t, fb.Calls(tu.SendPath))
	})

	t.Run("Sending Locks Out Other Operations", func(t *testing.T) {
		stub := newStubBackend()
		pr, pw := io.Pipe()
		stub.sendFn = func(ctx context.Context, req services.SendRequest) (io.ReadCloser, error) {
			return pr, nil
		}

		set := models.NewPlaylistSet(tu.MakePlaylists(3, 3))
		cc := NewCampaignController(set, stub, CampaignOptions{Logger: quietLogger()})
		ingest := NewIngestor(set, stub, cc, quietLogger())

		_, err := cc.GeneratePreview(ctx, PreviewInput{TrackID: "t", SongDescription: "d"})
		require.NoError(t, err)
		_, err = cc.RequestSend("3")
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		lines := make(chan models.SendLine, 8)
		done := make(chan error, 1)
		go func() {
			_, err := cc.Confirm(cancelled, func(l models.SendLine) { lines <- l })
			done <- err
		}()

		assert.Equal(t, "Initializing email process for 3 playlists...", (<-lines).Text)
		assert.True(t, cc.Sending())

		cancel()
		assert.ErrorIs(t, cc.Close(), shared.ErrSendInProgress)
		_, err = cc.Open(Track{ID: "other"})
		assert.ErrorIs(t, err, shared.ErrSendInProgress)
		_, err = cc.Confirm(ctx, nil)
		assert.ErrorIs(t, err, shared.ErrBusy)
		_, err = cc.GeneratePreview(ctx, PreviewInput{TrackID: "t", SongDescription: "d"})
		assert.ErrorIs(t, err, shared.ErrSendInProgress)

		path := tu.MustWriteFile(t, t.TempDir(), "new.xlsx", "PK")
		_, err = ingest.Ingest(ctx, path)
		assert.ErrorIs(t, err, shared.ErrSendInProgress)
		assert.Zero(t, stub.Calls("parse"))

		io.WriteString(pw, "data: still going\n\n")
		assert.Equal(t, "still going", (<-lines).Text)

		pw.Close()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("send did not finish")
		}
		assert.Equal(t, models.Idle, cc.State())
		assert.Equal(t, 3, set.Len())
	})
}

func TestCampaignController_Lifecycle(t *testing.T) {
	t.Run("Open And Close", func(t *testing.T) {
		set := models.NewPlaylistSet(nil)
		cc := NewCampaignController(set, newStubBackend(), CampaignOptions{Logger: quietLogger(), DefaultCap: 50})

		c, err := cc.Open(Track{ID: "t1", Name: "Song"})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, 50, c.RecipientCap)
		assert.Equal(t, models.DefaultLanguage, c.Language)

		require.NoError(t, cc.Close())
		assert.Nil(t, cc.Campaign())
	})

	t.Run("Regenerating Discards Previous Content", func(t *testing.T) {
		stub := newStubBackend()
		set := models.NewPlaylistSet(tu.MakePlaylists(1, 1))
		cc := NewCampaignController(set, stub, CampaignOptions{Logger: quietLogger()})

		_, err := cc.GeneratePreview(context.Background(), PreviewInput{TrackID: "t", SongDescription: "d"})
		require.NoError(t, err)
		first := cc.Campaign().ID

		_, err = cc.GeneratePreview(context.Background(), PreviewInput{SongDescription: "again"})
		require.NoError(t, err)
		assert.Equal(t, first, cc.Campaign().ID)
		assert.Equal(t, "again", cc.Campaign().SongDescription)
		assert.Equal(t, 2, stub.Calls("preview"))
	})

	t.Run("Edit Requires Ready Preview", func(t *testing.T) {
		cc := NewCampaignController(models.NewPlaylistSet(nil), newStubBackend(), CampaignOptions{Logger: quietLogger()})
		s := "x"
		_, err := cc.Edit(Edits{Subject: &s})
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
