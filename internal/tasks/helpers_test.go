package tasks

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/services"
	"github.com/desertthunder/pitch/internal/shared"
	tu "github.com/desertthunder/pitch/internal/testing"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestSession(t *testing.T, playlists []models.Playlist, opts SessionOptions) (*Session, *tu.FakeBackend) {
	t.Helper()
	fb := tu.NewFakeBackend(t)

	cfg := shared.DefaultConfig().Backend
	cfg.BaseURL = fb.URL()
	cfg.ArtistID = "artist-1"

	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	s := NewSession(services.NewOutreachServiceFromConfig(cfg), opts)
	s.Set.ReplaceAll(playlists)
	return s, fb
}

func previewFixture() map[string]any {
	return map[string]any{
		"subject":       "New single for {{playlist_name}}",
		"preview_body":  "Hi Curator 0",
		"template_body": "Hi {{curator_name}}",
		"variations":    map[string]any{"greetings": []string{"Hi", "Hey"}},
	}
}

func readyCampaign(t *testing.T, s *Session, fb *tu.FakeBackend) {
	t.Helper()
	fb.Preview = previewFixture()

	_, err := s.Campaign.GeneratePreview(context.Background(), PreviewInput{
		TrackID:         "track-1",
		TrackName:       "Night Drive",
		SongDescription: "moody synthwave",
	})
	require.NoError(t, err)
	require.Equal(t, models.PreviewReady, s.Campaign.State())
}

// stubBackend lets tests control each exchange directly.
type stubBackend struct {
	mu       sync.Mutex
	calls    map[string]int
	filterFn func(ctx context.Context, query string, playlists []models.Playlist) ([]string, error)
	sendFn   func(ctx context.Context, req services.SendRequest) (io.ReadCloser, error)
	parseFn  func(ctx context.Context, filename string, r io.Reader) ([]models.Playlist, error)
}

func newStubBackend() *stubBackend {
	return &stubBackend{calls: make(map[string]int)}
}

func (b *stubBackend) count(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
}

func (b *stubBackend) Calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *stubBackend) FilterPlaylists(ctx context.Context, query string, playlists []models.Playlist) ([]string, error) {
	b.count("filter")
	if b.filterFn != nil {
		return b.filterFn(ctx, query, playlists)
	}
	return nil, nil
}

func (b *stubBackend) GeneratePreview(ctx context.Context, req services.PreviewRequest) (*services.PreviewResponse, error) {
	b.count("preview")
	return &services.PreviewResponse{
		Subject:      "Subject",
		PreviewBody:  "Preview",
		TemplateBody: "Template",
		Variations:   models.Variations{"greetings": json.RawMessage(`["Hi"]`)},
	}, nil
}

func (b *stubBackend) SendEmails(ctx context.Context, req services.SendRequest) (io.ReadCloser, error) {
	b.count("send")
	if b.sendFn != nil {
		return b.sendFn(ctx, req)
	}
	return io.NopCloser(strings.NewReader("")), nil
}

func (b *stubBackend) ParsePlaylists(ctx context.Context, filename string, r io.Reader) ([]models.Playlist, error) {
	b.count("parse")
	if b.parseFn != nil {
		return b.parseFn(ctx, filename, r)
	}
	return nil, nil
}

// memRecorder is an in-memory [SendRecorder].
type memRecorder struct {
	mu      sync.Mutex
	runs    map[string]*models.SendRun
	lines   map[string][]models.SendLine
	failing bool
}

func newMemRecorder() *memRecorder {
	return &memRecorder{runs: make(map[string]*models.SendRun), lines: make(map[string][]models.SendLine)}
}

func (r *memRecorder) CreateRun(ctx context.Context, run *models.SendRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return io.ErrClosedPipe
	}
	cp := *run
	r.runs[run.ID] = &cp
	return nil
}

func (r *memRecorder) AppendLine(ctx context.Context, runID string, line models.SendLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return io.ErrClosedPipe
	}
	r.lines[runID] = append(r.lines[runID], line)
	return nil
}

func (r *memRecorder) FinishRun(ctx context.Context, runID, status, summary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return io.ErrClosedPipe
	}
	if run, ok := r.runs[runID]; ok {
		run.Status = status
		run.Summary = summary
	}
	return nil
}

func texts(lines []models.SendLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}
