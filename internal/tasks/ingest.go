package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/shared"
)

var spreadsheetExts = map[string]bool{".xlsx": true, ".xls": true}

// Ingestor replaces the playlist snapshot, either from a spreadsheet parsed by the backend or a local JSON file.
type Ingestor struct {
	set      *models.PlaylistSet
	backend  Parser
	campaign *CampaignController
	guard    Guard
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewIngestor creates an ingestor. campaign may be nil when no campaign controller shares the set.
func NewIngestor(set *models.PlaylistSet, backend Parser, campaign *CampaignController, logger *log.Logger) *Ingestor {
	return &Ingestor{set: set, backend: backend, campaign: campaign, logger: logger}
}

// WithProgress sets the channel progress updates are sent to.
func (in *Ingestor) WithProgress(progress chan<- ProgressUpdate) *Ingestor {
	in.progress = progress
	return in
}

// Busy reports whether an ingest is in flight.
func (in *Ingestor) Busy() bool {
	return in.guard.Busy()
}

// Ingest uploads the spreadsheet at path and replaces the snapshot with the parsed playlists.
//
// Only .xlsx and .xls files are accepted; anything else fails before any network call.
func (in *Ingestor) Ingest(ctx context.Context, path string) (int, error) {
	if !spreadsheetExts[strings.ToLower(filepath.Ext(path))] {
		return 0, fmt.Errorf("%w (got %s)", shared.ErrUnsupportedFile, filepath.Base(path))
	}
	if !in.guard.TryAcquire() {
		return 0, fmt.Errorf("%w: ingest", shared.ErrBusy)
	}
	defer in.guard.Release()

	if in.campaign != nil && in.campaign.Sending() {
		return 0, shared.ErrSendInProgress
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	filename := filepath.Base(path)
	in.logger.Info("uploading spreadsheet", "file", filename)
	sendProgress(in.progress, ingestingUpdate(filename))

	playlists, err := in.backend.ParsePlaylists(ctx, filename, f)
	if err != nil {
		in.logger.Warn("spreadsheet parse failed", "file", filename, "error", err)
		return 0, fmt.Errorf("upload failed: %w", err)
	}

	if err := in.replace(playlists); err != nil {
		return 0, err
	}

	in.logger.Info("snapshot replaced", "source", filename, "count", len(playlists))
	sendProgress(in.progress, ingestedUpdate(len(playlists)))
	return len(playlists), nil
}

// LoadSnapshot replaces the snapshot with playlists read from a local JSON file.
func (in *Ingestor) LoadSnapshot(path string) (int, error) {
	if !in.guard.TryAcquire() {
		return 0, fmt.Errorf("%w: ingest", shared.ErrBusy)
	}
	defer in.guard.Release()

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	playlists, err := ReadSnapshot(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	if err := in.replace(playlists); err != nil {
		return 0, err
	}

	in.logger.Debug("snapshot loaded", "source", path, "count", len(playlists))
	return len(playlists), nil
}

func (in *Ingestor) replace(playlists []models.Playlist) error {
	if in.campaign == nil {
		in.set.ReplaceAll(playlists)
		return nil
	}
	return in.campaign.Replace(func() { in.set.ReplaceAll(playlists) })
}

// ReadSnapshot decodes either a bare JSON array of playlists or an object with a "playlists" array.
func ReadSnapshot(r io.Reader) ([]models.Playlist, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var playlists []models.Playlist
		if err := json.Unmarshal(data, &playlists); err != nil {
			return nil, fmt.Errorf("invalid snapshot: %w", err)
		}
		return playlists, nil
	}

	var wrapped struct {
		Playlists []models.Playlist `json:"playlists"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	if wrapped.Playlists == nil {
		return nil, fmt.Errorf("invalid snapshot: no playlists field")
	}
	return wrapped.Playlists, nil
}
