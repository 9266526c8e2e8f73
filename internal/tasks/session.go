package tasks

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pitch/internal/formatter"
	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/shared"
)

// SessionOptions configures a [Session].
type SessionOptions struct {
	Logger          *log.Logger
	Progress        chan<- ProgressUpdate
	Recorder        SendRecorder
	IdleTimeout     time.Duration
	DefaultLanguage string
	DefaultCap      int
}

// Session is one operator's working state: the playlist snapshot and the controllers that act on it.
//
// Everything that reads or changes playlists goes through the same [models.PlaylistSet].
type Session struct {
	Set      *models.PlaylistSet
	Filter   *FilterController
	Campaign *CampaignController
	Ingest   *Ingestor

	logger *log.Logger
}

// NewSession wires the controllers around an empty snapshot.
func NewSession(backend Backend, opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	set := models.NewPlaylistSet(nil)
	campaign := NewCampaignController(set, backend, CampaignOptions{
		Logger:          shared.WithLogger(opts.Logger, "component", "campaign"),
		Recorder:        opts.Recorder,
		IdleTimeout:     opts.IdleTimeout,
		DefaultLanguage: opts.DefaultLanguage,
		DefaultCap:      opts.DefaultCap,
	}).WithProgress(opts.Progress)

	return &Session{
		Set:      set,
		Filter:   NewFilterController(set, backend, shared.WithLogger(opts.Logger, "component", "filter")).WithProgress(opts.Progress),
		Campaign: campaign,
		Ingest:   NewIngestor(set, backend, campaign, shared.WithLogger(opts.Logger, "component", "ingest")).WithProgress(opts.Progress),
		logger:   opts.Logger,
	}
}

// Keywords returns the distinct search keywords that found the playlists in the snapshot.
func (s *Session) Keywords() []string {
	return s.Set.Keywords()
}

// Export writes the visible playlists to outputDir.
func (s *Session) Export(req models.ExportRequest, outputDir string) (*formatter.ExportResult, error) {
	result, err := formatter.WriteExport(s.Set.Visible(), req, outputDir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export written", "path", result.Path, "rows", result.Rows, "format", req.Format)
	return result, nil
}
