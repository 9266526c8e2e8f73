// package tasks implements the controllers that orchestrate filtering, campaign sends and ingestion.
//
// Each controller owns a [Guard] so a second trigger while one is in flight is refused with [shared.ErrBusy].
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"io"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/services"
)

// Filterer delegates semantic filtering to the backend.
type Filterer interface {
	FilterPlaylists(ctx context.Context, query string, playlists []models.Playlist) ([]string, error)
}

// Previewer generates campaign content for a representative playlist.
type Previewer interface {
	GeneratePreview(ctx context.Context, req services.PreviewRequest) (*services.PreviewResponse, error)
}

// Sender starts a batch send and returns its event stream.
type Sender interface {
	SendEmails(ctx context.Context, req services.SendRequest) (io.ReadCloser, error)
}

// Parser turns an uploaded spreadsheet into playlists.
type Parser interface {
	ParsePlaylists(ctx context.Context, filename string, r io.Reader) ([]models.Playlist, error)
}

// CampaignBackend is what the campaign controller needs from the backend.
type CampaignBackend interface {
	Previewer
	Sender
}

// Backend is the full set of backend exchanges. Implemented by [services.OutreachService].
type Backend interface {
	Filterer
	CampaignBackend
	Parser
}

// SendRecorder archives send runs. Implemented by repositories.SendLogRepository.
//
// Recorder failures are logged and never interrupt a send.
type SendRecorder interface {
	CreateRun(ctx context.Context, run *models.SendRun) error
	AppendLine(ctx context.Context, runID string, line models.SendLine) error
	FinishRun(ctx context.Context, runID, status, summary string) error
}

var _ Backend = (*services.OutreachService)(nil)
