package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/shared"
)

// UploadField is the multipart field the parse endpoint reads the spreadsheet from.
const UploadField = "playlist_file"

// FilterRequest asks the backend which playlists match a natural-language query.
type FilterRequest struct {
	Query     string            `json:"query" validate:"required"`
	Playlists []models.Playlist `json:"playlists" validate:"min=1"`
}

// PreviewRequest asks the backend for a personalized preview of one representative playlist.
type PreviewRequest struct {
	TrackID         string          `json:"track_id" validate:"required"`
	SongDescription string          `json:"song_description" validate:"required"`
	Language        string          `json:"language"`
	Playlist        models.Playlist `json:"playlist"`
}

// PreviewResponse carries the generated email content.
type PreviewResponse struct {
	Subject      string            `json:"subject"`
	PreviewBody  string            `json:"preview_body"`
	TemplateBody string            `json:"template_body"`
	Variations   models.Variations `json:"variations"`
	Error        string            `json:"error,omitempty"`
}

// SendRequest starts a batch send. The backend answers with an event stream.
type SendRequest struct {
	TrackID      string            `json:"track_id" validate:"required"`
	Playlists    []models.Playlist `json:"playlists" validate:"min=1,max=300"`
	Subject      string            `json:"subject" validate:"required"`
	Variations   models.Variations `json:"variations" validate:"min=1"`
	TemplateBody string            `json:"template_body" validate:"required"`
	BCC          string            `json:"bcc_email"`
}

// OutreachService maps the backend exchanges onto the configured endpoints.
type OutreachService struct {
	api       *APIService
	cfg       shared.BackendConfig
	validator *shared.Validator
}

// NewOutreachService creates the typed client. Paths and the artist id come from cfg.
func NewOutreachService(api *APIService, cfg shared.BackendConfig) *OutreachService {
	return &OutreachService{api: api, cfg: cfg, validator: shared.NewValidator()}
}

// NewOutreachServiceFromConfig builds the raw client and the typed client in one step.
func NewOutreachServiceFromConfig(cfg shared.BackendConfig) *OutreachService {
	api := NewAPIService(cfg.BaseURL, nil).WithTimeout(cfg.Timeout())
	return NewOutreachService(api, cfg)
}

// FilterPlaylists returns the ids of the playlists matching query.
func (s *OutreachService) FilterPlaylists(ctx context.Context, query string, playlists []models.Playlist) ([]string, error) {
	req := FilterRequest{Query: query, Playlists: playlists}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var out struct {
		PlaylistIDs []string `json:"playlist_ids"`
		Error       string   `json:"error"`
	}
	if err := s.postJSON(ctx, s.cfg.FilterPath, req, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &ServiceError{Status: 200, Message: out.Error}
	}
	if out.PlaylistIDs == nil {
		out.PlaylistIDs = []string{}
	}
	return out.PlaylistIDs, nil
}

// GeneratePreview requests the subject, preview, template and variations for a campaign.
//
// A 2xx body carrying an `error` field is treated as a failure.
func (s *OutreachService) GeneratePreview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var out PreviewResponse
	if err := s.postJSON(ctx, s.cfg.PreviewPath, req, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, &ServiceError{Status: 200, Message: out.Error}
	}
	return &out, nil
}

// SendEmails starts the batch send and returns the live event stream. The caller must close it.
//
// The request is never retried: a retry could deliver the same batch twice.
func (s *OutreachService) SendEmails(ctx context.Context, req SendRequest) (io.ReadCloser, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.api.PostStream(ctx, s.cfg.SendPath, data)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, streamError(resp.StatusCode, body)
	}
	return resp.Body, nil
}

// ParsePlaylists uploads a spreadsheet and returns the playlists the backend read from it.
func (s *OutreachService) ParsePlaylists(ctx context.Context, filename string, r io.Reader) ([]models.Playlist, error) {
	path := s.cfg.UploadURLPath(s.cfg.ArtistID)

	resp, err := s.api.Upload(ctx, path, UploadField, filename, r)
	if err != nil {
		return nil, transportError(err)
	}
	if !resp.OK() {
		return nil, newServiceError(resp)
	}

	var out struct {
		Playlists []models.Playlist `json:"playlists"`
		Error     string            `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid parse response: %v", shared.ErrAPIRequest, err)
	}
	if out.Error != "" {
		return nil, &ServiceError{Status: resp.StatusCode, Message: out.Error}
	}
	if out.Playlists == nil {
		out.Playlists = []models.Playlist{}
	}
	return out.Playlists, nil
}

func (s *OutreachService) postJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := s.api.Post(ctx, path, data)
	if err != nil {
		return transportError(err)
	}
	if !resp.OK() {
		return newServiceError(resp)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: invalid response from %s: %v", shared.ErrAPIRequest, path, err)
	}
	return nil
}

// streamError reads the rejection message from a non-2xx send response.
//
// The backend rejects sends with either a JSON error or a single error frame.
func streamError(status int, body []byte) *ServiceError {
	resp := &APIResponse{StatusCode: status, Body: body, IsJSON: json.Valid(body)}
	if resp.IsJSON {
		return newServiceError(resp)
	}

	var p FrameParser
	frames := append(p.Feed(body), p.Flush()...)
	for _, f := range frames {
		if text := f.Text(); text != "" {
			return &ServiceError{Status: status, Message: text}
		}
	}
	return &ServiceError{Status: status, Message: fmt.Sprintf("server error %d", status)}
}

// IsServiceError reports whether err came from the backend rather than the network or local validation.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// Message returns the operator-facing text for err.
//
// Service errors are shown verbatim; transport errors keep their wrapped cause.
func Message(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	if errors.Is(err, shared.ErrTransport) {
		return strings.TrimPrefix(err.Error(), shared.ErrTransport.Error()+": ")
	}
	return err.Error()
}
