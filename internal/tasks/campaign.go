package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/services"
	"github.com/desertthunder/pitch/internal/shared"
)

// Track identifies the song a campaign is about.
type Track struct {
	ID   string
	Name string
}

// PreviewInput is what the operator supplies to generate a preview.
type PreviewInput struct {
	TrackID         string
	TrackName       string
	SongDescription string
	Language        string
}

// Edits replaces operator-editable fields of a ready preview. Nil fields are left unchanged.
type Edits struct {
	Subject      *string
	TemplateBody *string
	BCC          *string
}

// SendPlan is the capped recipient list awaiting confirmation.
type SendPlan struct {
	Recipients []models.Playlist
	Available  int  // visible contactable playlists before the cap
	Count      int  // recipients that will be contacted
	Truncated  bool // the cap removed recipients
	Summary    string
}

// SendResult describes a finished send, successful or not.
type SendResult struct {
	RunID      string
	Recipients int
	Frames     int
	Summary    string // text of the final done frame, if any
	Failed     bool
	Lines      []models.SendLine
}

// CampaignOptions configures a [CampaignController].
type CampaignOptions struct {
	Logger          *log.Logger
	Recorder        SendRecorder  // optional send-log archive
	IdleTimeout     time.Duration // zero waits on the stream indefinitely
	DefaultLanguage string
	DefaultCap      int
}

// CampaignController drives a campaign from preview through a streamed send.
//
// States move Idle → PreviewPending → PreviewReady → SendConfirming → Sending → Idle.
// Only one campaign exists at a time and it is discarded when the playlist snapshot changes.
type CampaignController struct {
	mu       sync.Mutex
	set      *models.PlaylistSet
	backend  CampaignBackend
	recorder SendRecorder
	logger   *log.Logger
	progress chan<- ProgressUpdate

	idle            time.Duration
	defaultLanguage string
	defaultCap      int

	previewGuard Guard
	sendGuard    Guard

	state    models.CampaignState
	campaign *models.Campaign
	plan     *SendPlan
	lines    []models.SendLine
}

// NewCampaignController creates a controller with no open campaign.
func NewCampaignController(set *models.PlaylistSet, backend CampaignBackend, opts CampaignOptions) *CampaignController {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = models.DefaultLanguage
	}
	if opts.DefaultCap <= 0 {
		opts.DefaultCap = models.MaxRecipientCap
	}

	return &CampaignController{
		set:             set,
		backend:         backend,
		recorder:        opts.Recorder,
		logger:          opts.Logger,
		idle:            opts.IdleTimeout,
		defaultLanguage: opts.DefaultLanguage,
		defaultCap:      models.ClampCap(opts.DefaultCap),
	}
}

// WithProgress sets the channel progress updates are sent to.
func (c *CampaignController) WithProgress(progress chan<- ProgressUpdate) *CampaignController {
	c.progress = progress
	return c
}

// State returns the current step.
func (c *CampaignController) State() models.CampaignState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Sending reports whether a send stream is being consumed.
func (c *CampaignController) Sending() bool {
	return c.State() == models.Sending
}

// Campaign returns a copy of the open campaign, or nil.
func (c *CampaignController) Campaign() *models.Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.campaign == nil {
		return nil
	}
	cp := *c.campaign
	return &cp
}

// Plan returns the pending send plan, or nil outside SendConfirming.
func (c *CampaignController) Plan() *SendPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.plan == nil {
		return nil
	}
	cp := *c.plan
	return &cp
}

// Log returns a copy of the current send log.
func (c *CampaignController) Log() []models.SendLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.SendLine(nil), c.lines...)
}

// Open starts an empty campaign for track, replacing any pre-send campaign.
func (c *CampaignController) Open(track Track) (*models.Campaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.Sending {
		return nil, shared.ErrSendInProgress
	}

	c.campaign = c.newCampaign(track)
	c.plan = nil
	c.state = models.Idle

	cp := *c.campaign
	return &cp, nil
}

// Close discards the open campaign.
func (c *CampaignController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.Sending {
		return shared.ErrSendInProgress
	}
	c.discardLocked()
	return nil
}

// Replace runs replace with the campaign discarded, refusing while a send is streaming.
//
// Used when the playlist snapshot is swapped so no campaign outlives the playlists it was built from.
func (c *CampaignController) Replace(replace func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.Sending {
		return shared.ErrSendInProgress
	}
	c.discardLocked()
	replace()
	return nil
}

// GeneratePreview asks the backend for campaign content using the first visible contactable playlist.
//
// Validation failures happen before any network call and leave the state unchanged.
// On a backend failure the campaign shows error placeholders and returns to Idle.
func (c *CampaignController) GeneratePreview(ctx context.Context, in PreviewInput) (*models.Campaign, error) {
	if !c.previewGuard.TryAcquire() {
		return nil, fmt.Errorf("%w: preview", shared.ErrBusy)
	}
	defer c.previewGuard.Release()

	in.TrackID = strings.TrimSpace(in.TrackID)
	in.SongDescription = strings.TrimSpace(in.SongDescription)
	in.Language = strings.TrimSpace(in.Language)
	if in.Language == "" {
		in.Language = c.defaultLanguage
	}

	c.mu.Lock()
	switch c.state {
	case models.Sending:
		c.mu.Unlock()
		return nil, shared.ErrSendInProgress
	case models.SendConfirming:
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: decline the pending send before regenerating", shared.ErrInvalidState)
	}

	if in.TrackID == "" && c.campaign != nil {
		in.TrackID = c.campaign.TrackID
	}
	if in.TrackID == "" {
		c.mu.Unlock()
		return nil, shared.ErrNoTrackSelected
	}
	if in.SongDescription == "" {
		c.mu.Unlock()
		return nil, shared.ErrMissingDescription
	}
	contactable := c.set.VisibleContactable()
	if len(contactable) == 0 {
		c.mu.Unlock()
		return nil, shared.ErrNoContactable
	}
	representative := contactable[0]

	if c.campaign == nil || c.campaign.TrackID != in.TrackID {
		c.campaign = c.newCampaign(Track{ID: in.TrackID, Name: in.TrackName})
	}
	campaign := c.campaign
	if in.TrackName != "" {
		campaign.TrackName = in.TrackName
	}
	campaign.ClearPreview()
	campaign.SongDescription = in.SongDescription
	campaign.Language = in.Language
	c.state = models.PreviewPending
	c.mu.Unlock()

	logger := shared.WithLogger(c.logger, "campaign", campaign.ID)
	logger.Info("generating preview", "track", in.TrackID, "playlist", representative.ID, "language", in.Language)
	sendProgress(c.progress, previewingUpdate(representative))

	resp, err := c.backend.GeneratePreview(ctx, services.PreviewRequest{
		TrackID:         in.TrackID,
		SongDescription: in.SongDescription,
		Language:        in.Language,
		Playlist:        representative,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.campaign != campaign {
		logger.Warn("campaign discarded while preview was pending")
		return nil, fmt.Errorf("%w: campaign was discarded during preview", shared.ErrInvalidState)
	}

	if err != nil {
		msg := services.Message(err)
		logger.Warn("preview failed", "error", msg)

		campaign.Subject = "Error"
		campaign.PreviewBody = "Failed to generate: " + msg
		campaign.TemplateBody = "An error occurred: " + msg
		campaign.Variations = nil
		c.state = models.Idle

		cp := *campaign
		return &cp, fmt.Errorf("failed to generate preview: %w", err)
	}

	campaign.Subject = resp.Subject
	campaign.PreviewBody = resp.PreviewBody
	campaign.TemplateBody = resp.TemplateBody
	campaign.Variations = resp.Variations
	c.state = models.PreviewReady

	logger.Info("preview ready", "subject", campaign.Subject, "variations", len(campaign.Variations))
	sendProgress(c.progress, previewReadyUpdate(*campaign))

	cp := *campaign
	return &cp, nil
}

// Edit updates the subject, template or bcc of a ready preview.
func (c *CampaignController) Edit(e Edits) (*models.Campaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.PreviewReady {
		return nil, fmt.Errorf("%w: nothing to edit in state %s", shared.ErrInvalidState, c.state)
	}

	if e.Subject != nil {
		c.campaign.Subject = *e.Subject
	}
	if e.TemplateBody != nil {
		c.campaign.TemplateBody = *e.TemplateBody
	}
	if e.BCC != nil {
		c.campaign.BCC = strings.TrimSpace(*e.BCC)
	}

	cp := *c.campaign
	return &cp, nil
}

// RequestSend validates the campaign against the visible set and builds a capped send plan.
//
// Checks run in order: cap, content, variations, recipients. A failed check leaves the state unchanged.
func (c *CampaignController) RequestSend(capInput string) (*SendPlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.PreviewReady {
		return nil, fmt.Errorf("%w: no preview ready to send (state %s)", shared.ErrInvalidState, c.state)
	}

	limit, err := models.ParseCap(capInput)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", shared.ErrInvalidCap, err)
	}

	subject := strings.TrimSpace(c.campaign.Subject)
	template := strings.TrimSpace(c.campaign.TemplateBody)
	if subject == "" || template == "" {
		return nil, shared.ErrEmptyContent
	}
	if !c.campaign.HasVariations() {
		return nil, shared.ErrNoVariations
	}

	available := c.set.VisibleContactable()
	if len(available) == 0 {
		return nil, shared.ErrNoContactable
	}

	plan := buildPlan(available, limit)
	c.campaign.Subject = subject
	c.campaign.TemplateBody = template
	c.campaign.RecipientCap = limit
	c.plan = &plan
	c.state = models.SendConfirming

	cp := plan
	return &cp, nil
}

// Decline abandons the pending send and returns to the ready preview.
func (c *CampaignController) Decline() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != models.SendConfirming {
		return fmt.Errorf("%w: no send awaiting confirmation", shared.ErrInvalidState)
	}
	c.plan = nil
	c.state = models.PreviewReady
	return nil
}

// Confirm performs the planned send, consuming the event stream until it ends.
//
// Every frame is appended to the log and passed to sink as it arrives. The send
// cannot be cancelled once started: ctx only supplies values. A graceful end
// clears the campaign; a failure keeps it and appends a marked error line.
func (c *CampaignController) Confirm(ctx context.Context, sink func(models.SendLine)) (*SendResult, error) {
	if !c.sendGuard.TryAcquire() {
		return nil, fmt.Errorf("%w: send", shared.ErrBusy)
	}
	defer c.sendGuard.Release()

	if sink == nil {
		sink = func(models.SendLine) {}
	}

	c.mu.Lock()
	if c.state != models.SendConfirming || c.plan == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no send awaiting confirmation", shared.ErrInvalidState)
	}
	plan := *c.plan
	campaign := *c.campaign
	c.state = models.Sending
	c.lines = nil
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	logger := shared.WithLogger(c.logger, "campaign", campaign.ID)
	result := &SendResult{RunID: shared.GenerateID(), Recipients: plan.Count}

	c.record(ctx, logger, func(r SendRecorder) error {
		return r.CreateRun(ctx, &models.SendRun{
			ID:             result.RunID,
			CampaignID:     campaign.ID,
			TrackID:        campaign.TrackID,
			Subject:        campaign.Subject,
			RecipientCount: plan.Count,
			Status:         models.RunSending,
			StartedAt:      time.Now(),
		})
	})

	emit := func(event, text string) models.SendLine {
		c.mu.Lock()
		line := models.SendLine{Position: len(c.lines), Event: event, Text: text, CreatedAt: time.Now()}
		c.lines = append(c.lines, line)
		c.mu.Unlock()

		c.record(ctx, logger, func(r SendRecorder) error { return r.AppendLine(ctx, result.RunID, line) })
		sink(line)
		return line
	}

	logger.Info("starting send", "recipients", plan.Count, "available", plan.Available, "run", result.RunID)
	sendProgress(c.progress, sendStartUpdate(plan))
	emit(services.EventStatus, initLine(plan.Count))

	err := c.stream(ctx, campaign, plan, func(f services.Frame) {
		result.Frames++
		if f.Event == services.EventDone {
			result.Summary = f.Text()
		}
		logger.Debug("send frame", "event", f.Event, "text", f.Text())
		emit(f.Event, f.Text())
		sendProgress(c.progress, sendFrameUpdate(result.Frames, plan.Count, f))
	})

	if err != nil {
		logger.Error("send failed", "error", err, "frames", result.Frames)
		emit(services.EventError, failureLine(err))
		result.Failed = true

		c.mu.Lock()
		c.plan = nil
		c.state = models.Idle
		result.Lines = append([]models.SendLine(nil), c.lines...)
		c.mu.Unlock()

		c.record(ctx, logger, func(r SendRecorder) error {
			return r.FinishRun(ctx, result.RunID, models.RunFailed, services.Message(err))
		})
		sendProgress(c.progress, sendFailedUpdate(*result, err))
		return result, err
	}

	c.mu.Lock()
	c.discardLocked()
	result.Lines = append([]models.SendLine(nil), c.lines...)
	c.mu.Unlock()

	logger.Info("send finished", "frames", result.Frames, "summary", result.Summary)
	c.record(ctx, logger, func(r SendRecorder) error {
		return r.FinishRun(ctx, result.RunID, models.RunCompleted, result.Summary)
	})
	sendProgress(c.progress, sendDoneUpdate(*result))
	return result, nil
}

func (c *CampaignController) stream(ctx context.Context, campaign models.Campaign, plan SendPlan, fn func(services.Frame)) error {
	body, err := c.backend.SendEmails(ctx, services.SendRequest{
		TrackID:      campaign.TrackID,
		Playlists:    plan.Recipients,
		Subject:      campaign.Subject,
		Variations:   campaign.Variations,
		TemplateBody: campaign.TemplateBody,
		BCC:          campaign.BCC,
	})
	if err != nil {
		return err
	}
	return services.NewFrameReader(body, c.idle).Each(fn)
}

func (c *CampaignController) record(ctx context.Context, logger *log.Logger, fn func(SendRecorder) error) {
	if c.recorder == nil {
		return
	}
	if err := fn(c.recorder); err != nil {
		logger.Warn("send log archive failed", "error", err)
	}
}

func (c *CampaignController) newCampaign(track Track) *models.Campaign {
	return &models.Campaign{
		ID:           shared.GenerateID(),
		TrackID:      track.ID,
		TrackName:    track.Name,
		Language:     c.defaultLanguage,
		RecipientCap: c.defaultCap,
	}
}

func (c *CampaignController) discardLocked() {
	c.campaign = nil
	c.plan = nil
	c.state = models.Idle
}

// buildPlan caps the contactable playlists, keeping display order.
func buildPlan(available []models.Playlist, limit int) SendPlan {
	count := min(limit, len(available))
	plan := SendPlan{
		Recipients: append([]models.Playlist(nil), available[:count]...),
		Available:  len(available),
		Count:      count,
		Truncated:  len(available) > limit,
	}

	plan.Summary = fmt.Sprintf("You are about to send emails to %d currently visible contactable playlists.", count)
	if plan.Truncated {
		plan.Summary += fmt.Sprintf(" (Limited from %d total)", len(available))
	}
	return plan
}

func initLine(n int) string {
	return fmt.Sprintf("Initializing email process for %d playlists...", n)
}

func failureLine(err error) string {
	return "❌ Network or processing error: " + services.Message(err)
}
