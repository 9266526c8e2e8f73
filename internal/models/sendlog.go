package models

import "time"

// Send run statuses.
const (
	RunSending   = "sending"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// SendLine is one entry of the append-only send log.
type SendLine struct {
	Position  int
	Event     string // stream event type; "error" marks failures
	Text      string
	CreatedAt time.Time
}

// IsError reports whether the line marks a failure.
func (l SendLine) IsError() bool {
	return l.Event == "error"
}

// SendRun is the archived record of one confirmed send.
type SendRun struct {
	ID             string
	CampaignID     string
	TrackID        string
	Subject        string
	RecipientCount int
	Status         string
	Summary        string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// Duration returns how long the run took, or zero while it is still sending.
func (r SendRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
