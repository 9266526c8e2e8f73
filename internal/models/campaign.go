package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinRecipientCap and MaxRecipientCap bound the number of emails sent in one batch.
	MinRecipientCap = 1
	MaxRecipientCap = 300

	// DefaultLanguage is passed to preview generation when none is chosen.
	DefaultLanguage = "English"
)

// CampaignState is the step of the generate-preview-then-send cycle.
type CampaignState int

const (
	Idle CampaignState = iota
	PreviewPending
	PreviewReady
	SendConfirming
	Sending
)

func (s CampaignState) String() string {
	switch s {
	case Idle:
		return "idle"
	case PreviewPending:
		return "preview_pending"
	case PreviewReady:
		return "preview_ready"
	case SendConfirming:
		return "send_confirming"
	case Sending:
		return "sending"
	default:
		return "unknown"
	}
}

// Variations is the per-recipient content supplied by preview generation.
//
// It is opaque to the client and forwarded verbatim to the send exchange.
type Variations map[string]json.RawMessage

// Campaign holds the fields of one email campaign about a single track.
type Campaign struct {
	ID              string
	TrackID         string
	TrackName       string
	SongDescription string
	Language        string
	Subject         string
	PreviewBody     string // display only, never re-sent
	TemplateBody    string
	Variations      Variations
	BCC             string
	RecipientCap    int
}

// HasVariations reports whether preview generation has supplied content variations.
func (c *Campaign) HasVariations() bool {
	return len(c.Variations) > 0
}

// ClearPreview discards generated content ahead of a new preview request.
func (c *Campaign) ClearPreview() {
	c.Subject = ""
	c.PreviewBody = ""
	c.TemplateBody = ""
	c.Variations = nil
}

// ClampCap clamps n to [MinRecipientCap, MaxRecipientCap].
func ClampCap(n int) int {
	return max(MinRecipientCap, min(n, MaxRecipientCap))
}

// ParseCap parses an operator-entered recipient cap.
//
// The value must be an integer of at least 1; values above [MaxRecipientCap] are clamped.
func ParseCap(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid recipient cap %q", s)
	}
	if n < MinRecipientCap {
		return 0, fmt.Errorf("recipient cap %d is below %d", n, MinRecipientCap)
	}
	return ClampCap(n), nil
}
