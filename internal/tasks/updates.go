package tasks

import (
	"fmt"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Filter Phase = iota
	Preview
	Ingest
	SendStart
	SendFrame
	SendDone
	SendFailed
)

func (p Phase) String() string {
	switch p {
	case Filter:
		return "filter"
	case Preview:
		return "preview"
	case Ingest:
		return "ingest"
	case SendStart:
		return "send_start"
	case SendFrame:
		return "send_frame"
	case SendDone:
		return "send_done"
	case SendFailed:
		return "send_failed"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

func filteringUpdate(query string, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Filter,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Filtering %d playlists for %q...", total, query),
	}
}

func filteredUpdate(matched, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Filter,
		Step:    matched,
		Total:   total,
		Message: fmt.Sprintf("AI filter applied. Found %d matching playlists.", matched),
	}
}

func previewingUpdate(p models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Preview,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Generating preview for %s...", p.Name),
	}
}

func previewReadyUpdate(c models.Campaign) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Preview,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Preview ready: %s", c.Subject),
		Data:    c,
	}
}

func ingestingUpdate(filename string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Ingest,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Uploading %s...", filename),
	}
}

func ingestedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Ingest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d playlists.", count),
	}
}

func sendStartUpdate(plan SendPlan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SendStart,
		Step:    0,
		Total:   plan.Count,
		Message: initLine(plan.Count),
		Data:    plan,
	}
}

func sendFrameUpdate(step, total int, f services.Frame) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SendFrame,
		Step:    step,
		Total:   total,
		Message: f.Text(),
		Data:    f,
	}
}

func sendDoneUpdate(result SendResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SendDone,
		Step:    result.Frames,
		Total:   result.Recipients,
		Message: result.Summary,
		Data:    result,
	}
}

func sendFailedUpdate(result SendResult, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SendFailed,
		Step:    result.Frames,
		Total:   result.Recipients,
		Message: failureLine(err),
		Data:    result,
	}
}
