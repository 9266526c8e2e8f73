package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/shared"
)

// FilterStatus describes what a filter request did to the visible set.
type FilterStatus int

const (
	FilterApplied FilterStatus = iota
	FilterCleared
	FilterSkipped
	FilterDiscarded // playlists were replaced while the request was in flight
)

func (s FilterStatus) String() string {
	switch s {
	case FilterApplied:
		return "applied"
	case FilterCleared:
		return "cleared"
	case FilterSkipped:
		return "skipped"
	case FilterDiscarded:
		return "discarded"
	default:
		return ""
	}
}

// FilterResult reports the outcome of [FilterController.Apply].
type FilterResult struct {
	Status  FilterStatus
	Matched int
	Message string
	Summary string // count summary of the visible set afterwards
}

// FilterController narrows the visible playlists with a backend-evaluated query.
type FilterController struct {
	set      *models.PlaylistSet
	backend  Filterer
	guard    Guard
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewFilterController creates a controller over set.
func NewFilterController(set *models.PlaylistSet, backend Filterer, logger *log.Logger) *FilterController {
	return &FilterController{set: set, backend: backend, logger: logger}
}

// WithProgress sets the channel progress updates are sent to.
func (c *FilterController) WithProgress(progress chan<- ProgressUpdate) *FilterController {
	c.progress = progress
	return c
}

// Busy reports whether a filter request is in flight.
func (c *FilterController) Busy() bool {
	return c.guard.Busy()
}

// Apply filters the visible set by query.
//
// A blank query clears the filter and an empty snapshot is skipped, neither touching the network.
// On failure the visible set is left as it was.
func (c *FilterController) Apply(ctx context.Context, query string) (*FilterResult, error) {
	if !c.guard.TryAcquire() {
		return nil, fmt.Errorf("%w: filter", shared.ErrBusy)
	}
	defer c.guard.Release()

	query = strings.TrimSpace(query)
	if query == "" {
		c.set.ClearFilter()
		summary := c.set.CountSummary()
		return &FilterResult{Status: FilterCleared, Matched: c.set.Len(), Message: summary, Summary: summary}, nil
	}

	all, gen := c.set.Snapshot()
	if len(all) == 0 {
		return &FilterResult{Status: FilterSkipped, Message: "No playlists to filter.", Summary: c.set.CountSummary()}, nil
	}

	c.logger.Info("filtering playlists", "query", query, "count", len(all))
	sendProgress(c.progress, filteringUpdate(query, len(all)))

	ids, err := c.backend.FilterPlaylists(ctx, query, all)
	if err != nil {
		c.logger.Warn("filter failed", "error", err)
		return nil, fmt.Errorf("AI filter error: %w", err)
	}

	matched, ok := c.set.SetVisibleAt(gen, ids)
	if !ok {
		c.logger.Warn("playlists replaced during filter, result discarded", "query", query)
		return &FilterResult{
			Status:  FilterDiscarded,
			Matched: matched,
			Message: "Playlists changed while filtering. Filter result discarded.",
			Summary: c.set.CountSummary(),
		}, nil
	}
	c.logger.Info("filter applied", "matched", matched, "returned", len(ids))
	sendProgress(c.progress, filteredUpdate(matched, len(all)))

	return &FilterResult{
		Status:  FilterApplied,
		Matched: matched,
		Message: fmt.Sprintf("AI filter applied. Found %d matching playlists.", matched),
		Summary: c.set.CountSummary(),
	}, nil
}
