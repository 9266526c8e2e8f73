package models

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PlaylistSet holds the master playlist list of a session and its visibility filter.
//
// A nil visible set means no filter is active and every playlist is visible.
// The set is replaced wholesale by [PlaylistSet.ReplaceAll] and never partially mutated.
type PlaylistSet struct {
	mu      sync.RWMutex
	all     []Playlist
	visible map[string]struct{}
	gen     uint64 // bumped by every ReplaceAll
}

// NewPlaylistSet creates a set holding playlists with no filter applied.
func NewPlaylistSet(playlists []Playlist) *PlaylistSet {
	s := &PlaylistSet{}
	s.ReplaceAll(playlists)
	return s
}

// ReplaceAll resets the master list to a copy of playlists and clears the filter.
func (s *PlaylistSet) ReplaceAll(playlists []Playlist) {
	all := make([]Playlist, len(playlists))
	copy(all, playlists)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = all
	s.visible = nil
	s.gen++
}

// Snapshot returns a copy of the master list with its generation.
//
// Pass the generation to [PlaylistSet.SetVisibleAt] to apply a result computed from this snapshot.
func (s *PlaylistSet) Snapshot() ([]Playlist, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Playlist, len(s.all))
	copy(out, s.all)
	return out, s.gen
}

// SetVisibleAt is [PlaylistSet.SetVisible] guarded by generation.
//
// When the master list was replaced after gen was observed nothing changes and ok is false.
func (s *PlaylistSet) SetVisibleAt(gen uint64, ids []string) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return s.visibleCountLocked(), false
	}
	return s.setVisibleLocked(ids), true
}

// SetVisible replaces the visibility set with ids, dropping ids that are not in the master list.
//
// Returns the number of visible playlists afterwards.
func (s *PlaylistSet) SetVisible(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setVisibleLocked(ids)
}

func (s *PlaylistSet) setVisibleLocked(ids []string) int {
	known := make(map[string]struct{}, len(s.all))
	for _, p := range s.all {
		known[p.ID] = struct{}{}
	}

	visible := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			visible[id] = struct{}{}
		}
	}
	s.visible = visible

	return s.visibleCountLocked()
}

// ClearFilter makes every playlist visible again.
func (s *PlaylistSet) ClearFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = nil
}

// Filtered reports whether a filter is active.
func (s *PlaylistSet) Filtered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible != nil
}

// All returns a copy of the master list in display order.
func (s *PlaylistSet) All() []Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Playlist, len(s.all))
	copy(out, s.all)
	return out
}

// Len returns the size of the master list.
func (s *PlaylistSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}

// Visible returns the ordered subsequence of the master list passing the filter.
func (s *PlaylistSet) Visible() []Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Playlist, 0, len(s.all))
	for _, p := range s.all {
		if s.isVisibleLocked(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// VisibleCount returns the number of visible playlists.
func (s *PlaylistSet) VisibleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibleCountLocked()
}

// VisibleContactable returns the visible playlists that have a valid email, in display order.
func (s *PlaylistSet) VisibleContactable() []Playlist {
	return Contactable(s.Visible())
}

// CountSummary renders the playlist count line shown above the results.
func (s *PlaylistSet) CountSummary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.all)
	visible := s.visibleCountLocked()
	if visible == total {
		return fmt.Sprintf("Showing all %d playlists.", total)
	}
	return fmt.Sprintf("Showing %d of %d playlists matching your filter.", visible, total)
}

// Keywords returns the distinct lower-cased found_by keywords across the master list, sorted.
func (s *PlaylistSet) Keywords() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.all {
		for _, kw := range p.FoundBy {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				seen[kw] = struct{}{}
			}
		}
	}

	keywords := make([]string, 0, len(seen))
	for kw := range seen {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)
	return keywords
}

func (s *PlaylistSet) isVisibleLocked(id string) bool {
	if s.visible == nil {
		return true
	}
	_, ok := s.visible[id]
	return ok
}

func (s *PlaylistSet) visibleCountLocked() int {
	if s.visible == nil {
		return len(s.all)
	}
	return len(s.visible)
}
