package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/pitch/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.playlist.Name == "" {
		return i.playlist.ID
	}
	return i.playlist.Name
}

func (i playlistItem) Description() string {
	parts := []string{}
	if i.playlist.OwnerName != "" {
		parts = append(parts, i.playlist.OwnerName)
	}
	if models.HasValidEmail(i.playlist) {
		parts = append(parts, i.playlist.Email)
	} else {
		parts = append(parts, "no contact")
	}
	if !i.playlist.Followers.IsZero() {
		parts = append(parts, fmt.Sprintf("%s followers", i.playlist.Followers))
	}
	if len(i.playlist.FoundBy) > 0 {
		parts = append(parts, strings.Join(i.playlist.FoundBy, ", "))
	}
	return strings.Join(parts, " • ")
}

func playlistItems(playlists []models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p}
	}
	return items
}
