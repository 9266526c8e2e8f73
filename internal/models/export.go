package models

import (
	"fmt"
	"strings"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use csv or xlsx)", s)
	}
}

// Column is a key of the exportable field catalog.
type Column string

const (
	ColumnName        Column = "name"
	ColumnURL         Column = "url"
	ColumnOwnerName   Column = "owner_name"
	ColumnEmail       Column = "email"
	ColumnFollowers   Column = "followers"
	ColumnTracksTotal Column = "tracks_total"
	ColumnDescription Column = "description"
	ColumnFoundBy     Column = "found_by"
	ColumnContacted   Column = "contacted"
)

// Columns lists the catalog in its display order.
var Columns = []Column{
	ColumnName, ColumnURL, ColumnOwnerName, ColumnEmail, ColumnFollowers,
	ColumnTracksTotal, ColumnDescription, ColumnFoundBy, ColumnContacted,
}

var columnLabels = map[Column]string{
	ColumnName:        "Playlist Name",
	ColumnURL:         "Spotify URL",
	ColumnOwnerName:   "Curator Name",
	ColumnEmail:       "Curator Email",
	ColumnFollowers:   "Followers",
	ColumnTracksTotal: "Total Tracks",
	ColumnDescription: "Description",
	ColumnFoundBy:     "Found By Keyword",
	ColumnContacted:   "Contacted",
}

// Label returns the human readable header for c.
func (c Column) Label() string {
	if l, ok := columnLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is part of the catalog.
func (c Column) Valid() bool {
	_, ok := columnLabels[c]
	return ok
}

// ParseColumns parses a comma separated list of column keys, keeping order.
func ParseColumns(s string) ([]Column, error) {
	var cols []Column
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c := Column(strings.ToLower(part))
		if !c.Valid() {
			return nil, fmt.Errorf("unknown column %q", part)
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// ExportRequest describes one download of the visible playlists.
type ExportRequest struct {
	Columns   []Column `json:"columns" validate:"min=1,dive,oneof=name url owner_name email followers tracks_total description found_by contacted"`
	Format    Format   `json:"format" validate:"required,oneof=csv xlsx"`
	TrackName string   `json:"track_name"`
	Labels    bool     `json:"labels"` // use human readable headers instead of column keys
}
