// Package models defines the in-memory state of an outreach session.
//
// The package contains three groups of types:
//
// 1. Playlist data received from the backend
//   - [Playlist] : a discovered playlist with curator contact metadata
//   - [Count] : a numeric display field that may arrive as a number or a string
//
// 2. Session state
//   - [PlaylistSet] : the master playlist list plus the visibility filter, the single source of truth for every controller
//   - [Campaign] : the fields of one generate-preview-then-send cycle, with its [CampaignState]
//
// 3. Export requests
//   - [Column] : the catalog of exportable playlist fields
//   - [ExportRequest] : the column set and [Format] chosen for one download
//
// Nothing in this package performs I/O.
package models
