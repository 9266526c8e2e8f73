// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a thin adapter over a [tasks.Session]; every rule lives in the controllers:
//  1. [PlaylistView] : Browse the visible playlists and their contact details
//  2. [FilterView] : Describe the playlists to keep and run the AI filter
//  3. [IngestView] : Upload a spreadsheet that replaces the snapshot
//  4. [ComposeView] : Enter the track and song description for a preview
//  5. [PreviewView] : Edit the generated subject, template and bcc
//  6. [ConfirmView] : Choose the recipient cap and confirm the send
//  7. [SendView] : Follow the send log as frames arrive
//
// Controller calls run as commands; their results come back through the Msg union type.
// Send log lines are delivered over a channel fed by the Confirm sink, so the log renders while the stream is open.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
