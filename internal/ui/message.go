package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/pitch/internal/formatter"
	"github.com/desertthunder/pitch/internal/models"
	"github.com/desertthunder/pitch/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgFilterApplied MsgKind = iota
	MsgIngested
	MsgPreviewReady
	MsgSendLine
	MsgSendComplete
	MsgExported
	MsgProgress
)

// outcome carries the return values of a controller call back to Update.
type outcome[T any] struct {
	value T
	err   error
}

// filterAppliedMsg is the constructor for [MsgFilterApplied]
func filterAppliedMsg(result *tasks.FilterResult, err error) Msg {
	return Msg{kind: MsgFilterApplied, data: outcome[*tasks.FilterResult]{result, err}}
}

// ingestedMsg is the constructor for [MsgIngested]
func ingestedMsg(count int, err error) Msg {
	return Msg{kind: MsgIngested, data: outcome[int]{count, err}}
}

// previewReadyMsg is the constructor for [MsgPreviewReady]
func previewReadyMsg(campaign *models.Campaign, err error) Msg {
	return Msg{kind: MsgPreviewReady, data: outcome[*models.Campaign]{campaign, err}}
}

// sendLineMsg is the constructor for [MsgSendLine]
func sendLineMsg(line models.SendLine) Msg {
	return Msg{kind: MsgSendLine, data: line}
}

// sendCompleteMsg is the constructor for [MsgSendComplete]
func sendCompleteMsg(result *tasks.SendResult, err error) Msg {
	return Msg{kind: MsgSendComplete, data: outcome[*tasks.SendResult]{result, err}}
}

// exportedMsg is the constructor for [MsgExported]
func exportedMsg(result *formatter.ExportResult, err error) Msg {
	return Msg{kind: MsgExported, data: outcome[*formatter.ExportResult]{result, err}}
}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgress, data: update}
}
