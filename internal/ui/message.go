package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/plstat/internal/models"
	"github.com/desertthunder/plstat/internal/tasks"
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
	MsgSummaryLoaded MsgKind = iota
	MsgProgressUpdate
	MsgRunComplete
)

type summaryData struct {
	summary *models.Summary
	err     error
}

type runData struct {
	result *tasks.RunResult
	err    error
}

// summaryLoadedMsg is the constructor for [MsgSummaryLoaded]
func summaryLoadedMsg(summary *models.Summary, err error) Msg {
	return Msg{kind: MsgSummaryLoaded, data: summaryData{summary, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runData{result, err}}
}
