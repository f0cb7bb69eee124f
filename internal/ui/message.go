package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/flowmaster/internal/engine"
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
	MsgRefreshed MsgKind = iota
	MsgProgressUpdate
	MsgMutationDone
)

type refreshed struct {
	result *engine.RefreshResult
	err    error
}

type progressed struct {
	run    *refreshRun
	update engine.ProgressUpdate
}

type mutationDone struct {
	status string
	err    error
}

// refreshedMsg is the constructor for [MsgRefreshed]
func refreshedMsg(result *engine.RefreshResult, err error) Msg {
	return Msg{kind: MsgRefreshed, data: refreshed{result, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(run *refreshRun, update engine.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: progressed{run, update}}
}

// mutationDoneMsg is the constructor for [MsgMutationDone]. status is shown on success.
func mutationDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgMutationDone, data: mutationDone{status, err}}
}
