package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audiograb/internal/models"
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
	MsgJobsSubmitted MsgKind = iota
	MsgJobEvent
	MsgFilesListed
)

// submission is the outcome of submitting one URL.
type submission struct {
	url string
	id  string
	err error
}

// jobsSubmittedMsg is the constructor for [MsgJobsSubmitted]
func jobsSubmittedMsg(subs []submission) Msg {
	return Msg{kind: MsgJobsSubmitted, data: subs}
}

// jobEventMsg is the constructor for [MsgJobEvent]
func jobEventMsg(e models.Event) Msg {
	return Msg{kind: MsgJobEvent, data: e}
}

// filesListedMsg is the constructor for [MsgFilesListed]
func filesListedMsg(files []models.LibraryFile, err error) Msg {
	return Msg{
		kind: MsgFilesListed,
		data: struct {
			files []models.LibraryFile
			err   error
		}{files, err},
	}
}
