// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has two entry points:
//  1. [NewGrabModel] : submit URLs and follow each job in [GrabView], then summarize in [ResultView]
//  2. [NewLibraryModel] : browse the downloads directory in [LibraryView] and inspect tags in [TagsView]
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Job events reach the model through an observer that feeds a buffered channel, so a slow terminal never blocks
// the job registry. Progress events may be dropped when the buffer is full; status, complete and error events are not.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, l, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
