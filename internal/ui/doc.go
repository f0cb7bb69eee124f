// Package ui implements an interactive terminal board using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [BoardView] : the todo, watch and later buckets side by side
//  2. [CardView] : today's card with its tasks and accomplishments
//  3. [ConfirmDeleteView] : confirm deleting the selected task
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Every mutation goes through the stores, so the board only redraws what the server confirmed.
// Refresh progress flows through a channel from the RefreshEngine.
//
// Keyboard navigation uses vim-style bindings (h/j/k/l, enter, m, p, x, tab, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
