// Package engine coordinates workflows that touch more than one store, with progress reporting.
//
// # Core Operations
//
// [RefreshEngine] wraps a [stores.SessionStore], [stores.TaskListStore] and [stores.DailyCardStore]:
//
//  1. [RefreshEngine.Refresh] : revalidate the session, then load every bucket and today's card
//     - The profile is fetched first; a rejected token ends the refresh with [shared.ErrNotAuthenticated]
//     - Tasks and the card are fetched concurrently
//     - Store failures are collected in [RefreshResult.Errors] instead of aborting
//
//  2. [RefreshEngine.PlanDay] : put 1-5 held tasks on today's card
//     - Creates the card when none is held, otherwise replaces its task list
//
//  3. [RefreshEngine.CompleteEverywhere] : complete a task in its bucket and on the card
//     - Records an accomplishment with source "task" when the card held it
//
//  4. [RefreshEngine.Export] : write each bucket and the card to disk
//     - A worker pool renders through package formatter
//     - An export_manifest.json summarizes every file
//
// # Progress Reporting
//
// Every operation accepts an optional channel of [ProgressUpdate]. Sends use select with default so a
// slow or absent reader never blocks the workflow.
package engine
