// Package stores keeps the client's session, task buckets and daily card consistent with the FlowMaster API.
//
// # Stores
//
//   - [SessionStore] : bearer token and user profile, mirrored into a [TokenPersister]
//   - [TaskListStore] : tasks partitioned into the todo, watch and later buckets
//   - [DailyCardStore] : today's card, or nil when none has been created
//
// [TaskListStore] and [DailyCardStore] read the token through the [Session] interface handed to their constructors.
// They never see each other.
//
// # Reconciliation
//
// Every action reads the token, calls the API and applies the server's response. Nothing is changed locally before the
// server confirms it, and a failed call leaves the previous state untouched. Getters return copies.
//
// Task updates keep a task's position when its bucket is unchanged and append it to the tail of the new bucket when
// its list type changed. Card updates replace the card wholesale; accomplishments are appended to the held card.
//
// # Errors
//
// Actions report success through their return value (a bool, or a pointer that is nil on failure) and record a message
// readable through LastError. Nothing is retried.
//
//   - Login and registration surface the server's detail message, or a fixed fallback.
//   - Task and card actions record a fixed message per operation.
//   - Local precondition failures ("task not found", "no card to update", "not authenticated") never reach the server.
//
// A 401 on the profile fetch is the only failure that logs the session out. When a task or card call gets a 401, the
// store asks the session to fetch the profile again, which tears the session down if the token really is dead.
//
// # Concurrency
//
// Each store guards its state with a mutex that is released before any remote call, so overlapping actions on one
// store may complete in either order. The loading flag is a plain bool: the first call to finish clears it even while
// another call is still in flight.
package stores
