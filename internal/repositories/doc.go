// Package repositories implements SQLite persistence for the client.
//
// The only persisted state is the session token. [TokenRepository] keeps it in a single row of the session_tokens
// table, keyed by [CurrentSlot], so a restarted process can rebuild its session without signing in again.
// The table is created by the embedded migrations in the shared package.
package repositories
