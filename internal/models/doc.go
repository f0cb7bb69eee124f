// Package models defines the wire and domain types of the FlowMaster client.
//
// The types mirror the remote API's JSON contract:
//   - [User] : profile returned by GET /auth/me
//   - [Task] : an entry in exactly one [ListType] bucket (todo, watch, later)
//   - [DailyCard] : the aggregate for one day, holding [CardTask] references and [Accomplishment] entries
//
// Request payloads ([TaskCreate], [TaskPatch], [CardCreate], [CardUpdate], [AccomplishmentCreate]) use pointer
// fields where the server distinguishes "unset" from a zero value.
//
// [Task.Clone] and [DailyCard.Clone] produce copies that share no memory with the original; stores hand
// these out so callers can never mutate store-owned state.
package models
