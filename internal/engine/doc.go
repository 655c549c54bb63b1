// Package engine contains the match state machine and resolution logic.
// This is the heartbeat of the contagio server.
//
// ARCHITECTURAL RULE: all match state is owned by a single goroutine per
// match. Transports never touch state directly - they enqueue commands and
// the match loop processes them one at a time. Night and day resolvers are
// pure functions over a snapshot of that state; the controller applies the
// deltas they return.
package engine
