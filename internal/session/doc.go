// Package session owns the table of open generation sessions.
//
// A session pairs an opaque uuid with an engine context and an activity
// timestamp. The Manager is the single shared-mutation point in the gateway:
// the sequential request path and the periodic idle sweep both go through
// its mutex, so a lookup-with-bump, an open, an explicit close, and a
// sweep-driven eviction can never interleave destructively.
//
// Lifecycle: Open creates a session atomically (engine context first, then
// one-step table insert), Get bumps last activity, Close/CloseAll remove
// entries, and a background goroutine evicts sessions idle past the
// configured threshold on a fixed interval. Eviction lag of up to one sweep
// period past the threshold is an accepted tolerance. A failed generation
// call never closes a session; there is no error state.
package session
