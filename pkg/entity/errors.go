// Package entity holds the in-memory state of a single OpenID Federation
// entity: its identity, declared authority hints, registered subordinates,
// and the Trust Marks it has issued or received.
package entity

import "errors"

// Error kinds from the core error taxonomy. Callers type-switch or use
// errors.Is against these sentinels; the External Interface Layer maps
// them to HTTP status codes.
var (
	// ErrNotFound is returned when a subordinate or Trust Mark lookup
	// finds no matching record.
	ErrNotFound = errors.New("not found")

	// ErrSubjectMismatch is returned when an inbound Trust Mark's
	// subject does not match this entity's identifier.
	ErrSubjectMismatch = errors.New("subject mismatch")

	// ErrUnknownSubordinate is returned by the Subordinate Statement
	// Builder when asked to build a statement for an entity that was
	// never registered.
	ErrUnknownSubordinate = errors.New("unknown subordinate")

	// ErrBadRequest marks malformed or missing caller input.
	ErrBadRequest = errors.New("bad request")
)
