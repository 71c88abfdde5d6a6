package engine

import "errors"

// Error kinds surfaced by the core (spec §7).
var (
	// ErrConflict is returned when registration cannot proceed because the
	// instance name collides and renaming was disallowed, or because
	// probing observed a conflicting SRV.
	ErrConflict = errors.New("engine: conflict")

	// ErrUnresolved names the "timeout elapsed without fully populating the
	// service" error kind. Nothing in this package returns it; the resolve
	// package reports that case with its own resolve.ErrUnresolved.
	ErrUnresolved = errors.New("engine: unresolved")

	// ErrUnknownAddressing is returned when an operation requires a
	// hostname/address that the caller has not supplied.
	ErrUnknownAddressing = errors.New("engine: unknown addressing")

	// ErrShutdown names the "aborted because the engine is closing" error
	// kind. Engine has no close operation, so nothing returns it.
	ErrShutdown = errors.New("engine: shutdown")
)
