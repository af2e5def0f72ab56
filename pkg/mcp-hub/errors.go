package mcphub

import "errors"

var (
	// ErrConnection wraps a failure to establish a session with an upstream.
	// During aggregation it is isolated per upstream; on a direct call it is
	// surfaced to the caller.
	ErrConnection = errors.New("upstream connection failed")

	// ErrToolNotFound reports that no registered upstream owns the requested
	// tool name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrPrefixMismatch reports that the alias claimed by a qualified tool
	// name is not the upstream that actually owns the tool. It is never
	// silently corrected.
	ErrPrefixMismatch = errors.New("tool name prefix does not match owning upstream")
)
