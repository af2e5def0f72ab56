package upstreams

import "errors"

var (
	// ErrInvalidConfig marks a malformed static configuration entry. The
	// offending entry is rejected at load time; other entries still load.
	ErrInvalidConfig = errors.New("invalid upstream configuration")

	// ErrStoreUnavailable reports that the durable record source could not be
	// reached. The static partition keeps serving.
	ErrStoreUnavailable = errors.New("upstream store unavailable")
)
