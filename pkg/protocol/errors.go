package protocol

import "errors"

var (
	// ErrNotFound reports that no record exists at the requested URI.
	// Recoverable: callers may attempt index or SPA fallbacks.
	ErrNotFound = errors.New("protocol: record not found")

	// ErrLoopDetected reports that link resolution exceeded the depth
	// bound. Kept distinct from ErrNotFound so that cyclic content is
	// diagnosable separately from missing content.
	ErrLoopDetected = errors.New("protocol: link depth bound exceeded")

	// ErrMalformedLink reports a link record whose payload is not a
	// record URI. Fatal for the request.
	ErrMalformedLink = errors.New("protocol: link payload is not a record URI")

	// ErrBadSignature reports a signed record whose signatures do not
	// verify against the pinned publisher keys. Fatal for the request.
	ErrBadSignature = errors.New("protocol: envelope signature verification failed")
)
