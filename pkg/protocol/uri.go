// Package protocol implements the record-addressing protocol: URI parsing,
// scheme dispatch, and cycle-safe resolution of stored records against the
// backing store.
package protocol

import (
	"fmt"
	"strings"
)

// Scheme determines how a record's value is interpreted once read.
type Scheme string

const (
	// SchemeMutable addresses a record that may be republished in place
	// (target pointers, domain mappings). Its value is final content.
	SchemeMutable Scheme = "mutable"

	// SchemeImmutable addresses a record that never changes once written
	// (build output). Its value is final content.
	SchemeImmutable Scheme = "immutable"

	// SchemeLink addresses an indirection record: its value must be a URI
	// string, which is resolved in turn.
	SchemeLink Scheme = "link"

	// SchemeBlob addresses raw binary or text content. Never followed.
	SchemeBlob Scheme = "blob"
)

// URI is a parsed record address: scheme://path.
type URI struct {
	Scheme Scheme
	Path   string
}

// Parse parses and validates a record URI. Unknown schemes are rejected so
// that resolution semantics are always explicit — there is no guessing at
// links from URI-shaped strings.
func Parse(s string) (URI, error) {
	scheme, path, ok := strings.Cut(s, "://")
	if !ok {
		return URI{}, fmt.Errorf("protocol: not a record URI: %q", s)
	}
	switch Scheme(scheme) {
	case SchemeMutable, SchemeImmutable, SchemeLink, SchemeBlob:
	default:
		return URI{}, fmt.Errorf("protocol: unknown scheme %q in %q", scheme, s)
	}
	if path == "" {
		return URI{}, fmt.Errorf("protocol: empty path in %q", s)
	}
	return URI{Scheme: Scheme(scheme), Path: path}, nil
}

// String returns the canonical form used as the backing-store key.
func (u URI) String() string {
	return string(u.Scheme) + "://" + u.Path
}

// Join appends path segments to a URI, normalizing duplicate slashes.
func (u URI) Join(elem string) URI {
	return URI{
		Scheme: u.Scheme,
		Path:   strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(elem, "/"),
	}
}
