package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/canopysites/canopy/pkg/envelope"
	"github.com/canopysites/canopy/pkg/store"
)

// MaxLinkDepth bounds recursive link following. A chain longer than this is
// reported as ErrLoopDetected.
const MaxLinkDepth = 10

// Resolver turns record URIs into bytes by reading the backing store,
// unwrapping envelopes, and following link indirection.
type Resolver struct {
	store    store.Store
	logger   *slog.Logger
	verifier *envelope.Verifier
}

// NewResolver creates a resolver over the given backing store.
func NewResolver(s store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: s, logger: logger}
}

// WithVerifier pins publisher keys: any signed record read through the
// resolver must then carry at least one signature from a trusted key.
// Unsigned records still pass — signing is opt-in per record.
func (r *Resolver) WithVerifier(v *envelope.Verifier) *Resolver {
	r.verifier = v
	return r
}

// Resolve fetches the record at uri and returns its final payload.
//
// The record is envelope-unwrapped exactly once, then dispatched by scheme:
// link payloads must be record URIs and are followed recursively up to
// MaxLinkDepth; mutable, immutable, and blob payloads are final. A mutable
// or immutable record whose payload happens to look like a URI is served
// verbatim — only the link scheme triggers indirection. This asymmetry lets
// direct records legitimately store URI-shaped text as literal content.
func (r *Resolver) Resolve(ctx context.Context, uri URI) ([]byte, error) {
	return r.resolve(ctx, uri, 0)
}

// ResolveString parses s and resolves it.
func (r *Resolver) ResolveString(ctx context.Context, s string) ([]byte, error) {
	uri, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, uri)
}

func (r *Resolver) resolve(ctx context.Context, uri URI, depth int) ([]byte, error) {
	if depth > MaxLinkDepth {
		return nil, fmt.Errorf("%w: %s", ErrLoopDetected, uri)
	}

	raw, err := r.store.Read(ctx, uri.String())
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("protocol: read %s: %w", uri, err)
	}

	payload, sigs := envelope.Open(raw)
	if r.verifier != nil && len(sigs) > 0 && !r.verifier.Verify(payload, sigs) {
		return nil, fmt.Errorf("%w: %s", ErrBadSignature, uri)
	}

	if uri.Scheme != SchemeLink {
		return payload, nil
	}

	target, err := Parse(strings.TrimSpace(string(payload)))
	if err != nil {
		r.logger.Warn("link record carries a non-URI payload",
			"uri", uri.String(), "err", err)
		return nil, fmt.Errorf("%w: at %s", ErrMalformedLink, uri)
	}
	return r.resolve(ctx, target, depth+1)
}

// ResolveFile resolves {base}/{filePath}. If that is absent and filePath has
// no file extension, it retries once with /index.html appended — a request
// for a directory resolves to the directory's index document. Only the
// retry's absence is surfaced as not-found.
func (r *Resolver) ResolveFile(ctx context.Context, base URI, filePath string) ([]byte, error) {
	content, err := r.Resolve(ctx, base.Join(filePath))
	if err == nil || !errors.Is(err, ErrNotFound) {
		return content, err
	}
	if path.Ext(filePath) != "" {
		return nil, err
	}
	return r.Resolve(ctx, base.Join(filePath).Join("index.html"))
}
