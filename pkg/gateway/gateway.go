// Package gateway composes the resolution pipeline: target resolution,
// manifest lookup, path resolution, content fetch, decryption, and header
// policy. It owns the HTTP surface and is the only layer that maps error
// kinds to transport status codes.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/canopysites/canopy/pkg/build"
	"github.com/canopysites/canopy/pkg/contentcrypto"
	"github.com/canopysites/canopy/pkg/headers"
	"github.com/canopysites/canopy/pkg/manifest"
	"github.com/canopysites/canopy/pkg/protocol"
)

// ServeBase identifies the base location a request is served from: an
// owner key (current build via the mutable pointer), an owner key plus an
// explicit build id (preview), or a direct base URI.
type ServeBase struct {
	OwnerKey string
	BuildID  string // preview mode when non-empty
	BaseURI  string // direct base; bypasses target resolution when non-empty
}

// Content is a fully resolved response body with its header metadata.
type Content struct {
	Body            []byte
	ContentType     string
	CacheControl    string
	ContentEncoding string // "gzip" when the body is served compressed
	IsFallback      bool

	// RedirectLocation, when non-empty, means the request resolves to a
	// permanent redirect instead of a body.
	RedirectLocation string
}

// Orchestrator wires the resolution pipeline together. Stateless apart
// from the short-TTL cache; safe for concurrent use.
type Orchestrator struct {
	resolver  *protocol.Resolver
	decryptor *contentcrypto.Decryptor
	cache     *TTLCache
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewOrchestrator creates an orchestrator. cache may be nil to disable
// pointer/manifest caching.
func NewOrchestrator(r *protocol.Resolver, d *contentcrypto.Decryptor, cache *TTLCache, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewTTLCache(0, nil)
	}
	if d == nil {
		d = contentcrypto.NewDecryptor(nil)
	}
	return &Orchestrator{
		resolver:  r,
		decryptor: d,
		cache:     cache,
		logger:    logger,
		tracer:    otel.Tracer("canopy/gateway"),
	}
}

// ServeContent turns (base, requestPath) into bytes-to-serve. acceptGzip
// reports whether the caller can consume a gzip-encoded body as-is.
func (o *Orchestrator) ServeContent(ctx context.Context, base ServeBase, requestPath string, acceptGzip bool) (*Content, error) {
	ctx, span := o.tracer.Start(ctx, "gateway.ServeContent",
		trace.WithAttributes(
			attribute.String("canopy.owner", base.OwnerKey),
			attribute.String("canopy.path", requestPath),
		))
	defer span.End()

	target, err := o.resolveTarget(ctx, base)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("canopy.build", target.BuildID))

	m, err := o.manifestFor(ctx, target)
	if err != nil {
		return nil, err
	}

	if loc, ok := manifest.Redirect(requestPath, m); ok {
		return &Content{RedirectLocation: loc}, nil
	}

	resolved, err := manifest.ResolvePath(requestPath, m)
	if err != nil {
		if errors.Is(err, manifest.ErrNoSuchFile) {
			return nil, fmt.Errorf("%w: %s", protocol.ErrNotFound, requestPath)
		}
		return nil, err
	}

	body, err := o.resolver.Resolve(ctx, target.BaseURI.Join(resolved.FilePath))
	if err != nil {
		return nil, err
	}

	if resolved.Entry.Encrypted || m.EncryptionEnabled() {
		body, err = o.decryptor.Decrypt(body, m.Encryption)
		if err != nil {
			return nil, err
		}
	}

	content := &Content{
		Body:        body,
		ContentType: headers.ContentType(resolved.FilePath, resolved.Entry.ContentType),
		IsFallback:  resolved.IsFallback,
	}

	if resolved.Entry.Gzipped {
		if acceptGzip {
			content.ContentEncoding = "gzip"
		} else {
			content.Body, err = gunzip(body)
			if err != nil {
				return nil, fmt.Errorf("gateway: gunzip %s: %w", resolved.FilePath, err)
			}
		}
	}

	// Fallback responses must revalidate: the same URL serves different
	// bytes after the next deploy.
	switch {
	case resolved.IsFallback:
		content.CacheControl = headers.CacheRevalidate
	default:
		content.CacheControl = headers.CacheControl(resolved.FilePath)
	}
	if m.Headers != nil {
		if override, ok := headers.Override(resolved.FilePath, m.Headers.CacheControl); ok {
			content.CacheControl = override
		}
	}

	return content, nil
}

// resolveTarget determines the build for a ServeBase, consulting the
// pointer cache for non-preview owner lookups.
func (o *Orchestrator) resolveTarget(ctx context.Context, base ServeBase) (build.Target, error) {
	if base.BaseURI != "" {
		uri, err := protocol.Parse(base.BaseURI)
		if err != nil {
			return build.Target{}, fmt.Errorf("%w: bad base URI: %v", build.ErrNoTarget, err)
		}
		return build.Target{OwnerKey: base.OwnerKey, BaseURI: uri}, nil
	}

	if base.BuildID != "" {
		return build.ResolveTarget(ctx, o.resolver, base.OwnerKey, base.BuildID)
	}

	cacheKey := "target/" + base.OwnerKey
	if cached, ok := o.cache.Get(cacheKey); ok {
		return cached.(build.Target), nil
	}

	target, err := build.ResolveTarget(ctx, o.resolver, base.OwnerKey, "")
	if err != nil {
		return build.Target{}, err
	}
	o.cache.Set(cacheKey, target)
	return target, nil
}

func (o *Orchestrator) manifestFor(ctx context.Context, target build.Target) (*manifest.Manifest, error) {
	cacheKey := "manifest/" + target.BaseURI.String()
	if cached, ok := o.cache.Get(cacheKey); ok {
		return cached.(*manifest.Manifest), nil
	}

	m, err := build.FetchManifest(ctx, o.resolver, target)
	if err != nil {
		return nil, err
	}
	o.cache.Set(cacheKey, m)
	return m, nil
}

// BaseFromDomain converts a domain mapping target into a ServeBase. A
// mutable pointer URI of the form mutable://{owner}/current keeps the
// domain tracking the owner's current build; anything else is used as an
// explicit base. A bare owner key (no scheme) also tracks the owner.
func BaseFromDomain(mapping DomainMapping) ServeBase {
	target := mapping.Target
	if !strings.Contains(target, "://") {
		return ServeBase{OwnerKey: target}
	}
	if uri, err := protocol.Parse(target); err == nil &&
		uri.Scheme == protocol.SchemeMutable && strings.HasSuffix(uri.Path, "/current") {
		return ServeBase{OwnerKey: strings.TrimSuffix(uri.Path, "/current")}
	}
	return ServeBase{OwnerKey: mapping.Owner, BaseURI: target}
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	return io.ReadAll(zr)
}
