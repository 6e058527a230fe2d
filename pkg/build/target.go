// Package build resolves which immutable build to serve for an owner:
// either the owner's mutable target pointer, or an explicitly requested
// build in preview mode.
package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canopysites/canopy/pkg/manifest"
	"github.com/canopysites/canopy/pkg/protocol"
)

var (
	// ErrNoTarget reports that an owner has no published target pointer,
	// or a pointer without a build id. Distinct from a zero-value build.
	ErrNoTarget = errors.New("build: no published target")

	// ErrNoManifest reports that a build has no manifest.json.
	ErrNoManifest = errors.New("build: manifest not found")
)

// Target identifies one immutable build. Immutable once constructed; the
// gateway never persists it.
type Target struct {
	OwnerKey string
	BuildID  string
	BaseURI  protocol.URI
	Version  int
}

// targetPointer is the wire format of an owner's mutable pointer record.
type targetPointer struct {
	Build   string `json:"build"`
	Version int    `json:"version,omitempty"`
}

// PointerURI is the deterministic location of an owner's target pointer.
func PointerURI(ownerKey string) protocol.URI {
	return protocol.URI{Scheme: protocol.SchemeMutable, Path: ownerKey + "/current"}
}

// BaseURI is the deterministic base location of a build's output.
func BaseURI(ownerKey, buildID string) protocol.URI {
	return protocol.URI{Scheme: protocol.SchemeImmutable, Path: ownerKey + "/builds/" + buildID}
}

// ResolveTarget determines the build to serve for ownerKey.
//
// If explicitBuildID is non-empty (preview mode), the target is constructed
// directly with no store reads — previews must never consult or be blocked
// by the mutable pointer. Otherwise the owner's pointer record is resolved
// and must contain a build id; its absence is ErrNoTarget.
func ResolveTarget(ctx context.Context, r *protocol.Resolver, ownerKey, explicitBuildID string) (Target, error) {
	if ownerKey == "" {
		return Target{}, fmt.Errorf("build: owner key is required")
	}

	if explicitBuildID != "" {
		return Target{
			OwnerKey: ownerKey,
			BuildID:  explicitBuildID,
			BaseURI:  BaseURI(ownerKey, explicitBuildID),
		}, nil
	}

	payload, err := r.Resolve(ctx, PointerURI(ownerKey))
	if err != nil {
		if errors.Is(err, protocol.ErrNotFound) {
			return Target{}, fmt.Errorf("%w: owner %s", ErrNoTarget, ownerKey)
		}
		return Target{}, err
	}

	var ptr targetPointer
	if err := json.Unmarshal(payload, &ptr); err != nil {
		return Target{}, fmt.Errorf("%w: owner %s: pointer is not valid JSON: %v", ErrNoTarget, ownerKey, err)
	}
	if ptr.Build == "" {
		return Target{}, fmt.Errorf("%w: owner %s: pointer has no build id", ErrNoTarget, ownerKey)
	}

	return Target{
		OwnerKey: ownerKey,
		BuildID:  ptr.Build,
		BaseURI:  BaseURI(ownerKey, ptr.Build),
		Version:  ptr.Version,
	}, nil
}

// FetchManifest reads and decodes {BaseURI}/manifest.json for a target.
// Absence is ErrNoManifest; schema violations are configuration errors and
// surface the same way.
func FetchManifest(ctx context.Context, r *protocol.Resolver, target Target) (*manifest.Manifest, error) {
	payload, err := r.Resolve(ctx, target.BaseURI.Join("manifest.json"))
	if err != nil {
		if errors.Is(err, protocol.ErrNotFound) {
			return nil, fmt.Errorf("%w: build %s/%s", ErrNoManifest, target.OwnerKey, target.BuildID)
		}
		return nil, err
	}

	m, err := manifest.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s/%s: %v", ErrNoManifest, target.OwnerKey, target.BuildID, err)
	}
	return m, nil
}
