package manifest

import (
	"errors"
	"strings"
)

// ErrNoSuchFile reports that a request path matched nothing in the
// manifest. Recoverable at the orchestrator only insofar as it maps to a
// 404 — all fallback strategies have already been tried here.
var ErrNoSuchFile = errors.New("manifest: no file for path")

// ResolvedPath is the outcome of resolving a request path against a
// manifest. IsFallback marks directory-index and SPA substitutions so the
// response can be tagged (e.g. always-revalidate cache headers) without
// losing the original request path.
type ResolvedPath struct {
	FilePath   string
	Entry      FileEntry
	IsFallback bool
}

// ResolvePath maps a request path to a concrete file entry. Precedence is
// strict and ordering is load-bearing:
//
//  1. Normalize: strip one leading "/"; an empty path becomes the
//     entrypoint. Rewrites apply to the normalized path.
//  2. Exact match against the files map.
//  3. Directory index: "p" or "p/" matches "p/index.html".
//  4. SPA fallback: only when routing.spa is set, and only when the
//     entrypoint itself exists in the files map — a manifest that enables
//     SPA routing but omits its own entrypoint is misconfigured, and that
//     surfaces as ErrNoSuchFile rather than being papered over.
//
// An exact file named like a directory therefore always wins over the SPA
// fallback.
func ResolvePath(requestPath string, m *Manifest) (ResolvedPath, error) {
	p := strings.TrimPrefix(requestPath, "/")
	if p == "" {
		p = m.Entrypoint()
	}

	if m.Routing != nil {
		if rewritten, ok := m.Routing.Rewrites[p]; ok {
			p = strings.TrimPrefix(rewritten, "/")
		}
	}

	if entry, ok := m.Files[p]; ok {
		return ResolvedPath{FilePath: p, Entry: entry}, nil
	}

	indexPath := strings.TrimSuffix(p, "/") + "/index.html"
	if entry, ok := m.Files[indexPath]; ok {
		return ResolvedPath{FilePath: indexPath, Entry: entry, IsFallback: true}, nil
	}

	if m.Routing != nil && m.Routing.SPA {
		entrypoint := m.Entrypoint()
		if entry, ok := m.Files[entrypoint]; ok {
			return ResolvedPath{FilePath: entrypoint, Entry: entry, IsFallback: true}, nil
		}
	}

	return ResolvedPath{}, ErrNoSuchFile
}

// Redirect returns the redirect location configured for a request path,
// if any. Redirects are matched on the normalized path before any other
// resolution strategy.
func Redirect(requestPath string, m *Manifest) (string, bool) {
	if m.Routing == nil || len(m.Routing.Redirects) == 0 {
		return "", false
	}
	p := strings.TrimPrefix(requestPath, "/")
	loc, ok := m.Routing.Redirects[p]
	return loc, ok
}
