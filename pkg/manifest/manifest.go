// Package manifest defines the per-build manifest — the index of files,
// routing rules, encryption metadata, and header overrides — and resolves
// request paths against it.
package manifest

import (
	"encoding/json"
	"fmt"
)

// FileEntry describes one file inside a build.
type FileEntry struct {
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	ContentHash string `json:"contentHash,omitempty"`
	Encrypted   bool   `json:"encrypted,omitempty"`
	Gzipped     bool   `json:"gzipped,omitempty"`
}

// RoutingConfig controls how request paths map to files.
type RoutingConfig struct {
	SPA        bool              `json:"spa,omitempty"`
	Entrypoint string            `json:"entrypoint,omitempty"`
	Redirects  map[string]string `json:"redirects,omitempty"` // request path -> location (301)
	Rewrites   map[string]string `json:"rewrites,omitempty"`  // request path -> looked-up path
}

// EncryptionConfig carries the wrapped content keys for encrypted builds.
// WrappedKeys maps a gateway host's public key (base64) to the content key
// wrapped for that host. WrappedKey/HostKey are the legacy single-host
// fields; the map takes precedence when both are present.
type EncryptionConfig struct {
	Enabled     bool              `json:"enabled"`
	WrappedKeys map[string]string `json:"wrappedKeys,omitempty"` // host public key (b64) -> wrapped key (b64)
	WrappedKey  string            `json:"wrappedKey,omitempty"`
	HostKey     string            `json:"hostKey,omitempty"`
}

// HeadersConfig carries per-path response header overrides.
type HeadersConfig struct {
	CacheControl map[string]string `json:"cacheControl,omitempty"` // exact path or "*.ext" pattern -> directive
}

// Manifest is the per-build index. It is fetched once per build (or served
// from a short-TTL cache) and never mutated afterward.
type Manifest struct {
	Files      map[string]FileEntry `json:"files"`
	Routing    *RoutingConfig       `json:"routing,omitempty"`
	Encryption *EncryptionConfig    `json:"encryption,omitempty"`
	Headers    *HeadersConfig       `json:"headers,omitempty"`
}

// Decode parses and validates manifest bytes.
func Decode(raw []byte) (*Manifest, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	// An entry flagged encrypted without an enabled encryption config has
	// no key material to decrypt with. Rejecting the manifest here fails
	// closed: the alternative is serving the entry's raw ciphertext.
	if !m.EncryptionEnabled() {
		for p, entry := range m.Files {
			if entry.Encrypted {
				return nil, fmt.Errorf("manifest: file %s is marked encrypted but encryption is not enabled", p)
			}
		}
	}
	return &m, nil
}

// Entrypoint returns the configured SPA/empty-path entry file,
// defaulting to index.html.
func (m *Manifest) Entrypoint() string {
	if m.Routing != nil && m.Routing.Entrypoint != "" {
		return m.Routing.Entrypoint
	}
	return "index.html"
}

// EncryptionEnabled reports whether this build's content is encrypted.
func (m *Manifest) EncryptionEnabled() bool {
	return m.Encryption != nil && m.Encryption.Enabled
}
