// Package headers maps resolved file paths to response metadata: the
// content type and the cache-control directive.
package headers

import (
	"path"
	"regexp"
	"strings"
)

// Cache directives by asset class. Hashed assets are immutable by
// construction; HTML entrypoints must always revalidate so deploys take
// effect immediately behind an external HTTP cache.
const (
	CacheImmutable  = "public, max-age=31536000, immutable"
	CacheRevalidate = "public, max-age=0, must-revalidate"
	CacheDefault    = "public, max-age=3600"
)

// mimeByExtension is the static extension → MIME table. A content type
// declared on the file entry always wins over this table.
var mimeByExtension = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".json":  "application/json",
	".map":   "application/json",
	".txt":   "text/plain; charset=utf-8",
	".xml":   "application/xml",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".avif":  "image/avif",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".mp3":   "audio/mpeg",
	".wasm":  "application/wasm",
	".pdf":   "application/pdf",
}

// hashedAssetPattern recognizes fingerprinted filenames: a dot-separated
// hex fragment of at least 6 characters immediately before a static-asset
// extension, e.g. "app.3f9a2c.js" or "logo.deadbeef01.png".
var hashedAssetPattern = regexp.MustCompile(`\.[0-9a-f]{6,}\.(js|mjs|css|map|png|jpe?g|gif|webp|avif|svg|ico|woff2?|ttf|otf|eot|mp4|webm|mp3|wasm)$`)

// ContentType returns the MIME type for a file path. declared is the
// manifest's per-entry content type and takes precedence when non-empty.
func ContentType(filePath, declared string) string {
	if declared != "" {
		return declared
	}
	if mime, ok := mimeByExtension[strings.ToLower(path.Ext(filePath))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// CacheControl returns the cache directive for a file path. Fingerprinted
// assets cache forever, HTML always revalidates, everything else gets a
// moderate default. A manifest-level override (see Override) wins when
// present.
func CacheControl(filePath string) string {
	lower := strings.ToLower(filePath)
	if hashedAssetPattern.MatchString(lower) {
		return CacheImmutable
	}
	switch path.Ext(lower) {
	case ".html", ".htm":
		return CacheRevalidate
	}
	return CacheDefault
}

// Override looks up a manifest cache-control override for a file path.
// Patterns are either exact paths or "*.ext" suffix patterns.
func Override(filePath string, overrides map[string]string) (string, bool) {
	if len(overrides) == 0 {
		return "", false
	}
	if v, ok := overrides[filePath]; ok {
		return v, true
	}
	if ext := path.Ext(filePath); ext != "" {
		if v, ok := overrides["*"+ext]; ok {
			return v, true
		}
	}
	return "", false
}
