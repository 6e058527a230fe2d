// Package envelope implements the authenticated envelope format that wraps
// published records: a JSON object carrying the payload plus detached
// signatures over it. Every stored value must be opened through this package
// before interpretation; values that are not envelopes pass through as-is.
package envelope

import (
	"bytes"
	"encoding/json"
)

// Signature is one detached signature over an envelope payload.
type Signature struct {
	KeyID     string `json:"keyId,omitempty"`
	PublicKey string `json:"publicKey,omitempty"` // hex-encoded ed25519 public key
	Signature string `json:"signature"`           // hex-encoded ed25519 signature
}

// Envelope wraps a record payload with signatures. The payload is kept raw:
// its interpretation (URI string, JSON object, binary content) belongs to
// the resolution layer.
type Envelope struct {
	Signatures []Signature     `json:"signatures"`
	Payload    json.RawMessage `json:"payload"`
}

// Open unwraps one level of envelope from a stored value. This is an
// explicit two-case decision: if raw parses as a JSON object with a
// "payload" key, the payload and signatures are returned; otherwise raw
// itself is the payload. Open never recurses — an envelope whose payload is
// itself envelope-shaped yields that inner value as opaque payload bytes.
func Open(raw []byte) (payload []byte, sigs []Signature) {
	trimmed := bytes.TrimLeftFunc(raw, isJSONSpace)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw, nil
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Payload == nil {
		return raw, nil
	}

	// A JSON-string payload is the string's value, not its quoted encoding.
	var s string
	if err := json.Unmarshal(env.Payload, &s); err == nil {
		return []byte(s), env.Signatures
	}
	return env.Payload, env.Signatures
}

func isJSONSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
