package envelope

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// Verifier checks envelope signatures against a set of trusted publisher
// keys. Verification is optional at the resolution layer; deployments that
// pin publisher keys enable it at the gateway.
type Verifier struct {
	keys map[string]ed25519.PublicKey // keyID -> key
}

// NewVerifier creates a verifier from hex-encoded ed25519 public keys,
// keyed by key ID.
func NewVerifier(trusted map[string]string) (*Verifier, error) {
	keys := make(map[string]ed25519.PublicKey, len(trusted))
	for id, pubHex := range trusted {
		pub, err := hex.DecodeString(pubHex)
		if err != nil {
			return nil, fmt.Errorf("envelope: invalid public key hex for %q: %w", id, err)
		}
		if len(pub) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("envelope: invalid public key size for %q: %d", id, len(pub))
		}
		keys[id] = ed25519.PublicKey(pub)
	}
	return &Verifier{keys: keys}, nil
}

// Verify reports whether at least one signature over payload was produced
// by a trusted key. An empty signature list never verifies.
func (v *Verifier) Verify(payload []byte, sigs []Signature) bool {
	for _, sig := range sigs {
		pub, ok := v.keys[sig.KeyID]
		if !ok {
			continue
		}
		raw, err := hex.DecodeString(sig.Signature)
		if err != nil {
			continue
		}
		if ed25519.Verify(pub, payload, raw) {
			return true
		}
	}
	return false
}

// Sign produces a detached signature over payload. Used by publisher
// tooling and tests; the gateway itself never signs.
func Sign(keyID string, priv ed25519.PrivateKey, payload []byte) Signature {
	return Signature{
		KeyID:     keyID,
		PublicKey: hex.EncodeToString(priv.Public().(ed25519.PublicKey)),
		Signature: hex.EncodeToString(ed25519.Sign(priv, payload)),
	}
}
