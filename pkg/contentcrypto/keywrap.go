package contentcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// ContentKeySize is the size of a symmetric content key (AES-256).
	ContentKeySize = 32

	// NonceSize is the AES-GCM nonce size used throughout the protocol.
	NonceSize = 12

	ephemeralKeySize = 32

	// keyWrapInfo is the protocol-wide HKDF context string. It is fixed so
	// that any two conforming implementations derive the same key-encryption
	// key from the same ECDH inputs.
	keyWrapInfo = "canopy/content-key/v1"
)

var (
	// ErrUnwrapFailed reports that a wrapped key could not be unwrapped —
	// wrong host key, truncated data, or a failed integrity check.
	ErrUnwrapFailed = errors.New("contentcrypto: key unwrap failed")

	// ErrDecryptFailed reports an AEAD integrity failure on content.
	// Partial plaintext is never returned.
	ErrDecryptFailed = errors.New("contentcrypto: content decryption failed")
)

// WrapContentKey encrypts a symmetric content key to a host's X25519 public
// key. Output layout: ephemeralPublicKey(32) ‖ nonce(12) ‖ ciphertext.
// Used by publisher tooling; the gateway only unwraps.
func WrapContentKey(contentKey, hostPublicKey []byte) ([]byte, error) {
	if len(contentKey) != ContentKeySize {
		return nil, fmt.Errorf("contentcrypto: content key must be %d bytes, got %d", ContentKeySize, len(contentKey))
	}
	hostPub, err := ecdh.X25519().NewPublicKey(hostPublicKey)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: invalid host public key: %w", err)
	}

	ephemeral, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: generate ephemeral key: %w", err)
	}
	shared, err := ephemeral.ECDH(hostPub)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: ECDH: %w", err)
	}

	kek, err := deriveKEK(shared)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("contentcrypto: generate nonce: %w", err)
	}

	out := make([]byte, 0, ephemeralKeySize+NonceSize+len(contentKey)+aead.Overhead())
	out = append(out, ephemeral.PublicKey().Bytes()...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, contentKey, nil)
	return out, nil
}

// UnwrapContentKey recovers a content key wrapped for this host. The
// embedded ephemeral public key is combined with the host's private key via
// X25519, the key-encryption key is derived with HKDF-SHA256 under the
// fixed protocol context string, and the ciphertext is opened with
// AES-256-GCM. Any failure is ErrUnwrapFailed — a wrong key never yields
// wrong plaintext.
func (k *HostKey) UnwrapContentKey(wrapped []byte) ([]byte, error) {
	if len(wrapped) < ephemeralKeySize+NonceSize+1 {
		return nil, fmt.Errorf("%w: wrapped key too short (%d bytes)", ErrUnwrapFailed, len(wrapped))
	}

	ephPub, err := ecdh.X25519().NewPublicKey(wrapped[:ephemeralKeySize])
	if err != nil {
		return nil, fmt.Errorf("%w: bad ephemeral key: %v", ErrUnwrapFailed, err)
	}
	shared, err := k.priv.ECDH(ephPub)
	if err != nil {
		return nil, fmt.Errorf("%w: ECDH: %v", ErrUnwrapFailed, err)
	}

	kek, err := deriveKEK(shared)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(kek)
	if err != nil {
		return nil, err
	}

	nonce := wrapped[ephemeralKeySize : ephemeralKeySize+NonceSize]
	contentKey, err := aead.Open(nil, nonce, wrapped[ephemeralKeySize+NonceSize:], nil)
	if err != nil {
		return nil, ErrUnwrapFailed
	}
	if len(contentKey) != ContentKeySize {
		return nil, fmt.Errorf("%w: unwrapped key has size %d", ErrUnwrapFailed, len(contentKey))
	}
	return contentKey, nil
}

// deriveKEK derives the 256-bit key-encryption key from an ECDH shared
// secret with HKDF-SHA256 under the protocol context string.
func deriveKEK(shared []byte) ([]byte, error) {
	kek := make([]byte, ContentKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte(keyWrapInfo)), kek); err != nil {
		return nil, fmt.Errorf("contentcrypto: derive KEK: %w", err)
	}
	return kek, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: create GCM: %w", err)
	}
	return aead, nil
}
