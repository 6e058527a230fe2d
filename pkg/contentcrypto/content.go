package contentcrypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/canopysites/canopy/pkg/manifest"
)

// ErrNoKeyForHost reports that an encrypted build carries no wrapped key
// applicable to this gateway's host key. Decryption fails closed.
var ErrNoKeyForHost = fmt.Errorf("contentcrypto: no wrapped key for this host")

// EncryptContent encrypts plaintext with a content key.
// Output layout: nonce(12) ‖ AES-256-GCM ciphertext. Publisher-side.
func EncryptContent(plaintext, contentKey []byte) ([]byte, error) {
	aead, err := newGCM(contentKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("contentcrypto: generate nonce: %w", err)
	}
	out := make([]byte, 0, NonceSize+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// DecryptContent decrypts nonce(12) ‖ ciphertext with a content key.
// A failed integrity check is ErrDecryptFailed, never partial plaintext.
func DecryptContent(data, contentKey []byte) ([]byte, error) {
	if len(data) < NonceSize+1 {
		return nil, fmt.Errorf("%w: payload too short (%d bytes)", ErrDecryptFailed, len(data))
	}
	aead, err := newGCM(contentKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Decryptor decrypts build content using the gateway's host key.
type Decryptor struct {
	hostKey *HostKey
}

// NewDecryptor creates a decryptor for a host key. A nil host key produces
// a decryptor that passes unencrypted content through and fails closed on
// anything encrypted.
func NewDecryptor(hostKey *HostKey) *Decryptor {
	return &Decryptor{hostKey: hostKey}
}

// Decrypt applies a build's encryption config to fetched content. When
// encryption is disabled the input is returned unchanged, byte for byte.
// Otherwise the wrapped key for this host is located — the multi-host map
// first, then the legacy single-key fields, in that precedence order —
// unwrapped, and used to decrypt.
func (d *Decryptor) Decrypt(data []byte, enc *manifest.EncryptionConfig) ([]byte, error) {
	if enc == nil || !enc.Enabled {
		return data, nil
	}
	if d.hostKey == nil {
		return nil, fmt.Errorf("%w: gateway has no host key", ErrNoKeyForHost)
	}

	wrappedB64, err := d.wrappedKeyFor(enc)
	if err != nil {
		return nil, err
	}
	wrapped, err := base64.StdEncoding.DecodeString(wrappedB64)
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped key is not valid base64: %v", ErrUnwrapFailed, err)
	}

	contentKey, err := d.hostKey.UnwrapContentKey(wrapped)
	if err != nil {
		return nil, err
	}
	return DecryptContent(data, contentKey)
}

func (d *Decryptor) wrappedKeyFor(enc *manifest.EncryptionConfig) (string, error) {
	hostID := d.hostKey.PublicKeyID()

	if wrapped, ok := enc.WrappedKeys[hostID]; ok {
		return wrapped, nil
	}
	if enc.WrappedKey != "" && (enc.HostKey == "" || enc.HostKey == hostID) {
		return enc.WrappedKey, nil
	}
	return "", fmt.Errorf("%w: host %s", ErrNoKeyForHost, hostID)
}
