// Package contentcrypto implements the content encryption layer: X25519
// key wrapping of symmetric content keys, AES-256-GCM content decryption,
// and the gateway's host keystore.
//
// A content key is wrapped independently for each gateway host: holders of
// one wrapped copy cannot derive another host's private key from it.
package contentcrypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// HostKey is a gateway's X25519 identity for content decryption.
type HostKey struct {
	priv *ecdh.PrivateKey
}

// keystoreFile is the on-disk JSON format for a host key.
type keystoreFile struct {
	PublicKey  string `json:"public_key"`  // base64 X25519 public key
	PrivateKey string `json:"private_key"` // base64 X25519 private key
}

// GenerateHostKey creates a fresh X25519 host keypair.
func GenerateHostKey() (*HostKey, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: generate host key: %w", err)
	}
	return &HostKey{priv: priv}, nil
}

// HostKeyFromBytes restores a host key from raw X25519 private key bytes.
func HostKeyFromBytes(raw []byte) (*HostKey, error) {
	priv, err := ecdh.X25519().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: invalid host private key: %w", err)
	}
	return &HostKey{priv: priv}, nil
}

// PublicKey returns the raw 32-byte X25519 public key.
func (k *HostKey) PublicKey() []byte {
	return k.priv.PublicKey().Bytes()
}

// PublicKeyID returns the base64 public key string used to index the
// manifest's wrappedKeys map.
func (k *HostKey) PublicKeyID() string {
	return base64.StdEncoding.EncodeToString(k.PublicKey())
}

// LoadHostKey reads a host key from path, generating and persisting a new
// one if the file does not exist.
func LoadHostKey(path string) (*HostKey, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		key, err := GenerateHostKey()
		if err != nil {
			return nil, err
		}
		if err := key.Save(path); err != nil {
			return nil, err
		}
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: read keystore: %w", err)
	}

	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("contentcrypto: parse keystore: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ks.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("contentcrypto: decode private key: %w", err)
	}
	return HostKeyFromBytes(raw)
}

// Save persists the host key as 0600 JSON at path, creating parent
// directories as needed.
func (k *HostKey) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("contentcrypto: create keystore dir: %w", err)
	}
	data, err := json.MarshalIndent(keystoreFile{
		PublicKey:  k.PublicKeyID(),
		PrivateKey: base64.StdEncoding.EncodeToString(k.priv.Bytes()),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("contentcrypto: encode keystore: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("contentcrypto: write keystore: %w", err)
	}
	return nil
}
