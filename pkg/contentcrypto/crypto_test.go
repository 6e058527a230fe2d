package contentcrypto

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopysites/canopy/pkg/manifest"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, ContentKeySize)
	_, err := io.ReadFull(rand.Reader, key)
	require.NoError(t, err)
	return key
}

func TestKeyWrap_RoundTrip(t *testing.T) {
	host, err := GenerateHostKey()
	require.NoError(t, err)
	contentKey := randomKey(t)

	wrapped, err := WrapContentKey(contentKey, host.PublicKey())
	require.NoError(t, err)
	assert.NotContains(t, string(wrapped), string(contentKey))

	unwrapped, err := host.UnwrapContentKey(wrapped)
	require.NoError(t, err)
	assert.Equal(t, contentKey, unwrapped, "round trip must recover the exact key bytes")
}

func TestKeyWrap_WrongHostKeyFails(t *testing.T) {
	hostA, err := GenerateHostKey()
	require.NoError(t, err)
	hostB, err := GenerateHostKey()
	require.NoError(t, err)

	wrapped, err := WrapContentKey(randomKey(t), hostA.PublicKey())
	require.NoError(t, err)

	_, err = hostB.UnwrapContentKey(wrapped)
	assert.ErrorIs(t, err, ErrUnwrapFailed, "a different private key must fail, never yield wrong bytes")
}

func TestKeyWrap_TruncatedInput(t *testing.T) {
	host, err := GenerateHostKey()
	require.NoError(t, err)

	_, err = host.UnwrapContentKey([]byte("short"))
	assert.ErrorIs(t, err, ErrUnwrapFailed)
}

func TestContent_RoundTrip(t *testing.T) {
	key := randomKey(t)
	plaintext := []byte("<html><body>secret page</body></html>")

	ct, err := EncryptContent(plaintext, key)
	require.NoError(t, err)

	pt, err := DecryptContent(ct, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)
}

// Flipping any single bit of the payload must fail decryption outright.
func TestContent_BitFlipIntegrity(t *testing.T) {
	key := randomKey(t)
	ct, err := EncryptContent([]byte("integrity matters"), key)
	require.NoError(t, err)

	for i := range ct {
		corrupted := make([]byte, len(ct))
		copy(corrupted, ct)
		corrupted[i] ^= 0x01

		_, err := DecryptContent(corrupted, key)
		assert.ErrorIs(t, err, ErrDecryptFailed, "bit flip at byte %d", i)
	}
}

func TestDecryptor_PassThroughWhenDisabled(t *testing.T) {
	d := NewDecryptor(nil)
	data := []byte{0x00, 0x01, 0x02, 0xff}

	got, err := d.Decrypt(data, nil)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	got, err = d.Decrypt(data, &manifest.EncryptionConfig{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecryptor_MultiHostKeySelection(t *testing.T) {
	hostA, err := GenerateHostKey()
	require.NoError(t, err)
	hostB, err := GenerateHostKey()
	require.NoError(t, err)

	contentKey := randomKey(t)
	wrappedA, err := WrapContentKey(contentKey, hostA.PublicKey())
	require.NoError(t, err)
	wrappedB, err := WrapContentKey(contentKey, hostB.PublicKey())
	require.NoError(t, err)

	enc := &manifest.EncryptionConfig{
		Enabled: true,
		WrappedKeys: map[string]string{
			hostA.PublicKeyID(): base64.StdEncoding.EncodeToString(wrappedA),
			hostB.PublicKeyID(): base64.StdEncoding.EncodeToString(wrappedB),
		},
	}

	ct, err := EncryptContent([]byte("shared content"), contentKey)
	require.NoError(t, err)

	// A gateway holding only B's private key decrypts via B's entry.
	pt, err := NewDecryptor(hostB).Decrypt(ct, enc)
	require.NoError(t, err)
	assert.Equal(t, "shared content", string(pt))

	// With only A's entry present, the same gateway fails closed.
	encOnlyA := &manifest.EncryptionConfig{
		Enabled: true,
		WrappedKeys: map[string]string{
			hostA.PublicKeyID(): base64.StdEncoding.EncodeToString(wrappedA),
		},
	}
	_, err = NewDecryptor(hostB).Decrypt(ct, encOnlyA)
	assert.ErrorIs(t, err, ErrNoKeyForHost)
}

func TestDecryptor_LegacySingleKeyFields(t *testing.T) {
	host, err := GenerateHostKey()
	require.NoError(t, err)
	contentKey := randomKey(t)

	wrapped, err := WrapContentKey(contentKey, host.PublicKey())
	require.NoError(t, err)
	ct, err := EncryptContent([]byte("legacy build"), contentKey)
	require.NoError(t, err)

	enc := &manifest.EncryptionConfig{
		Enabled:    true,
		WrappedKey: base64.StdEncoding.EncodeToString(wrapped),
		HostKey:    host.PublicKeyID(),
	}

	pt, err := NewDecryptor(host).Decrypt(ct, enc)
	require.NoError(t, err)
	assert.Equal(t, "legacy build", string(pt))

	// A legacy key pinned to a different host does not apply.
	enc.HostKey = "someone-else"
	_, err = NewDecryptor(host).Decrypt(ct, enc)
	assert.ErrorIs(t, err, ErrNoKeyForHost)
}

// The multi-host map takes precedence over the legacy fields.
func TestDecryptor_MapBeatsLegacyField(t *testing.T) {
	host, err := GenerateHostKey()
	require.NoError(t, err)
	contentKey := randomKey(t)

	wrapped, err := WrapContentKey(contentKey, host.PublicKey())
	require.NoError(t, err)
	ct, err := EncryptContent([]byte("payload"), contentKey)
	require.NoError(t, err)

	enc := &manifest.EncryptionConfig{
		Enabled: true,
		WrappedKeys: map[string]string{
			host.PublicKeyID(): base64.StdEncoding.EncodeToString(wrapped),
		},
		// Garbage in the legacy field must be ignored when the map applies.
		WrappedKey: base64.StdEncoding.EncodeToString([]byte("garbage garbage garbage garbage garbage!")),
	}

	pt, err := NewDecryptor(host).Decrypt(ct, enc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(pt))
}

func TestHostKey_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "host.json")

	first, err := LoadHostKey(path)
	require.NoError(t, err)

	second, err := LoadHostKey(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKeyID(), second.PublicKeyID())
}
