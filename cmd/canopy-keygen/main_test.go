package main

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopysites/canopy/pkg/contentcrypto"
)

func TestRun_NoArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"canopy-keygen"}, &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "Usage")
}

func TestRun_Host_CreatesAndReprints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.key")

	var out1 bytes.Buffer
	code := run([]string{"canopy-keygen", "host", "-file", path}, &out1, &out1)
	require.Equal(t, 0, code)

	// Second invocation loads the same key.
	var out2 bytes.Buffer
	code = run([]string{"canopy-keygen", "host", "-file", path}, &out2, &out2)
	require.Equal(t, 0, code)
	assert.Equal(t, out1.String(), out2.String())
}

func TestRun_Publisher(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"canopy-keygen", "publisher"}, &out, &errOut)
	require.Equal(t, 0, code)
	assert.Regexp(t, regexp.MustCompile(`public key:\s+[0-9a-f]{64}`), out.String())
	assert.Regexp(t, regexp.MustCompile(`private key:\s+[0-9a-f]{128}`), out.String())
}

func TestRun_Wrap_RoundTrips(t *testing.T) {
	hostKey, err := contentcrypto.GenerateHostKey()
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	code := run([]string{"canopy-keygen", "wrap", "-host", hostKey.PublicKeyID()}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	m := regexp.MustCompile(`wrapped:\s+(\S+)`).FindStringSubmatch(out.String())
	require.Len(t, m, 2)
	wrapped, err := base64.StdEncoding.DecodeString(m[1])
	require.NoError(t, err)

	contentKey, err := hostKey.UnwrapContentKey(wrapped)
	require.NoError(t, err)
	assert.Len(t, contentKey, contentcrypto.ContentKeySize)
}

func TestRun_Wrap_RequiresHost(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run([]string{"canopy-keygen", "wrap"}, &out, &errOut)
	assert.Equal(t, 2, code)
}
