package protocol

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopysites/canopy/pkg/envelope"
	"github.com/canopysites/canopy/pkg/store"
)

func newTestResolver(t *testing.T) (*Resolver, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewResolver(s, nil), s
}

func put(t *testing.T, s *store.MemoryStore, key, value string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), key, []byte(value)))
}

func TestResolve_DirectRecord(t *testing.T) {
	r, s := newTestResolver(t)
	put(t, s, "immutable://owner/builds/b1/index.html", "<html>hi</html>")

	got, err := r.ResolveString(context.Background(), "immutable://owner/builds/b1/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>hi</html>", string(got))
}

func TestResolve_NotFound(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.ResolveString(context.Background(), "blob://missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_EnvelopeUnwrappedBeforeDispatch(t *testing.T) {
	r, s := newTestResolver(t)
	put(t, s, "link://alias", `{"signatures":[],"payload":"blob://content"}`)
	put(t, s, "blob://content", "the bytes")

	got, err := r.ResolveString(context.Background(), "link://alias")
	require.NoError(t, err)
	assert.Equal(t, "the bytes", string(got))
}

// A direct record whose value is a URI string is served verbatim; the same
// value under the link scheme is followed. The asymmetry is intentional.
func TestResolve_SchemeAsymmetry(t *testing.T) {
	r, s := newTestResolver(t)
	put(t, s, "immutable://owner/doc.txt", "blob://elsewhere")
	put(t, s, "link://alias", "blob://elsewhere")
	put(t, s, "blob://elsewhere", "followed content")

	direct, err := r.ResolveString(context.Background(), "immutable://owner/doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "blob://elsewhere", string(direct), "direct records must never be auto-followed")

	linked, err := r.ResolveString(context.Background(), "link://alias")
	require.NoError(t, err)
	assert.Equal(t, "followed content", string(linked))
}

func TestResolve_ChainedLinks(t *testing.T) {
	r, s := newTestResolver(t)
	put(t, s, "link://one", "link://two")
	put(t, s, "link://two", "blob://final")
	put(t, s, "blob://final", "payload")

	got, err := r.ResolveString(context.Background(), "link://one")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestResolve_CycleTerminatesWithLoopDetected(t *testing.T) {
	r, s := newTestResolver(t)
	put(t, s, "link://a", "link://b")
	put(t, s, "link://b", "link://a")

	_, err := r.ResolveString(context.Background(), "link://a")
	assert.ErrorIs(t, err, ErrLoopDetected)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolve_SelfLinkTerminates(t *testing.T) {
	r, s := newTestResolver(t)
	put(t, s, "link://self", "link://self")

	_, err := r.ResolveString(context.Background(), "link://self")
	assert.ErrorIs(t, err, ErrLoopDetected)
}

func TestResolve_DepthBoundIsExact(t *testing.T) {
	r, s := newTestResolver(t)
	ctx := context.Background()

	// A chain of exactly MaxLinkDepth hops resolves.
	for i := 0; i < MaxLinkDepth-1; i++ {
		put(t, s, fmt.Sprintf("link://hop/%d", i), fmt.Sprintf("link://hop/%d", i+1))
	}
	put(t, s, fmt.Sprintf("link://hop/%d", MaxLinkDepth-1), "blob://end")
	put(t, s, "blob://end", "done")

	got, err := r.ResolveString(ctx, "link://hop/0")
	require.NoError(t, err)
	assert.Equal(t, "done", string(got))

	// One extra hop pushes it over the bound.
	for i := 0; i < MaxLinkDepth; i++ {
		put(t, s, fmt.Sprintf("link://deep/%d", i), fmt.Sprintf("link://deep/%d", i+1))
	}
	put(t, s, fmt.Sprintf("link://deep/%d", MaxLinkDepth), "blob://end")

	_, err = r.ResolveString(ctx, "link://deep/0")
	assert.ErrorIs(t, err, ErrLoopDetected)
}

func TestResolve_MalformedLinkPayload(t *testing.T) {
	r, s := newTestResolver(t)
	put(t, s, "link://bad", "this is not a record uri")

	_, err := r.ResolveString(context.Background(), "link://bad")
	assert.ErrorIs(t, err, ErrMalformedLink)
}

func TestResolve_UnknownSchemeRejected(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.ResolveString(context.Background(), "gopher://old")
	assert.Error(t, err)
}

func TestResolveFile_DirectHit(t *testing.T) {
	r, s := newTestResolver(t)
	base := URI{Scheme: SchemeImmutable, Path: "owner/builds/b1"}
	put(t, s, "immutable://owner/builds/b1/app.js", "js")

	got, err := r.ResolveFile(context.Background(), base, "app.js")
	require.NoError(t, err)
	assert.Equal(t, "js", string(got))
}

func TestResolveFile_IndexRetryForExtensionlessPaths(t *testing.T) {
	r, s := newTestResolver(t)
	base := URI{Scheme: SchemeImmutable, Path: "owner/builds/b1"}
	put(t, s, "immutable://owner/builds/b1/docs/index.html", "docs index")

	got, err := r.ResolveFile(context.Background(), base, "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs index", string(got))
}

func TestResolveFile_NoIndexRetryWhenPathHasExtension(t *testing.T) {
	r, s := newTestResolver(t)
	base := URI{Scheme: SchemeImmutable, Path: "owner/builds/b1"}
	// Even if the index exists, a missing .png must not fall back to it.
	put(t, s, "immutable://owner/builds/b1/logo.png/index.html", "should not be served")

	_, err := r.ResolveFile(context.Background(), base, "logo.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveFile_RetryAlsoMissing(t *testing.T) {
	r, _ := newTestResolver(t)
	base := URI{Scheme: SchemeImmutable, Path: "owner/builds/b1"}

	_, err := r.ResolveFile(context.Background(), base, "docs")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_PinnedPublisherKeys(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	v, err := envelope.NewVerifier(map[string]string{"pub-1": hex.EncodeToString(pub)})
	require.NoError(t, err)

	s := store.NewMemoryStore()
	r := NewResolver(s, nil).WithVerifier(v)
	ctx := context.Background()

	signed := func(payload string, sig envelope.Signature) string {
		raw, err := json.Marshal(envelope.Envelope{
			Signatures: []envelope.Signature{sig},
			Payload:    json.RawMessage(strconv.Quote(payload)),
		})
		require.NoError(t, err)
		return string(raw)
	}

	good := envelope.Sign("pub-1", priv, []byte("trusted content"))
	put(t, s, "immutable://o/signed.txt", signed("trusted content", good))

	got, err := r.ResolveString(ctx, "immutable://o/signed.txt")
	require.NoError(t, err)
	assert.Equal(t, "trusted content", string(got))

	// A signature from an unknown key is rejected.
	_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	bad := envelope.Sign("pub-1", otherPriv, []byte("forged content"))
	put(t, s, "immutable://o/forged.txt", signed("forged content", bad))

	_, err = r.ResolveString(ctx, "immutable://o/forged.txt")
	assert.ErrorIs(t, err, ErrBadSignature)

	// Unsigned records still pass: signing is opt-in per record.
	put(t, s, "immutable://o/plain.txt", "plain content")
	got, err = r.ResolveString(ctx, "immutable://o/plain.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain content", string(got))
}
