package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReadWrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Read(ctx, "mutable://missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Put(ctx, "mutable://owner/current", []byte("hello")))

	got, err := s.Read(ctx, "mutable://owner/current")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	ok, err := s.Exists(ctx, "mutable://owner/current")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_ReadReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "blob://k", []byte("abc")))
	got, err := s.Read(ctx, "blob://k")
	require.NoError(t, err)

	got[0] = 'x'
	again, err := s.Read(ctx, "blob://k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestRemoteStore_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s, err := NewRemoteStore(RemoteStoreConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "mutable://owner/current")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, int32(1), hits.Load(), "404 must map to ErrKeyNotFound without retrying")
}

func TestRemoteStore_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	s, err := NewRemoteStore(RemoteStoreConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	got, err := s.Read(context.Background(), "blob://k")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRemoteStore_PutRoundTrip(t *testing.T) {
	backing := map[string][]byte{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			buf, _ := io.ReadAll(r.Body)
			backing[r.URL.Path] = buf
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			v, ok := backing[r.URL.Path]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(v)
		}
	}))
	defer srv.Close()

	s, err := NewRemoteStore(RemoteStoreConfig{Endpoint: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "immutable://o/builds/b1/index.html", []byte("<html>")))

	got, err := s.Read(ctx, "immutable://o/builds/b1/index.html")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>"), got)
}

func TestFromConfig_Defaults(t *testing.T) {
	s, err := FromConfig(context.Background(), Config{})
	require.NoError(t, err)
	_, ok := s.(*MemoryStore)
	assert.True(t, ok)

	_, err = FromConfig(context.Background(), Config{Type: "bogus"})
	assert.Error(t, err)
}
