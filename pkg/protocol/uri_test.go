package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    URI
		wantErr bool
	}{
		{in: "mutable://owner/current", want: URI{Scheme: SchemeMutable, Path: "owner/current"}},
		{in: "immutable://owner/builds/b1/manifest.json", want: URI{Scheme: SchemeImmutable, Path: "owner/builds/b1/manifest.json"}},
		{in: "link://aliases/www", want: URI{Scheme: SchemeLink, Path: "aliases/www"}},
		{in: "blob://sha256/abcdef", want: URI{Scheme: SchemeBlob, Path: "sha256/abcdef"}},
		{in: "ftp://nope", wantErr: true},
		{in: "not-a-uri", wantErr: true},
		{in: "mutable://", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestURI_Join(t *testing.T) {
	base := URI{Scheme: SchemeImmutable, Path: "owner/builds/b1"}
	assert.Equal(t, "immutable://owner/builds/b1/index.html", base.Join("index.html").String())
	assert.Equal(t, "immutable://owner/builds/b1/a/b.css", base.Join("/a/b.css").String())

	trailing := URI{Scheme: SchemeImmutable, Path: "owner/builds/b1/"}
	assert.Equal(t, "immutable://owner/builds/b1/x", trailing.Join("x").String())
}
