package chat

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFCache_PutRevokesPrevious(t *testing.T) {
	c := NewPDFCache()
	newHandle := MemoryHandles()

	first, err := newHandle("c1", []byte("%PDF-1"))
	require.NoError(t, err)
	second, err := newHandle("c1", []byte("%PDF-2"))
	require.NoError(t, err)

	require.NoError(t, c.Put("c1", first))
	require.NoError(t, c.Put("c1", second))

	got, ok := c.Get("c1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.True(t, first.Revoked())
	assert.False(t, second.Revoked())
	assert.NotEqual(t, first.URL, second.URL)
	assert.Equal(t, 1, c.Len())
}

func TestPDFCache_PutSameHandle(t *testing.T) {
	c := NewPDFCache()
	h, _ := MemoryHandles()("c1", []byte("x"))
	require.NoError(t, c.Put("c1", h))
	require.NoError(t, c.Put("c1", h))
	assert.False(t, h.Revoked())
}

func TestPDFCache_Clear(t *testing.T) {
	c := NewPDFCache()
	h, _ := MemoryHandles()("c1", []byte("x"))
	require.NoError(t, c.Put("c1", h))

	require.NoError(t, c.Clear("c1"))
	_, ok := c.Get("c1")
	assert.False(t, ok)
	assert.True(t, h.Revoked())

	_, err := h.Bytes()
	assert.ErrorIs(t, err, ErrRevoked)

	assert.NoError(t, c.Clear("missing"))
}

func TestPDFCache_Close(t *testing.T) {
	c := NewPDFCache()
	a, _ := MemoryHandles()("a", []byte("a"))
	b, _ := MemoryHandles()("b", []byte("b"))
	require.NoError(t, c.Put("b", b))
	require.NoError(t, c.Put("a", a))
	assert.Equal(t, []string{"a", "b"}, c.IDs())

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
	assert.True(t, a.Revoked())
	assert.True(t, b.Revoked())
}

func TestMemoryHandles(t *testing.T) {
	data := []byte("%PDF-1.4 body")
	h, err := MemoryHandles()("c1", data)
	require.NoError(t, err)
	data[0] = 'X'

	assert.True(t, strings.HasPrefix(h.URL, "blob:hospital-console/"))
	assert.Equal(t, len(data), h.Size)
	got, err := h.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(got))
}

func TestTempFileHandles(t *testing.T) {
	dir := t.TempDir()
	h, err := TempFileHandles(dir)("conv/1", []byte("%PDF-1.4"))
	require.NoError(t, err)

	u, err := url.Parse(h.URL)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Contains(t, u.Path, "conversation-conv_1-")

	got, err := h.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(got))

	require.NoError(t, h.Revoke())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "revoking removes the file")
	assert.NoError(t, h.Revoke())
}
