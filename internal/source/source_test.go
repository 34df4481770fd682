package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) CachedSource(url string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[url]
	return b, ok, nil
}

func (c *mapCache) PutSource(url string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[url] = body
	return nil
}

func TestLocal_ReadVirtualPaths(t *testing.T) {
	t.Parallel()

	l := NewFS(fstest.MapFS{
		"src/a.ts": {Data: []byte("export const a = 1")},
	})
	ctx := context.Background()

	for _, spec := range []string{"/src/a.ts", "src/a.ts", "./src/a.ts", "/src/../src/a.ts"} {
		got, err := l.ReadText(ctx, spec)
		require.NoError(t, err, spec)
		assert.Equal(t, "export const a = 1", got)
	}

	_, err := l.ReadBinary(ctx, "/missing.ts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_DiskRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "logo.bin"), []byte{0, 1, 2}, 0o644))

	got, err := NewLocal(dir).ReadBinary(context.Background(), "/assets/logo.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, got)
}

func TestLocal_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFS(fstest.MapFS{}).ReadText(ctx, "/a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemote_FetchAndCache(t *testing.T) {
	t.Parallel()

	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		if r.URL.Path == "/missing.ts" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("export default 1"))
	}))
	defer srv.Close()

	cache := &mapCache{}
	r := NewRemote(WithHTTPClient(srv.Client()), WithCache(cache))
	ctx := context.Background()

	for range 2 {
		got, err := r.ReadText(ctx, srv.URL+"/mod.ts")
		require.NoError(t, err)
		assert.Equal(t, "export default 1", got)
	}
	mu.Lock()
	assert.Equal(t, 1, hits, "second read is served from cache")
	mu.Unlock()

	_, err := r.ReadText(ctx, srv.URL+"/missing.ts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMux_Routes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	m := &Mux{
		Local:  NewFS(fstest.MapFS{"a.txt": {Data: []byte("local")}}),
		Remote: NewRemote(WithHTTPClient(srv.Client())),
	}
	ctx := context.Background()

	got, err := m.ReadText(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "local", got)

	got, err = m.ReadText(ctx, srv.URL+"/x")
	require.NoError(t, err)
	assert.Equal(t, "remote", got)

	_, err = m.ReadBinary(ctx, "ftp://example.com/x")
	assert.ErrorIs(t, err, ErrNotFound)
}
