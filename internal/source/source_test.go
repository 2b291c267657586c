package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/br-emissions/internal/cache/redisstore"
)

const csvBody = "Estado,2020,2021\nAcre,10,15\n"

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "seeg.csv")
	require.NoError(t, os.WriteFile(p, []byte(csvBody), 0o600))

	f := New()
	b, err := f.Fetch(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(b))

	b, err = f.Fetch(context.Background(), "file://"+p)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(b))
}

func TestFetch_MissingFile(t *testing.T) {
	_, err := New().Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/seeg.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	f := New(WithHTTPClient(srv.Client()))
	b, err := f.Fetch(context.Background(), srv.URL+"/seeg.csv")
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(b))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := New(WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetch_MirrorServesSecondRead(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	rc, err := redisstore.New(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	f := New(WithHTTPClient(srv.Client()), WithMirror(rc, time.Minute))
	for range 3 {
		b, err := f.Fetch(ctx, srv.URL+"/seeg.csv")
		require.NoError(t, err)
		assert.Equal(t, csvBody, string(b))
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Len(t, mr.Keys(), 1)
}

func TestFetch_MirrorDownFallsBackToOrigin(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	rc, err := redisstore.New(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	mr.Close()

	p := filepath.Join(t.TempDir(), "seeg.csv")
	require.NoError(t, os.WriteFile(p, []byte(csvBody), 0o600))

	b, err := New(WithMirror(rc, 0)).Fetch(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(b))
}

func TestOrigin(t *testing.T) {
	cases := map[string]string{
		"https://example.org/br_states.json": "http",
		"http://localhost:8080/seeg.csv":     "http",
		"data/seeg.csv":                      "file",
		"file:///tmp/seeg.csv":               "file",
		`C:\data\seeg.csv`:                   "file",
	}
	for in, want := range cases {
		assert.Equal(t, want, Origin(in), in)
	}
}
