package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docbundle/internal/config"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
	"git.home.luguber.info/inful/docbundle/internal/metrics"
	"git.home.luguber.info/inful/docbundle/internal/output"
	"git.home.luguber.info/inful/docbundle/internal/retry"
)

type cacheRecorder struct {
	metrics.NoopRecorder
	hits, misses int
}

func (r *cacheRecorder) IncLoaderCache(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func publish(t *testing.T, dir string, compress bool, buildID string) {
	t.Helper()
	w := output.NewWriter(dir, compress, false)
	m := &manifest.Manifest{
		Version: manifest.Version,
		BuildID: buildID,
		Mode:    manifest.ModeFolders,
		Docs: []manifest.DocMeta{
			{Slug: "index", Path: "index.md", Title: "Home"},
			{Slug: "guide/a", Path: "guide/a.md", Folder: "guide", Title: "A"},
		},
		Folders: []string{"_root", "guide"},
	}
	require.NoError(t, w.WriteChunk("_root", manifest.ContentMap{
		"index": {Slug: "index", HTML: "<p>home " + buildID + "</p>"},
	}))
	require.NoError(t, w.WriteChunk("guide", manifest.ContentMap{
		"guide/a": {Slug: "guide/a", HTML: "<p>a</p>", TOC: []manifest.Heading{{Level: 2, ID: "x", Text: "X"}}},
	}))
	require.NoError(t, w.WriteManifest(m))
}

func TestLoader_DocumentFromChunk(t *testing.T) {
	dir := t.TempDir()
	publish(t, dir, true, "b1")
	rec := &cacheRecorder{}
	l := New(DirSource{Dir: dir}, WithRecorder(rec))

	meta, content, err := l.Document(context.Background(), "guide/a")
	require.NoError(t, err)
	assert.Equal(t, "A", meta.Title)
	assert.Equal(t, "<p>a</p>", content.HTML)
	require.Len(t, content.TOC, 1)

	_, content, err = l.Document(context.Background(), "index")
	require.NoError(t, err)
	assert.Equal(t, "<p>home b1</p>", content.HTML)

	// manifest miss, guide miss, manifest hit, _root miss
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 3, rec.misses)
}

func TestLoader_FallsBackToPlain(t *testing.T) {
	dir := t.TempDir()
	publish(t, dir, false, "b1")
	_, err := os.Stat(filepath.Join(dir, "manifest.json.gz"))
	require.True(t, os.IsNotExist(err))

	m, err := New(DirSource{Dir: dir}).Manifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b1", m.BuildID)
}

func TestLoader_CorruptGzipFallsBack(t *testing.T) {
	dir := t.TempDir()
	publish(t, dir, true, "b1")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json.gz"), []byte("not gzip"), 0o644))

	m, err := New(DirSource{Dir: dir}).Manifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b1", m.BuildID)
}

func TestLoader_NotFound(t *testing.T) {
	dir := t.TempDir()
	l := New(DirSource{Dir: dir})

	_, err := l.Manifest(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	publish(t, dir, true, "b1")
	_, _, err = l.Document(context.Background(), "missing")
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestLoader_MissingChunkContent(t *testing.T) {
	dir := t.TempDir()
	publish(t, dir, false, "b1")
	require.NoError(t, output.NewWriter(dir, false, false).WriteChunk("guide", manifest.ContentMap{}))

	_, _, err := New(DirSource{Dir: dir}).Document(context.Background(), "guide/a")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}

func TestLoader_Invalidate(t *testing.T) {
	dir := t.TempDir()
	publish(t, dir, true, "b1")
	l := New(DirSource{Dir: dir})

	m, err := l.Manifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b1", m.BuildID)

	publish(t, dir, true, "b2")
	m, err = l.Manifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b1", m.BuildID, "served from cache")

	l.Invalidate()
	m, err = l.Manifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b2", m.BuildID)
	_, content, err := l.Document(context.Background(), "index")
	require.NoError(t, err)
	assert.Equal(t, "<p>home b2</p>", content.HTML)
}

func TestHTTPSource(t *testing.T) {
	dir := t.TempDir()
	publish(t, dir, true, "b1")

	var (
		mu        sync.Mutex
		requested []string
	)
	srv := httptest.NewServer(http.StripPrefix("/docs", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()
		http.FileServer(http.Dir(dir)).ServeHTTP(w, r)
	})))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/docs/", srv.Client())
	require.NoError(t, err)
	l := New(src)

	meta, content, err := l.Document(context.Background(), "guide/a")
	require.NoError(t, err)
	assert.Equal(t, "guide", meta.Folder)
	assert.Equal(t, "<p>a</p>", content.HTML)
	assert.Equal(t, []string{"/manifest.json.gz", "/content/guide.json.gz"}, requested)

	_, err = src.Open(context.Background(), "nope.json")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/forbidden.json":
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		case calls.Add(1) < 3:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	policy := retry.Policy{Mode: config.RetryBackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 3}
	src, err := NewHTTPSource(srv.URL, srv.Client(), WithRetry(policy))
	require.NoError(t, err)

	rc, err := src.Open(context.Background(), "manifest.json")
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	_, err = src.Open(context.Background(), "forbidden.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactNotFound)
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestNewHTTPSource_RejectsScheme(t *testing.T) {
	_, err := NewHTTPSource("ftp://example.com/docs", nil)
	assert.Error(t, err)
}

func TestDirSource_RejectsTraversal(t *testing.T) {
	_, err := DirSource{Dir: t.TempDir()}.Open(context.Background(), "../secret.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactNotFound)
}
