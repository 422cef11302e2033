// Package loader reads published artifacts at runtime. Every artifact is
// fetched compressed first and falls back to the plain file; decoded
// artifacts stay in memory until Invalidate is called.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/klauspost/compress/gzip"

	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
	"git.home.luguber.info/inful/docbundle/internal/metrics"
	"git.home.luguber.info/inful/docbundle/internal/output"
)

// maxArtifactBytes bounds a single decoded artifact.
const maxArtifactBytes = 256 << 20

// Loader serves the manifest and document content from a Source.
type Loader struct {
	source   Source
	recorder metrics.Recorder

	mu    sync.Mutex
	cache map[string]any
	gen   uint64
}

// Option customizes a Loader.
type Option func(*Loader)

// WithRecorder reports cache hits and misses to r.
func WithRecorder(r metrics.Recorder) Option { return func(l *Loader) { l.recorder = r } }

// New returns a Loader reading from source.
func New(source Source, opts ...Option) *Loader {
	l := &Loader{
		source:   source,
		recorder: metrics.NoopRecorder{},
		cache:    make(map[string]any),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source returns the underlying artifact source.
func (l *Loader) Source() Source { return l.source }

// Invalidate drops every cached artifact.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]any)
	l.gen++
	slog.Debug("Artifact cache invalidated")
}

// Manifest returns the published manifest.
func (l *Loader) Manifest(ctx context.Context) (*manifest.Manifest, error) {
	return load(ctx, l, manifest.ManifestFile, manifest.FromJSON)
}

// Document returns the metadata and content of the document with slug.
// Content comes from content.json or the document's folder chunk depending
// on the manifest mode.
func (l *Loader) Document(ctx context.Context, slug string) (manifest.DocMeta, manifest.Content, error) {
	m, err := l.Manifest(ctx)
	if err != nil {
		return manifest.DocMeta{}, manifest.Content{}, err
	}
	meta, ok := m.Lookup(slug)
	if !ok {
		return manifest.DocMeta{}, manifest.Content{}, ferrors.NotFoundError("document not found").
			WithContext("slug", slug).
			Build()
	}

	name := manifest.ContentFile
	if m.Mode == manifest.ModeFolders {
		name = manifest.ChunkFile(meta.Chunk())
	}
	contents, err := load(ctx, l, name, decodeContent)
	if err != nil {
		return manifest.DocMeta{}, manifest.Content{}, err
	}
	c, ok := contents[slug]
	if !ok {
		// Manifest and content disagree, typically mid-publish.
		return manifest.DocMeta{}, manifest.Content{}, ferrors.NewError(ferrors.CategoryRuntime, "document content missing").
			WithContext("slug", slug).
			WithContext("artifact", name).
			Retryable().
			Build()
	}
	return meta, c, nil
}

func decodeContent(data []byte) (manifest.ContentMap, error) {
	var cm manifest.ContentMap
	if err := json.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return cm, nil
}

// load returns the cached value for name or fetches and decodes it. A
// result fetched across an Invalidate is returned but not cached.
func load[T any](ctx context.Context, l *Loader, name string, decode func([]byte) (T, error)) (T, error) {
	var zero T

	l.mu.Lock()
	if v, ok := l.cache[name]; ok {
		l.mu.Unlock()
		l.recorder.IncLoaderCache(true)
		return v.(T), nil
	}
	gen := l.gen
	l.mu.Unlock()
	l.recorder.IncLoaderCache(false)

	data, err := l.fetch(ctx, name)
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			return zero, ferrors.NotFoundError("artifact not published").
				WithCause(err).
				WithContext("artifact", name).
				Build()
		}
		return zero, err
	}
	v, err := decode(data)
	if err != nil {
		return zero, ferrors.NewError(ferrors.CategoryRuntime, "artifact is corrupt").
			WithCause(err).
			WithContext("artifact", name).
			Build()
	}

	l.mu.Lock()
	if l.gen == gen {
		l.cache[name] = v
	}
	l.mu.Unlock()
	return v, nil
}

// fetch reads name+".gz" and gunzips it, falling back to the plain artifact
// when the compressed one is missing or undecodable.
func (l *Loader) fetch(ctx context.Context, name string) ([]byte, error) {
	gzName := name + output.GzipSuffix
	data, err := l.read(ctx, gzName)
	switch {
	case err == nil:
		plain, derr := gunzip(data)
		if derr == nil {
			return plain, nil
		}
		slog.Warn("Compressed artifact unreadable, using plain file",
			logfields.Artifact(gzName), logfields.Error(derr))
	case !errors.Is(err, ErrArtifactNotFound):
		return nil, err
	}

	data, err = l.read(ctx, name)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := l.source.Open(ctx, name)
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) || ctx.Err() != nil {
			return nil, err
		}
		return nil, ferrors.NetworkError("failed to open artifact").
			WithCause(err).
			WithContext("artifact", name).
			Retryable().
			Build()
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxArtifactBytes+1))
	if err != nil {
		return nil, ferrors.NetworkError("failed to read artifact").
			WithCause(err).
			WithContext("artifact", name).
			Retryable().
			Build()
	}
	if len(data) > maxArtifactBytes {
		return nil, ferrors.NewError(ferrors.CategoryRuntime, "artifact too large").
			WithContext("artifact", name).
			Build()
	}
	return data, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(io.LimitReader(zr, maxArtifactBytes+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxArtifactBytes {
		return nil, fmt.Errorf("decompressed artifact exceeds %d bytes", maxArtifactBytes)
	}
	return out, nil
}
