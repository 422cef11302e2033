// Package output writes build artifacts to the output directory. Every file
// is replaced atomically and, when compression is enabled, accompanied by a
// gzip sibling with the same name plus ".gz".
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

// GzipSuffix is appended to compressed artifact names.
const GzipSuffix = ".gz"

// Writer writes manifest and content artifacts under a directory.
type Writer struct {
	dir      string
	compress bool
	pretty   bool

	written int64
}

// NewWriter creates a writer for dir.
func NewWriter(dir string, compress, pretty bool) *Writer {
	return &Writer{dir: dir, compress: compress, pretty: pretty}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// BytesWritten returns the total bytes written, compressed siblings included.
func (w *Writer) BytesWritten() int64 { return w.written }

// WriteManifest writes manifest.json. Callers write it after all content
// so a reader never sees a manifest referencing missing chunks.
func (w *Writer) WriteManifest(m *manifest.Manifest) error {
	data, err := m.ToJSON(w.pretty)
	if err != nil {
		return err
	}
	return w.writeArtifact(manifest.ManifestFile, data)
}

// WriteContent writes content.json (single mode).
func (w *Writer) WriteContent(content manifest.ContentMap) error {
	return w.writeJSON(manifest.ContentFile, content)
}

// WriteChunk writes content/<chunk>.json (folders mode).
func (w *Writer) WriteChunk(chunk string, content manifest.ContentMap) error {
	return w.writeJSON(manifest.ChunkFile(chunk), content)
}

// RemoveChunk deletes a chunk and its gzip sibling. Missing files are ignored.
func (w *Writer) RemoveChunk(chunk string) error {
	return w.removeArtifact(manifest.ChunkFile(chunk))
}

// RemoveContent deletes content.json and its gzip sibling.
func (w *Writer) RemoveContent() error {
	return w.removeArtifact(manifest.ContentFile)
}

// PruneChunks removes every chunk file whose name is not in keep.
func (w *Writer) PruneChunks(keep []string) ([]string, error) {
	want := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		want[k] = struct{}{}
	}

	entries, err := os.ReadDir(filepath.Join(w.dir, manifest.ChunkDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chunk directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), GzipSuffix)
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		chunk := strings.TrimSuffix(name, ".json")
		if _, ok := want[chunk]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, manifest.ChunkDir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove stale chunk %s: %w", e.Name(), err)
		}
		if !strings.HasSuffix(e.Name(), GzipSuffix) {
			removed = append(removed, chunk)
		}
	}
	return removed, nil
}

// ReadManifest loads the previous manifest. A missing file returns
// (nil, nil); an unreadable one returns an error.
func (w *Writer) ReadManifest() (*manifest.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, manifest.ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return manifest.FromJSON(data)
}

// ReadContent loads content.json; a missing file yields an empty map.
func (w *Writer) ReadContent() (manifest.ContentMap, error) {
	return w.readContentMap(manifest.ContentFile)
}

// Exists reports whether the artifact name exists in plain form.
func (w *Writer) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(w.dir, filepath.FromSlash(name)))
	return err == nil
}

func (w *Writer) readContentMap(name string) (manifest.ContentMap, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, filepath.FromSlash(name)))
	if err != nil {
		if os.IsNotExist(err) {
			return manifest.ContentMap{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	content := manifest.ContentMap{}
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return content, nil
}

func (w *Writer) writeJSON(name string, v any) error {
	var (
		data []byte
		err  error
	)
	if w.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return w.writeArtifact(name, data)
}

func (w *Writer) writeArtifact(name string, data []byte) error {
	target := filepath.Join(w.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}

	if w.compress {
		gz, err := Compress(data)
		if err != nil {
			return fmt.Errorf("compress %s: %w", name, err)
		}
		if err := writeAtomic(target+GzipSuffix, gz); err != nil {
			return fmt.Errorf("write %s%s: %w", name, GzipSuffix, err)
		}
		w.written += int64(len(gz))
	} else if err := os.Remove(target + GzipSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale %s%s: %w", name, GzipSuffix, err)
	}

	if err := writeAtomic(target, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	w.written += int64(len(data))
	return nil
}

func (w *Writer) removeArtifact(name string) error {
	target := filepath.Join(w.dir, filepath.FromSlash(name))
	var errs []error
	for _, p := range []string{target, target + GzipSuffix} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Compress gzips data at best compression.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
