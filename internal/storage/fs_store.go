package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

const metaSuffix = ".meta.json"

// FSStore is a filesystem ObjectStore. Objects are sharded by the first two
// characters of their key:
//
//	<base>/objects/ab/cd1234...
//	<base>/objects/ab/cd1234....meta.json
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSStore creates the object directory under basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	dir := filepath.Join(basePath, "objects")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return &FSStore{basePath: basePath}, nil
}

// Put stores obj unless its key already exists.
func (s *FSStore) Put(_ context.Context, obj *Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		sum := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(sum[:])
	}
	if !validKey(hash) {
		return "", fmt.Errorf("invalid object key %q", hash)
	}

	objectPath := s.objectPath(hash)
	if _, err := os.Stat(objectPath); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(objectPath), 0o750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := writeFileAtomic(objectPath, obj.Data); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	now := time.Now()
	meta := Metadata{CreatedAt: now, LastAccessed: now, Custom: map[string]string{}}
	for k, v := range obj.Metadata.Custom {
		meta.Custom[k] = v
	}
	meta.Custom["object_type"] = string(obj.Type)
	if err := s.writeMetadata(hash, meta); err != nil {
		return hash, fmt.Errorf("write metadata: %w", err)
	}
	return hash, nil
}

// Get reads an object. A missing metadata file is tolerated.
func (s *FSStore) Get(_ context.Context, hash string) (*Object, error) {
	if !validKey(hash) {
		return nil, ErrNotFound{Hash: hash}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// #nosec G304 -- path is built from a validated hex key
	data, err := os.ReadFile(s.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	meta, err := s.readMetadata(hash)
	if err != nil {
		slog.Debug("object metadata unreadable", logfields.Artifact(hash), logfields.Error(err))
		meta = Metadata{Custom: map[string]string{}}
	}

	return &Object{
		Hash:     hash,
		Type:     ObjectType(meta.Custom["object_type"]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: meta,
	}, nil
}

// Exists reports whether hash is stored.
func (s *FSStore) Exists(_ context.Context, hash string) (bool, error) {
	if !validKey(hash) {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.objectPath(hash)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// Delete removes an object and its metadata.
func (s *FSStore) Delete(_ context.Context, hash string) error {
	if !validKey(hash) {
		return ErrNotFound{Hash: hash}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteUnlocked(hash)
}

// List returns stored keys filtered by type.
func (s *FSStore) List(ctx context.Context, objectType ObjectType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listUnlocked(ctx, objectType)
}

// GC removes objects that are not in keep.
func (s *FSStore) GC(ctx context.Context, keep map[string]bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.listUnlocked(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}

	removed := 0
	for _, hash := range all {
		if keep[hash] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := s.deleteUnlocked(hash); err != nil && !IsNotFound(err) {
			return removed, fmt.Errorf("delete object %s: %w", hash, err)
		}
		removed++
	}
	return removed, nil
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error { return nil }

func (s *FSStore) listUnlocked(ctx context.Context, objectType ObjectType) ([]string, error) {
	var hashes []string
	objectsDir := filepath.Join(s.basePath, "objects")

	err := filepath.WalkDir(objectsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, metaSuffix) || strings.Contains(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(objectsDir, p)
		if err != nil {
			return nil
		}
		hash := strings.ReplaceAll(rel, string(filepath.Separator), "")

		if objectType != "" {
			if meta, err := s.readMetadata(hash); err == nil && ObjectType(meta.Custom["object_type"]) != objectType {
				return nil
			}
		}
		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk objects: %w", err)
	}
	return hashes, nil
}

func (s *FSStore) deleteUnlocked(hash string) error {
	objectPath := s.objectPath(hash)
	if err := os.Remove(objectPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{Hash: hash}
		}
		return fmt.Errorf("delete object: %w", err)
	}
	_ = os.Remove(s.metadataPath(hash))
	_ = os.Remove(filepath.Dir(objectPath)) // only succeeds when the shard is empty
	return nil
}

func (s *FSStore) objectPath(hash string) string {
	if len(hash) < 3 {
		return filepath.Join(s.basePath, "objects", hash)
	}
	return filepath.Join(s.basePath, "objects", hash[:2], hash[2:])
}

func (s *FSStore) metadataPath(hash string) string {
	return s.objectPath(hash) + metaSuffix
}

func (s *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 -- path is built from a validated hex key
	data, err := os.ReadFile(s.metadataPath(hash))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

func (s *FSStore) writeMetadata(hash string, meta Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return writeFileAtomic(s.metadataPath(hash), data)
}

// validKey accepts lower-case hex keys only, which keeps keys from escaping
// the objects directory.
func validKey(hash string) bool {
	if hash == "" {
		return false
	}
	for _, r := range hash {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
