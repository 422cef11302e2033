// Package manifest defines the build artifacts shared by the build pipeline
// and the runtime loader: per-document metadata, the global manifest and the
// content records stored in content.json or per-folder chunks.
package manifest

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// Version is the manifest schema version written into every manifest.
const Version = 1

// Mode selects how rendered content is laid out on disk.
type Mode string

const (
	ModeSingle  Mode = "single"
	ModeFolders Mode = "folders"
)

// RootChunk is the chunk name for documents that live at the top of the tree.
const RootChunk = "_root"

// Artifact names.
const (
	ManifestFile = "manifest.json"
	ContentFile  = "content.json"
	ChunkDir     = "content"
)

// DocMeta is the per-document record kept in the manifest.
type DocMeta struct {
	Slug        string         `json:"slug"`
	Path        string         `json:"path"`
	Folder      string         `json:"folder"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Order       *float64       `json:"order,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Date        string         `json:"date,omitempty"`
	Draft       bool           `json:"draft,omitempty"`
	Hidden      bool           `json:"hidden,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	ModTime     int64          `json:"mtime"`
	Size        int64          `json:"size"`
	Fingerprint string         `json:"fingerprint,omitempty"`
}

// Chunk returns the name of the content chunk holding this document.
func (d DocMeta) Chunk() string {
	return ChunkName(d.Folder)
}

// Manifest is the global index of a build.
type Manifest struct {
	Version     int       `json:"version"`
	BuildID     string    `json:"build_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Mode        Mode      `json:"mode"`
	OptionsHash string    `json:"options_hash"`
	Revision    string    `json:"revision,omitempty"`
	Docs        []DocMeta `json:"docs"`
	Folders     []string  `json:"folders,omitempty"`

	// Excluded records files skipped by the build (drafts) so that an
	// unchanged draft does not look like a new file next time.
	Excluded []FileStamp `json:"excluded,omitempty"`
}

// FileStamp identifies a source file version by modification time and size.
type FileStamp struct {
	Path    string `json:"path"`
	ModTime int64  `json:"mtime"`
	Size    int64  `json:"size"`
}

// Heading is one table-of-contents entry.
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// Content is the rendered body of one document.
type Content struct {
	Slug string    `json:"slug"`
	HTML string    `json:"html"`
	TOC  []Heading `json:"toc,omitempty"`
}

// ContentMap is the on-disk shape of content.json and of every chunk.
type ContentMap map[string]Content

// ChunkName maps a folder to its chunk name; root documents go to RootChunk.
func ChunkName(folder string) string {
	if folder == "" {
		return RootChunk
	}
	return folder
}

// ChunkFile returns the slash-separated artifact path for a folder chunk.
func ChunkFile(chunk string) string {
	return path.Join(ChunkDir, chunk+".json")
}

// ToJSON serializes the manifest.
func (m *Manifest) ToJSON(pretty bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(m, "", "  ")
	} else {
		data, err = json.Marshal(m)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m.Mode != ModeSingle && m.Mode != ModeFolders {
		return nil, fmt.Errorf("unmarshal manifest: unknown mode %q", m.Mode)
	}
	return &m, nil
}

// Sort orders docs by folder (root first), order, title and slug.
// Documents without an explicit order come after ordered ones.
func Sort(docs []DocMeta) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.Folder != b.Folder {
			if a.Folder == "" || b.Folder == "" {
				return a.Folder == ""
			}
			return a.Folder < b.Folder
		}
		switch {
		case a.Order != nil && b.Order == nil:
			return true
		case a.Order == nil && b.Order != nil:
			return false
		case a.Order != nil && b.Order != nil && *a.Order != *b.Order:
			return *a.Order < *b.Order
		}
		if ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title); ta != tb {
			return ta < tb
		}
		return a.Slug < b.Slug
	})
}

// Index returns docs keyed by slug.
func (m *Manifest) Index() map[string]DocMeta {
	idx := make(map[string]DocMeta, len(m.Docs))
	for _, d := range m.Docs {
		idx[d.Slug] = d
	}
	return idx
}

// ByPath returns docs keyed by their relative source path.
func (m *Manifest) ByPath() map[string]DocMeta {
	idx := make(map[string]DocMeta, len(m.Docs))
	for _, d := range m.Docs {
		idx[d.Path] = d
	}
	return idx
}

// Lookup finds a document by slug.
func (m *Manifest) Lookup(slug string) (DocMeta, bool) {
	for _, d := range m.Docs {
		if d.Slug == slug {
			return d, true
		}
	}
	return DocMeta{}, false
}

// ChunkNames returns the sorted set of chunks referenced by the docs.
func (m *Manifest) ChunkNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, d := range m.Docs {
		c := d.Chunk()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Validate checks slug uniqueness and, in folders mode, that every
// document's chunk is listed in Folders exactly once.
func (m *Manifest) Validate() error {
	slugs := make(map[string]string, len(m.Docs))
	for _, d := range m.Docs {
		if d.Slug == "" {
			return fmt.Errorf("document %s has an empty slug", d.Path)
		}
		if prev, ok := slugs[d.Slug]; ok {
			return fmt.Errorf("duplicate slug %q: %s and %s", d.Slug, prev, d.Path)
		}
		slugs[d.Slug] = d.Path
	}

	if m.Mode != ModeFolders {
		if len(m.Folders) > 0 {
			return fmt.Errorf("folders listed in %s mode", m.Mode)
		}
		return nil
	}

	listed := make(map[string]int, len(m.Folders))
	for _, f := range m.Folders {
		listed[f]++
		if listed[f] > 1 {
			return fmt.Errorf("folder %q listed more than once", f)
		}
	}
	for _, d := range m.Docs {
		if listed[d.Chunk()] == 0 {
			return fmt.Errorf("document %s: folder chunk %q not listed", d.Slug, d.Chunk())
		}
	}
	return nil
}
