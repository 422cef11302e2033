// Package docs discovers Markdown documents in a source tree and assigns
// each one a slug and folder.
package docs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	derrors "git.home.luguber.info/inful/docbundle/internal/docs/errors"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

// DocFile represents a discovered Markdown document.
type DocFile struct {
	Path    string    // Absolute path to the file
	RelPath string    // Slash-separated path relative to the source root
	Folder  string    // Slugified first directory segment, "" for root-level files
	Slug    string    // Slug computed from RelPath (frontmatter may override it later)
	ModTime time.Time // Modification time
	Size    int64     // Size in bytes
}

// ModTimeMS returns the modification time in milliseconds, the precision
// change detection compares at.
func (df DocFile) ModTimeMS() int64 {
	return df.ModTime.UnixMilli()
}

// ReadContent reads the document from disk.
func (df DocFile) ReadContent() ([]byte, error) {
	content, err := os.ReadFile(df.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrFileReadFailed, df.RelPath, err)
	}
	return content, nil
}

// Options controls which files discovery returns.
type Options struct {
	Extensions []string // lower-case, dot-prefixed
	Exclude    []string // path.Match patterns against the relative path or base name
}

// Discover walks root and returns every Markdown document in lexical path order.
func Discover(ctx context.Context, root string, opts Options) ([]DocFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrSourceNotFound, root, err)
	}
	if st, statErr := os.Stat(absRoot); statErr != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", derrors.ErrSourceNotFound, absRoot)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md", ".markdown"}
	}

	var files []DocFile
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if isExcluded(rel, opts.Exclude) {
			slog.Debug("Excluded from discovery", logfields.Path(rel))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !slices.Contains(exts, strings.ToLower(path.Ext(rel))) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, DocFile{
			Path:    p,
			RelPath: rel,
			Folder:  FolderOf(rel),
			Slug:    Slugify(rel),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", derrors.ErrWalkFailed, absRoot, err)
	}

	slog.Debug("Documentation discovered", logfields.Count(len(files)), slog.String("root", absRoot))
	return files, nil
}

// isExcluded matches rel against exclude patterns. A trailing "/**" matches a
// directory and everything below it.
func isExcluded(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, "./"), "/**")
		if pattern == "" {
			continue
		}
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
