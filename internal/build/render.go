package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"git.home.luguber.info/inful/docbundle/internal/docs"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/frontmatter"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
	"git.home.luguber.info/inful/docbundle/internal/storage"
)

// renderResult is the outcome of processing one planned file.
type renderResult struct {
	file     docs.DocFile
	meta     manifest.DocMeta
	content  manifest.Content
	excluded bool // draft skipped because drafts are disabled
	cacheHit bool
}

// cachedRender is the render cache payload.
type cachedRender struct {
	HTML    string             `json:"html"`
	TOC     []manifest.Heading `json:"toc,omitempty"`
	Title   string             `json:"title,omitempty"`
	Excerpt string             `json:"excerpt,omitempty"`
}

// cacheKey derives the render cache key from a document fingerprint and the
// options hash, so a renderer change never serves stale HTML.
func cacheKey(fingerprint, optionsHash string) string {
	sum := sha256.Sum256([]byte(fingerprint + "\x00" + optionsHash))
	return hex.EncodeToString(sum[:])
}

func (b *Builder) renderFile(ctx context.Context, f docs.DocFile) (renderResult, error) {
	res := renderResult{file: f}

	raw, err := f.ReadContent()
	if err != nil {
		return res, ferrors.FileSystemError("failed to read document").
			WithCause(err).
			WithContext("path", f.RelPath).
			Build()
	}

	fm, body, _, _, err := frontmatter.Split(raw)
	if err != nil {
		return res, renderFailure(f, err)
	}
	values, err := frontmatter.ParseYAML(fm)
	if err != nil {
		return res, renderFailure(f, err)
	}
	fields := frontmatter.Decode(values)

	if fields.Draft && !b.cfg.Source.IncludeDrafts {
		slog.Debug("Skipping draft", logfields.Path(f.RelPath))
		res.excluded = true
		return res, nil
	}

	fingerprint, err := frontmatter.Fingerprint(values, body)
	if err != nil {
		return res, renderFailure(f, fmt.Errorf("fingerprint: %w", err))
	}
	key := cacheKey(fingerprint, b.optionsHash)

	rendered, hit := b.lookupCache(ctx, key)
	if !hit {
		out, err := b.renderer.Render(body)
		if err != nil {
			return res, renderFailure(f, err)
		}
		rendered = cachedRender{HTML: out.HTML, TOC: out.TOC, Title: out.Title, Excerpt: out.Excerpt}
		b.storeCache(ctx, key, f.RelPath, rendered)
	}
	res.cacheHit = hit

	slug := f.Slug
	if fields.Slug != "" {
		if s := docs.NormalizeSlug(fields.Slug); s != "" {
			slug = s
		}
	}

	title := fields.Title
	if title == "" {
		title = rendered.Title
	}
	if title == "" {
		title = manifest.FolderTitle(path.Base(slug))
	}
	description := fields.Description
	if description == "" {
		description = rendered.Excerpt
	}

	res.meta = manifest.DocMeta{
		Slug:        slug,
		Path:        f.RelPath,
		Folder:      f.Folder,
		Title:       title,
		Description: description,
		Order:       fields.Order,
		Tags:        fields.Tags,
		Date:        fields.Date,
		Draft:       fields.Draft,
		Hidden:      fields.Hidden,
		Extra:       fields.Extra,
		ModTime:     f.ModTimeMS(),
		Size:        f.Size,
		Fingerprint: fingerprint,
	}
	res.content = manifest.Content{Slug: slug, HTML: rendered.HTML, TOC: rendered.TOC}
	return res, nil
}

func (b *Builder) lookupCache(ctx context.Context, key string) (cachedRender, bool) {
	obj, err := b.store.Get(ctx, key)
	if err != nil {
		if !storage.IsNotFound(err) {
			slog.Warn("Render cache read failed", logfields.Artifact(key), logfields.Error(err))
		}
		return cachedRender{}, false
	}
	var cr cachedRender
	if err := json.Unmarshal(obj.Data, &cr); err != nil {
		slog.Warn("Discarding corrupt render cache entry", logfields.Artifact(key), logfields.Error(err))
		return cachedRender{}, false
	}
	return cr, true
}

func (b *Builder) storeCache(ctx context.Context, key, relPath string, cr cachedRender) {
	data, err := json.Marshal(cr)
	if err != nil {
		return
	}
	_, err = b.store.Put(ctx, &storage.Object{
		Hash:     key,
		Type:     storage.ObjectTypeRenderedDoc,
		Data:     data,
		Metadata: storage.Metadata{Custom: map[string]string{"path": relPath}},
	})
	if err != nil {
		slog.Warn("Render cache write failed", logfields.Path(relPath), logfields.Error(err))
	}
}

func renderFailure(f docs.DocFile, err error) error {
	return ferrors.RenderError("failed to render document").
		WithCause(fmt.Errorf("%w: %w", ErrRender, err)).
		WithContext("path", f.RelPath).
		Build()
}
