package build

import (
	"context"
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/docbundle/internal/incremental"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

// write stores content for next, then the manifest, then removes artifacts
// the new manifest no longer references. Readers of either manifest always
// find the content it points at.
func (b *Builder) write(prev *manifest.Manifest, prevContent manifest.ContentMap, next *manifest.Manifest, cs incremental.ChangeSet, contents manifest.ContentMap, report *Report) error {
	var err error
	if next.Mode == manifest.ModeFolders {
		report.Folders, err = b.writeChunks(next, cs, contents)
	} else {
		err = b.writeSingle(prev, prevContent, next, cs, contents)
	}
	if err != nil {
		return err
	}
	if err := b.writer.WriteManifest(next); err != nil {
		return err
	}
	return b.removeStale(prev, next)
}

// removeStale deletes chunks the previous manifest listed and next does
// not, then sweeps anything else a mode switch or an interrupted build
// left behind.
func (b *Builder) removeStale(prev, next *manifest.Manifest) error {
	var keep []string
	if next.Mode == manifest.ModeFolders {
		keep = next.Folders
		if err := b.writer.RemoveContent(); err != nil {
			return err
		}
	}

	listed := make(map[string]struct{}, len(keep))
	for _, f := range keep {
		listed[f] = struct{}{}
	}
	if prev != nil {
		for _, chunk := range prev.Folders {
			if _, ok := listed[chunk]; ok {
				continue
			}
			if err := b.writer.RemoveChunk(chunk); err != nil {
				return err
			}
			slog.Debug("Removed folder chunk", logfields.Folder(chunk))
		}
	}

	swept, err := b.writer.PruneChunks(keep)
	if err != nil {
		return err
	}
	for _, chunk := range swept {
		slog.Debug("Removed stray folder chunk", logfields.Folder(chunk))
	}
	return nil
}

func (b *Builder) writeSingle(prev *manifest.Manifest, existing manifest.ContentMap, next *manifest.Manifest, cs incremental.ChangeSet, contents manifest.ContentMap) error {
	content := contents
	if !cs.Full && prev != nil && existing != nil {
		prevByPath := prev.ByPath()
		for _, f := range cs.Modified {
			delete(existing, prevByPath[f.RelPath].Slug)
		}
		for _, d := range cs.Removed {
			delete(existing, d.Slug)
		}
		for slug, c := range contents {
			existing[slug] = c
		}
		content = existing
	}

	live := next.Index()
	for slug := range content {
		if _, ok := live[slug]; !ok {
			delete(content, slug)
		}
	}

	return b.writer.WriteContent(content)
}

func (b *Builder) writeChunks(next *manifest.Manifest, cs incremental.ChangeSet, contents manifest.ContentMap) ([]string, error) {
	index := next.Index()
	grouped := make(map[string]manifest.ContentMap)
	for slug, c := range contents {
		chunk := index[slug].Chunk()
		if grouped[chunk] == nil {
			grouped[chunk] = manifest.ContentMap{}
		}
		grouped[chunk][slug] = c
	}

	targets := next.Folders
	if !cs.Full {
		targets = targets[:0:0]
		for _, f := range cs.ChangedFolders {
			targets = append(targets, manifest.ChunkName(f))
		}
	}

	listed := make(map[string]struct{}, len(next.Folders))
	for _, f := range next.Folders {
		listed[f] = struct{}{}
	}

	var written []string
	for _, chunk := range targets {
		if _, ok := listed[chunk]; !ok {
			continue // emptied; removed after the manifest is written
		}
		content := grouped[chunk]
		if content == nil {
			content = manifest.ContentMap{}
		}
		if err := b.writer.WriteChunk(chunk, content); err != nil {
			return nil, err
		}
		written = append(written, chunk)
	}
	sort.Strings(written)
	return written, nil
}

// collectGarbage drops render cache entries no document references anymore.
func (b *Builder) collectGarbage(ctx context.Context, logger *slog.Logger, next *manifest.Manifest) {
	keep := make(map[string]bool, len(next.Docs))
	for _, d := range next.Docs {
		if d.Fingerprint != "" {
			keep[cacheKey(d.Fingerprint, b.optionsHash)] = true
		}
	}
	removed, err := b.store.GC(ctx, keep)
	if err != nil {
		logger.Warn("Render cache cleanup failed", logfields.Error(err))
		return
	}
	if removed > 0 {
		logger.Debug("Render cache cleaned", logfields.Count(removed))
	}
}
