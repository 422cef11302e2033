package incremental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docbundle/internal/docs"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func file(rel, folder string, mtime time.Time, size int64) docs.DocFile {
	return docs.DocFile{Path: "/src/" + rel, RelPath: rel, Folder: folder, Slug: docs.Slugify(rel), ModTime: mtime, Size: size}
}

func meta(f docs.DocFile) manifest.DocMeta {
	return manifest.DocMeta{Slug: f.Slug, Path: f.RelPath, Folder: f.Folder, ModTime: f.ModTimeMS(), Size: f.Size}
}

func prevManifest(mode manifest.Mode, files ...docs.DocFile) *manifest.Manifest {
	m := &manifest.Manifest{Mode: mode, OptionsHash: "h1"}
	for _, f := range files {
		m.Docs = append(m.Docs, meta(f))
	}
	return m
}

func TestDetect_NoPreviousManifestIsFull(t *testing.T) {
	files := []docs.DocFile{file("index.md", "", base, 10), file("guide/a.md", "guide", base, 20)}

	cs := Detect(nil, files, "h1", manifest.ModeSingle)

	assert.True(t, cs.Full)
	assert.Len(t, cs.Added, 2)
	assert.Equal(t, []string{"", "guide"}, cs.ChangedFolders)
	assert.False(t, cs.Empty())
	assert.Equal(t, files, Plan(cs, manifest.ModeFolders))
}

func TestDetect_OptionsOrModeChangeIsFull(t *testing.T) {
	idx := file("index.md", "", base, 10)
	prev := prevManifest(manifest.ModeSingle, idx, file("old.md", "", base, 5))

	cs := Detect(prev, []docs.DocFile{idx}, "h2", manifest.ModeSingle)
	assert.True(t, cs.Full)
	require.Len(t, cs.Removed, 1)
	assert.Equal(t, "old.md", cs.Removed[0].Path)

	cs = Detect(prev, []docs.DocFile{idx}, "h1", manifest.ModeFolders)
	assert.True(t, cs.Full)
}

func TestDetect_NothingChanged(t *testing.T) {
	files := []docs.DocFile{file("index.md", "", base, 10), file("guide/a.md", "guide", base, 20)}
	prev := prevManifest(manifest.ModeFolders, files...)

	cs := Detect(prev, files, "h1", manifest.ModeFolders)

	assert.True(t, cs.Empty())
	assert.Len(t, cs.Unchanged, 2)
	assert.Empty(t, Plan(cs, manifest.ModeFolders))
}

func TestDetect_SubMillisecondChangeIgnored(t *testing.T) {
	f := file("index.md", "", base, 10)
	prev := prevManifest(manifest.ModeSingle, f)

	touched := f
	touched.ModTime = base.Add(300 * time.Microsecond)
	cs := Detect(prev, []docs.DocFile{touched}, "h1", manifest.ModeSingle)
	assert.True(t, cs.Empty())
}

func TestDetect_AddedModifiedRemoved(t *testing.T) {
	idx := file("index.md", "", base, 10)
	a := file("guide/a.md", "guide", base, 20)
	b := file("guide/b.md", "guide", base, 30)
	gone := file("api/x.md", "api", base, 40)
	prev := prevManifest(manifest.ModeFolders, idx, a, b, gone)

	modified := a
	modified.Size = 21
	added := file("howto/new.md", "howto", base, 50)

	cs := Detect(prev, []docs.DocFile{idx, modified, b, added}, "h1", manifest.ModeFolders)

	require.False(t, cs.Full)
	require.Len(t, cs.Added, 1)
	assert.Equal(t, "howto/new.md", cs.Added[0].RelPath)
	require.Len(t, cs.Modified, 1)
	assert.Equal(t, "guide/a.md", cs.Modified[0].RelPath)
	require.Len(t, cs.Removed, 1)
	assert.Equal(t, "api/x.md", cs.Removed[0].Path)
	assert.Len(t, cs.Unchanged, 2)
	assert.Equal(t, []string{"api", "guide", "howto"}, cs.ChangedFolders)

	single := Plan(cs, manifest.ModeSingle)
	require.Len(t, single, 2)
	assert.Equal(t, "guide/a.md", single[0].RelPath)
	assert.Equal(t, "howto/new.md", single[1].RelPath)

	folders := Plan(cs, manifest.ModeFolders)
	var paths []string
	for _, f := range folders {
		paths = append(paths, f.RelPath)
	}
	assert.Equal(t, []string{"guide/a.md", "guide/b.md", "howto/new.md"}, paths,
		"every file of a changed folder is re-rendered")
}

func TestDetect_ExcludedDrafts(t *testing.T) {
	draft := file("guide/draft.md", "guide", base, 15)
	prev := prevManifest(manifest.ModeSingle)
	prev.Excluded = []manifest.FileStamp{{Path: draft.RelPath, ModTime: draft.ModTimeMS(), Size: draft.Size}}

	cs := Detect(prev, []docs.DocFile{draft}, "h1", manifest.ModeSingle)
	assert.True(t, cs.Empty(), "an unchanged draft is not a new file")
	assert.Len(t, cs.UnchangedExcluded, 1)

	edited := draft
	edited.Size = 16
	cs = Detect(prev, []docs.DocFile{edited}, "h1", manifest.ModeSingle)
	require.Len(t, cs.Modified, 1)

	cs = Detect(prev, nil, "h1", manifest.ModeSingle)
	assert.Len(t, cs.RemovedExcluded, 1)
	assert.False(t, cs.Empty())
}
