// Package incremental decides which documents and folder chunks have to be
// rebuilt by comparing the source tree with the previous manifest.
package incremental

import (
	"sort"

	"git.home.luguber.info/inful/docbundle/internal/docs"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

// ChangeSet describes how the current source tree differs from the
// previous build.
type ChangeSet struct {
	// Full is set when there is no usable previous manifest, or the options
	// hash or mode changed. Every current file is then reported as Added.
	Full bool

	Added     []docs.DocFile
	Modified  []docs.DocFile
	Removed   []manifest.DocMeta
	Unchanged []manifest.DocMeta

	// UnchangedExcluded carries forward files skipped by the previous build
	// (drafts) whose stamp did not change.
	UnchangedExcluded []manifest.FileStamp
	RemovedExcluded   []manifest.FileStamp

	// ChangedFolders lists folders with an added, modified or removed doc.
	// Whether a folder ends up empty is only known after rendering, since a
	// modified file may have become a draft.
	ChangedFolders []string

	// Files is the complete current file list.
	Files []docs.DocFile
}

// Empty reports whether nothing has to be rebuilt.
func (cs ChangeSet) Empty() bool {
	return !cs.Full &&
		len(cs.Added) == 0 &&
		len(cs.Modified) == 0 &&
		len(cs.Removed) == 0 &&
		len(cs.RemovedExcluded) == 0
}

// Detect compares files with prev using modification time (milliseconds)
// and size. A nil prev, a different options hash or a different mode yields
// a full change set.
func Detect(prev *manifest.Manifest, files []docs.DocFile, optionsHash string, mode manifest.Mode) ChangeSet {
	cs := ChangeSet{Files: files}

	if prev == nil || prev.OptionsHash != optionsHash || prev.Mode != mode {
		cs.Full = true
		cs.Added = append(cs.Added, files...)
		current := make(map[string]struct{}, len(files))
		for _, f := range files {
			current[f.RelPath] = struct{}{}
		}
		if prev != nil {
			for _, d := range prev.Docs {
				if _, ok := current[d.Path]; !ok {
					cs.Removed = append(cs.Removed, d)
				}
			}
		}
		cs.ChangedFolders = foldersOf(files)
		return cs
	}

	prevDocs := prev.ByPath()
	prevExcluded := make(map[string]manifest.FileStamp, len(prev.Excluded))
	for _, s := range prev.Excluded {
		prevExcluded[s.Path] = s
	}

	changed := make(map[string]struct{})
	seen := make(map[string]struct{}, len(files))

	for _, f := range files {
		seen[f.RelPath] = struct{}{}

		if d, ok := prevDocs[f.RelPath]; ok {
			if d.ModTime == f.ModTimeMS() && d.Size == f.Size {
				cs.Unchanged = append(cs.Unchanged, d)
				continue
			}
			cs.Modified = append(cs.Modified, f)
			changed[f.Folder] = struct{}{}
			continue
		}
		if s, ok := prevExcluded[f.RelPath]; ok {
			if s.ModTime == f.ModTimeMS() && s.Size == f.Size {
				cs.UnchangedExcluded = append(cs.UnchangedExcluded, s)
				continue
			}
			cs.Modified = append(cs.Modified, f)
			changed[f.Folder] = struct{}{}
			continue
		}
		cs.Added = append(cs.Added, f)
		changed[f.Folder] = struct{}{}
	}

	for _, d := range prev.Docs {
		if _, ok := seen[d.Path]; ok {
			continue
		}
		cs.Removed = append(cs.Removed, d)
		changed[d.Folder] = struct{}{}
	}
	for _, s := range prev.Excluded {
		if _, ok := seen[s.Path]; !ok {
			cs.RemovedExcluded = append(cs.RemovedExcluded, s)
		}
	}

	cs.ChangedFolders = sortedKeys(changed)
	return cs
}

// Plan returns the files that must be rendered for cs. In single mode only
// added and modified files are rendered. In folders mode every current file
// in a changed folder is rendered so each rewritten chunk is complete.
func Plan(cs ChangeSet, mode manifest.Mode) []docs.DocFile {
	if cs.Full {
		return cs.Files
	}

	if mode == manifest.ModeSingle {
		planned := make([]docs.DocFile, 0, len(cs.Added)+len(cs.Modified))
		planned = append(planned, cs.Added...)
		planned = append(planned, cs.Modified...)
		sort.Slice(planned, func(i, j int) bool { return planned[i].RelPath < planned[j].RelPath })
		return planned
	}

	changed := make(map[string]struct{}, len(cs.ChangedFolders))
	for _, f := range cs.ChangedFolders {
		changed[f] = struct{}{}
	}
	var planned []docs.DocFile
	for _, f := range cs.Files {
		if _, ok := changed[f.Folder]; ok {
			planned = append(planned, f)
		}
	}
	return planned
}

func foldersOf(files []docs.DocFile) []string {
	set := make(map[string]struct{})
	for _, f := range files {
		set[f.Folder] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
