// Package gitinfo reads revision information for the documentation source.
package gitinfo

import (
	"errors"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/docbundle/internal/logfields"
)

// Revision returns the HEAD commit hash of the repository containing dir,
// searching parent directories for .git. It returns "" when dir is not
// inside a repository or HEAD does not point at a commit yet.
func Revision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			slog.Debug("Cannot open source repository", logfields.Path(dir), logfields.Error(err))
		}
		return ""
	}

	head, err := repo.Head()
	if err != nil {
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			slog.Debug("Cannot resolve HEAD", logfields.Path(dir), logfields.Error(err))
		}
		return ""
	}
	return head.Hash().String()
}
