package docs

import (
	"fmt"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	derrors "git.home.luguber.info/inful/docbundle/internal/docs/errors"
)

// Slugify converts a relative document path into a URL-safe slug:
// extension dropped, lower-cased, diacritics stripped, whitespace and
// underscores turned into dashes. A trailing index or readme segment
// collapses into its parent; a root index becomes "index".
func Slugify(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	var segments []string
	for _, seg := range strings.Split(rel, "/") {
		if s := slugSegment(seg); s != "" {
			segments = append(segments, s)
		}
	}
	if n := len(segments); n > 1 && (segments[n-1] == "index" || segments[n-1] == "readme") {
		segments = segments[:n-1]
	}
	if len(segments) == 0 {
		return "index"
	}
	if len(segments) == 1 && segments[0] == "readme" {
		return "index"
	}
	return strings.Join(segments, "/")
}

// NormalizeSlug cleans a slug supplied by frontmatter.
func NormalizeSlug(raw string) string {
	var segments []string
	for _, seg := range strings.Split(strings.Trim(raw, "/"), "/") {
		if s := slugSegment(seg); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "/")
}

// FolderOf returns the slugified first directory of rel, or "" for root-level files.
func FolderOf(rel string) string {
	dir, _, found := strings.Cut(rel, "/")
	if !found {
		return ""
	}
	return slugSegment(dir)
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func slugSegment(seg string) string {
	folded, _, err := transform.String(stripMarks, seg)
	if err != nil {
		folded = seg
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.':
			b.WriteRune(r)
			dash = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-.")
}

// SlugOwner pairs a slug with the path that claimed it.
type SlugOwner struct {
	Slug string
	Path string
}

// CheckUnique fails when two documents resolve to the same slug.
func CheckUnique(owners []SlugOwner) error {
	seen := make(map[string]string, len(owners))
	for _, o := range owners {
		if prev, ok := seen[o.Slug]; ok {
			return fmt.Errorf("%w: %q claimed by %s and %s", derrors.ErrSlugCollision, o.Slug, prev, o.Path)
		}
		seen[o.Slug] = o.Path
	}
	return nil
}
