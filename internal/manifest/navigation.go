package manifest

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NavItem is one entry in the sidebar.
type NavItem struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// NavSection groups the navigable documents of one folder.
type NavSection struct {
	Folder string    `json:"folder"`
	Title  string    `json:"title"`
	Items  []NavItem `json:"items"`
}

var titleCaser = cases.Title(language.Und)

// FolderTitle turns a folder slug like "getting-started" into "Getting Started".
func FolderTitle(folder string) string {
	if folder == "" {
		return ""
	}
	words := strings.FieldsFunc(folder, func(r rune) bool { return r == '-' || r == '_' })
	return titleCaser.String(strings.Join(words, " "))
}

// Navigation builds the sidebar tree: one section per folder with the root
// section first, documents in manifest order, hidden documents omitted.
// Docs are expected to be sorted already.
func (m *Manifest) Navigation() []NavSection {
	var sections []NavSection
	pos := make(map[string]int)
	for _, d := range m.Docs {
		if d.Hidden {
			continue
		}
		i, ok := pos[d.Folder]
		if !ok {
			i = len(sections)
			pos[d.Folder] = i
			sections = append(sections, NavSection{Folder: d.Folder, Title: FolderTitle(d.Folder)})
		}
		sections[i].Items = append(sections[i].Items, NavItem{Slug: d.Slug, Title: d.Title})
	}
	return sections
}

// Neighbors returns the previous and next navigable documents around slug.
// Either may be nil at the ends of the list or when slug is not navigable.
func (m *Manifest) Neighbors(slug string) (prev, next *NavItem) {
	var flat []NavItem
	for _, s := range m.Navigation() {
		flat = append(flat, s.Items...)
	}
	for i, item := range flat {
		if item.Slug != slug {
			continue
		}
		if i > 0 {
			p := flat[i-1]
			prev = &p
		}
		if i+1 < len(flat) {
			n := flat[i+1]
			next = &n
		}
		return prev, next
	}
	return nil, nil
}

// FirstNavigable returns the first document shown in the sidebar.
func (m *Manifest) FirstNavigable() (DocMeta, bool) {
	for _, d := range m.Docs {
		if !d.Hidden {
			return d, true
		}
	}
	return DocMeta{}, false
}
