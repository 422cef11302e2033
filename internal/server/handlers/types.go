package handlers

import (
	"time"

	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

// NavResponse is returned by /api/nav.
type NavResponse struct {
	BuildID  string                `json:"build_id"`
	Sections []manifest.NavSection `json:"sections"`
}

// DocResponse is returned by /api/docs/{slug}.
type DocResponse struct {
	Meta    manifest.DocMeta  `json:"meta"`
	Content manifest.Content  `json:"content"`
	Prev    *manifest.NavItem `json:"prev,omitempty"`
	Next    *manifest.NavItem `json:"next,omitempty"`
}

// PageResponse is everything a documentation page needs for one view:
// the sidebar plus the selected document. Doc is nil when nothing is
// published or no document is navigable.
type PageResponse struct {
	BuildID     string                `json:"build_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Mode        manifest.Mode         `json:"mode"`
	Nav         []manifest.NavSection `json:"nav"`
	Selected    string                `json:"selected,omitempty"`
	Doc         *DocResponse          `json:"doc,omitempty"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	BuildID   string `json:"build_id,omitempty"`
	Documents int    `json:"documents"`
	Version   string `json:"version"`
}
