package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/loader"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
	"git.home.luguber.info/inful/docbundle/internal/version"
)

// DocsHandlers serves the manifest, navigation and documents.
type DocsHandlers struct {
	loader       *loader.Loader
	errorAdapter *errors.HTTPErrorAdapter
}

// NewDocsHandlers creates handlers reading artifacts through l.
func NewDocsHandlers(l *loader.Loader) *DocsHandlers {
	return &DocsHandlers{
		loader:       l,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleManifest returns the published manifest.
func (h *DocsHandlers) HandleManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.loader.Manifest(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, m)
}

// HandleNav returns the sidebar sections.
func (h *DocsHandlers) HandleNav(w http.ResponseWriter, r *http.Request) {
	m, err := h.loader.Manifest(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, NavResponse{BuildID: m.BuildID, Sections: nonNilNav(m.Navigation())})
}

// HandleDoc returns one document by the slug in the wildcard path.
func (h *DocsHandlers) HandleDoc(w http.ResponseWriter, r *http.Request) {
	slug := strings.Trim(chi.URLParam(r, "*"), "/")
	if slug == "" {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("document slug required").Build())
		return
	}
	doc, err := h.document(r, slug)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.respond(w, r, doc)
}

// HandlePage returns the page state for ?doc=<slug>, defaulting to the
// first navigable document.
func (h *DocsHandlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	m, err := h.loader.Manifest(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	page := PageResponse{
		BuildID:     m.BuildID,
		GeneratedAt: m.GeneratedAt,
		Mode:        m.Mode,
		Nav:         nonNilNav(m.Navigation()),
	}

	slug := strings.Trim(r.URL.Query().Get("doc"), "/")
	if slug == "" {
		first, ok := m.FirstNavigable()
		if !ok {
			h.respond(w, r, page)
			return
		}
		slug = first.Slug
	}

	doc, err := h.document(r, slug)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	page.Selected = slug
	page.Doc = doc
	h.respond(w, r, page)
}

// HandleHealth reports liveness and the currently published build.
func (h *DocsHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Version: version.Version}
	if m, err := h.loader.Manifest(r.Context()); err == nil {
		resp.BuildID = m.BuildID
		resp.Documents = len(m.Docs)
	} else if !errors.HasCategory(err, errors.CategoryNotFound) {
		resp.Status = "degraded"
	}
	h.respond(w, r, resp)
}

func (h *DocsHandlers) document(r *http.Request, slug string) (*DocResponse, error) {
	meta, content, err := h.loader.Document(r.Context(), slug)
	if err != nil {
		return nil, err
	}
	m, err := h.loader.Manifest(r.Context())
	if err != nil {
		return nil, err
	}
	prev, next := m.Neighbors(meta.Slug)
	return &DocResponse{Meta: meta, Content: content, Prev: prev, Next: next}, nil
}

func (h *DocsHandlers) respond(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSON(w, http.StatusOK, v, wantsPretty(r)); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write response").Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

func nonNilNav(nav []manifest.NavSection) []manifest.NavSection {
	if nav == nil {
		return []manifest.NavSection{}
	}
	return nav
}
