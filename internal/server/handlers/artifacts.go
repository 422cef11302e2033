package handlers

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/loader"
	"git.home.luguber.info/inful/docbundle/internal/logfields"
	"git.home.luguber.info/inful/docbundle/internal/output"
)

// ArtifactHandlers serves published artifact files as-is.
type ArtifactHandlers struct {
	source       loader.Source
	errorAdapter *errors.HTTPErrorAdapter
}

// NewArtifactHandlers creates handlers serving files from source.
func NewArtifactHandlers(source loader.Source) *ArtifactHandlers {
	return &ArtifactHandlers{
		source:       source,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleArtifact serves a JSON artifact. When the client accepts gzip and a
// compressed sibling exists, the sibling is sent with Content-Encoding: gzip.
func (h *ArtifactHandlers) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if path.Ext(name) != ".json" {
		h.errorAdapter.WriteErrorResponse(w, r, errors.NotFoundError("artifact not found").
			WithContext("artifact", name).
			Build())
		return
	}

	w.Header().Set("Vary", "Accept-Encoding")
	if acceptsGzip(r.Header.Get("Accept-Encoding")) {
		rc, err := h.source.Open(r.Context(), name+output.GzipSuffix)
		if err == nil {
			w.Header().Set("Content-Encoding", "gzip")
			h.copy(w, rc, name)
			return
		}
		if !stderrors.Is(err, loader.ErrArtifactNotFound) {
			slog.Debug("Compressed artifact unavailable", logfields.Artifact(name), logfields.Error(err))
		}
	}

	rc, err := h.source.Open(r.Context(), name)
	if err != nil {
		if stderrors.Is(err, loader.ErrArtifactNotFound) {
			err = errors.NotFoundError("artifact not found").WithCause(err).WithContext("artifact", name).Build()
		} else {
			err = errors.NetworkError("failed to open artifact").WithCause(err).WithContext("artifact", name).Build()
		}
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.copy(w, rc, name)
}

func (h *ArtifactHandlers) copy(w http.ResponseWriter, rc io.ReadCloser, name string) {
	defer func() { _ = rc.Close() }()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("Artifact response interrupted", logfields.Artifact(name), logfields.Error(err))
	}
}

// acceptsGzip parses an Accept-Encoding header; gzip;q=0 counts as refused.
func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding != "gzip" && coding != "*" {
			continue
		}
		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && strings.TrimSpace(k) == "q" {
				if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = f
				}
			}
		}
		if q > 0 {
			return true
		}
	}
	return false
}
