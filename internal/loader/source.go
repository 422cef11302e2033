package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/retry"
)

// ErrArtifactNotFound is returned by a Source when the named artifact does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")

// Source opens published artifacts by slash-separated name, e.g.
// "manifest.json" or "content/guide.json.gz".
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// cleanName rejects names that would escape the artifact root.
func cleanName(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return clean, nil
}

// DirSource reads artifacts from a local output directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.Dir, filepath.FromSlash(clean)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, clean)
		}
		return nil, err
	}
	return f, nil
}

// HTTPSource reads artifacts published under a base URL.
type HTTPSource struct {
	base   *url.URL
	client *http.Client
	policy retry.Policy
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithRetry sets the policy for transport errors and 5xx responses.
func WithRetry(p retry.Policy) HTTPOption {
	return func(s *HTTPSource) { s.policy = p }
}

// NewHTTPSource validates baseURL. A nil client gets a 30s timeout.
func NewHTTPSource(baseURL string, client *http.Client, opts ...HTTPOption) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	s := &HTTPSource{base: u, client: client, policy: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + clean

	var body io.ReadCloser
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		// The loader gunzips .gz artifacts itself.
		req.Header.Set("Accept-Encoding", "identity")

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", clean, err)
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			_ = resp.Body.Close()
			return retry.Permanent(fmt.Errorf("%w: %s", ErrArtifactNotFound, clean))
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			return fmt.Errorf("fetch %s: HTTP %d", clean, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			_ = resp.Body.Close()
			return retry.Permanent(fmt.Errorf("fetch %s: HTTP %d", clean, resp.StatusCode))
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
