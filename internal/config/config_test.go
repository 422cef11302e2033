package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("source:\n  directory: ./docs\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{".md", ".markdown"}, cfg.Source.Extensions)
	assert.Equal(t, "./public/docs", cfg.Output.Directory)
	assert.Equal(t, ModeFolders, cfg.Output.Mode)
	assert.True(t, cfg.Output.CompressEnabled())
	assert.Equal(t, 8, cfg.Build.Concurrency)
	assert.Equal(t, ".docbundle", cfg.Build.CacheDir)
	assert.Equal(t, "github", cfg.Markdown.HighlightStyle)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "docbundle.updated", cfg.Notify.Subject)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, RetryBackoffLinear, cfg.Server.RemoteRetry.Backoff)
}

func TestParse_NormalizesValues(t *testing.T) {
	cfg, err := Parse([]byte(`
source:
  directory: docs
  extensions: ["MD", ".mdx"]
output:
  mode: chunked
  compress: false
server:
  rebuild_interval: 5m
  remote_retry:
    backoff: EXP
    initial_delay: 200ms
logging:
  level: WARNING
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, []string{".md", ".mdx"}, cfg.Source.Extensions)
	assert.Equal(t, ModeFolders, cfg.Output.Mode)
	assert.False(t, cfg.Output.CompressEnabled())
	assert.Equal(t, 5*time.Minute, cfg.Server.RebuildInterval)
	assert.Equal(t, RetryBackoffExponential, cfg.Server.RemoteRetry.Backoff)
	assert.Equal(t, 200*time.Millisecond, cfg.Server.RemoteRetry.InitialDelay)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestParse_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing source":  "output:\n  directory: out\n",
		"unknown mode":    "source:\n  directory: d\noutput:\n  mode: zip\n",
		"bad concurrency": "source:\n  directory: d\nbuild:\n  concurrency: -2\n",
		"bad exclude":     "source:\n  directory: d\n  exclude: ['[']\n",
		"bad remote url":  "source:\n  directory: d\nserver:\n  remote_base_url: ftp://x\n",
		"bad backoff":     "source:\n  directory: d\nserver:\n  remote_retry:\n    backoff: random\n",
		"negative retry":  "source:\n  directory: d\nserver:\n  remote_retry:\n    max_retries: -1\n",
		"invalid yaml":    "source: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig), "got %v", err)
		})
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCBUNDLE_TEST_SRC", "/srv/docs")
	path := filepath.Join(dir, "docbundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  directory: ${DOCBUNDLE_TEST_SRC}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs", cfg.Source.Directory)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docbundle.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./docs", cfg.Source.Directory)
	assert.Equal(t, ModeFolders, cfg.Output.Mode)

	err = Init(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	require.NoError(t, Init(path, true))
}

func TestOptionsHash_ChangesWithRenderingOptions(t *testing.T) {
	a, err := Parse([]byte("source:\n  directory: d\n"))
	require.NoError(t, err)
	b, err := Parse([]byte("source:\n  directory: d\n"))
	require.NoError(t, err)
	assert.Equal(t, a.OptionsHash(), b.OptionsHash())

	b.Server.Address = ":9999"
	assert.Equal(t, a.OptionsHash(), b.OptionsHash(), "server settings do not affect artifacts")

	b.Markdown.HighlightStyle = "monokai"
	assert.NotEqual(t, a.OptionsHash(), b.OptionsHash())

	c, err := Parse([]byte("source:\n  directory: d\noutput:\n  mode: single\n"))
	require.NoError(t, err)
	assert.NotEqual(t, a.OptionsHash(), c.OptionsHash())
}
