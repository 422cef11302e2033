// Package config loads and validates the docbundle YAML configuration.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
)

// Config represents the application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Build    BuildConfig    `yaml:"build"`
	Markdown MarkdownConfig `yaml:"markdown"`
	Server   ServerConfig   `yaml:"server"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SourceConfig describes the Markdown tree to convert.
type SourceConfig struct {
	Directory     string   `yaml:"directory"`
	Extensions    []string `yaml:"extensions,omitempty"`
	Exclude       []string `yaml:"exclude,omitempty"`
	IncludeDrafts bool     `yaml:"include_drafts,omitempty"`
}

// OutputConfig describes where and how artifacts are written.
type OutputConfig struct {
	Directory string     `yaml:"directory"`
	Mode      OutputMode `yaml:"mode"`
	Compress  *bool      `yaml:"compress,omitempty"`
	Pretty    bool       `yaml:"pretty,omitempty"`
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Concurrency int    `yaml:"concurrency"`
	CacheDir    string `yaml:"cache_dir"`
	HistoryDB   string `yaml:"history_db"`
}

// MarkdownConfig tunes Markdown rendering.
type MarkdownConfig struct {
	HighlightStyle string `yaml:"highlight_style"`
	LineNumbers    bool   `yaml:"line_numbers,omitempty"`
	UnsafeHTML     bool   `yaml:"unsafe_html,omitempty"`
}

// ServerConfig configures the runtime HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	Artifacts       string        `yaml:"artifacts,omitempty"`
	RemoteBaseURL   string        `yaml:"remote_base_url,omitempty"`
	RebuildInterval time.Duration `yaml:"rebuild_interval,omitempty"`
	RemoteRetry     RetryConfig   `yaml:"remote_retry,omitempty"`
}

// RetryConfig controls retries of failed remote artifact fetches.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff,omitempty"`
	InitialDelay time.Duration    `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration    `yaml:"max_delay,omitempty"`
	MaxRetries   int              `yaml:"max_retries,omitempty"`
}

// NotifyConfig configures NATS change notifications. An empty URL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// CompressEnabled reports whether gzip siblings are written (default true).
func (o OutputConfig) CompressEnabled() bool {
	return o.Compress == nil || *o.Compress
}

// ArtifactsDir is the directory the server reads artifacts from.
func (s ServerConfig) ArtifactsDir(output OutputConfig) string {
	if s.Artifacts != "" {
		return s.Artifacts
	}
	return output.Directory
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").WithContext("path", configPath).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration").WithContext("path", configPath).Build()
	}

	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "unmarshal configuration").Fatal().Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OptionsHash covers every setting that changes rendered artifacts. A build
// whose hash differs from the previous manifest's is a full rebuild.
func (c *Config) OptionsHash() string {
	input := struct {
		Extensions    []string       `json:"extensions"`
		Exclude       []string       `json:"exclude"`
		IncludeDrafts bool           `json:"include_drafts"`
		Mode          OutputMode     `json:"mode"`
		Markdown      MarkdownConfig `json:"markdown"`
		Renderer      int            `json:"renderer"`
	}{
		Extensions:    c.Source.Extensions,
		Exclude:       c.Source.Exclude,
		IncludeDrafts: c.Source.IncludeDrafts,
		Mode:          c.Output.Mode,
		Markdown:      c.Markdown,
		Renderer:      RendererRevision,
	}
	data, _ := json.Marshal(input)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RendererRevision is bumped whenever rendering output changes shape so
// previously built artifacts are invalidated.
const RendererRevision = 1

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	compress := true
	example := Config{
		Source: SourceConfig{
			Directory:  "./docs",
			Extensions: []string{".md", ".markdown"},
		},
		Output: OutputConfig{
			Directory: "./public/docs",
			Mode:      ModeFolders,
			Compress:  &compress,
		},
		Build: BuildConfig{
			Concurrency: 8,
			CacheDir:    ".docbundle",
			HistoryDB:   ".docbundle/history.db",
		},
		Markdown: MarkdownConfig{HighlightStyle: "github"},
		Server:   ServerConfig{Address: ":8080"},
		Logging:  LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	header := "# docbundle configuration\n# Environment variables (${VAR}) are expanded; .env files are loaded first.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write configuration").WithContext("path", configPath).Build()
	}
	return nil
}
