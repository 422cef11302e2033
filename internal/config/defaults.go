package config

import (
	"strings"

	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type sourceDefaults struct{}

func (sourceDefaults) Domain() string { return "source" }

func (sourceDefaults) ApplyDefaults(cfg *Config) error {
	if len(cfg.Source.Extensions) == 0 {
		cfg.Source.Extensions = []string{".md", ".markdown"}
	}
	for i, ext := range cfg.Source.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Source.Extensions[i] = ext
	}
	return nil
}

type outputDefaults struct{}

func (outputDefaults) Domain() string { return "output" }

func (outputDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./public/docs"
	}
	if cfg.Output.Mode == "" {
		cfg.Output.Mode = ModeFolders
		return nil
	}
	mode := NormalizeOutputMode(string(cfg.Output.Mode))
	if mode == "" {
		return ferrors.ConfigError("unknown output mode").WithContext("mode", string(cfg.Output.Mode)).Build()
	}
	cfg.Output.Mode = mode
	return nil
}

type buildDefaults struct{}

func (buildDefaults) Domain() string { return "build" }

func (buildDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Concurrency == 0 {
		cfg.Build.Concurrency = 8
	}
	if cfg.Build.CacheDir == "" {
		cfg.Build.CacheDir = ".docbundle"
	}
	return nil
}

type markdownDefaults struct{}

func (markdownDefaults) Domain() string { return "markdown" }

func (markdownDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Markdown.HighlightStyle == "" {
		cfg.Markdown.HighlightStyle = "github"
	}
	return nil
}

type serverDefaults struct{}

func (serverDefaults) Domain() string { return "server" }

func (serverDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.RemoteRetry.Backoff == "" {
		cfg.Server.RemoteRetry.Backoff = RetryBackoffLinear
	} else if mode := NormalizeRetryBackoff(string(cfg.Server.RemoteRetry.Backoff)); mode != "" {
		cfg.Server.RemoteRetry.Backoff = mode
	} else {
		return ferrors.ConfigError("unknown retry backoff").
			WithContext("backoff", string(cfg.Server.RemoteRetry.Backoff)).Build()
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "docbundle.updated"
	}
	return nil
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

var defaultAppliers = []DefaultApplier{
	sourceDefaults{},
	outputDefaults{},
	buildDefaults{},
	markdownDefaults{},
	serverDefaults{},
	loggingDefaults{},
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
