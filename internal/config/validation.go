package config

import (
	"net/url"
	"path"

	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if c.Source.Directory == "" {
		return ferrors.ConfigError("source directory is required").WithContext("field", "source.directory").Build()
	}
	if c.Build.Concurrency < 1 {
		return ferrors.ConfigError("build concurrency must be positive").
			WithContext("field", "build.concurrency").
			WithContext("value", c.Build.Concurrency).Build()
	}
	switch c.Output.Mode {
	case ModeSingle, ModeFolders:
	default:
		return ferrors.ConfigError("unknown output mode").WithContext("mode", string(c.Output.Mode)).Build()
	}
	for _, pattern := range c.Source.Exclude {
		if _, err := path.Match(pattern, ""); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid exclude pattern").
				WithContext("pattern", pattern).Build()
		}
	}
	if c.Server.RemoteBaseURL != "" {
		u, err := url.Parse(c.Server.RemoteBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return ferrors.ConfigError("remote_base_url must be an http(s) URL").
				WithContext("value", c.Server.RemoteBaseURL).Build()
		}
	}
	if r := c.Server.RemoteRetry; r.MaxRetries < 0 || r.InitialDelay < 0 || r.MaxDelay < 0 {
		return ferrors.ConfigError("remote_retry values must not be negative").Build()
	}
	if c.Server.RebuildInterval < 0 {
		return ferrors.ConfigError("rebuild_interval must not be negative").Build()
	}
	return nil
}
