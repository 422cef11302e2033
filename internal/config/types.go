package config

import "strings"

// OutputMode selects the content artifact layout.
type OutputMode string

const (
	// ModeSingle writes all document content to one content.json.
	ModeSingle OutputMode = "single"
	// ModeFolders writes one content chunk per top-level folder.
	ModeFolders OutputMode = "folders"
)

// NormalizeOutputMode returns the canonical mode for raw, or "" when unknown.
func NormalizeOutputMode(raw string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "single", "full":
		return ModeSingle
	case "folders", "folder", "chunked", "split":
		return ModeFolders
	default:
		return ""
	}
}

// RetryBackoffMode enumerates supported retry backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff returns the canonical mode for raw, or "" when unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fixed":
		return RetryBackoffFixed
	case "linear":
		return RetryBackoffLinear
	case "exponential", "exp":
		return RetryBackoffExponential
	default:
		return ""
	}
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// NormalizeLogLevel maps raw onto a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// NormalizeLogFormat maps raw onto a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	if strings.EqualFold(strings.TrimSpace(raw), "json") {
		return LogFormatJSON
	}
	return LogFormatText
}
