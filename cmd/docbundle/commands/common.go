// Package commands implements the docbundle CLI commands.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docbundle/internal/config"
)

// LogLevelEnv overrides the configured log level unless --verbose is set.
const LogLevelEnv = "DOCBUNDLE_LOG_LEVEL"

// Global carries state shared by every subcommand.
type Global struct {
	Stdout io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docbundle.yaml" env:"DOCBUNDLE_CONFIG" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Convert the Markdown tree into JSON artifacts"`
	Serve   ServeCmd   `cmd:"" help:"Serve published artifacts over HTTP"`
	Watch   WatchCmd   `cmd:"" help:"Build, serve and rebuild on source changes"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Inspect InspectCmd `cmd:"" help:"Print a summary of the published manifest"`
	History HistoryCmd `cmd:"" help:"Show recent builds"`
}

// AfterApply runs after flag parsing and sets up logging before any
// configuration is read.
func (c *CLI) AfterApply() error {
	configureLogging(c.Verbose, "", config.LogFormatText)
	return nil
}

// loadConfig reads the configuration and reapplies logging with its settings.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	configureLogging(c.Verbose, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// configureLogging picks the level from --verbose, then DOCBUNDLE_LOG_LEVEL,
// then the configuration.
func configureLogging(verbose bool, level config.LogLevel, format config.LogFormat) {
	if env := os.Getenv(LogLevelEnv); env != "" {
		level = config.NormalizeLogLevel(env)
	}
	if verbose {
		level = config.LogLevelDebug
	}

	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
