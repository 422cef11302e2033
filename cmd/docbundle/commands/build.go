package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/build"
	"git.home.luguber.info/inful/docbundle/internal/config"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Force      bool   `help:"Ignore the previous manifest and rebuild everything"`
	Output     string `short:"o" help:"Override output.directory"`
	Mode       string `help:"Override output.mode (single|folders)"`
	NoCompress bool   `name:"no-compress" help:"Do not write .gz siblings"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, nil, build.WithForce(b.Force), build.WithTrigger("cli"))
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.builder.Run(ctx)
	if err != nil {
		return err
	}
	printReport(g.Stdout, report)
	return nil
}

// apply layers the command-line overrides onto cfg.
func (b *BuildCmd) apply(cfg *config.Config) error {
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Mode != "" {
		mode := config.NormalizeOutputMode(b.Mode)
		if mode == "" {
			return ferrors.ValidationError("invalid --mode").WithContext("mode", b.Mode).Build()
		}
		cfg.Output.Mode = mode
	}
	if b.NoCompress {
		off := false
		cfg.Output.Compress = &off
	}
	return cfg.Validate()
}

func printReport(w io.Writer, r *build.Report) {
	if r.Skipped {
		_, _ = fmt.Fprintf(w, "Up to date: %d documents, nothing changed\n", r.Documents)
		return
	}
	kind := "incremental"
	if r.Full {
		kind = "full"
	}
	_, _ = fmt.Fprintf(w, "Built %d documents (%s, %s mode) in %s\n", r.Documents, kind, r.Mode, r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  added %d, modified %d, removed %d, rendered %d (%d cached), %d drafts excluded\n",
		r.Added, r.Modified, r.Removed, r.Rendered, r.CacheHits, r.Excluded)
	if len(r.Folders) > 0 {
		_, _ = fmt.Fprintf(w, "  chunks written: %v\n", r.Folders)
	}
}
