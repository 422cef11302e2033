package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/eventstore"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Build.HistoryDB == "" {
		return ferrors.ConfigError("build history is disabled").
			WithContext("field", "build.history_db").
			Build()
	}
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return ferrors.HistoryError("failed to read build history").WithCause(err).Build()
	}
	return printHistory(g.Stdout, builds)
}

func printHistory(out io.Writer, builds []eventstore.BuildSummary) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(out, "No builds recorded")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STARTED\tBUILD\tSTATUS\tTRIGGER\tDOCS\tCHANGES\tRENDERED\tDURATION")
	for _, b := range builds {
		id := b.BuildID
		if len(id) > 8 {
			id = id[:8]
		}
		status := b.Status
		if b.Full && b.Status == eventstore.StatusCompleted {
			status += " (full)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.StartedAt.Local().Format(time.DateTime), id, status, b.Trigger,
			b.Documents, b.Changes, b.Rendered, b.Duration.Round(time.Millisecond))
		if b.Error != "" {
			_, _ = fmt.Fprintf(w, "\t\terror: %s\n", b.Error)
		}
	}
	return w.Flush()
}
