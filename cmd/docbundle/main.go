// Command docbundle converts a Markdown tree into pre-rendered JSON
// artifacts and serves them to documentation pages.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docbundle/cmd/docbundle/commands"
	ferrors "git.home.luguber.info/inful/docbundle/internal/foundation/errors"
	"git.home.luguber.info/inful/docbundle/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docbundle"),
		kong.Description("Pre-render Markdown documentation into cacheable JSON bundles."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	err := parser.Run(&commands.Global{Stdout: os.Stdout}, cli)
	if err == nil {
		return
	}
	adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	adapter.Log(err)
	fmt.Fprintln(os.Stderr, adapter.FormatError(err))
	os.Exit(adapter.ExitCodeFor(err))
}
