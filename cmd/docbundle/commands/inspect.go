package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docbundle/internal/loader"
	"git.home.luguber.info/inful/docbundle/internal/manifest"
)

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	JSON bool `name:"json" help:"Print the raw manifest as JSON"`
}

func (i *InspectCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	src, err := artifactSource(cfg)
	if err != nil {
		return err
	}
	m, err := loader.New(src).Manifest(context.Background())
	if err != nil {
		return err
	}

	if i.JSON {
		data, err := m.ToJSON(true)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(g.Stdout, string(data))
		return err
	}
	return printManifest(g.Stdout, m)
}

func printManifest(out io.Writer, m *manifest.Manifest) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Build:\t%s\n", m.BuildID)
	_, _ = fmt.Fprintf(w, "Generated:\t%s\n", m.GeneratedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "Mode:\t%s\n", m.Mode)
	if m.Revision != "" {
		_, _ = fmt.Fprintf(w, "Revision:\t%s\n", m.Revision)
	}
	_, _ = fmt.Fprintf(w, "Documents:\t%d\n", len(m.Docs))
	if len(m.Excluded) > 0 {
		_, _ = fmt.Fprintf(w, "Drafts excluded:\t%d\n", len(m.Excluded))
	}
	_, _ = fmt.Fprintln(w)

	counts := make(map[string]int)
	hidden := make(map[string]int)
	for _, d := range m.Docs {
		counts[d.Chunk()]++
		if d.Hidden {
			hidden[d.Chunk()]++
		}
	}
	_, _ = fmt.Fprintln(w, "FOLDER\tDOCS\tHIDDEN\tARTIFACT")
	for _, chunk := range m.ChunkNames() {
		artifact := manifest.ContentFile
		if m.Mode == manifest.ModeFolders {
			artifact = manifest.ChunkFile(chunk)
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", chunk, counts[chunk], hidden[chunk], artifact)
	}
	return w.Flush()
}
