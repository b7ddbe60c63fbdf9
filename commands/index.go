package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssfire/css"
	"cssfire/project"
	"cssfire/state"
	"cssfire/utils/debug"
)

// Index prints structural index of the project.
func Index(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("index")

	root := cmd.Args().Get(0)
	if len(root) == 0 {
		return errors.New("no project directory has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many projects", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	ix, err := project.Open(ctx, root, env.IndexOptions(), env.Log)
	if err != nil {
		return fmt.Errorf("unable to index project: %w", err)
	}

	dump := DumpIndex(ix.Snapshot(), cmd.Bool("declarations"))
	if env.Rpt != nil {
		env.Rpt.StoreData("index.txt", []byte(dump))
	}
	fmt.Fprint(writer(cmd), dump)
	return nil
}

// DumpIndex renders snapshot files in natural order of their project
// relative names.
func DumpIndex(snap *project.Snapshot, declarations bool) string {
	type named struct {
		rel   string
		sheet *css.Stylesheet
	}
	files := make([]named, 0, len(snap.Files()))
	for _, f := range snap.Files() {
		rel, err := filepath.Rel(snap.Root(), f.Path)
		if err != nil {
			rel = f.Path
		}
		files = append(files, named{rel: filepath.ToSlash(rel), sheet: f})
	}
	sort.Slice(files, func(i, j int) bool { return natural.Less(files[i].rel, files[j].rel) })

	tw := debug.NewTreeWriter()
	tw.Line(0, "%s (generation %d)", snap.Root(), snap.Generation())
	for _, f := range files {
		tw.Line(1, "%s [%s]", f.rel, f.sheet.Dialect)
		dumpChildren(tw, f.sheet.Root, 2, declarations)
	}
	return tw.String()
}

func dumpChildren(tw *debug.TreeWriter, n *css.Node, depth int, declarations bool) {
	for _, c := range n.Children {
		switch c.Kind {
		case css.KindBlock:
			// block contents belong to the owner
			dumpChildren(tw, c, depth, declarations)
			continue
		case css.KindDeclaration:
			if !declarations {
				continue
			}
			tw.TextBlock(depth, c.Name, c.Text)
			continue
		case css.KindVariable:
			tw.TextBlock(depth, c.Name, c.Text)
			continue
		case css.KindImport:
			tw.TextBlock(depth, "@import", c.Text)
			continue
		}
		label := c.String()
		if c.Broken {
			label += " (broken)"
		}
		tw.Line(depth, "%s", label)
		dumpChildren(tw, c, depth+1, declarations)
	}
}
