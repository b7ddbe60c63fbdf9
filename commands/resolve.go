// Package commands implements program subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssfire/archive"
	"cssfire/event"
	"cssfire/incoming"
	"cssfire/reduce"
	"cssfire/state"
)

const (
	// stdinName is the event source argument standing for standard input.
	stdinName = "-"
	// reportEvents is where sessions record processed changes in debug
	// report archive.
	reportEvents = "events/"
)

// Resolve processes recorded event streams against a project and reports,
// previews or applies resulting changes.
func Resolve(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("resolve")

	root := cmd.Args().Get(0)
	if len(root) == 0 {
		return errors.New("no project directory has been specified")
	}
	sources := cmd.Args().Slice()[1:]
	if len(sources) == 0 {
		sources = []string{stdinName}
	}

	env.Apply = cmd.Bool("apply")
	env.Preview = cmd.Bool("diff")
	env.Open = reduce.NewOpenFiles(cmd.StringSlice("open")...)

	_, s, err := env.OpenProject(ctx, root)
	if err != nil {
		return err
	}

	for _, src := range sources {
		if err := processSource(ctx, cmd, s, src, log); err != nil {
			return err
		}
	}

	out := writer(cmd)
	fmt.Fprint(out, s.Render())
	storeTree(env, s, "tree/resolved.txt")

	if env.Preview {
		diff, err := s.Preview(ctx)
		if err != nil {
			log.Warn("Some changes cannot be applied", zap.Error(err))
		}
		fmt.Fprint(out, diff)
	}
	if env.Apply {
		if err := s.Apply(ctx); err != nil {
			return fmt.Errorf("unable to apply changes: %w", err)
		}
		storeTree(env, s, "tree/after-apply.txt")
	}
	return nil
}

func processSource(ctx context.Context, cmd *cli.Command, s *incoming.Session, src string, log *zap.Logger) error {
	if strings.EqualFold(filepath.Ext(src), ".zip") {
		log.Debug("Replaying events from report", zap.String("source", src))
		err := archive.Walk(src, reportEvents, func(_ string, r io.Reader) error {
			return handleEvents(ctx, s, r, log)
		})
		if err != nil {
			return fmt.Errorf("unable to replay events from '%s': %w", src, err)
		}
		return nil
	}

	var r io.Reader
	if src == stdinName {
		r = reader(cmd)
	} else {
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("unable to open events: %w", err)
		}
		defer f.Close()
		r = f
		if err := state.EnvFromContext(ctx).Rpt.StoreCopy("input/"+filepath.Base(src), src); err != nil {
			log.Warn("Unable to store events in report", zap.String("source", src), zap.Error(err))
		}
	}

	log.Debug("Reading events", zap.String("source", src))
	if err := handleEvents(ctx, s, r, log); err != nil {
		return fmt.Errorf("unable to process events from '%s': %w", src, err)
	}
	return nil
}

func handleEvents(ctx context.Context, s *incoming.Session, r io.Reader, log *zap.Logger) error {
	return event.Decode(r, log, func(msg event.Message) error {
		if err := s.Handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return err
			}
			log.Error("Unable to handle event", zap.Stringer("event", msg), zap.Error(err))
		}
		return nil
	})
}

func storeTree(env *state.LocalEnv, s *incoming.Session, name string) {
	if env.Rpt == nil {
		return
	}
	env.Rpt.StoreData(name, []byte(s.Render()))
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func reader(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}
