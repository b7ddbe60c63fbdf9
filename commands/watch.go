package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cssfire/event"
	"cssfire/project"
	"cssfire/reduce"
	"cssfire/state"
)

const defaultDebounce = 300 * time.Millisecond

// Watch keeps project index current while consuming live event stream from
// standard input. Pending changes are reported after every event.
func Watch(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	root := cmd.Args().Get(0)
	if len(root) == 0 {
		return errors.New("no project directory has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many projects", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	env.Apply = cmd.Bool("apply")
	env.Open = reduce.NewOpenFiles(cmd.StringSlice("open")...)

	ix, s, err := env.OpenProject(ctx, root)
	if err != nil {
		return err
	}

	msgs := make(chan event.Message)
	done := make(chan struct{})
	go func() {
		// reading from stdin cannot be interrupted, so this one is not part
		// of the group
		defer close(msgs)
		err := event.Decode(reader(cmd), log, func(msg event.Message) error {
			select {
			case msgs <- msg:
				return nil
			case <-done:
				return context.Canceled
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Unable to read events", zap.Error(err))
		}
	}()
	defer close(done)

	out := writer(cmd)
	settings := s.Settings()
	debounce := defaultDebounce
	if env.Cfg != nil {
		debounce = env.Cfg.Project.Indexing.WatchDebounce
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(wctx)
	g.Go(func() error {
		err := ix.Watch(gctx, debounce, func(snap *project.Snapshot) {
			log.Info("Project reloaded", zap.Uint64("generation", snap.Generation()))
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// end of input stops watching
		defer cancel()
		err := s.Run(gctx, msgs, func(msg event.Message) {
			if settings.AutoExpand {
				fmt.Fprint(out, s.Render())
				return
			}
			fmt.Fprintf(out, "%d pending change(s)\n", s.Count())
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	err = g.Wait()

	storeTree(env, s, "tree/watched.txt")
	if env.Apply {
		// interrupted session still applies what has been collected
		if er := s.Apply(context.WithoutCancel(ctx)); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to apply changes: %w", er))
		}
		storeTree(env, s, "tree/after-apply.txt")
	}
	return err
}
