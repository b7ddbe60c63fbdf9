package state

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cssfire/incoming"
	"cssfire/project"
	"cssfire/reduce"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
		Open:  reduce.NewOpenFiles(),
	}
}

// IndexOptions returns project indexing options from configuration.
func (e *LocalEnv) IndexOptions() project.Options {
	if e.Cfg == nil {
		return project.Options{}
	}
	ic := e.Cfg.Project.Indexing
	return project.Options{
		Extensions: ic.Extensions,
		Ignore:     ic.Ignore,
		Workers:    ic.Workers,
	}
}

// OpenProject indexes project under root and starts change session over it.
func (e *LocalEnv) OpenProject(ctx context.Context, root string) (*project.Index, *incoming.Session, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	ix, err := project.Open(ctx, root, e.IndexOptions(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to index project: %w", err)
	}

	var settings incoming.Settings
	if e.Cfg != nil {
		if settings, err = incoming.SettingsFromConfig(&e.Cfg.Project, ix.Root()); err != nil {
			return nil, nil, err
		}
	}

	var editor reduce.Editor
	if len(e.Open) > 0 {
		editor = e.Open
	}
	s, err := incoming.NewSession(ix, settings, editor, e.Rpt, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Project opened",
		zap.String("root", ix.Root()),
		zap.Int("files", len(ix.Snapshot().Files())),
		zap.Stringer("session", s.ID()))
	return ix, s, nil
}
