// Package incoming turns changes pushed by browser into pending source
// modifications and applies them.
package incoming

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cssfire/changes"
	"cssfire/config"
	"cssfire/event"
	"cssfire/project"
	"cssfire/reduce"
	"cssfire/resolve"
	"cssfire/route"
)

// Settings control candidate discovery and session behavior.
type Settings struct {
	// Reduce selects reduction filters, Reduce.Routes also enables route
	// rewriting of incoming changes.
	Reduce           reduce.Settings
	ResolveVariables bool
	ResolveMixins    bool
	// AutoClear drops all pending changes on page refresh.
	AutoClear bool
	// AutoExpand reports full tree after every processed change.
	AutoExpand bool
	Routes     route.Table
}

// Session owns the tree of pending changes for a project. All modifications
// of the tree are serialized.
type Session struct {
	id       uuid.UUID
	ix       *project.Index
	settings Settings
	editor   reduce.Editor
	cache    *SearchCache
	rpt      *config.Report
	log      *zap.Logger

	mu     sync.Mutex
	tree   *changes.Tree
	events int
}

// NewSession creates session over indexed project. Editor and report may be
// nil.
func NewSession(ix *project.Index, settings Settings, editor reduce.Editor, rpt *config.Report, log *zap.Logger) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to create session id: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		id:       id,
		ix:       ix,
		settings: settings,
		editor:   editor,
		cache:    NewSearchCache(),
		rpt:      rpt,
		log:      log.Named("session").With(zap.Stringer("session", id)),
		tree:     changes.NewTree(),
	}
	s.tree.OnChange(func(op changes.Op, n *changes.Node) {
		s.log.Debug("Tree modified", zap.Stringer("op", op), zap.Stringer("kind", n.Kind), zap.String("key", n.Key))
	})
	return s, nil
}

// ID returns session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Settings returns session settings.
func (s *Session) Settings() Settings {
	return s.settings
}

// Cache returns search cache of the session.
func (s *Session) Cache() *SearchCache {
	return s.cache
}

// Process finds candidates for the change, reduces them and merges
// survivors into the tree. Surviving candidates are returned.
func (s *Session) Process(ctx context.Context, ev event.Change) ([]*changes.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process(ctx, ev)
}

func (s *Session) process(ctx context.Context, ev event.Change) ([]*changes.Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.events++
	snap := s.ix.Snapshot()

	if s.settings.Reduce.Routes {
		routed := ev.Routed(s.settings.Routes, snap.Root())
		if routed != ev {
			s.log.Debug("Change routed", zap.String("from", ev.Path), zap.String("to", routed.Path))
		}
		ev = routed
	}
	s.record(ev)

	d := &discovery{
		ctx:      ctx,
		snap:     snap,
		ev:       ev,
		settings: s.settings,
		cache:    s.cache,
		resolver: resolve.New(snap, s.log),
		log:      s.log.Named("discovery"),
	}
	candidates, err := d.candidates()
	if err != nil {
		return nil, fmt.Errorf("unable to find candidates for %s: %w", ev.Selector, err)
	}

	candidates = reduce.Build(s.settings.Reduce, ev, s.editor, snap.Root(), s.log).Reduce(candidates)
	for _, p := range candidates {
		s.tree.Merge(p)
	}
	s.log.Debug("Change processed",
		zap.Stringer("change", ev),
		zap.Int("candidates", len(candidates)),
		zap.Int("pending", s.tree.Count()))
	return candidates, nil
}

// record stores processed change in debug report.
func (s *Session) record(ev event.Change) {
	if s.rpt == nil {
		return
	}
	name := fmt.Sprintf("events/%s/%04d-%s.yaml", s.id, s.events, slug.Make(ev.Selector+" "+ev.Property))
	if err := s.rpt.StoreYAML(name, ev); err != nil {
		s.log.Warn("Unable to record change", zap.Error(err))
	}
}

// Handle dispatches single message of the event stream.
func (s *Session) Handle(ctx context.Context, msg event.Message) error {
	switch {
	case msg.Change != nil:
		_, err := s.Process(ctx, *msg.Change)
		return err
	case msg.Signal != nil:
		s.log.Debug("Signal received", zap.String("name", msg.Signal.Name))
		if msg.Signal.Name == event.SignalRefresh && s.settings.AutoClear {
			s.Clear()
		}
		return nil
	}
	return fmt.Errorf("empty message")
}

// Run handles messages one at a time until channel is closed or ctx is
// done. Failed messages are logged and skipped, after is called (when not
// nil) for every handled message.
func (s *Session) Run(ctx context.Context, msgs <-chan event.Message, after func(event.Message)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, msg); err != nil {
				s.log.Error("Unable to handle event", zap.Stringer("event", msg), zap.Error(err))
				continue
			}
			if after != nil {
				after(msg)
			}
		}
	}
}

// Clear drops all pending changes.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Clear()
	s.log.Debug("Pending changes cleared")
}

// Discard drops pending change of the declaration with the given key.
func (s *Session) Discard(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, leaf := range s.tree.Leaves() {
		if leaf.Key == key {
			s.tree.Remove(leaf)
			return true
		}
	}
	return false
}

// Count returns number of pending changes.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Count()
}

// Pending returns pending changes in tree order.
func (s *Session) Pending() []*changes.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Paths()
}

// Render returns textual dump of pending changes.
func (s *Session) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Render()
}

// outcome is result of planning pending changes against a snapshot.
type outcome struct {
	original map[string][]byte
	contents map[string][]byte
	edits    map[string][]*edit
	failed   error
}

// prepare computes new file contents for every pending change. Must be
// called with mu held.
func (s *Session) prepare(snap *project.Snapshot) *outcome {
	var (
		o     = &outcome{original: make(map[string][]byte), contents: make(map[string][]byte)}
		edits []*edit
	)
	for _, leaf := range s.tree.Leaves() {
		e, err := editFor(snap, leaf)
		if err != nil {
			o.failed = multierr.Append(o.failed, fmt.Errorf("%s: %w", leaf.Path(), err))
			continue
		}
		edits = append(edits, e)
	}

	var rejected map[*edit]error
	o.edits, rejected = plan(edits)
	for e, err := range rejected {
		for _, leaf := range e.leaves {
			o.failed = multierr.Append(o.failed, fmt.Errorf("%s: %w", leaf.Path(), err))
		}
	}
	for file, list := range o.edits {
		src := snap.File(file).Source
		o.original[file] = src
		o.contents[file] = render(src, list)
	}
	return o
}

// Apply writes all pending changes to the sources. Changes which were
// written are removed from the tree, failed ones stay pending and their
// errors are returned together.
func (s *Session) Apply(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	o := s.prepare(s.ix.Snapshot())
	if len(o.contents) == 0 {
		return o.failed
	}

	if s.rpt != nil {
		for file := range o.contents {
			rel, err := filepath.Rel(s.ix.Root(), file)
			if err != nil {
				rel = filepath.Base(file)
			}
			if err := s.rpt.StoreCopy(filepath.ToSlash(filepath.Join("sources", rel)), file); err != nil {
				s.log.Warn("Unable to store source copy", zap.String("file", file), zap.Error(err))
			}
		}
	}

	_, written, err := s.ix.Write(ctx, o.contents)
	failed := multierr.Append(o.failed, err)

	applied := 0
	for _, file := range written {
		for _, e := range o.edits[file] {
			for _, leaf := range e.leaves {
				s.tree.Remove(leaf)
				applied++
			}
		}
	}
	s.cache.Clear()

	s.log.Info("Pending changes applied",
		zap.Int("applied", applied),
		zap.Int("files", len(written)),
		zap.Int("failed", len(multierr.Errors(failed))),
		zap.Int("pending", s.tree.Count()))
	return failed
}
