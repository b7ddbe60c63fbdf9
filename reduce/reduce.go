// Package reduce narrows ambiguous candidate sets down to the most
// plausible targets of an incoming change.
package reduce

import (
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"cssfire/changes"
	"cssfire/common"
	"cssfire/css"
	"cssfire/event"
)

// Filter only ever removes candidates. Every filter returns empty input
// unchanged and otherwise keeps matching candidates, possibly none.
type Filter interface {
	Reduce(candidates []*changes.Path) []*changes.Path
	Kind() common.Reduction
}

// Editor reports state of documents open by user.
type Editor interface {
	IsOpen(path string) bool
}

// OpenFiles is a static Editor, keys are absolute paths.
type OpenFiles map[string]struct{}

func NewOpenFiles(paths ...string) OpenFiles {
	of := make(OpenFiles, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		of[p] = struct{}{}
	}
	return of
}

func (of OpenFiles) IsOpen(path string) bool {
	_, ok := of[path]
	return ok
}

func retain(candidates []*changes.Path, keep func(*changes.Path) bool) []*changes.Path {
	if len(candidates) == 0 {
		return candidates
	}
	return slices.DeleteFunc(slices.Clone(candidates), func(p *changes.Path) bool {
		return !keep(p)
	})
}

// Media keeps candidates located under the same media query as the change.
type Media struct {
	Query string
}

func (f Media) Kind() common.Reduction { return common.ReductionMedia }

func (f Media) Reduce(candidates []*changes.Path) []*changes.Path {
	query := css.Normalize(f.Query)
	return retain(candidates, func(p *changes.Path) bool {
		return p.Media() == query
	})
}

// Filename keeps candidates from files with the same base name as the
// stylesheet in browser.
type Filename struct {
	Name string
}

func (f Filename) Kind() common.Reduction { return common.ReductionFilename }

func (f Filename) Reduce(candidates []*changes.Path) []*changes.Path {
	return retain(candidates, func(p *changes.Path) bool {
		return filepath.Base(p.File()) == f.Name
	})
}

// OpenDocuments keeps candidates from files open in editor.
type OpenDocuments struct {
	Editor Editor
}

func (f OpenDocuments) Kind() common.Reduction { return common.ReductionOpenDocuments }

func (f OpenDocuments) Reduce(candidates []*changes.Path) []*changes.Path {
	return retain(candidates, func(p *changes.Path) bool {
		return f.Editor != nil && f.Editor.IsOpen(p.File())
	})
}

// Route keeps candidates from the file change was routed to.
type Route struct {
	// File is absolute path.
	File string
}

func (f Route) Kind() common.Reduction { return common.ReductionRoute }

func (f Route) Reduce(candidates []*changes.Path) []*changes.Path {
	return retain(candidates, func(p *changes.Path) bool {
		return p.File() == f.File
	})
}

// Settings select filters of the pipeline.
type Settings struct {
	Media         bool
	Filename      bool
	OpenDocuments bool
	Routes        bool
}

// Pipeline runs filters in order.
type Pipeline struct {
	filters []Filter
	log     *zap.Logger
}

// Build assembles enabled filters for the change in fixed order: media,
// filename, open documents, route.
func Build(settings Settings, ev event.Change, editor Editor, root string, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{log: log.Named("reduce")}
	if settings.Media {
		p.filters = append(p.filters, Media{Query: ev.Media})
	}
	if settings.Filename {
		p.filters = append(p.filters, Filename{Name: ev.Filename})
	}
	if settings.OpenDocuments {
		p.filters = append(p.filters, OpenDocuments{Editor: editor})
	}
	if settings.Routes && root != "" {
		p.filters = append(p.filters, Route{File: filepath.Join(root, filepath.FromSlash(ev.Path))})
	}
	return p
}

// Filters returns filters of the pipeline.
func (p *Pipeline) Filters() []Filter {
	return p.filters
}

func (p *Pipeline) Reduce(candidates []*changes.Path) []*changes.Path {
	p.log.Debug("Filtering candidates", zap.Int("count", len(candidates)))
	for _, f := range p.filters {
		before := len(candidates)
		candidates = f.Reduce(candidates)
		if ce := p.log.Check(zap.DebugLevel, "Filter applied"); ce != nil {
			ce.Write(zap.Stringer("filter", f.Kind()), zap.Int("before", before), zap.Int("after", len(candidates)))
		}
	}
	p.log.Debug("Filtering done", zap.Int("remaining", len(candidates)))
	return candidates
}
