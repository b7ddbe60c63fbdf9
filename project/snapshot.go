package project

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"cssfire/common"
	"cssfire/css"
)

// Snapshot is an immutable view of the project index at some generation.
// It is safe for concurrent use.
type Snapshot struct {
	root   string
	gen    uint64
	files  []*css.Stylesheet
	byPath map[string]*css.Stylesheet
	byName map[string][]*css.Stylesheet
	// words maps search words to rulesets, media rules and imports
	// containing them.
	words map[string][]*css.Node
	kinds map[css.NodeKind][]*css.Node
}

func newSnapshot(root string, gen uint64, sheets []*css.Stylesheet) *Snapshot {
	sort.Slice(sheets, func(i, j int) bool {
		return natural.Less(sheets[i].Path, sheets[j].Path)
	})

	s := &Snapshot{
		root:   root,
		gen:    gen,
		files:  sheets,
		byPath: make(map[string]*css.Stylesheet, len(sheets)),
		byName: make(map[string][]*css.Stylesheet),
		words:  make(map[string][]*css.Node),
		kinds:  make(map[css.NodeKind][]*css.Node),
	}
	for _, sheet := range sheets {
		s.byPath[sheet.Path] = sheet
		s.byName[sheet.Name()] = append(s.byName[sheet.Name()], sheet)
		sheet.Root.Walk(func(n *css.Node) bool {
			switch n.Kind {
			case css.KindRuleset, css.KindMedia, css.KindImport:
				s.kinds[n.Kind] = append(s.kinds[n.Kind], n)
				seen := make(map[string]bool)
				for _, w := range css.Words(n.Text) {
					if !seen[w] {
						seen[w] = true
						s.words[w] = append(s.words[w], n)
					}
				}
			}
			return true
		})
	}
	return s
}

// Root returns absolute path of the project root.
func (s *Snapshot) Root() string {
	return s.root
}

// Generation increases with every change of the index.
func (s *Snapshot) Generation() uint64 {
	return s.gen
}

// Files returns all indexed stylesheets in natural path order.
func (s *Snapshot) Files() []*css.Stylesheet {
	return s.files
}

// File returns stylesheet by its absolute path.
func (s *Snapshot) File(path string) *css.Stylesheet {
	return s.byPath[path]
}

// FilesByName returns stylesheets with the given base name.
func (s *Snapshot) FilesByName(name string) []*css.Stylesheet {
	return s.byName[name]
}

// Search returns nodes of the requested kind (ruleset, media or import)
// whose text contains the word. Empty word returns all nodes of the kind.
// Results are in document order of files in natural path order.
func (s *Snapshot) Search(word string, kind css.NodeKind) []*css.Node {
	if word == "" {
		return s.kinds[kind]
	}
	var res []*css.Node
	for _, n := range s.words[word] {
		if n.Kind == kind {
			res = append(res, n)
		}
	}
	return res
}

// ResolveImport returns project file referenced by import URI from the
// given stylesheet or nil. Missing extensions and partials ("_name") are
// tried the way preprocessors do it.
func (s *Snapshot) ResolveImport(from *css.Stylesheet, uri string) *css.Stylesheet {
	if uri == "" || strings.Contains(uri, "://") || strings.HasPrefix(uri, "//") {
		return nil
	}
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}

	var base string
	if strings.HasPrefix(uri, "/") {
		base = filepath.Join(s.root, filepath.FromSlash(uri))
	} else {
		base = filepath.Join(from.Dir(), filepath.FromSlash(uri))
	}

	for _, candidate := range importCandidates(base, from.Dialect) {
		if f := s.byPath[candidate]; f != nil {
			return f
		}
	}
	return nil
}

func importCandidates(base string, dialect common.Dialect) []string {
	dir, name := filepath.Split(base)
	names := []string{name}
	if _, ok := common.DialectFromPath(name); !ok {
		names = names[:0]
		exts := []string{dialect.Ext()}
		for _, d := range common.DialectNames() {
			if ext := "." + d; ext != exts[0] {
				exts = append(exts, ext)
			}
		}
		for _, ext := range exts {
			names = append(names, name+ext)
		}
	}
	res := make([]string, 0, 2*len(names))
	for _, n := range names {
		res = append(res, filepath.Join(dir, n))
		if !strings.HasPrefix(n, "_") {
			res = append(res, filepath.Join(dir, "_"+n))
		}
	}
	return res
}

// Importers returns imports in other files which resolve to the given file.
func (s *Snapshot) Importers(f *css.Stylesheet) []*css.Node {
	stem := importStem(f.Name())
	var res []*css.Node
	for _, imp := range s.kinds[css.KindImport] {
		if imp.Sheet == f {
			continue
		}
		if !strings.HasSuffix(imp.Text, f.Name()) && importStem(path.Base(imp.Text)) != stem {
			continue
		}
		if s.ResolveImport(imp.Sheet, imp.Text) == f {
			res = append(res, imp)
		}
	}
	return res
}

// importStem strips extension and partial prefix from file name.
func importStem(name string) string {
	if _, ok := common.DialectFromPath(name); ok {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return strings.TrimPrefix(name, "_")
}
