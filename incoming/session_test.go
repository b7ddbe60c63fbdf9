package incoming_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"cssfire/changes"
	"cssfire/config"
	"cssfire/event"
	"cssfire/incoming"
	"cssfire/project"
	"cssfire/reduce"
	"cssfire/route"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, ix *project.Index, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(ix.Root(), filepath.FromSlash(name)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func defaults() incoming.Settings {
	return incoming.Settings{
		Reduce:           reduce.Settings{Media: true, Filename: true},
		ResolveVariables: true,
		ResolveMixins:    true,
	}
}

func newSession(t *testing.T, files map[string]string, settings incoming.Settings, editor reduce.Editor) (*incoming.Session, *project.Index) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	log := zaptest.NewLogger(t)
	ix, err := project.Open(context.Background(), root, project.Options{}, log)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s, err := incoming.NewSession(ix, settings, editor, nil, log)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s, ix
}

func change(href, media, selector, property, value string) event.Change {
	return event.NewChange(media, "http://localhost:8080"+href, selector, property, value, false, false)
}

func process(t *testing.T, s *incoming.Session, ev event.Change) []*changes.Path {
	t.Helper()
	paths, err := s.Process(context.Background(), ev)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	return paths
}

func apply(t *testing.T, s *incoming.Session) {
	t.Helper()
	if err := s.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("%d changes left pending after apply", s.Count())
	}
}

func TestNestedExisting(t *testing.T) {
	s, ix := newSession(t, map[string]string{
		"css/site.scss": ".nav {\n  a { color: blue; }\n}\n",
	}, defaults(), nil)

	paths := process(t, s, change("/css/site.scss", "", ".nav a", "color", "red"))
	if len(paths) != 1 {
		t.Fatalf("got %d candidates, want 1", len(paths))
	}
	d := paths[0].Declaration
	if d.Dest != changes.DestExisting || d.Source == nil || d.Source.Text != "blue" {
		t.Errorf("candidate = %s", paths[0])
	}
	if s.Count() != 1 {
		t.Errorf("pending = %d, want 1", s.Count())
	}

	apply(t, s)
	if got := readFile(t, ix, "css/site.scss"); got != ".nav {\n  a { color: red; }\n}\n" {
		t.Errorf("site.scss = %q", got)
	}
}

func TestNestedSynthetic(t *testing.T) {
	s, ix := newSession(t, map[string]string{
		"site.scss": ".nav {}\n",
	}, defaults(), nil)

	paths := process(t, s, change("/site.scss", "", ".nav a", "color", "red"))
	if len(paths) != 1 {
		t.Fatalf("got %d candidates, want 1", len(paths))
	}
	d := paths[0].Declaration
	if d.Dest != changes.DestBlock || d.Nested != "a" {
		t.Fatalf("candidate = %s", paths[0])
	}
	if d.Anchor == nil || d.Anchor.Parent.Selector() != ".nav" {
		t.Errorf("anchor = %v", d.Anchor)
	}

	apply(t, s)
	want := ".nav {\n    a {\n        color: red;\n    }\n}\n"
	if got := readFile(t, ix, "site.scss"); got != want {
		t.Errorf("site.scss = %q, want %q", got, want)
	}
}

func TestNestedPlainCss(t *testing.T) {
	s, ix := newSession(t, map[string]string{
		"site.css": ".nav { color: red; }\n",
	}, defaults(), nil)

	process(t, s, change("/site.css", "", ".nav a", "color", "blue"))
	apply(t, s)
	want := ".nav { color: red; }\n\n.nav a {\n    color: blue;\n}\n"
	if got := readFile(t, ix, "site.css"); got != want {
		t.Errorf("site.css = %q, want %q", got, want)
	}
}

func TestMediaCandidate(t *testing.T) {
	s, ix := newSession(t, map[string]string{
		"a.css": "@media print {\n  .x { color: red; }\n}\n",
	}, defaults(), nil)

	paths := process(t, s, change("/a.css", "print", ".nav", "color", "blue"))
	if len(paths) != 1 || paths[0].Declaration.Dest != changes.DestMedia {
		t.Fatalf("candidates = %v", paths)
	}
	if paths[0].Media() != "print" {
		t.Errorf("media = %q", paths[0].Media())
	}

	apply(t, s)
	want := "@media print {\n  .x { color: red; }\n    .nav {\n        color: blue;\n    }\n}\n"
	if got := readFile(t, ix, "a.css"); got != want {
		t.Errorf("a.css = %q, want %q", got, want)
	}
}

func TestFileCandidate(t *testing.T) {
	s, ix := newSession(t, map[string]string{
		"b.css": ".x { color: red; }\n",
		"c.css": ".y {}",
	}, defaults(), nil)

	paths := process(t, s, change("/b.css", "", ".new", "color", "blue"))
	if len(paths) != 1 || paths[0].Declaration.Dest != changes.DestRules {
		t.Fatalf("candidates = %v", paths)
	}

	// file without trailing newline
	process(t, s, change("/c.css", "", ".new", "margin", "0"))

	apply(t, s)
	if got, want := readFile(t, ix, "b.css"), ".x { color: red; }\n\n.new {\n    color: blue;\n}\n"; got != want {
		t.Errorf("b.css = %q, want %q", got, want)
	}
	if got, want := readFile(t, ix, "c.css"), ".y {}\n\n.new {\n    margin: 0;\n}\n"; got != want {
		t.Errorf("c.css = %q, want %q", got, want)
	}
}

func TestNoCandidates(t *testing.T) {
	s, _ := newSession(t, map[string]string{
		"a.css": ".a { color: red; }\n",
	}, defaults(), nil)

	if paths := process(t, s, change("/other.css", "", ".missing", "color", "blue")); len(paths) != 0 {
		t.Errorf("candidates = %v", paths)
	}
	if s.Count() != 0 {
		t.Errorf("pending = %d", s.Count())
	}
}

func TestReductions(t *testing.T) {
	files := map[string]string{
		"a/site.css":   ".nav { color: red; }\n",
		"b/site.css":   ".nav { color: red; }\n",
		"b/print.css":  "@media print { .nav { color: black; } }\n",
		"web/site.css": ".nav { color: red; }\n",
	}

	tests := []struct {
		name     string
		settings func(root string) incoming.Settings
		editor   func(root string) reduce.Editor
		ev       event.Change
		want     []string
	}{
		{
			name:     "no reduction",
			settings: func(string) incoming.Settings { return incoming.Settings{} },
			ev:       change("/site.css", "", ".nav", "color", "blue"),
			want:     []string{"a/site.css", "b/print.css", "b/site.css", "web/site.css"},
		},
		{
			name:     "media",
			settings: func(string) incoming.Settings { return incoming.Settings{Reduce: reduce.Settings{Media: true}} },
			ev:       change("/site.css", "", ".nav", "color", "blue"),
			want:     []string{"a/site.css", "b/site.css", "web/site.css"},
		},
		{
			name:     "media query",
			settings: func(string) incoming.Settings { return incoming.Settings{Reduce: reduce.Settings{Media: true}} },
			ev:       change("/print.css", "print", ".nav", "color", "blue"),
			want:     []string{"b/print.css"},
		},
		{
			name:     "filename",
			settings: func(string) incoming.Settings { return incoming.Settings{Reduce: reduce.Settings{Filename: true}} },
			ev:       change("/print.css", "", ".nav", "color", "blue"),
			want:     []string{"b/print.css"},
		},
		{
			name: "open documents",
			settings: func(string) incoming.Settings {
				return incoming.Settings{Reduce: reduce.Settings{OpenDocuments: true}}
			},
			editor: func(root string) reduce.Editor {
				return reduce.NewOpenFiles(filepath.Join(root, "b", "site.css"))
			},
			ev:   change("/site.css", "", ".nav", "color", "blue"),
			want: []string{"b/site.css"},
		},
		{
			name: "routes",
			settings: func(root string) incoming.Settings {
				return incoming.Settings{
					Reduce: reduce.Settings{Routes: true},
					Routes: route.Table{{Root: filepath.Join(root, "web"), Route: "/static", Dir: true}},
				}
			},
			ev:   change("/static/site.css", "", ".nav", "color", "blue"),
			want: []string{"web/site.css"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFiles(t, root, files)
			log := zaptest.NewLogger(t)
			ix, err := project.Open(context.Background(), root, project.Options{}, log)
			if err != nil {
				t.Fatal(err)
			}
			var editor reduce.Editor
			if tt.editor != nil {
				editor = tt.editor(ix.Root())
			}
			s, err := incoming.NewSession(ix, tt.settings(ix.Root()), editor, nil, log)
			if err != nil {
				t.Fatal(err)
			}

			var got []string
			for _, p := range process(t, s, tt.ev) {
				rel, _ := filepath.Rel(ix.Root(), p.File())
				got = append(got, filepath.ToSlash(rel))
			}
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("candidates = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyEdits(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		ev    event.Change
		check string
		want  string
	}{
		{
			name:  "replace value",
			files: map[string]string{"a.css": ".a {\n  margin: 0;\n  color: red;\n}\n"},
			ev:    change("/a.css", "", ".a", "color", "blue"),
			check: "a.css",
			want:  ".a {\n  margin: 0;\n  color: blue;\n}\n",
		},
		{
			name:  "delete line",
			files: map[string]string{"a.css": ".a {\n  margin: 0;\n  color: red;\n}\n"},
			ev:    event.NewChange("", "/a.css", ".a", "color", "", true, false),
			check: "a.css",
			want:  ".a {\n  margin: 0;\n}\n",
		},
		{
			name:  "toggle important",
			files: map[string]string{"a.css": ".a { color: red; }\n"},
			ev:    event.NewChange("", "/a.css", ".a", "color", "blue", false, true),
			check: "a.css",
			want:  ".a { color: blue !important; }\n",
		},
		{
			name:  "append to block",
			files: map[string]string{"a.css": ".a {\n  margin: 0\n}\n"},
			ev:    change("/a.css", "", ".a", "color", "blue"),
			check: "a.css",
			want:  ".a {\n  margin: 0;\n  color: blue;\n}\n",
		},
		{
			name:  "variable",
			files: map[string]string{"main.scss": "@import 'vars';\n.a { color: $c; }\n", "_vars.scss": "$c: blue;\n"},
			ev:    change("/main.scss", "", ".a", "color", "red"),
			check: "_vars.scss",
			want:  "$c: red;\n",
		},
		{
			name:  "mixin",
			files: map[string]string{"main.scss": "@mixin m { color: red; }\n.a { @include m; }\n"},
			ev:    change("/main.scss", "", ".a", "color", "blue"),
			check: "main.scss",
			want:  "@mixin m { color: blue; }\n.a { @include m; }\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := defaults()
			settings.Reduce = reduce.Settings{}
			s, ix := newSession(t, tt.files, settings, nil)
			process(t, s, tt.ev)
			apply(t, s)
			if got := readFile(t, ix, tt.check); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.check, got, tt.want)
			}
		})
	}
}

func TestApplyAppendsToOneBody(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "closing brace on the same line",
			src:  ".a { color: red; }\n",
			want: ".a { color: red;\n    margin: 0;\n    padding: 1px;\n}\n",
		},
		{
			name: "unterminated last declaration",
			src:  ".a {\n  color: red\n}\n",
			want: ".a {\n  color: red;\n  margin: 0;\n  padding: 1px;\n}\n",
		},
		{
			name: "multiline body",
			src:  ".a {\n  color: red;\n}\n",
			want: ".a {\n  color: red;\n  margin: 0;\n  padding: 1px;\n}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := defaults()
			settings.Reduce = reduce.Settings{}
			s, ix := newSession(t, map[string]string{"a.css": tt.src}, settings, nil)
			process(t, s, change("/a.css", "", ".a", "margin", "0"))
			process(t, s, change("/a.css", "", ".a", "padding", "1px"))
			apply(t, s)
			if got := readFile(t, ix, "a.css"); got != tt.want {
				t.Errorf("a.css = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyWithoutResolution(t *testing.T) {
	files := map[string]string{
		"main.scss":  "@import 'vars';\n@mixin m { color: red; }\n.a { @include m; background: $c; }\n",
		"_vars.scss": "$c: blue;\n",
	}
	s, ix := newSession(t, files, incoming.Settings{}, nil)

	process(t, s, change("/main.scss", "", ".a", "color", "green"))
	process(t, s, change("/main.scss", "", ".a", "background", "white"))
	apply(t, s)

	want := "@import 'vars';\n@mixin m { color: red; }\n.a { @include m; background: white;\n    color: green;\n}\n"
	if got := readFile(t, ix, "main.scss"); got != want {
		t.Errorf("main.scss = %q, want %q", got, want)
	}
	if got := readFile(t, ix, "_vars.scss"); got != files["_vars.scss"] {
		t.Errorf("_vars.scss = %q", got)
	}
}

func TestApplyConflict(t *testing.T) {
	files := map[string]string{"main.scss": "$c: blue;\n.a { color: $c; }\n.b { background: $c; }\n"}

	t.Run("different values", func(t *testing.T) {
		s, ix := newSession(t, files, defaults(), nil)
		process(t, s, change("/main.scss", "", ".a", "color", "red"))
		process(t, s, change("/main.scss", "", ".b", "background", "green"))

		err := s.Apply(context.Background())
		if !errors.Is(err, incoming.ErrConflict) {
			t.Fatalf("Apply() error = %v, want ErrConflict", err)
		}
		if s.Count() != 1 {
			t.Errorf("pending = %d, rejected change must stay", s.Count())
		}
		got := readFile(t, ix, "main.scss")
		if !strings.HasPrefix(got, "$c: red;\n") && !strings.HasPrefix(got, "$c: green;\n") {
			t.Errorf("main.scss = %q", got)
		}
	})

	t.Run("same value", func(t *testing.T) {
		s, ix := newSession(t, files, defaults(), nil)
		process(t, s, change("/main.scss", "", ".a", "color", "red"))
		process(t, s, change("/main.scss", "", ".b", "background", "red"))
		if s.Count() != 2 {
			t.Fatalf("pending = %d, want 2", s.Count())
		}
		apply(t, s)
		if got := readFile(t, ix, "main.scss"); got != "$c: red;\n.a { color: $c; }\n.b { background: $c; }\n" {
			t.Errorf("main.scss = %q", got)
		}
	})
}

func TestApplyStale(t *testing.T) {
	s, ix := newSession(t, map[string]string{"a.css": ".a { color: red; }\n"}, defaults(), nil)
	process(t, s, change("/a.css", "", ".a", "color", "blue"))

	path := filepath.Join(ix.Root(), "a.css")
	if err := os.WriteFile(path, []byte(".a { margin: 0; }\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Reload(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	if err := s.Apply(context.Background()); !errors.Is(err, incoming.ErrStale) {
		t.Errorf("Apply() error = %v, want ErrStale", err)
	}
	if s.Count() != 1 {
		t.Errorf("pending = %d, stale change must stay", s.Count())
	}
	if got := readFile(t, ix, "a.css"); got != ".a { margin: 0; }\n" {
		t.Errorf("a.css = %q", got)
	}
}

func TestReplaceOlderChange(t *testing.T) {
	s, ix := newSession(t, map[string]string{"a.css": ".a { color: red; }\n"}, defaults(), nil)
	process(t, s, change("/a.css", "", ".a", "color", "blue"))
	process(t, s, change("/a.css", "", ".a", "color", "green"))
	if s.Count() != 1 {
		t.Fatalf("pending = %d, want 1", s.Count())
	}
	apply(t, s)
	if got := readFile(t, ix, "a.css"); got != ".a { color: green; }\n" {
		t.Errorf("a.css = %q", got)
	}
}

func TestPreview(t *testing.T) {
	s, ix := newSession(t, map[string]string{"css/a.css": ".a {\n  color: red;\n}\n"}, defaults(), nil)
	process(t, s, change("/css/a.css", "", ".a", "color", "blue"))

	got, err := s.Preview(context.Background())
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	want := "--- a/css/a.css\n+++ b/css/a.css\n@@\n .a {\n-  color: red;\n+  color: blue;\n }\n"
	if got != want {
		t.Errorf("Preview() = %q, want %q", got, want)
	}
	if readFile(t, ix, "css/a.css") != ".a {\n  color: red;\n}\n" {
		t.Error("preview must not modify sources")
	}
	if s.Count() != 1 {
		t.Error("preview must keep pending changes")
	}
}

func TestDiscardAndClear(t *testing.T) {
	s, _ := newSession(t, map[string]string{"a.css": ".a { color: red; margin: 0; }\n"}, defaults(), nil)
	process(t, s, change("/a.css", "", ".a", "color", "blue"))
	process(t, s, change("/a.css", "", ".a", "margin", "1px"))

	pending := s.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if !s.Discard(pending[0].Declaration.Key()) {
		t.Error("Discard() of pending change failed")
	}
	if s.Discard("missing") {
		t.Error("Discard() of unknown key succeeded")
	}
	if s.Count() != 1 {
		t.Errorf("pending = %d, want 1", s.Count())
	}
	s.Clear()
	if s.Count() != 0 {
		t.Errorf("pending = %d after clear", s.Count())
	}
}

func TestHandle(t *testing.T) {
	files := map[string]string{"a.css": ".a { color: red; }\n"}
	ev := change("/a.css", "", ".a", "color", "blue")
	refresh := event.Message{Signal: &event.Signal{Name: event.SignalRefresh}}

	for _, autoClear := range []bool{false, true} {
		settings := defaults()
		settings.AutoClear = autoClear
		s, _ := newSession(t, files, settings, nil)

		ctx := context.Background()
		if err := s.Handle(ctx, event.Message{Change: &ev}); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if err := s.Handle(ctx, refresh); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		want := 1
		if autoClear {
			want = 0
		}
		if s.Count() != want {
			t.Errorf("auto clear %v: pending = %d, want %d", autoClear, s.Count(), want)
		}
		if err := s.Handle(ctx, event.Message{}); err == nil {
			t.Error("expected error for empty message")
		}
	}
}

func TestRun(t *testing.T) {
	s, _ := newSession(t, map[string]string{"a.css": ".a { color: red; margin: 0; }\n"}, defaults(), nil)

	first := change("/a.css", "", ".a", "color", "blue")
	second := change("/a.css", "", ".a", "margin", "1px")
	msgs := make(chan event.Message, 3)
	msgs <- event.Message{Change: &first}
	msgs <- event.Message{}
	msgs <- event.Message{Change: &second}
	close(msgs)

	handled := 0
	if err := s.Run(context.Background(), msgs, func(event.Message) { handled++ }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if handled != 2 {
		t.Errorf("handled = %d, failed message must be skipped", handled)
	}
	if s.Count() != 2 {
		t.Errorf("pending = %d, want 2", s.Count())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, make(chan event.Message), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRecordsReport(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.css": ".a { color: red; }\n"})
	log := zaptest.NewLogger(t)
	ix, err := project.Open(context.Background(), root, project.Options{}, log)
	if err != nil {
		t.Fatal(err)
	}
	rpt, err := (&config.ReporterConfig{Destination: filepath.Join(t.TempDir(), "report.zip")}).Prepare()
	if err != nil {
		t.Fatal(err)
	}
	s, err := incoming.NewSession(ix, defaults(), nil, rpt, log)
	if err != nil {
		t.Fatal(err)
	}

	process(t, s, change("/a.css", "", ".a", "color", "blue"))
	apply(t, s)
	if err := rpt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if fi, err := os.Stat(rpt.Name()); err != nil || fi.Size() == 0 {
		t.Errorf("report was not written: %v", err)
	}
}

func TestSearchCache(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.css": ".a { color: red; }\n@media print { .b { color: black; } }\n",
	})
	ix, err := project.Open(context.Background(), root, project.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := incoming.NewSearchCache()
	first := ix.Snapshot()

	if rules := c.Rules(first, " .a "); len(rules) != 1 {
		t.Fatalf("Rules() = %v", rules)
	}
	if media := c.Media(first, "print"); len(media) != 1 {
		t.Fatalf("Media() = %v", media)
	}
	c.Rules(first, ".a")
	if c.Len() != 2 {
		t.Errorf("Len() = %d, normalized lookups must share entry", c.Len())
	}

	second, err := ix.Reload(context.Background(), filepath.Join(root, "a.css"))
	if err != nil {
		t.Fatal(err)
	}
	rules := c.Rules(second, ".a")
	if c.Len() != 1 {
		t.Errorf("Len() = %d, new generation must drop everything", c.Len())
	}
	if len(rules) != 1 || rules[0].Sheet != second.File(filepath.Join(root, "a.css")) {
		t.Error("lookup returned nodes of old snapshot")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear()", c.Len())
	}
}

func TestCacheClearedByApply(t *testing.T) {
	s, _ := newSession(t, map[string]string{"a.css": ".a { color: red; }\n"}, defaults(), nil)
	process(t, s, change("/a.css", "", ".a", "color", "blue"))
	if s.Cache().Len() == 0 {
		t.Fatal("lookups were not cached")
	}
	apply(t, s)
	if s.Cache().Len() != 0 {
		t.Errorf("Len() = %d after apply", s.Cache().Len())
	}
}

func TestSettingsFromConfig(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"web/site.css": "", "app.css": ""})

	cfg := &config.ProjectConfig{
		AutoClear:        true,
		UseRoutes:        true,
		MediaReduce:      true,
		ResolveVariables: true,
		Routes: []config.RouteConfig{
			{Route: "/static/", Directory: "web"},
			{Route: "/app.css", Directory: filepath.Join(root, "app.css")},
		},
	}
	s, err := incoming.SettingsFromConfig(cfg, root)
	if err != nil {
		t.Fatalf("SettingsFromConfig() error = %v", err)
	}
	if !s.AutoClear || s.AutoExpand || !s.Reduce.Routes || !s.Reduce.Media || s.Reduce.Filename || !s.ResolveVariables || s.ResolveMixins {
		t.Errorf("settings = %+v", s)
	}
	want := route.Table{
		{Root: filepath.Join(root, "web"), Route: "/static", Dir: true},
		{Root: filepath.Join(root, "app.css"), Route: "/app.css"},
	}
	if len(s.Routes) != len(want) {
		t.Fatalf("routes = %v", s.Routes)
	}
	for i := range want {
		if s.Routes[i] != want[i] {
			t.Errorf("route %d = %+v, want %+v", i, s.Routes[i], want[i])
		}
	}

	cfg.Routes = append(cfg.Routes, config.RouteConfig{Route: "/missing", Directory: "missing"})
	if _, err := incoming.SettingsFromConfig(cfg, root); err == nil {
		t.Error("expected error for missing route directory")
	}
}
