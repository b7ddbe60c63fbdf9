package resolve_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"cssfire/common"
	"cssfire/css"
	"cssfire/project"
	"cssfire/resolve"
)

func openProject(t *testing.T, files map[string]string) *project.Snapshot {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	ix, err := project.Open(context.Background(), root, project.Options{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return ix.Snapshot()
}

func sheet(t *testing.T, snap *project.Snapshot, name string) *css.Stylesheet {
	t.Helper()
	f := snap.File(filepath.Join(snap.Root(), filepath.FromSlash(name)))
	if f == nil {
		t.Fatalf("file %s is not indexed", name)
	}
	return f
}

// node returns first node of the kind with the given name in the file.
func node(t *testing.T, f *css.Stylesheet, kind css.NodeKind, name string) *css.Node {
	t.Helper()
	var res *css.Node
	f.Root.Walk(func(n *css.Node) bool {
		if res == nil && n.Kind == kind && n.Name == name {
			res = n
		}
		return res == nil
	})
	if res == nil {
		t.Fatalf("%s %s not found in %s", kind, name, f.Name())
	}
	return res
}

func TestVariable(t *testing.T) {
	snap := openProject(t, map[string]string{
		"same.scss":            "$c: red;\n.a { color: $c; }\n",
		"imports/main.scss":    "@import 'vars';\n.a { color: $c; }\n",
		"imports/_vars.scss":   "$c: blue;\n",
		"importer/main.scss":   "$c: green;\n@import 'part';\n",
		"importer/_part.scss":  ".b { color: $c; }\n",
		"cycle/a.scss":         "@import 'b';\n.x { color: $v; width: $missing; }\n",
		"cycle/b.scss":         "@import 'a';\n$v: 1px;\n",
		"scope/mixin.scss":     "$size: 10px;\n@mixin m($size: 4px) { width: $size; }\n.q { width: $size; }\n",
		"scope/rules.less":     "@c: red;\n.a { @c: blue; color: @c; }\n.b { color: @c; }\n",
		"scope/params.less":    ".bordered(@width: 2px) { border: @width; }\n",
		"broken/main.scss":     "$c: ;\n.a { color: $c; }\n",
		"plain/site.css":       ".a { color: var(--c); }\n",
		"less/main.less":       "@import \"theme\";\n.a { color: @base; }\n",
		"less/theme.less":      "@base: #f04615;\n",
		"less/unrelated.scss":  "$base: red;\n",
		"imports/other/x.scss": "$c: black;\n",
	})
	ctx := context.Background()
	r := resolve.New(snap, zaptest.NewLogger(t))

	tests := []struct {
		name     string
		file     string
		property string
		variable string
		wantFile string
		wantText string
		param    bool
	}{
		{"same file", "same.scss", "color", "$c", "same.scss", "red", false},
		{"imported partial", "imports/main.scss", "color", "$c", "imports/_vars.scss", "blue", false},
		{"importing file", "importer/_part.scss", "color", "$c", "importer/main.scss", "green", false},
		{"import cycle", "cycle/a.scss", "color", "$v", "cycle/b.scss", "1px", false},
		{"mixin parameter", "scope/mixin.scss", "width", "$size", "scope/mixin.scss", "4px", true},
		{"local less scope", "scope/rules.less", "color", "@c", "scope/rules.less", "blue", false},
		{"less parameter", "scope/params.less", "border", "@width", "scope/params.less", "2px", true},
		{"less import", "less/main.less", "color", "@base", "less/theme.less", "#f04615", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := node(t, sheet(t, snap, tt.file), css.KindDeclaration, tt.property)
			v, err := r.Variable(ctx, decl, tt.variable)
			if err != nil {
				t.Fatalf("Variable() error = %v", err)
			}
			if v.Kind != css.KindVariable || v.Name != tt.variable {
				t.Fatalf("resolved to %s", v)
			}
			if want := sheet(t, snap, tt.wantFile); v.Sheet != want {
				t.Errorf("resolved in %s, want %s", v.Sheet.Path, want.Path)
			}
			if v.Text != tt.wantText || v.Param != tt.param {
				t.Errorf("resolved %s param=%v", v, v.Param)
			}
		})
	}

	t.Run("top level outside mixin", func(t *testing.T) {
		f := sheet(t, snap, "scope/mixin.scss")
		var q *css.Node
		f.Root.Walk(func(n *css.Node) bool {
			if n.Kind == css.KindDeclaration && n.Parent.Parent.Selector() == ".q" {
				q = n
			}
			return true
		})
		v, err := r.Variable(ctx, q, "$size")
		if err != nil || v.Text != "10px" {
			t.Errorf("Variable() = %v, %v", v, err)
		}
	})

	notFound := []struct {
		name     string
		file     string
		property string
		variable string
	}{
		{"missing in cycle", "cycle/a.scss", "width", "$missing"},
		{"broken declaration", "broken/main.scss", "color", "$c"},
		{"plain css", "plain/site.css", "color", "--c"},
		{"empty name", "same.scss", "color", ""},
	}
	for _, tt := range notFound {
		t.Run(tt.name, func(t *testing.T) {
			decl := node(t, sheet(t, snap, tt.file), css.KindDeclaration, tt.property)
			if v, err := r.Variable(ctx, decl, tt.variable); !errors.Is(err, resolve.ErrNotFound) {
				t.Errorf("Variable() = %v, %v, want ErrNotFound", v, err)
			}
		})
	}
}

func TestVariableCanceled(t *testing.T) {
	snap := openProject(t, map[string]string{
		"main.scss":   "@import 'vars';\n.a { color: $c; }\n",
		"_vars.scss":  "$c: blue;\n",
		"unused.scss": ".b { margin: 0; }\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	decl := node(t, sheet(t, snap, "main.scss"), css.KindDeclaration, "color")
	if _, err := resolve.New(snap, nil).Variable(ctx, decl, "$c"); !errors.Is(err, context.Canceled) {
		t.Errorf("Variable() error = %v, want context.Canceled", err)
	}
}

func TestMixin(t *testing.T) {
	snap := openProject(t, map[string]string{
		"main.scss":    "@import 'mixins';\n.a { @include btn; @include missing; }\n",
		"_mixins.scss": "@mixin btn { padding: 0; }\n",
		"main.less":    ".bordered { border: 1px solid; }\n.a { .bordered(); }\n",
	})
	ctx := context.Background()
	r := resolve.New(snap, nil)

	inc := node(t, sheet(t, snap, "main.scss"), css.KindInclude, "btn")
	m, err := r.Mixin(ctx, inc, inc.Name)
	if err != nil {
		t.Fatalf("Mixin() error = %v", err)
	}
	if m.Kind != css.KindMixin || m.Sheet != sheet(t, snap, "_mixins.scss") {
		t.Errorf("resolved to %s in %s", m, m.Sheet.Path)
	}

	missing := node(t, sheet(t, snap, "main.scss"), css.KindInclude, "missing")
	if _, err := r.Mixin(ctx, missing, missing.Name); !errors.Is(err, resolve.ErrNotFound) {
		t.Errorf("Mixin() error = %v, want ErrNotFound", err)
	}

	less := node(t, sheet(t, snap, "main.less"), css.KindInclude, ".bordered")
	m, err = r.Mixin(ctx, less, less.Name)
	if err != nil {
		t.Fatalf("Mixin() error = %v", err)
	}
	if m.Kind != css.KindRuleset || m.MixinName() != ".bordered" {
		t.Errorf("resolved to %s", m)
	}
}

func TestReference(t *testing.T) {
	tests := []struct {
		dialect common.Dialect
		value   string
		want    string
		ok      bool
	}{
		{common.DialectScss, "$primary", "$primary", true},
		{common.DialectScss, "  $primary-color ", "$primary-color", true},
		{common.DialectScss, "@primary", "", false},
		{common.DialectLess, "@base", "@base", true},
		{common.DialectLess, "$base", "", false},
		{common.DialectScss, "$a + $b", "", false},
		{common.DialectScss, "darken($a, 10%)", "", false},
		{common.DialectCss, "$a", "", false},
	}
	for _, tt := range tests {
		got, ok := resolve.Reference(tt.dialect, tt.value)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Reference(%s, %q) = %q, %v", tt.dialect, tt.value, got, ok)
		}
	}
}

func TestAssignment(t *testing.T) {
	snap := openProject(t, map[string]string{
		"chain.scss":   "$base: red;\n$link: $base;\n.a { color: $link; }\n",
		"literal.scss": ".a { color: blue; }\n",
		"loop.scss":    "$a: $b;\n$b: $a;\n.x { color: $a; }\n",
	})
	ctx := context.Background()
	r := resolve.New(snap, nil)

	decl := node(t, sheet(t, snap, "chain.scss"), css.KindDeclaration, "color")
	v, err := r.Assignment(ctx, decl)
	if err != nil {
		t.Fatalf("Assignment() error = %v", err)
	}
	if v.Name != "$base" || v.Text != "red" {
		t.Errorf("Assignment() = %s, want $base", v)
	}

	literal := node(t, sheet(t, snap, "literal.scss"), css.KindDeclaration, "color")
	if _, err := r.Assignment(ctx, literal); !errors.Is(err, resolve.ErrNotFound) {
		t.Errorf("Assignment() error = %v, want ErrNotFound", err)
	}

	loop := node(t, sheet(t, snap, "loop.scss"), css.KindDeclaration, "color")
	if v, err := r.Assignment(ctx, loop); err != nil || v.Kind != css.KindVariable {
		t.Errorf("Assignment() on loop = %v, %v", v, err)
	}
}
