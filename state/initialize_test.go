package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"cssfire/config"
	"cssfire/reduce"
)

func TestLocalEnv_IndexOptions(t *testing.T) {
	env := &LocalEnv{}
	if opts := env.IndexOptions(); len(opts.Extensions) != 0 || opts.Workers != 0 {
		t.Errorf("IndexOptions() without configuration = %+v", opts)
	}

	env.Cfg = &config.Config{Project: config.ProjectConfig{Indexing: config.IndexingConfig{
		Extensions:    []string{".css"},
		Ignore:        []string{"node_modules"},
		Workers:       3,
		WatchDebounce: time.Second,
	}}}
	opts := env.IndexOptions()
	if len(opts.Extensions) != 1 || opts.Extensions[0] != ".css" || opts.Workers != 3 || opts.Ignore[0] != "node_modules" {
		t.Errorf("IndexOptions() = %+v", opts)
	}
}

func TestLocalEnv_OpenProject(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "web", "css"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "web", "css", "site.css"), []byte(".nav { margin: 0; }\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Project.UseRoutes = true
	cfg.Project.Routes = []config.RouteConfig{{Route: "/static", Directory: "web"}}

	env := &LocalEnv{
		Cfg:  cfg,
		Log:  zaptest.NewLogger(t),
		Open: reduce.NewOpenFiles(filepath.Join(root, "web", "css", "site.css")),
	}

	ix, s, err := env.OpenProject(context.Background(), root)
	if err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	if got := len(ix.Snapshot().Files()); got != 1 {
		t.Errorf("indexed %d files, want 1", got)
	}
	settings := s.Settings()
	if !settings.Reduce.Routes || len(settings.Routes) != 1 {
		t.Fatalf("routes were not configured: %+v", settings)
	}
	if m := settings.Routes[0]; m.Route != "/static" || !m.Dir || m.Root != filepath.Join(ix.Root(), "web") {
		t.Errorf("route = %+v", m)
	}
}

func TestLocalEnv_OpenProjectBadRoute(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Project.Routes = []config.RouteConfig{{Route: "/static", Directory: "missing"}}

	env := &LocalEnv{Cfg: cfg, Log: zaptest.NewLogger(t)}
	if _, _, err := env.OpenProject(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error for route to missing directory")
	}
}
