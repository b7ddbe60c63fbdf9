package incoming

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"cssfire/config"
	"cssfire/reduce"
	"cssfire/route"
)

// SettingsFromConfig converts project configuration to session settings.
// Route directories are resolved against project root and must exist.
func SettingsFromConfig(cfg *config.ProjectConfig, root string) (Settings, error) {
	s := Settings{
		Reduce: reduce.Settings{
			Media:         cfg.MediaReduce,
			Filename:      cfg.FileReduce,
			OpenDocuments: cfg.CurrentDocumentsReduce,
			Routes:        cfg.UseRoutes,
		},
		ResolveVariables: cfg.ResolveVariables,
		ResolveMixins:    cfg.ResolveMixins,
		AutoClear:        cfg.AutoClear,
		AutoExpand:       cfg.AutoExpand,
	}

	for _, rc := range cfg.Routes {
		dir := filepath.FromSlash(rc.Directory)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		fi, err := os.Stat(dir)
		if err != nil {
			return Settings{}, fmt.Errorf("bad route '%s': %w", rc.Route, err)
		}
		s.Routes = append(s.Routes, route.Mapping{Root: dir, Route: path.Clean(rc.Route), Dir: fi.IsDir()})
	}
	return s, nil
}
