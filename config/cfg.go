package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// RouteConfig maps URL route to a directory or file of the project.
	// Relative directories are resolved against project root.
	RouteConfig struct {
		Route     string `yaml:"route" validate:"required,startswith=/"`
		Directory string `yaml:"directory" validate:"required"`
	}

	IndexingConfig struct {
		Extensions    []string      `yaml:"extensions" validate:"dive,required,startswith=."`
		Ignore        []string      `yaml:"ignore" validate:"dive,required"`
		Workers       int           `yaml:"workers" validate:"gte=0"`
		WatchDebounce time.Duration `yaml:"watch_debounce" validate:"gte=0"`
	}

	ProjectConfig struct {
		AutoClear              bool           `yaml:"auto_clear"`
		AutoExpand             bool           `yaml:"auto_expand"`
		UseRoutes              bool           `yaml:"use_routes"`
		MediaReduce            bool           `yaml:"media_reduce"`
		FileReduce             bool           `yaml:"file_reduce"`
		CurrentDocumentsReduce bool           `yaml:"current_documents_reduce"`
		ResolveVariables       bool           `yaml:"resolve_variables"`
		ResolveMixins          bool           `yaml:"resolve_mixins"`
		Routes                 []RouteConfig  `yaml:"routes" validate:"dive"`
		Indexing               IndexingConfig `yaml:"indexing"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Project   ProjectConfig  `yaml:"project"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

var requiredOptions = []func(*gencfg.ProcessingOptions){}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
