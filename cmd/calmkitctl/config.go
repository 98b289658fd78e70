package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// serveConfig is the optional YAML file for serve. Flags set on the command
// line take precedence over file values.
type serveConfig struct {
	Addr      string            `yaml:"addr"`
	Store     string            `yaml:"store"`
	DBPath    string            `yaml:"db_path"`
	Layout    string            `yaml:"layout"`
	Library   string            `yaml:"library"`
	Models    map[string]string `yaml:"models"`
	Libraries map[string]string `yaml:"libraries"`
}

func loadServeConfig(path string) (serveConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return serveConfig{}, err
	}
	var cfg serveConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return serveConfig{}, fmt.Errorf("decode serve config %s: %w", path, err)
	}
	return cfg, nil
}

// overrideFromFlags copies each flag value that was set explicitly, or that
// the file left empty, into cfg.
func (cfg *serveConfig) overrideFromFlags(setFlags map[string]bool, values map[string]string) {
	pick := func(name string, dst *string) {
		if v, ok := values[name]; ok && (setFlags[name] || *dst == "") {
			*dst = v
		}
	}
	pick("addr", &cfg.Addr)
	pick("store", &cfg.Store)
	pick("db-path", &cfg.DBPath)
	pick("layout", &cfg.Layout)
	pick("library", &cfg.Library)
}

func mergePairs(dst map[string]string, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
