// Package stage copies and links cycle inputs into the analysis directory.
package stage

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"marineprep/internal/templating"
)

// Config is the staging document rendered from stage.yaml.
type Config struct {
	StageDir          string   `yaml:"stage_dir"`
	ObsDir            string   `yaml:"obs_dir"`
	ObsPrefix         string   `yaml:"obs_prefix"`
	ObsDate           string   `yaml:"obs_date"`
	ObsSrc            string   `yaml:"obs_src"`
	ObsSuffix         string   `yaml:"obs_suffix"`
	DiagDir           string   `yaml:"diag_dir"`
	Observations      []string `yaml:"observations"`
	BackgroundDir     string   `yaml:"background_dir"`
	BackgroundPattern string   `yaml:"background_pattern"`
	FixDir            string   `yaml:"fix_dir"`
	FixFiles          []string `yaml:"fix_files"`
}

const defaultObsSuffix = ".nc4"

// LoadConfig renders the staging template with ctx and decodes it.
func LoadConfig(templatePath string, ctx templating.Context) (*Config, error) {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging template %s: %w", templatePath, err)
	}
	rendered, err := templating.Render(tmpl, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to render staging template %s: %w", templatePath, err)
	}
	return ParseConfig(rendered)
}

// ParseConfig decodes a rendered staging document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode staging config: %w", err)
	}
	if cfg.StageDir == "" {
		return nil, errors.New("staging config has no stage_dir")
	}
	if cfg.ObsDir == "" {
		cfg.ObsDir = "obs"
	}
	if cfg.ObsSuffix == "" {
		cfg.ObsSuffix = defaultObsSuffix
	}
	return &cfg, nil
}
