package stage

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// R2D2Database is one entry of the observation database config.
type R2D2Database struct {
	Class      string `yaml:"class"`
	Root       string `yaml:"root,omitempty"`
	Bucket     string `yaml:"bucket,omitempty"`
	CacheFetch bool   `yaml:"cache_fetch"`
}

// R2D2Config describes where observations are fetched from and stored to.
type R2D2Config struct {
	Databases  map[string]R2D2Database `yaml:"databases"`
	FetchOrder []string                `yaml:"fetch_order"`
	StoreOrder []string                `yaml:"store_order"`
	CacheName  string                  `yaml:"cache_name"`
}

// NewR2D2Config returns the local, shared and archive databases. The shared
// database is rooted at the observation input directory.
func NewR2D2Config(localRoot, sharedRoot string) *R2D2Config {
	return &R2D2Config{
		Databases: map[string]R2D2Database{
			"local":   {Class: "LocalDB", Root: localRoot, CacheFetch: false},
			"shared":  {Class: "LocalDB", Root: sharedRoot, CacheFetch: false},
			"archive": {Class: "S3DB", Bucket: "archive.jcsda", CacheFetch: true},
		},
		FetchOrder: []string{"shared"},
		StoreOrder: []string{"local"},
		CacheName:  "local",
	}
}

// Write writes the config as YAML to path.
func (c *R2D2Config) Write(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode r2d2 config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode r2d2 config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write r2d2 config %s: %w", path, err)
	}
	return nil
}
