package logging

import (
	"os"
	"path/filepath"
	"testing"

	"marineprep/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{"console with color", config.LoggingConfig{Level: "info", Encoding: "console", Color: true}, false},
		{"json plain", config.LoggingConfig{Level: "debug", Encoding: "json"}, false},
		{"bad level", config.LoggingConfig{Level: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "logs")
			logger, err := New(tt.cfg, dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			logger.Sugar().Infow("hello", "cycle", "2022032800")
			_ = logger.Sync()

			data, err := os.ReadFile(filepath.Join(dir, "marineprep.log"))
			if err != nil {
				t.Fatalf("log file not written: %v", err)
			}
			if len(data) == 0 {
				t.Error("log file is empty")
			}
		})
	}
}
