// Package manifest builds the background list read by the variational analysis.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the timestamp layout of a manifest state.
const DateLayout = "2006-01-02T15:04:05Z"

// DefaultPattern matches the hourly ocean diagnostics of the background
// forecast between hours 4 and 9.
const DefaultPattern = "gdas.t*.ocnf00[4-9]"

// State describes one background file read by the pseudo model.
type State struct {
	Date         string `yaml:"date"`
	Basename     string `yaml:"basename"`
	OcnFilename  string `yaml:"ocn_filename"`
	ReadFromFile int    `yaml:"read_from_file"`
}

// Manifest is the ordered list of backgrounds for the assimilation window.
type Manifest struct {
	States []State `yaml:"states"`
}

// Match returns the files in dir whose name contains pattern, sorted by name.
func Match(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	files, err := filepath.Glob(filepath.Join(dir, "*"+pattern+"*"))
	if err != nil {
		return nil, fmt.Errorf("invalid background pattern %q: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}

// Build assigns window_begin + 1h, + 2h, ... to files in the given order.
// dir is written to every state as the basename with a trailing slash.
func Build(windowBegin time.Time, dir string, files []string) *Manifest {
	basename := strings.TrimRight(dir, "/") + "/"
	m := &Manifest{States: make([]State, 0, len(files))}
	date := windowBegin.UTC()
	for _, f := range files {
		date = date.Add(time.Hour)
		base := filepath.Base(f)
		m.States = append(m.States, State{
			Date:         date.Format(DateLayout),
			Basename:     basename,
			OcnFilename:  strings.TrimSuffix(base, filepath.Ext(base)) + ".nc",
			ReadFromFile: 1,
		})
	}
	return m
}

// Marshal returns the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Write writes the manifest to path.
func (m *Manifest) Write(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

var (
	forecastHour = regexp.MustCompile(`f(\d{3})`)
	cycleHour    = regexp.MustCompile(`t(\d{2})z`)
)

func lastNumber(re *regexp.Regexp, base string) (int, bool) {
	matches := re.FindAllStringSubmatch(base, -1)
	if len(matches) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	return n, err == nil
}

// ValidateSequence checks that the forecast hours embedded in the file names
// (as in ocnf004) increase by one hour per file. Names without a forecast
// hour are rejected.
func ValidateSequence(files []string) error {
	prev := -1
	for i, f := range files {
		base := filepath.Base(f)
		hour, ok := lastNumber(forecastHour, base)
		if !ok {
			return fmt.Errorf("background %s has no forecast hour in its name", base)
		}
		if i > 0 && hour != prev+1 {
			return fmt.Errorf("background %s has forecast hour %d, expected %d", base, hour, prev+1)
		}
		prev = hour
	}
	return nil
}

// ValidateWindow checks the sequence and that each background is valid at the
// hour Build assigns it: the cycle hour in the name (t18z) plus the forecast
// hour must equal windowBegin plus i+1 hours, modulo a day.
func ValidateWindow(windowBegin time.Time, files []string) error {
	if err := ValidateSequence(files); err != nil {
		return err
	}
	for i, f := range files {
		base := filepath.Base(f)
		cyc, ok := lastNumber(cycleHour, base)
		if !ok {
			return fmt.Errorf("background %s has no cycle hour in its name", base)
		}
		fh, _ := lastNumber(forecastHour, base)
		want := windowBegin.Add(time.Duration(i+1) * time.Hour).Hour()
		if got := (cyc + fh) % 24; got != want {
			return fmt.Errorf("background %s is valid at %02dZ, expected %02dZ", base, got, want)
		}
	}
	return nil
}
