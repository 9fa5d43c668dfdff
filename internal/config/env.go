package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"marineprep/internal/templating"
)

// ErrCyclePaths is returned when a run targets another cycle than the
// environment's CDATE and the cycle_paths templates are not configured.
var ErrCyclePaths = errors.New("cycle_paths templates are required to run another cycle")

// LoadEnvFiles loads the given .env files into the process environment,
// skipping files that do not exist. Variables already set are kept.
func LoadEnvFiles(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files %v: %w", existing, err)
	}
	return nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			out[k] = v
		}
	}
	return out
}

// WithCycleDate returns a copy of environ for another cycle, with CDATE, PDY
// and cyc replaced. The cycle directories are left alone, see ForCycle.
func WithCycleDate(environ map[string]string, cdate string) (map[string]string, error) {
	if _, err := time.Parse(CycleDateLayout, cdate); err != nil {
		return nil, fmt.Errorf("cycle date %q is not YYYYMMDDHH: %w", cdate, err)
	}
	out := make(map[string]string, len(environ)+3)
	for k, v := range environ {
		out[k] = v
	}
	out["CDATE"] = cdate
	out["PDY"] = cdate[:8]
	out["cyc"] = cdate[8:]
	return out, nil
}

// ForCycle returns environ adjusted to cycle cdate. When cdate is not the
// environment's CDATE, COMOUT, COMIN_GES and COMIN_OBS are rendered from the
// cycle_paths templates so that no directory of the environment's cycle is
// reused.
func (c *Config) ForCycle(environ map[string]string, cdate string) (map[string]string, error) {
	out, err := WithCycleDate(environ, cdate)
	if err != nil {
		return nil, err
	}
	if environ["CDATE"] == cdate {
		return out, nil
	}

	paths := []struct{ key, setting, tmpl string }{
		{"COMOUT", "cycle_paths.comout", c.CyclePaths.ComOut},
		{"COMIN_GES", "cycle_paths.comin_ges", c.CyclePaths.ComInGes},
		{"COMIN_OBS", "cycle_paths.comin_obs", c.CyclePaths.ComInObs},
	}
	var missing []string
	for _, p := range paths {
		if p.tmpl == "" {
			missing = append(missing, p.setting)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: set %s", ErrCyclePaths, strings.Join(missing, ", "))
	}

	prev, err := previousCycle(cdate, out["assim_freq"])
	if err != nil {
		return nil, err
	}
	ctx := templating.NewContext(out, map[string]string{
		"GDATE": prev,
		"gPDY":  prev[:8],
		"gcyc":  prev[8:],
	})
	for _, p := range paths {
		dir, err := templating.Expand(p.tmpl, ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", p.setting, err)
		}
		out[p.key] = dir
	}
	return out, nil
}

func previousCycle(cdate, assimFreq string) (string, error) {
	date, err := time.Parse(CycleDateLayout, cdate)
	if err != nil {
		return "", fmt.Errorf("cycle date %q is not YYYYMMDDHH: %w", cdate, err)
	}
	hours, err := strconv.Atoi(assimFreq)
	if err != nil || hours <= 0 {
		return "", fmt.Errorf("assim_freq must be a positive integer, got %q", assimFreq)
	}
	return date.Add(-time.Duration(hours) * time.Hour).Format(CycleDateLayout), nil
}
