package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"marineprep/internal/manifest"
	"marineprep/internal/metrics"
)

// Stager moves observations, backgrounds and fix files into the stage directory.
type Stager struct {
	Log *zap.SugaredLogger
}

// ObsSource returns the shared location of one observation space file.
func (c *Config) ObsSource(name string) string {
	return filepath.Join(c.ObsSrc, c.ObsPrefix+name+"."+c.ObsDate+c.ObsSuffix)
}

// ObsTarget returns where an observation space file is staged.
func (c *Config) ObsTarget(name string) string {
	return filepath.Join(c.StageDir, c.ObsDir, filepath.Base(c.ObsSource(name)))
}

// BackgroundTarget is the directory backgrounds are linked into.
func (c *Config) BackgroundTarget() string {
	return filepath.Join(c.StageDir, "bkg")
}

// Observations copies each listed observation space file. Spaces with no file
// for this cycle are logged and skipped.
func (s *Stager) Observations(cfg *Config) ([]string, error) {
	if err := EnsureDirs(filepath.Join(cfg.StageDir, cfg.ObsDir)); err != nil {
		return nil, err
	}
	if cfg.DiagDir != "" {
		if err := EnsureDirs(cfg.DiagDir); err != nil {
			return nil, err
		}
	}

	var staged []string
	for _, name := range cfg.Observations {
		src, dst := cfg.ObsSource(name), cfg.ObsTarget(name)
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			s.Log.Warnw("No observations for this cycle, skipping", "obs_space", name, "file", src)
			continue
		}
		if err := CopyFile(src, dst); err != nil {
			return staged, fmt.Errorf("failed to stage observations %s: %w", name, err)
		}
		metrics.StagedFiles.WithLabelValues("obs").Inc()
		s.Log.Infow("Staged observations", "obs_space", name, "file", dst)
		staged = append(staged, dst)
	}
	return staged, nil
}

// Backgrounds links the background diagnostics and the RESTART directory.
func (s *Stager) Backgrounds(cfg *Config) ([]string, error) {
	if cfg.BackgroundDir == "" {
		return nil, errors.New("staging config has no background_dir")
	}
	fi, err := os.Stat(cfg.BackgroundDir)
	if err != nil {
		return nil, fmt.Errorf("background directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("background directory %s is not a directory", cfg.BackgroundDir)
	}

	files, err := manifest.Match(cfg.BackgroundDir, cfg.BackgroundPattern)
	if err != nil {
		return nil, err
	}
	target := cfg.BackgroundTarget()
	if err := EnsureDirs(target); err != nil {
		return nil, err
	}

	var linked []string
	for _, f := range files {
		dst := filepath.Join(target, filepath.Base(f))
		if err := Symlink(f, dst); err != nil {
			return linked, err
		}
		metrics.StagedFiles.WithLabelValues("background").Inc()
		linked = append(linked, dst)
	}

	restart := filepath.Join(cfg.BackgroundDir, "RESTART")
	if _, err := os.Stat(restart); err == nil {
		dst := filepath.Join(target, "RESTART")
		if err := Symlink(restart, dst); err != nil {
			return linked, err
		}
		linked = append(linked, dst)
	} else {
		s.Log.Warnw("Background has no RESTART directory", "dir", restart)
	}

	s.Log.Infow("Staged backgrounds", "dir", cfg.BackgroundDir, "count", len(files))
	return linked, nil
}

// Fix links the static SOCA files into the stage directory. With no fix_files
// listed, every entry of fix_dir is linked.
func (s *Stager) Fix(cfg *Config) ([]string, error) {
	if cfg.FixDir == "" {
		return nil, errors.New("staging config has no fix_dir")
	}
	names := cfg.FixFiles
	if len(names) == 0 {
		entries, err := os.ReadDir(cfg.FixDir)
		if err != nil {
			return nil, fmt.Errorf("failed to list fix directory: %w", err)
		}
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)
	}

	var linked []string
	for _, name := range names {
		src := filepath.Join(cfg.FixDir, name)
		if _, err := os.Stat(src); err != nil {
			return linked, fmt.Errorf("fix file %s: %w", name, err)
		}
		dst := filepath.Join(cfg.StageDir, filepath.Base(name))
		l, err := linkTree(src, dst)
		linked = append(linked, l...)
		if err != nil {
			return linked, err
		}
	}
	metrics.StagedFiles.WithLabelValues("fix").Add(float64(len(linked)))
	s.Log.Infow("Staged fix files", "dir", cfg.FixDir, "count", len(linked))
	return linked, nil
}

// linkTree links src to dst. Directories are recreated at dst and their
// entries linked one by one, so other steps can add files next to them.
func linkTree(src, dst string) ([]string, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		if err := Symlink(src, dst); err != nil {
			return nil, err
		}
		return []string{dst}, nil
	}

	if err := EnsureDirs(dst); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", src, err)
	}
	var linked []string
	for _, e := range entries {
		l, err := linkTree(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name()))
		linked = append(linked, l...)
		if err != nil {
			return linked, err
		}
	}
	return linked, nil
}
