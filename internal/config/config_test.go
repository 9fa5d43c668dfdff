package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendNative, cfg.Repair.Backend)
	assert.Equal(t, []string{"Temp", "Salt", "ave_ssh", "h", "MLD"}, cfg.Repair.Variables)
	assert.Equal(t, []string{"_FillValue", "missing_value"}, cfg.Repair.Attributes)
	assert.Equal(t, 9999.0, cfg.Repair.Sentinel)
	assert.Equal(t, "gdas.t*.ocnf00[4-9]", cfg.Manifest.Pattern)
	assert.Equal(t, "bkg_list.yaml", cfg.Manifest.FileName)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, filepath.IsAbs(cfg.Paths.LogDir))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marineprep.yaml")
	content := `
repair:
  backend: ncatted
  strict: true
manifest:
  validate_times: true
templates:
  stage: /abs/stage.yaml
server:
  bind: ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendNcatted, cfg.Repair.Backend)
	assert.True(t, cfg.Repair.Strict)
	assert.True(t, cfg.Manifest.ValidateTimes)
	assert.Equal(t, ":9000", cfg.Server.Bind)
	assert.Equal(t, "bkg_list.yaml", cfg.Manifest.FileName)

	c, err := LoadCycle(testEnviron())
	require.NoError(t, err)
	assert.Equal(t, "/abs/stage.yaml", cfg.StageTemplate(c))
	assert.Equal(t, "/home/gfs/sorc/gdas.cd/parm/soca/fms/input.nml", cfg.InputNMLTemplate(c))
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MARINEPREP_REPAIR_BACKEND", "bogus")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repair.backend")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "runs", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=runs sslmode=disable", d.DSN())
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MARINEPREP_TEST_KEY=from-file\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MARINEPREP_TEST_KEY") })

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("MARINEPREP_TEST_KEY"))
	assert.Equal(t, "from-file", Environ()["MARINEPREP_TEST_KEY"])
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
