package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"marineprep/internal/manifest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--config", "/does/not/exist.yaml")
	require.NoError(t, err)
	assert.Equal(t, "marineprep dev (none)\n", out)
}

func TestMissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := execute(t, "manifest", "--config", "missing.yaml")
	assert.Error(t, err)
}

func TestManifestCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	ges := filepath.Join(dir, "ges")
	require.NoError(t, os.MkdirAll(ges, 0755))
	for _, n := range []string{"gdas.t00z.ocnf004.nc", "gdas.t00z.ocnf005.nc", "gdas.t00z.ocnf006.nc", "gdas.t00z.ocnf010.nc"} {
		require.NoError(t, os.WriteFile(filepath.Join(ges, n), nil, 0644))
	}

	out := filepath.Join(dir, "bkg_list.yaml")
	_, err := execute(t, "manifest", "--dir", ges, "--window-begin", "2022-03-28T00:00:00Z", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var m manifest.Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	require.Len(t, m.States, 3)
	assert.Equal(t, "2022-03-28T01:00:00Z", m.States[0].Date)
	assert.Equal(t, "2022-03-28T03:00:00Z", m.States[2].Date)
	assert.Equal(t, "gdas.t00z.ocnf006.nc", m.States[2].OcnFilename)
	assert.DirExists(t, filepath.Join(dir, "logs"))

	_, err = execute(t, "manifest", "--dir", ges, "--window-begin", "yesterday", "-o", out)
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	tmpl := filepath.Join(dir, "bump.yaml")
	require.NoError(t, os.WriteFile(tmpl, []byte("bump:\n    datadir: $(datadir)\n    prefix: soca_bump_$(CVAR)\n"), 0644))

	out := filepath.Join(dir, "out", "soca_bump2d_C_ssh.yaml")
	_, err := execute(t, "render", tmpl, "--no-cycle", "--set", "datadir=bump2d_ssh,CVAR=ssh", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "bump:\n  datadir: bump2d_ssh\n  prefix: soca_bump_ssh\n", string(data))

	_, err = execute(t, "render", tmpl, "--no-cycle", "--set", "datadir=x", "-o", out)
	assert.Error(t, err)
}

func TestRepairCommandUnknownBackend(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := execute(t, "repair", "--backend", "cdo", "a.nc")
	assert.ErrorContains(t, err, "unknown repair backend")
}

func TestPrepOtherCycleNeedsCyclePaths(t *testing.T) {
	chdir(t, t.TempDir())
	for k, v := range map[string]string{
		"HOMEgfs":            "/home/gfs",
		"COMOUT":             "/com/gdas.20220328/00/ocean",
		"COMIN_OBS":          "/com/obs",
		"COMIN_GES":          "/com/ges",
		"SOCA_INPUT_FIX_DIR": "/fix/soca",
		"CDATE":              "2022032800",
		"PDY":                "20220328",
		"cyc":                "00",
		"assim_freq":         "6",
		"SOCA_VARS":          "ssh,tocn,socn",
		"SOCA_NINNER":        "5",
		"DOMAIN_STACK_SIZE":  "116640000",
	} {
		t.Setenv(k, v)
	}

	_, err := execute(t, "prep", "--cdate", "2022032806")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle_paths.comout")
	assert.NoDirExists(t, "/com/gdas.20220328/00/ocean/analysis")
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
