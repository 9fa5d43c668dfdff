package templating

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bumpTemplate = `geometry:
    geom_grid_file: soca_gridspec.nc
bump:
    datadir: $(datadir)
    prefix: cor_$(CVAR)
date: $(OBS_DATE)
`

func TestRender(t *testing.T) {
	ctx := NewContext(
		map[string]string{"OBS_DATE": "2022032800", "datadir": "base"},
		map[string]string{"datadir": "bump3d_tocn", "CVAR": "tocn"},
	)

	out, err := Render([]byte(bumpTemplate), ctx)
	require.NoError(t, err)

	want := `geometry:
  geom_grid_file: soca_gridspec.nc
bump:
  datadir: bump3d_tocn
  prefix: cor_tocn
date: 2022032800
`
	assert.Equal(t, want, string(out))
}

func TestRenderDeterministic(t *testing.T) {
	ctx := NewContext(nil, map[string]string{"OBS_DATE": "2022032800", "datadir": "d", "CVAR": "ssh"})

	first, err := Render([]byte(bumpTemplate), ctx)
	require.NoError(t, err)
	second, err := Render([]byte(bumpTemplate), ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		wantKey bool
	}{
		{"missing key", "a: $(NOPE)\n", true},
		{"malformed yaml", "a: [1, 2\n", false},
		{"empty document", "\n", false},
		{"unterminated tag", "a: $(OBS_DATE\n", false},
	}

	ctx := NewContext(map[string]string{"OBS_DATE": "2022032800"}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render([]byte(tt.tmpl), ctx)
			require.Error(t, err)
			assert.Equal(t, tt.wantKey, errors.Is(err, ErrMissingKey))
		})
	}
}

func TestContextWith(t *testing.T) {
	base := NewContext(map[string]string{"A": "1", "B": "2"}, nil)
	next := base.With(map[string]string{"B": "3", "C": "4"})

	v, _ := base.Lookup("B")
	assert.Equal(t, "2", v, "base context must not change")
	v, _ = next.Lookup("B")
	assert.Equal(t, "3", v)
	assert.Equal(t, []string{"A", "B", "C"}, next.Keys())
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(tmpl, []byte("ninner: $(NINNER)\n"), 0644))

	out := filepath.Join(dir, "sub", "out.yaml")
	require.NoError(t, RenderFile(tmpl, out, NewContext(nil, map[string]string{"NINNER": "5"})))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ninner: 5\n", string(data))

	err = RenderFile(filepath.Join(dir, "missing.yaml"), out, Context{})
	assert.Error(t, err)
}
