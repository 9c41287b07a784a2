package checkpoint

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"futurb/internal/core"
)

func sampleGrid(t *testing.T) *core.Grid {
	t.Helper()
	g, err := core.NewGrid(3, 4, 25)
	require.NoError(t, err)
	require.NoError(t, g.Set(core.Coord{Row: 1, Col: 1}, core.Urban, 0.1))
	require.NoError(t, g.Set(core.Coord{Row: 1, Col: 2}, core.Centrality, 1))
	require.NoError(t, g.Set(core.Coord{Row: 2, Col: 2}, core.Urban, 0))
	require.NoError(t, g.Block(core.Coord{Row: 0, Col: 3}))
	return g
}

func TestEncodeLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleGrid(t)))
	out := buf.String()
	assert.Contains(t, out, "rows: 3\n")
	assert.Contains(t, out, "cell_size: 25\n")

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, []string{"...x", ".#@.", "..#."}, doc.Cells)
	assert.Equal(t, []DensityEntry{{Row: 1, Col: 1, Value: 0.1}, {Row: 1, Col: 2, Value: 1}}, doc.Density)
}

func TestRoundTrip(t *testing.T) {
	g := sampleGrid(t)
	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, Save(path, g))

	back, err := Load(path)
	require.NoError(t, err)
	assert.True(t, g.Equal(back))
	assert.Equal(t, 25.0, back.CellSize())
	assert.Equal(t, 0.1, back.Density(core.Coord{Row: 1, Col: 1}))
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"row count":     "rows: 2\ncols: 2\ncell_size: 1\ncells: [\"..\"]\n",
		"row width":     "rows: 1\ncols: 3\ncell_size: 1\ncells: [\"..\"]\n",
		"symbol":        "rows: 1\ncols: 2\ncell_size: 1\ncells: [\".?\"]\n",
		"cell size":     "rows: 1\ncols: 1\ncell_size: 0\ncells: [\".\"]\n",
		"green density": "rows: 1\ncols: 1\ncell_size: 1\ncells: [\".\"]\ndensity: [{row: 0, col: 0, value: 1}]\n",
		"empty":         "",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(src))
			require.Error(t, err)
			assert.True(t, eris.Is(err, core.ErrInvalidConfig), "got %v", err)
		})
	}

	_, err := Decode(strings.NewReader("rows: 1\ncols: 1\ncell_size: 1\ncells: [\"#\"]\nepoch: 4\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = Decode(strings.NewReader("rows: 1\ncols: 1\ncell_size: 1\ncells: [\"#\"]\ndensity: [{row: 0, col: 0, value: -2}]\n"))
	assert.True(t, eris.Is(err, core.ErrInvariantViolation))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
