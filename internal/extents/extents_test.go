package extents

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"futurb/internal/core"
)

// squareWithHole is a 4x4 square with its central 2x2 cut out.
func squareWithHole() *geom.MultiPolygon {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}},
	})
	mp := geom.NewMultiPolygon(geom.XY)
	if err := mp.Push(poly); err != nil {
		panic(err)
	}
	return mp
}

func blockedCoords(g *core.Grid) []core.Coord {
	var out []core.Coord
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			at := core.Coord{Row: r, Col: c}
			if g.Category(at) == core.Blocked {
				out = append(out, at)
			}
		}
	}
	return out
}

func TestTransform(t *testing.T) {
	trf := Transform{OriginX: 100, OriginY: 50, CellSize: 10}
	x, y := trf.CellCentre(core.Coord{Row: 0, Col: 0})
	assert.Equal(t, 105.0, x)
	assert.Equal(t, 45.0, y)
	assert.Equal(t, core.Coord{Row: 2, Col: 3}, trf.CoordAt(131, 25))
	assert.Equal(t, core.Coord{Row: -1, Col: -1}, trf.CoordAt(99, 51))
}

func TestRasterizeHonoursHoles(t *testing.T) {
	g, trf, err := Rasterize(squareWithHole(), 1)
	require.NoError(t, err)
	assert.Equal(t, core.Size{Rows: 4, Cols: 4}, g.Size())
	assert.Equal(t, Transform{OriginX: 0, OriginY: 4, CellSize: 1}, trf)
	assert.Equal(t, []core.Coord{{Row: 1, Col: 1}, {Row: 1, Col: 2}, {Row: 2, Col: 1}, {Row: 2, Col: 2}}, blockedCoords(g))
	assert.Equal(t, 12, g.Counts().Green)
}

func TestRasterizeOutsideDisjointParts(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		{{{4, 0}, {6, 0}, {6, 2}, {4, 2}, {4, 0}}},
	})
	g, _, err := Rasterize(mp, 1)
	require.NoError(t, err)
	assert.Equal(t, core.Size{Rows: 2, Cols: 6}, g.Size())
	assert.Equal(t, []core.Coord{{Row: 0, Col: 2}, {Row: 0, Col: 3}, {Row: 1, Col: 2}, {Row: 1, Col: 3}}, blockedCoords(g))
}

func TestRasterizeRejectsBadInput(t *testing.T) {
	_, _, err := Rasterize(squareWithHole(), 0)
	assert.True(t, eris.Is(err, core.ErrInvalidConfig))
	_, _, err = Rasterize(geom.NewMultiPolygon(geom.XY), 1)
	assert.True(t, eris.Is(err, core.ErrInvalidConfig))
	_, _, err = Rasterize(nil, 1)
	assert.True(t, eris.Is(err, core.ErrInvalidConfig))
}

func TestSeedCentres(t *testing.T) {
	g, trf, err := Rasterize(squareWithHole(), 1)
	require.NoError(t, err)

	require.NoError(t, SeedCentres(g, trf, [][2]float64{{0.5, 3.5}, {3.2, 0.1}}))
	assert.Equal(t, core.Centrality, g.Category(core.Coord{Row: 0, Col: 0}))
	assert.Equal(t, core.Centrality, g.Category(core.Coord{Row: 3, Col: 3}))
	assert.Equal(t, 2, g.Counts().Centrality)

	err = SeedCentres(g, trf, [][2]float64{{2, 2}})
	assert.True(t, eris.Is(err, core.ErrInvariantViolation), "seed on a hole")
	err = SeedCentres(g, trf, [][2]float64{{-5, 2}})
	assert.True(t, eris.Is(err, core.ErrOutOfBounds))
}

func TestLoadShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extent.shp")
	points := []shp.Point{
		{X: 0, Y: 0}, {X: 0, Y: 40}, {X: 40, Y: 40}, {X: 40, Y: 0}, {X: 0, Y: 0},
		{X: 10, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 30}, {X: 10, Y: 30}, {X: 10, Y: 10},
	}
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.Write(&shp.Polygon{
		Box:       shp.BBoxFromPoints(points),
		NumParts:  2,
		NumPoints: int32(len(points)),
		Parts:     []int32{0, 5},
		Points:    points,
	})
	w.Close()

	g, trf, err := LoadShapefile(path, 10)
	require.NoError(t, err)
	assert.Equal(t, core.Size{Rows: 4, Cols: 4}, g.Size())
	assert.Equal(t, 40.0, trf.OriginY)
	assert.Len(t, blockedCoords(g), 4)
	assert.Equal(t, core.Blocked, g.Category(core.Coord{Row: 1, Col: 2}))

	_, _, err = LoadShapefile(filepath.Join(t.TempDir(), "missing.shp"), 10)
	assert.Error(t, err)
}
