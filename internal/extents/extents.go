// Package extents turns a polygon outline of a study area into a grid: cells
// whose centre falls outside the outline are blocked.
package extents

import (
	"math"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"futurb/internal/core"
)

// Transform maps between ground coordinates and grid cells. The origin is
// the top-left corner of the grid; rows grow southwards.
type Transform struct {
	OriginX  float64
	OriginY  float64
	CellSize float64
}

// CellCentre returns the ground coordinates of the centre of c.
func (t Transform) CellCentre(c core.Coord) (x, y float64) {
	x = t.OriginX + (float64(c.Col)+0.5)*t.CellSize
	y = t.OriginY - (float64(c.Row)+0.5)*t.CellSize
	return x, y
}

// CoordAt returns the cell containing the ground point (x, y). The result may
// lie outside the grid.
func (t Transform) CoordAt(x, y float64) core.Coord {
	return core.Coord{
		Row: int(math.Floor((t.OriginY - y) / t.CellSize)),
		Col: int(math.Floor((x - t.OriginX) / t.CellSize)),
	}
}

// Rasterize builds a grid covering the bounds of mp. Inside-ness is decided
// on cell centres with the even-odd rule over every ring of every polygon,
// so holes and overlapping parts cancel out.
func Rasterize(mp *geom.MultiPolygon, cellSize float64) (*core.Grid, Transform, error) {
	if !(cellSize > 0) {
		return nil, Transform{}, eris.Wrapf(core.ErrInvalidConfig, "extents: cell size %v must be positive", cellSize)
	}
	if mp == nil || mp.Empty() {
		return nil, Transform{}, eris.Wrap(core.ErrInvalidConfig, "extents: no polygons")
	}
	b := mp.Bounds()
	width := b.Max(0) - b.Min(0)
	height := b.Max(1) - b.Min(1)
	rows := max(1, int(math.Ceil(height/cellSize)))
	cols := max(1, int(math.Ceil(width/cellSize)))

	g, err := core.NewGrid(rows, cols, cellSize)
	if err != nil {
		return nil, Transform{}, eris.Wrap(err, "extents: allocate grid")
	}
	trf := Transform{OriginX: b.Min(0), OriginY: b.Max(1), CellSize: cellSize}
	rings := collectRings(mp)

	var blocked int
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			at := core.Coord{Row: r, Col: c}
			x, y := trf.CellCentre(at)
			if inside(rings, x, y) {
				continue
			}
			if err := g.Block(at); err != nil {
				return nil, Transform{}, eris.Wrap(err, "extents: block cell")
			}
			blocked++
		}
	}
	zap.L().Debug("extents: rasterized",
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.Int("rings", len(rings)),
		zap.Int("blocked", blocked),
	)
	return g, trf, nil
}

// collectRings flattens every ring of mp into xy pairs.
func collectRings(mp *geom.MultiPolygon) [][]float64 {
	var rings [][]float64
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := poly.LinearRing(j)
			stride := ring.Stride()
			flat := ring.FlatCoords()
			xy := make([]float64, 0, len(flat)/stride*2)
			for k := 0; k+1 < len(flat); k += stride {
				xy = append(xy, flat[k], flat[k+1])
			}
			if len(xy) >= 6 {
				rings = append(rings, xy)
			}
		}
	}
	return rings
}

// inside applies the even-odd crossing test to the ground point (x, y).
func inside(rings [][]float64, x, y float64) bool {
	in := false
	for _, ring := range rings {
		n := len(ring) / 2
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			xi, yi := ring[2*i], ring[2*i+1]
			xj, yj := ring[2*j], ring[2*j+1]
			if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				in = !in
			}
		}
	}
	return in
}

// LoadShapefile reads every polygon record of the shapefile at path and
// rasterizes the union. Records of other shape types and malformed parts are
// skipped.
func LoadShapefile(path string, cellSize float64) (*core.Grid, Transform, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, Transform{}, eris.Wrapf(err, "extents: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	mp := geom.NewMultiPolygon(geom.XY)
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok || p == nil {
			skipped++
			continue
		}
		skipped += appendParts(mp, p)
	}
	if err := reader.Err(); err != nil {
		return nil, Transform{}, eris.Wrapf(err, "extents: read shapefile %s", path)
	}
	if skipped > 0 {
		zap.L().Debug("extents: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return Rasterize(mp, cellSize)
}

// appendParts pushes each ring of p into mp as its own polygon and returns the
// number of parts that could not be used.
func appendParts(mp *geom.MultiPolygon, p *shp.Polygon) int {
	var skipped int
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 3 {
			skipped++
			continue
		}
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("extents: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			skipped++
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("extents: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			skipped++
			continue
		}
	}
	return skipped
}

// SeedCentres marks the cells under the given ground points as centralities.
// A point outside the grid is ErrOutOfBounds; one on a blocked cell is
// ErrInvariantViolation.
func SeedCentres(g *core.Grid, trf Transform, points [][2]float64) error {
	for _, p := range points {
		at := trf.CoordAt(p[0], p[1])
		if err := g.Set(at, core.Centrality, 1); err != nil {
			return eris.Wrapf(err, "extents: seed centre at (%g, %g)", p[0], p[1])
		}
	}
	return nil
}
