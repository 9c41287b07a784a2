package isobenefit

import (
	"math"

	"futurb/internal/core"
)

// Match selects the categories a distance query is looking for.
type Match func(core.Category) bool

// IsGreen matches open land.
func IsGreen(c core.Category) bool { return c == core.Green }

// IsBuilt matches urban and centrality cells.
func IsBuilt(c core.Category) bool { return c.Built() }

// IsCentrality matches hubs.
func IsCentrality(c core.Category) bool { return c == core.Centrality }

// WithinDistance reports whether a cell other than origin and matching m lies
// within d ground units of origin.
//
// The scan visits square rings of growing radius up to ceil(d/cellSize),
// each ring in row-major order, so repeated queries over an unchanged grid
// touch cells in the same order. Results are never cached; the grid may
// change between calls.
func WithinDistance(g core.View, origin core.Coord, d float64, m Match) bool {
	_, _, ok := scanRings(g, origin, d, byCategory(g, m), true)
	return ok
}

// Nearest returns the closest cell matching m within d ground units of
// origin and its Euclidean distance. Ties resolve to the cell met first in
// scan order.
func Nearest(g core.View, origin core.Coord, d float64, m Match) (core.Coord, float64, bool) {
	return scanRings(g, origin, d, byCategory(g, m), false)
}

// WithinDistanceExcept is WithinDistance with one cell left out of the
// search, as if it had already changed category.
func WithinDistanceExcept(g core.View, origin, skip core.Coord, d float64, m Match) bool {
	_, _, ok := scanRings(g, origin, d, func(at core.Coord) bool {
		return at != skip && m(g.Category(at))
	}, true)
	return ok
}

// EachWithin visits every cell other than origin within d ground units, ring
// by ring in scan order, until fn returns false.
func EachWithin(g core.View, origin core.Coord, d float64, fn func(core.Coord) bool) {
	scanRings(g, origin, d, func(at core.Coord) bool { return !fn(at) }, true)
}

func byCategory(g core.View, m Match) func(core.Coord) bool {
	return func(at core.Coord) bool { return m(g.Category(at)) }
}

// RadiusCells converts a ground distance into the cell radius that bounds it.
func RadiusCells(d, cellSize float64) int {
	if !(d > 0) || !(cellSize > 0) {
		return 0
	}
	return int(math.Ceil(d / cellSize))
}

func scanRings(g core.View, origin core.Coord, d float64, m func(core.Coord) bool, first bool) (core.Coord, float64, bool) {
	if !g.InBounds(origin) {
		return core.Coord{}, 0, false
	}
	cs := g.CellSize()
	size := g.Size()
	radius := RadiusCells(d, cs)
	if limit := max(size.Rows, size.Cols); radius > limit {
		radius = limit
	}

	var (
		best  = math.Inf(1)
		at    core.Coord
		found bool
	)
	for r := 1; r <= radius; r++ {
		if found && float64(r)*cs >= best {
			break
		}
		for dr := -r; dr <= r; dr++ {
			row := origin.Row + dr
			if row < 0 || row >= size.Rows {
				continue
			}
			// interior rows of a ring only contribute their two edge cells
			step := 1
			if dr != -r && dr != r {
				step = 2 * r
			}
			for dc := -r; dc <= r; dc += step {
				col := origin.Col + dc
				if col < 0 || col >= size.Cols {
					continue
				}
				dist := math.Hypot(float64(dr), float64(dc)) * cs
				if dist > d || dist >= best {
					continue
				}
				c := core.Coord{Row: row, Col: col}
				if !m(c) {
					continue
				}
				best, at, found = dist, c, true
				if first {
					return at, best, true
				}
			}
		}
	}
	if !found {
		return core.Coord{}, 0, false
	}
	return at, best, true
}
