package core

import (
	"math"

	"github.com/rotisserie/eris"
)

// Grid stores the land use lattice in row-major order alongside a per-cell
// density layer. Dimensions and cell size never change after construction.
type Grid struct {
	rows, cols int
	cellSize   float64
	cats       []Category
	density    []float64
}

// NewGrid allocates an all-green grid with the given dimensions. cellSize is
// the ground distance spanned by one cell edge.
func NewGrid(rows, cols int, cellSize float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, eris.Wrapf(ErrInvalidConfig, "grid: dimensions %dx%d must be positive", rows, cols)
	}
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, eris.Wrapf(ErrInvalidConfig, "grid: cell size %v must be positive", cellSize)
	}
	return &Grid{
		rows:     rows,
		cols:     cols,
		cellSize: cellSize,
		cats:     make([]Category, rows*cols),
		density:  make([]float64, rows*cols),
	}, nil
}

// Size reports the grid dimensions.
func (g *Grid) Size() Size { return Size{Rows: g.rows, Cols: g.cols} }

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// CellSize returns the ground distance per cell edge.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Index returns the linear slice index for c.
func (g *Grid) Index(c Coord) int { return c.Row*g.cols + c.Col }

// InBounds reports whether c lies inside [0,rows)x[0,cols).
func (g *Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// Get returns the cell at c.
func (g *Grid) Get(c Coord) (Cell, error) {
	if !g.InBounds(c) {
		return Cell{}, eris.Wrapf(ErrOutOfBounds, "grid: get %s in %dx%d", c, g.rows, g.cols)
	}
	idx := g.Index(c)
	return Cell{Coord: c, Category: g.cats[idx], Density: g.density[idx]}, nil
}

// Category returns the category at c without error checking. Coordinates
// outside the lattice read as Blocked.
func (g *Grid) Category(c Coord) Category {
	if !g.InBounds(c) {
		return Blocked
	}
	return g.cats[g.Index(c)]
}

// Density returns the density at c, or zero outside the lattice.
func (g *Grid) Density(c Coord) float64 {
	if !g.InBounds(c) {
		return 0
	}
	return g.density[g.Index(c)]
}

// Set overwrites the category and density of a cell inside the extents.
func (g *Grid) Set(c Coord, cat Category, density float64) error {
	if !g.InBounds(c) {
		return eris.Wrapf(ErrOutOfBounds, "grid: set %s in %dx%d", c, g.rows, g.cols)
	}
	if !cat.Valid() {
		return eris.Wrapf(ErrInvariantViolation, "grid: set %s to unknown %s", c, cat)
	}
	idx := g.Index(c)
	if g.cats[idx] == Blocked {
		return eris.Wrapf(ErrInvariantViolation, "grid: set %s: cell is blocked", c)
	}
	if cat == Blocked {
		return eris.Wrapf(ErrInvariantViolation, "grid: set %s: cannot block a cell during a run", c)
	}
	if density < 0 || math.IsNaN(density) {
		return eris.Wrapf(ErrInvariantViolation, "grid: set %s: density %v must be non-negative", c, density)
	}
	g.cats[idx] = cat
	g.density[idx] = density
	return nil
}

// Convert urbanises a green cell. Any other transition is rejected.
func (g *Grid) Convert(c Coord, cat Category, density float64) error {
	if !g.InBounds(c) {
		return eris.Wrapf(ErrOutOfBounds, "grid: convert %s in %dx%d", c, g.rows, g.cols)
	}
	if !cat.Built() {
		return eris.Wrapf(ErrInvariantViolation, "grid: convert %s to %s", c, cat)
	}
	if cur := g.cats[g.Index(c)]; cur != Green {
		return eris.Wrapf(ErrInvariantViolation, "grid: convert %s: cell is already %s", c, cur)
	}
	return g.Set(c, cat, density)
}

// Block marks a cell as outside the extents. It is meant for building an
// initial grid; a running simulation never calls it.
func (g *Grid) Block(c Coord) error {
	if !g.InBounds(c) {
		return eris.Wrapf(ErrOutOfBounds, "grid: block %s in %dx%d", c, g.rows, g.cols)
	}
	idx := g.Index(c)
	g.cats[idx] = Blocked
	g.density[idx] = 0
	return nil
}

// Neighbors returns the in-grid cells of the square neighbourhood of the
// given radius around c, in row-major order, excluding c itself.
func (g *Grid) Neighbors(c Coord, radius int) ([]Cell, error) {
	if !g.InBounds(c) {
		return nil, eris.Wrapf(ErrOutOfBounds, "grid: neighbors of %s in %dx%d", c, g.rows, g.cols)
	}
	if radius <= 0 {
		return nil, nil
	}
	radius = min(radius, max(g.rows, g.cols))
	r0, r1 := max(c.Row-radius, 0), min(c.Row+radius, g.rows-1)
	c0, c1 := max(c.Col-radius, 0), min(c.Col+radius, g.cols-1)
	out := make([]Cell, 0, (r1-r0+1)*(c1-c0+1)-1)
	for r := r0; r <= r1; r++ {
		for col := c0; col <= c1; col++ {
			if r == c.Row && col == c.Col {
				continue
			}
			idx := r*g.cols + col
			out = append(out, Cell{Coord: Coord{Row: r, Col: col}, Category: g.cats[idx], Density: g.density[idx]})
		}
	}
	return out, nil
}

// Counts tallies the cells of each category.
func (g *Grid) Counts() Counts {
	var n Counts
	for _, cat := range g.cats {
		switch cat {
		case Green:
			n.Green++
		case Urban:
			n.Urban++
		case Centrality:
			n.Centrality++
		case Blocked:
			n.Blocked++
		}
	}
	return n
}

// UrbanizedFraction returns built cells over cells inside the extents.
func (g *Grid) UrbanizedFraction() float64 {
	n := g.Counts()
	if n.Active() == 0 {
		return 0
	}
	return float64(n.Built()) / float64(n.Active())
}

// MeanDensity averages density over built cells.
func (g *Grid) MeanDensity() float64 {
	var sum float64
	var built int
	for i, cat := range g.cats {
		if !cat.Built() {
			continue
		}
		sum += g.density[i]
		built++
	}
	if built == 0 {
		return 0
	}
	return sum / float64(built)
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{
		rows:     g.rows,
		cols:     g.cols,
		cellSize: g.cellSize,
		cats:     append([]Category(nil), g.cats...),
		density:  append([]float64(nil), g.density...),
	}
}

// Equal reports whether two grids hold identical shape and cell state.
func (g *Grid) Equal(o *Grid) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.rows != o.rows || g.cols != o.cols || g.cellSize != o.cellSize {
		return false
	}
	for i := range g.cats {
		if g.cats[i] != o.cats[i] || g.density[i] != o.density[i] {
			return false
		}
	}
	return true
}
