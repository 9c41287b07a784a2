package core

import "fmt"

// Size describes the dimensions of a simulation grid.
type Size struct {
	Rows int
	Cols int
}

// Coord addresses a cell by row and column.
type Coord struct {
	Row int
	Col int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Category enumerates the land use states a cell can hold.
type Category uint8

const (
	// Green is open, non-urban land.
	Green Category = iota
	// Urban is built land.
	Urban
	// Centrality is built land acting as a hub.
	Centrality
	// Blocked lies outside the simulated extents and never changes.
	Blocked
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case Green:
		return "green"
	case Urban:
		return "urban"
	case Centrality:
		return "centrality"
	case Blocked:
		return "blocked"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	switch c {
	case Green, Urban, Centrality, Blocked:
		return true
	default:
		return false
	}
}

// Built reports whether the category counts as urbanised land.
func (c Category) Built() bool {
	switch c {
	case Urban, Centrality:
		return true
	case Green, Blocked:
		return false
	default:
		return false
	}
}

// Cell is a snapshot of one lattice position.
type Cell struct {
	Coord
	Category Category
	Density  float64
}

// Counts tallies cells per category.
type Counts struct {
	Green      int
	Urban      int
	Centrality int
	Blocked    int
}

// Built returns the number of urban and centrality cells.
func (c Counts) Built() int { return c.Urban + c.Centrality }

// Active returns the number of cells inside the simulated extents.
func (c Counts) Active() int { return c.Green + c.Urban + c.Centrality }

// View is the read-only surface of a Grid.
type View interface {
	Size() Size
	CellSize() float64
	InBounds(c Coord) bool
	Get(c Coord) (Cell, error)
	Category(c Coord) Category
	Density(c Coord) float64
	Neighbors(c Coord, radius int) ([]Cell, error)
	Counts() Counts
	UrbanizedFraction() float64
	MeanDensity() float64
}
