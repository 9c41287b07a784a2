package core

import (
	"testing"

	"github.com/rotisserie/eris"
)

func mustGrid(t *testing.T, rows, cols int) *Grid {
	t.Helper()
	g, err := NewGrid(rows, cols, 10)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestNewGridRejectsBadShape(t *testing.T) {
	cases := []struct {
		rows, cols int
		size       float64
	}{
		{0, 3, 1},
		{3, -1, 1},
		{3, 3, 0},
		{3, 3, -5},
	}
	for _, tc := range cases {
		if _, err := NewGrid(tc.rows, tc.cols, tc.size); !eris.Is(err, ErrInvalidConfig) {
			t.Fatalf("NewGrid(%d,%d,%v) err=%v, expected ErrInvalidConfig", tc.rows, tc.cols, tc.size, err)
		}
	}
}

func TestGetSetOutOfBounds(t *testing.T) {
	g := mustGrid(t, 3, 4)
	for _, c := range []Coord{{-1, 0}, {0, -1}, {3, 0}, {0, 4}} {
		if _, err := g.Get(c); !eris.Is(err, ErrOutOfBounds) {
			t.Fatalf("Get(%v) err=%v, expected ErrOutOfBounds", c, err)
		}
		if err := g.Set(c, Urban, 1); !eris.Is(err, ErrOutOfBounds) {
			t.Fatalf("Set(%v) err=%v, expected ErrOutOfBounds", c, err)
		}
		if _, err := g.Neighbors(c, 1); !eris.Is(err, ErrOutOfBounds) {
			t.Fatalf("Neighbors(%v) err=%v, expected ErrOutOfBounds", c, err)
		}
	}
}

func TestSetBlockedCellIsInvariantViolation(t *testing.T) {
	g := mustGrid(t, 2, 2)
	if err := g.Block(Coord{0, 0}); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if err := g.Set(Coord{0, 0}, Urban, 1); !eris.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation setting a blocked cell, got %v", err)
	}
	if err := g.Set(Coord{1, 1}, Blocked, 0); !eris.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation blocking during a run, got %v", err)
	}
	if err := g.Set(Coord{1, 1}, Urban, -1); !eris.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation for negative density, got %v", err)
	}
	cell, _ := g.Get(Coord{0, 0})
	if cell.Category != Blocked {
		t.Fatalf("blocked cell changed to %v", cell.Category)
	}
}

func TestConvertOnlyFromGreen(t *testing.T) {
	g := mustGrid(t, 2, 2)
	if err := g.Convert(Coord{0, 1}, Urban, 0.5); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := g.Convert(Coord{0, 1}, Centrality, 1); !eris.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation converting built land, got %v", err)
	}
	if err := g.Convert(Coord{1, 1}, Green, 0); !eris.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation converting to green, got %v", err)
	}
	cell, err := g.Get(Coord{0, 1})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cell.Category != Urban || cell.Density != 0.5 {
		t.Fatalf("unexpected cell %+v", cell)
	}
}

func TestNeighborsRowMajorClipped(t *testing.T) {
	g := mustGrid(t, 3, 3)
	nbs, err := g.Neighbors(Coord{0, 0}, 1)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	want := []Coord{{0, 1}, {1, 0}, {1, 1}}
	if len(nbs) != len(want) {
		t.Fatalf("got %d neighbours, expected %d", len(nbs), len(want))
	}
	for i, c := range want {
		if nbs[i].Coord != c {
			t.Fatalf("neighbour %d = %v, expected %v", i, nbs[i].Coord, c)
		}
	}

	nbs, _ = g.Neighbors(Coord{1, 1}, 5)
	if len(nbs) != 8 {
		t.Fatalf("radius larger than grid should clip to 8 cells, got %d", len(nbs))
	}
}

func TestNeighborsHugeRadiusStaysInsideGrid(t *testing.T) {
	g := mustGrid(t, 5, 5)
	nbs, err := g.Neighbors(Coord{2, 3}, 1_000_000)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(nbs) != 24 || cap(nbs) != 24 {
		t.Fatalf("got len %d cap %d, expected 24 cells", len(nbs), cap(nbs))
	}
	if nbs[0].Coord != (Coord{0, 0}) || nbs[23].Coord != (Coord{4, 4}) {
		t.Fatalf("unexpected order: first %v last %v", nbs[0].Coord, nbs[23].Coord)
	}
}

func TestFractionIgnoresBlockedCells(t *testing.T) {
	g := mustGrid(t, 2, 3)
	_ = g.Block(Coord{0, 0})
	_ = g.Block(Coord{0, 1})
	_ = g.Set(Coord{1, 0}, Urban, 1)
	_ = g.Set(Coord{1, 1}, Centrality, 0.5)

	n := g.Counts()
	if n.Blocked != 2 || n.Urban != 1 || n.Centrality != 1 || n.Green != 2 {
		t.Fatalf("unexpected counts %+v", n)
	}
	if got := g.UrbanizedFraction(); got != 0.5 {
		t.Fatalf("fraction=%v, expected 0.5", got)
	}
	if got := g.MeanDensity(); got != 0.75 {
		t.Fatalf("mean density=%v, expected 0.75", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := mustGrid(t, 2, 2)
	_ = g.Set(Coord{0, 0}, Urban, 1)
	c := g.Clone()
	if !g.Equal(c) {
		t.Fatal("clone should equal original")
	}
	_ = c.Set(Coord{1, 1}, Urban, 1)
	if g.Equal(c) {
		t.Fatal("mutating the clone must not touch the original")
	}
	if g.Category(Coord{1, 1}) != Green {
		t.Fatal("original changed after clone mutation")
	}
}

func TestCategoryString(t *testing.T) {
	for cat, want := range map[Category]string{Green: "green", Urban: "urban", Centrality: "centrality", Blocked: "blocked"} {
		if got := cat.String(); got != want {
			t.Fatalf("%d.String()=%q, expected %q", cat, got, want)
		}
	}
	if Category(9).Valid() {
		t.Fatal("category 9 should be invalid")
	}
}

func TestRNGDeterministic(t *testing.T) {
	a, b := NewRNG(42), NewRNG(42)
	weights := []float64{1, 2, 3, 4}
	for i := 0; i < 32; i++ {
		if a.Pick(weights) != b.Pick(weights) {
			t.Fatalf("draw %d differs for equal seeds", i)
		}
	}
	r := NewRNG(7)
	for i := 0; i < 100; i++ {
		if got := r.Pick([]float64{0, 1, 0}); got != 1 {
			t.Fatalf("Pick chose zero-weight index %d", got)
		}
	}
	if r.Chance(0) || !r.Chance(1) {
		t.Fatal("Chance bounds not honoured")
	}
}
