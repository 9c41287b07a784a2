// Package checkpoint stores grids as small YAML documents so runs can be
// saved, inspected and restarted.
package checkpoint

import (
	"bytes"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"futurb/internal/core"
)

// Cell symbols used in Document.Cells.
const (
	SymbolGreen      = '.'
	SymbolUrban      = '#'
	SymbolCentrality = '@'
	SymbolBlocked    = 'x'
)

// Document is the on-disk form of a grid.
type Document struct {
	Rows     int            `yaml:"rows"`
	Cols     int            `yaml:"cols"`
	CellSize float64        `yaml:"cell_size"`
	Cells    []string       `yaml:"cells"`
	Density  []DensityEntry `yaml:"density,omitempty"`
}

// DensityEntry records the density of one built cell. Cells without an
// entry have density zero.
type DensityEntry struct {
	Row   int     `yaml:"row"`
	Col   int     `yaml:"col"`
	Value float64 `yaml:"value"`
}

func symbol(cat core.Category) byte {
	switch cat {
	case core.Green:
		return SymbolGreen
	case core.Urban:
		return SymbolUrban
	case core.Centrality:
		return SymbolCentrality
	case core.Blocked:
		return SymbolBlocked
	default:
		return '?'
	}
}

// FromGrid converts a grid into its document form.
func FromGrid(g core.View) Document {
	size := g.Size()
	doc := Document{Rows: size.Rows, Cols: size.Cols, CellSize: g.CellSize()}
	doc.Cells = make([]string, size.Rows)
	line := make([]byte, size.Cols)
	for r := 0; r < size.Rows; r++ {
		for c := 0; c < size.Cols; c++ {
			at := core.Coord{Row: r, Col: c}
			cat := g.Category(at)
			line[c] = symbol(cat)
			if d := g.Density(at); cat.Built() && d != 0 {
				doc.Density = append(doc.Density, DensityEntry{Row: r, Col: c, Value: d})
			}
		}
		doc.Cells[r] = string(line)
	}
	return doc
}

// Grid rebuilds a grid from the document, validating its shape and symbols.
func (d Document) Grid() (*core.Grid, error) {
	if len(d.Cells) != d.Rows {
		return nil, eris.Wrapf(core.ErrInvalidConfig, "checkpoint: %d cell rows, header says %d", len(d.Cells), d.Rows)
	}
	g, err := core.NewGrid(d.Rows, d.Cols, d.CellSize)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: grid header")
	}
	for r, line := range d.Cells {
		if len(line) != d.Cols {
			return nil, eris.Wrapf(core.ErrInvalidConfig, "checkpoint: row %d has %d cells, expected %d", r, len(line), d.Cols)
		}
		for c := 0; c < len(line); c++ {
			at := core.Coord{Row: r, Col: c}
			switch line[c] {
			case SymbolGreen:
			case SymbolUrban:
				err = g.Set(at, core.Urban, 0)
			case SymbolCentrality:
				err = g.Set(at, core.Centrality, 0)
			case SymbolBlocked:
				err = g.Block(at)
			default:
				return nil, eris.Wrapf(core.ErrInvalidConfig, "checkpoint: unknown symbol %q at %s", line[c], at)
			}
			if err != nil {
				return nil, eris.Wrap(err, "checkpoint: cells")
			}
		}
	}
	for _, e := range d.Density {
		at := core.Coord{Row: e.Row, Col: e.Col}
		cat := g.Category(at)
		if !cat.Built() {
			return nil, eris.Wrapf(core.ErrInvalidConfig, "checkpoint: density for %s cell %s", cat, at)
		}
		if err := g.Set(at, cat, e.Value); err != nil {
			return nil, eris.Wrap(err, "checkpoint: density")
		}
	}
	return g, nil
}

// Encode writes g to w as YAML.
func Encode(w io.Writer, g core.View) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromGrid(g)); err != nil {
		return eris.Wrap(err, "checkpoint: encode")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "checkpoint: encode")
	}
	return nil
}

// Decode reads a grid from YAML. Unknown fields are rejected.
func Decode(r io.Reader) (*core.Grid, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, eris.Wrap(core.ErrInvalidConfig, "checkpoint: empty document")
		}
		return nil, eris.Wrap(err, "checkpoint: decode")
	}
	return doc.Grid()
}

// Save writes g to path, replacing any existing file.
func Save(path string, g core.View) error {
	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return eris.Wrapf(err, "checkpoint: write %s", path)
	}
	return nil
}

// Load reads the grid stored at path.
func Load(path string) (*core.Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: read %s", path)
	}
	g, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: load %s", path)
	}
	return g, nil
}
