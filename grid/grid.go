// Package grid holds the static map geometry shared by every other package:
// cells, compass directions and the board with its impassable resources.
//
// Coordinates follow the host engine convention: (0,0) is the top-left cell,
// x grows east and y grows south.
package grid

import (
	"fmt"
	"sort"
)

// Cell is a board coordinate. Cells compare by value.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Add returns the cell one step away in direction d.
func (c Cell) Add(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Manhattan returns |dx| + |dy|.
func Manhattan(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Chebyshev returns max(|dx|, |dy|).
func Chebyshev(a, b Cell) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is one of the four axis-aligned steps.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// Directions lists every direction in enumeration order.
var Directions = [4]Direction{North, South, East, West}

// Delta returns the (dx, dy) of a single step.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

// Opposite returns the reverse step.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	}
	return East
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection accepts the lowercase names produced by String.
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Board is the immutable map: extents plus resource cells. A Board is shared
// by every game state derived from the same snapshot, so nothing may write to
// it after NewBoard returns.
type Board struct {
	Width     int
	Height    int
	resources map[Cell]struct{}
}

// NewBoard builds a board. Resources outside the extents are ignored.
func NewBoard(width, height int, resources []Cell) *Board {
	b := &Board{
		Width:     width,
		Height:    height,
		resources: make(map[Cell]struct{}, len(resources)),
	}
	for _, r := range resources {
		if b.InBounds(r) {
			b.resources[r] = struct{}{}
		}
	}
	return b
}

func (b *Board) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < b.Width && c.Y >= 0 && c.Y < b.Height
}

func (b *Board) IsResource(c Cell) bool {
	_, ok := b.resources[c]
	return ok
}

// Passable reports whether a unit could ever stand on c.
func (b *Board) Passable(c Cell) bool {
	return b.InBounds(c) && !b.IsResource(c)
}

// Resources returns the resource cells in row-major order.
func (b *Board) Resources() []Cell {
	out := make([]Cell, 0, len(b.resources))
	for c := range b.resources {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Corners returns the four corner cells: top-left, top-right, bottom-left,
// bottom-right.
func (b *Board) Corners() [4]Cell {
	return [4]Cell{
		{X: 0, Y: 0},
		{X: b.Width - 1, Y: 0},
		{X: 0, Y: b.Height - 1},
		{X: b.Width - 1, Y: b.Height - 1},
	}
}

// NearestCorner returns the corner closest to c by Manhattan distance. Ties
// go to the first corner in Corners order.
func (b *Board) NearestCorner(c Cell) Cell {
	corners := b.Corners()
	best := corners[0]
	for _, k := range corners[1:] {
		if Manhattan(c, k) < Manhattan(c, best) {
			best = k
		}
	}
	return best
}

// Neighbors returns the passable axis neighbours of c in direction order.
func (b *Board) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range Directions {
		n := c.Add(d)
		if b.Passable(n) {
			out = append(out, n)
		}
	}
	return out
}
