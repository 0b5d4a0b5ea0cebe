package grid

import "testing"

func TestBoard_PassableAndNeighbors(t *testing.T) {
	b := NewBoard(3, 3, []Cell{{X: 1, Y: 0}, {X: 9, Y: 9}})

	if b.Passable(Cell{X: 1, Y: 0}) {
		t.Fatalf("resource cell reported passable")
	}
	if b.Passable(Cell{X: -1, Y: 0}) {
		t.Fatalf("out of bounds cell reported passable")
	}
	if got := len(b.Resources()); got != 1 {
		t.Fatalf("resources=%d want=1 (out of bounds resources are dropped)", got)
	}

	got := b.Neighbors(Cell{X: 0, Y: 0})
	want := []Cell{{X: 0, Y: 1}}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("neighbors=%v want=%v", got, want)
	}
}

func TestDistances(t *testing.T) {
	a, c := Cell{X: 0, Y: 0}, Cell{X: 3, Y: -1}
	if d := Manhattan(a, c); d != 4 {
		t.Fatalf("manhattan=%d want=4", d)
	}
	if d := Chebyshev(a, c); d != 3 {
		t.Fatalf("chebyshev=%d want=3", d)
	}
}

func TestNearestCorner(t *testing.T) {
	b := NewBoard(5, 4, nil)
	if got := b.NearestCorner(Cell{X: 4, Y: 2}); got != (Cell{X: 4, Y: 3}) {
		t.Fatalf("nearest corner=%v want=(4,3)", got)
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		got, err := ParseDirection(d.String())
		if err != nil || got != d {
			t.Fatalf("round trip %v: got=%v err=%v", d, got, err)
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}
