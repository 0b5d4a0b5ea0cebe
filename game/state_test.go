package game

import (
	"testing"

	"github.com/brensch/skirmish/grid"
)

func TestNewState_SortsAndDropsDead(t *testing.T) {
	b := grid.NewBoard(4, 4, nil)
	s := NewState(b, []Unit{
		{ID: 9, Side: Defender, HP: 5, MaxHP: 10, Cell: grid.Cell{X: 3, Y: 3}},
		{ID: 2, Side: Attacker, HP: 30, Cell: grid.Cell{X: 0, Y: 0}},
		{ID: 4, Side: Defender, HP: 0, MaxHP: 10, Cell: grid.Cell{X: 1, Y: 1}},
	}, Attacker)

	if len(s.Units) != 2 || s.Units[0].ID != 2 || s.Units[1].ID != 9 {
		t.Fatalf("units=%+v want ids [2 9]", s.Units)
	}
	if s.Roster != [2]int{1, 1} {
		t.Fatalf("roster=%v want=[1 1]", s.Roster)
	}
	if s.Units[0].MaxHP != 30 {
		t.Fatalf("max hp defaults to hp, got %d", s.Units[0].MaxHP)
	}
	if s.Terminal() {
		t.Fatalf("state with both sides alive reported terminal")
	}
	if got := s.HealthLost(Defender); got != 5 {
		t.Fatalf("defender health lost=%d want=5", got)
	}
}

func TestNewState_OutcomeFromSurvivors(t *testing.T) {
	b := grid.NewBoard(2, 2, nil)
	s := NewState(b, []Unit{{ID: 1, Side: Attacker, HP: 1}}, Defender)
	if s.Outcome != AttackerWins {
		t.Fatalf("outcome=%v want=%v", s.Outcome, AttackerWins)
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	b := grid.NewBoard(4, 4, nil)
	s := NewState(b, []Unit{
		{ID: 1, Side: Attacker, HP: 30, Cell: grid.Cell{X: 0, Y: 0}},
		{ID: 2, Side: Defender, HP: 20, Cell: grid.Cell{X: 3, Y: 3}},
	}, Attacker)

	c := s.Clone()
	c.Units[0].Cell = grid.Cell{X: 1, Y: 0}
	c.Units[1].HP = 1
	c.Fallen[Attacker] = 7

	if s.Units[0].Cell != (grid.Cell{X: 0, Y: 0}) || s.Units[1].HP != 20 || s.Fallen[Attacker] != 0 {
		t.Fatalf("clone aliased the original: %+v", s)
	}
	if c.Board != s.Board {
		t.Fatalf("board should be shared, not copied")
	}
}

func TestUnitLookupAndCells(t *testing.T) {
	b := grid.NewBoard(4, 4, nil)
	s := NewState(b, []Unit{
		{ID: 3, Side: Attacker, HP: 1, Cell: grid.Cell{X: 0, Y: 1}},
		{ID: 7, Side: Defender, HP: 1, Cell: grid.Cell{X: 2, Y: 2}},
	}, Attacker)

	if _, ok := s.Unit(5); ok {
		t.Fatalf("found a unit that does not exist")
	}
	if u, ok := s.Unit(7); !ok || u.Cell != (grid.Cell{X: 2, Y: 2}) {
		t.Fatalf("lookup of 7 failed: %+v %v", u, ok)
	}
	if cells := s.Cells(3); len(cells) != 1 || cells[0] != (grid.Cell{X: 2, Y: 2}) {
		t.Fatalf("cells except 3 = %v", cells)
	}
	if s.Open(grid.Cell{X: 2, Y: 2}) {
		t.Fatalf("occupied cell reported open")
	}
}

func TestJointActionString(t *testing.T) {
	j := JointAction{5: AttackAction(9), 2: MoveAction(grid.East)}
	if got := j.String(); got != "2=move:east 5=attack:9" {
		t.Fatalf("string=%q", got)
	}
	if got := (JointAction{}).String(); got != "pass" {
		t.Fatalf("empty string=%q", got)
	}
	if j.Attacks() != 1 {
		t.Fatalf("attacks=%d want=1", j.Attacks())
	}
}
