// Package game defines the combat state the search runs over.
//
// A GameState is a value: once built it is never written to again. Every
// transition clones first, so a search tree can hold thousands of sibling
// states that share nothing mutable. The board is the only shared part and it
// is read-only.
package game

import (
	"fmt"
	"sort"

	"github.com/brensch/skirmish/grid"
)

// Side identifies a squad. Attacker is the maximizing side.
type Side int

const (
	Attacker Side = iota
	Defender
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == Attacker {
		return Defender
	}
	return Attacker
}

func (s Side) String() string {
	switch s {
	case Attacker:
		return "attacker"
	case Defender:
		return "defender"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

// ParseSide accepts "attacker" / "defender".
func ParseSide(s string) (Side, error) {
	switch s {
	case "attacker":
		return Attacker, nil
	case "defender":
		return Defender, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// Outcome tags a finished state. It is independent of any utility value.
type Outcome int

const (
	InProgress Outcome = iota
	AttackerWins
	DefenderWins
)

func (o Outcome) String() string {
	switch o {
	case InProgress:
		return "in_progress"
	case AttackerWins:
		return "attacker_wins"
	case DefenderWins:
		return "defender_wins"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Unit is one living combatant. Range is a Manhattan distance.
type Unit struct {
	ID     int
	Side   Side
	HP     int
	MaxHP  int
	Range  int
	Damage int
	Cell   grid.Cell
}

// GameState is the immutable combat snapshot.
type GameState struct {
	Board   *grid.Board
	Units   []Unit // living units, sorted by ID
	ToMove  Side
	Outcome Outcome
	Ply     int

	// Roster is each side's living count when the snapshot was taken.
	Roster [2]int
	// Fallen sums the MaxHP of units removed since the snapshot.
	Fallen [2]int
}

// NewState builds a root state from a snapshot. Units are copied and sorted;
// units with HP < 1 are dropped. The outcome is derived from the survivors.
func NewState(board *grid.Board, units []Unit, toMove Side) *GameState {
	s := &GameState{
		Board:  board,
		Units:  make([]Unit, 0, len(units)),
		ToMove: toMove,
	}
	for _, u := range units {
		if u.HP < 1 {
			continue
		}
		if u.MaxHP < u.HP {
			u.MaxHP = u.HP
		}
		s.Units = append(s.Units, u)
		s.Roster[u.Side]++
	}
	sort.Slice(s.Units, func(i, j int) bool { return s.Units[i].ID < s.Units[j].ID })
	s.Outcome = outcomeFor(s.Roster[Attacker], s.Roster[Defender])
	return s
}

func outcomeFor(attackers, defenders int) Outcome {
	switch {
	case defenders == 0 && attackers > 0:
		return AttackerWins
	case attackers == 0:
		return DefenderWins
	}
	return InProgress
}

// Clone performs a deep copy of everything except the shared board.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Units = make([]Unit, len(s.Units))
	copy(out.Units, s.Units)
	return &out
}

// Terminal reports whether one side has been eliminated.
func (s *GameState) Terminal() bool {
	return s.Outcome != InProgress
}

// Unit looks up a living unit by ID.
func (s *GameState) Unit(id int) (Unit, bool) {
	i := sort.Search(len(s.Units), func(i int) bool { return s.Units[i].ID >= id })
	if i < len(s.Units) && s.Units[i].ID == id {
		return s.Units[i], true
	}
	return Unit{}, false
}

// Living returns the living units of a side in ID order.
func (s *GameState) Living(side Side) []Unit {
	out := make([]Unit, 0, len(s.Units))
	for _, u := range s.Units {
		if u.Side == side {
			out = append(out, u)
		}
	}
	return out
}

// Count returns the number of living units of a side.
func (s *GameState) Count(side Side) int {
	n := 0
	for _, u := range s.Units {
		if u.Side == side {
			n++
		}
	}
	return n
}

// Occupied reports whether any living unit stands on c.
func (s *GameState) Occupied(c grid.Cell) bool {
	for _, u := range s.Units {
		if u.Cell == c {
			return true
		}
	}
	return false
}

// Open reports whether a unit could step onto c right now.
func (s *GameState) Open(c grid.Cell) bool {
	return s.Board.Passable(c) && !s.Occupied(c)
}

// HealthLost is the damage a side has absorbed since the snapshot, counting
// removed units at their full health.
func (s *GameState) HealthLost(side Side) int {
	lost := s.Fallen[side]
	for _, u := range s.Units {
		if u.Side == side {
			lost += u.MaxHP - u.HP
		}
	}
	return lost
}

// Cells returns the cells of every living unit except the given IDs.
func (s *GameState) Cells(except ...int) []grid.Cell {
	out := make([]grid.Cell, 0, len(s.Units))
outer:
	for _, u := range s.Units {
		for _, id := range except {
			if u.ID == id {
				continue outer
			}
		}
		out = append(out, u.Cell)
	}
	return out
}
