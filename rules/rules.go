// Package rules is the transition model: which actions are legal and what
// state a joint action produces.
package rules

import (
	"errors"
	"fmt"

	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
)

var (
	// ErrIllegalAction is returned by Apply for actions that no legal
	// enumeration could have produced.
	ErrIllegalAction = errors.New("illegal action")
	// ErrMalformedState marks a state that breaks the model's own invariants,
	// such as a non-terminal state whose side to move has no units.
	ErrMalformedState = errors.New("malformed state")
)

// Child is a joint action together with the state it produces.
type Child struct {
	Action game.JointAction
	State  *game.GameState
}

// LegalActions returns every action available to u: moves in direction order
// onto open cells, then attacks on enemies within range in ID order. An empty
// result means the unit passes.
func LegalActions(s *game.GameState, u game.Unit) []game.Action {
	actions := make([]game.Action, 0, 4+len(s.Units))

	for _, d := range grid.Directions {
		if s.Open(u.Cell.Add(d)) {
			actions = append(actions, game.MoveAction(d))
		}
	}

	for _, e := range s.Units {
		if e.Side == u.Side {
			continue
		}
		if grid.Manhattan(u.Cell, e.Cell) <= u.Range {
			actions = append(actions, game.AttackAction(e.ID))
		}
	}

	return actions
}

// JointActions is the Cartesian product of LegalActions over the living units
// of the side to move. Units with no legal action are left out, so a side that
// is completely boxed in yields a single empty joint action.
func JointActions(s *game.GameState) []game.JointAction {
	joint := []game.JointAction{{}}

	for _, u := range s.Living(s.ToMove) {
		actions := LegalActions(s, u)
		if len(actions) == 0 {
			continue
		}

		next := make([]game.JointAction, 0, len(joint)*len(actions))
		for _, partial := range joint {
			for _, a := range actions {
				ja := make(game.JointAction, len(partial)+1)
				for id, pa := range partial {
					ja[id] = pa
				}
				ja[u.ID] = a
				next = append(next, ja)
			}
		}
		joint = next
	}

	return joint
}

// Apply returns the state after ja. The input state is never written to.
//
// Moves resolve first, each from its unit's pre-move cell onto a cell that was
// open before the ply; two units may end on the same cell. Attacks then
// resolve in unit ID order with range measured from pre-move cells;
// an attack on a unit that already fell this ply does nothing. Units left with
// HP < 1 are removed.
func Apply(s *game.GameState, ja game.JointAction) (*game.GameState, error) {
	if s.Terminal() {
		return nil, fmt.Errorf("apply to terminal state (%v): %w", s.Outcome, ErrIllegalAction)
	}

	next := s.Clone()
	index := make(map[int]int, len(next.Units))
	for i, u := range next.Units {
		index[u.ID] = i
	}

	ids := ja.IDs()
	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("unit %d not in state: %w", id, ErrIllegalAction)
		}
		if next.Units[i].Side != s.ToMove {
			return nil, fmt.Errorf("unit %d is %v but %v is to move: %w", id, next.Units[i].Side, s.ToMove, ErrIllegalAction)
		}
	}

	for _, id := range ids {
		a := ja[id]
		if a.Kind != game.Move {
			continue
		}
		u := &next.Units[index[id]]
		dest := s.Units[index[id]].Cell.Add(a.Dir)
		if !s.Board.InBounds(dest) {
			return nil, fmt.Errorf("unit %d moves %v off the board: %w", id, a.Dir, ErrIllegalAction)
		}
		if !s.Open(dest) {
			return nil, fmt.Errorf("unit %d moves %v onto blocked cell %v: %w", id, a.Dir, dest, ErrIllegalAction)
		}
		u.Cell = dest
	}

	for _, id := range ids {
		a := ja[id]
		if a.Kind != game.Attack {
			continue
		}
		ti, ok := index[a.Target]
		if !ok {
			return nil, fmt.Errorf("unit %d attacks unknown unit %d: %w", id, a.Target, ErrIllegalAction)
		}
		target := &next.Units[ti]
		if target.Side == s.ToMove {
			return nil, fmt.Errorf("unit %d attacks ally %d: %w", id, a.Target, ErrIllegalAction)
		}
		// Range is measured between pre-move cells, as LegalActions does.
		if from, to := s.Units[index[id]], s.Units[ti]; grid.Manhattan(from.Cell, to.Cell) > from.Range {
			return nil, fmt.Errorf("unit %d attacks %d out of range: %w", id, a.Target, ErrIllegalAction)
		}
		if target.HP < 1 {
			continue
		}
		target.HP -= next.Units[index[id]].Damage
	}

	survivors := next.Units[:0]
	for _, u := range next.Units {
		if u.HP < 1 {
			next.Fallen[u.Side] += u.MaxHP
			continue
		}
		survivors = append(survivors, u)
	}
	next.Units = survivors

	next.ToMove = s.ToMove.Other()
	next.Ply = s.Ply + 1

	switch {
	case next.Count(game.Defender) == 0:
		next.Outcome = game.AttackerWins
	case next.Count(game.Attacker) == 0:
		next.Outcome = game.DefenderWins
	}

	return next, nil
}

// Children applies every joint action of the side to move.
func Children(s *game.GameState) ([]Child, error) {
	if s.Terminal() {
		return nil, nil
	}
	if s.Count(s.ToMove) == 0 {
		return nil, fmt.Errorf("%v to move with no living units at ply %d: %w", s.ToMove, s.Ply, ErrMalformedState)
	}

	joint := JointActions(s)
	children := make([]Child, 0, len(joint))
	for _, ja := range joint {
		next, err := Apply(s, ja)
		if err != nil {
			return nil, fmt.Errorf("expand ply %d: %w", s.Ply, err)
		}
		children = append(children, Child{Action: ja, State: next})
	}
	return children, nil
}

// IsTerminal reports whether either side has been wiped out.
func IsTerminal(s *game.GameState) bool {
	return s.Terminal()
}

// Winner returns the side that won, and false while the game is running.
func Winner(s *game.GameState) (game.Side, bool) {
	switch s.Outcome {
	case game.AttackerWins:
		return game.Attacker, true
	case game.DefenderWins:
		return game.Defender, true
	}
	return 0, false
}
