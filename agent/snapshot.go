package agent

import (
	"errors"
	"fmt"

	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
)

// ErrBadSnapshot wraps every snapshot validation failure.
var ErrBadSnapshot = errors.New("bad snapshot")

// Snapshot is the host's view of the battlefield at the start of a turn.
type Snapshot struct {
	MatchID   string      `json:"match_id,omitempty"`
	Turn      int         `json:"turn"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Resources []grid.Cell `json:"resources"`
	Units     []UnitState `json:"units"`
}

type UnitState struct {
	ID     int    `json:"id"`
	Side   string `json:"side"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	HP     int    `json:"hp"`
	MaxHP  int    `json:"max_hp"`
	Range  int    `json:"range"`
	Damage int    `json:"damage"`
}

// Command is one unit's order for the host.
type Command struct {
	Unit      int    `json:"unit"`
	Kind      string `json:"kind"`
	Direction string `json:"direction,omitempty"`
	Target    int    `json:"target"`
}

const (
	KindMove   = "move"
	KindAttack = "attack"
)

// ToState converts a snapshot to a root state with toMove to act. Units with
// HP < 1 are treated as already gone.
func ToState(snap Snapshot, toMove game.Side) (*game.GameState, error) {
	if snap.Width < 1 || snap.Height < 1 {
		return nil, fmt.Errorf("board %dx%d: %w", snap.Width, snap.Height, ErrBadSnapshot)
	}
	board := grid.NewBoard(snap.Width, snap.Height, snap.Resources)

	seen := make(map[int]bool, len(snap.Units))
	units := make([]game.Unit, 0, len(snap.Units))
	for _, us := range snap.Units {
		if seen[us.ID] {
			return nil, fmt.Errorf("duplicate unit id %d: %w", us.ID, ErrBadSnapshot)
		}
		seen[us.ID] = true

		side, err := game.ParseSide(us.Side)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %v: %w", us.ID, err, ErrBadSnapshot)
		}
		c := grid.Cell{X: us.X, Y: us.Y}
		if !board.InBounds(c) {
			return nil, fmt.Errorf("unit %d at %v is off the %dx%d board: %w", us.ID, c, snap.Width, snap.Height, ErrBadSnapshot)
		}
		if us.Range < 0 || us.Damage < 0 {
			return nil, fmt.Errorf("unit %d: negative range or damage: %w", us.ID, ErrBadSnapshot)
		}
		units = append(units, game.Unit{
			ID:     us.ID,
			Side:   side,
			HP:     us.HP,
			MaxHP:  us.MaxHP,
			Range:  us.Range,
			Damage: us.Damage,
			Cell:   c,
		})
	}

	return game.NewState(board, units, toMove), nil
}

// FromState is the inverse of ToState, used by hosts that keep GameStates.
func FromState(s *game.GameState, matchID string) Snapshot {
	snap := Snapshot{
		MatchID:   matchID,
		Turn:      s.Ply,
		Width:     s.Board.Width,
		Height:    s.Board.Height,
		Resources: s.Board.Resources(),
		Units:     make([]UnitState, 0, len(s.Units)),
	}
	for _, u := range s.Units {
		snap.Units = append(snap.Units, UnitState{
			ID:     u.ID,
			Side:   u.Side.String(),
			X:      u.Cell.X,
			Y:      u.Cell.Y,
			HP:     u.HP,
			MaxHP:  u.MaxHP,
			Range:  u.Range,
			Damage: u.Damage,
		})
	}
	return snap
}

// ToCommands turns a joint action into commands in unit ID order. Units that
// pass are absent from ja and get no command.
func ToCommands(ja game.JointAction) []Command {
	out := make([]Command, 0, len(ja))
	for _, id := range ja.IDs() {
		a := ja[id]
		switch a.Kind {
		case game.Move:
			out = append(out, Command{Unit: id, Kind: KindMove, Direction: a.Dir.String()})
		case game.Attack:
			out = append(out, Command{Unit: id, Kind: KindAttack, Target: a.Target})
		}
	}
	return out
}

// FromCommands parses commands back into a joint action. A unit may appear
// at most once.
func FromCommands(cmds []Command) (game.JointAction, error) {
	ja := make(game.JointAction, len(cmds))
	for _, c := range cmds {
		if _, dup := ja[c.Unit]; dup {
			return nil, fmt.Errorf("unit %d has more than one command: %w", c.Unit, ErrBadSnapshot)
		}
		switch c.Kind {
		case KindMove:
			d, err := grid.ParseDirection(c.Direction)
			if err != nil {
				return nil, fmt.Errorf("unit %d: %v: %w", c.Unit, err, ErrBadSnapshot)
			}
			ja[c.Unit] = game.MoveAction(d)
		case KindAttack:
			ja[c.Unit] = game.AttackAction(c.Target)
		default:
			return nil, fmt.Errorf("unit %d: unknown command %q: %w", c.Unit, c.Kind, ErrBadSnapshot)
		}
	}
	return ja, nil
}
