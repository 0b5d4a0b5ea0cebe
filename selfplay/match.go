// Package selfplay is a reference host: it plays matches between two
// controllers, validates what they send, and records one row per decision.
package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/skirmish/agent"
	"github.com/brensch/skirmish/config"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/rules"
	"github.com/brensch/skirmish/search"
	"github.com/brensch/skirmish/store"
)

// Draw is the outcome recorded when MaxTurns runs out.
const Draw = "draw"

type MatchSpec struct {
	Scenario config.Scenario
	Attacker Controller
	Defender Controller
	MaxTurns int
	// First is the side that opens; the zero value is Attacker.
	First game.Side
	// OnProgress is used by RunMatches; PlayMatch takes its callback directly.
	OnProgress func(Progress)
}

type MatchResult struct {
	MatchID  string
	Scenario string
	Outcome  string
	Turns    int
	Rows     []store.TurnRow
	Final    *game.GameState
	Elapsed  time.Duration
}

// Progress is passed to the callback after each applied turn.
type Progress struct {
	MatchID string
	Turn    int
	Side    game.Side
	Action  string
	Value   float64
	Nodes   int
	State   *game.GameState
}

// PlayMatch runs one match to completion or MaxTurns. If ctx ends early the
// partial result is returned with ctx's error.
func PlayMatch(ctx context.Context, spec MatchSpec, log *slog.Logger, onProgress func(Progress)) (*MatchResult, error) {
	if log == nil {
		log = slog.Default()
	}
	state, err := spec.Scenario.State(spec.First)
	if err != nil {
		return nil, err
	}
	maxTurns := spec.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 200
	}

	start := time.Now()
	result := &MatchResult{
		MatchID:  uuid.NewString(),
		Scenario: spec.Scenario.Name,
		Rows:     make([]store.TurnRow, 0, 64),
	}
	log = log.With("match", result.MatchID, "scenario", result.Scenario)
	log.Info("match started", "attacker", spec.Attacker.Name(), "defender", spec.Defender.Name())

	for turn := 0; turn < maxTurns && !state.Terminal(); turn++ {
		if err := ctx.Err(); err != nil {
			result.finish(state, start)
			return result, err
		}

		ctrl := spec.Attacker
		if state.ToMove == game.Defender {
			ctrl = spec.Defender
		}

		d, err := ctrl.Decide(ctx, state)
		if err != nil {
			result.finish(state, start)
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			return result, fmt.Errorf("turn %d %s (%v): %w", turn, ctrl.Name(), state.ToMove, err)
		}

		ja, err := validate(state, d.Commands)
		if err != nil {
			result.finish(state, start)
			return result, fmt.Errorf("turn %d %s (%v): %w", turn, ctrl.Name(), state.ToMove, err)
		}

		next, err := rules.Apply(state, ja)
		if err != nil {
			result.finish(state, start)
			return result, fmt.Errorf("turn %d: %w", turn, err)
		}

		row := turnRow(result.MatchID, result.Scenario, ctrl.Name(), state, ja, d.Search)
		row.Outcome = next.Outcome.String()
		result.Rows = append(result.Rows, row)

		log.Debug("turn",
			"turn", turn,
			"side", state.ToMove.String(),
			"controller", ctrl.Name(),
			"action", ja.String(),
			"value", row.Value,
			"nodes", row.Nodes,
		)
		if onProgress != nil {
			onProgress(Progress{
				MatchID: result.MatchID,
				Turn:    turn,
				Side:    state.ToMove,
				Action:  ja.String(),
				Value:   row.Value,
				Nodes:   int(row.Nodes),
				State:   next,
			})
		}
		state = next
	}

	result.finish(state, start)
	log.Info("match finished", "outcome", result.Outcome, "turns", result.Turns, "elapsed", result.Elapsed)
	return result, nil
}

func (r *MatchResult) finish(s *game.GameState, start time.Time) {
	r.Final = s
	r.Turns = len(r.Rows)
	r.Elapsed = time.Since(start)
	r.Outcome = s.Outcome.String()
	if !s.Terminal() {
		r.Outcome = Draw
	}
	if n := len(r.Rows); n > 0 {
		r.Rows[n-1].Outcome = r.Outcome
	}
}

// validate parses commands the way a host would and rejects anything that is
// not in LegalActions for the current state.
func validate(s *game.GameState, cmds []agent.Command) (game.JointAction, error) {
	ja, err := agent.FromCommands(cmds)
	if err != nil {
		return nil, err
	}
	for id, a := range ja {
		u, ok := s.Unit(id)
		if !ok || u.Side != s.ToMove {
			return nil, fmt.Errorf("command for unit %d which %v does not control: %w", id, s.ToMove, rules.ErrIllegalAction)
		}
		if !legal(rules.LegalActions(s, u), a) {
			return nil, fmt.Errorf("unit %d: %v: %w", id, a, rules.ErrIllegalAction)
		}
	}
	return ja, nil
}

func legal(actions []game.Action, a game.Action) bool {
	for _, l := range actions {
		if l == a {
			return true
		}
	}
	return false
}

func turnRow(matchID, scenario, controller string, s *game.GameState, ja game.JointAction, res *search.Result) store.TurnRow {
	row := store.TurnRow{
		MatchID:    matchID,
		Scenario:   scenario,
		Turn:       int32(s.Ply),
		Side:       s.ToMove.String(),
		Controller: controller,
		Width:      int32(s.Board.Width),
		Height:     int32(s.Board.Height),
		Units:      make([]store.UnitRow, 0, len(s.Units)),
		Action:     ja.String(),
	}
	for _, c := range s.Board.Resources() {
		row.ResourceX = append(row.ResourceX, int32(c.X))
		row.ResourceY = append(row.ResourceY, int32(c.Y))
	}
	for _, u := range s.Units {
		row.Units = append(row.Units, store.UnitRow{
			ID:     int32(u.ID),
			Side:   u.Side.String(),
			X:      int32(u.Cell.X),
			Y:      int32(u.Cell.Y),
			HP:     int32(u.HP),
			MaxHP:  int32(u.MaxHP),
			Range:  int32(u.Range),
			Damage: int32(u.Damage),
		})
	}
	if res != nil {
		row.Value = res.Value
		row.Depth = int32(res.Stats.Depth)
		row.Nodes = int64(res.Stats.Nodes)
		row.Cutoffs = int64(res.Stats.Cutoffs)
		row.ElapsedNs = res.Stats.Elapsed.Nanoseconds()
		if res.Trace != nil {
			if b, err := search.MarshalTrace(res.Trace); err == nil {
				row.TreeJSON = b
			}
		}
	}
	return row
}
