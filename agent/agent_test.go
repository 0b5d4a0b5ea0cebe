package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
)

func openField() Snapshot {
	return Snapshot{
		MatchID: "m1",
		Width:   5,
		Height:  5,
		Units: []UnitState{
			{ID: 1, Side: "attacker", X: 0, Y: 0, HP: 30, MaxHP: 30, Range: 1, Damage: 10},
			{ID: 10, Side: "defender", X: 2, Y: 0, HP: 20, MaxHP: 20, Range: 3, Damage: 5},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNew_RejectsZeroPlies(t *testing.T) {
	_, err := New(Config{Plies: 0})
	require.ErrorIs(t, err, ErrInvalidPlies)
}

func TestStep_OpenField(t *testing.T) {
	a, err := New(Config{Plies: 2, Side: game.Attacker, Logger: quietLogger()})
	require.NoError(t, err)

	cmds, err := a.Step(context.Background(), openField())
	require.NoError(t, err)
	require.Equal(t, []Command{{Unit: 1, Kind: KindMove, Direction: "east"}}, cmds)
}

func TestStep_Defender(t *testing.T) {
	a, err := New(Config{Plies: 1, Side: game.Defender, Logger: quietLogger()})
	require.NoError(t, err)

	snap := openField()
	snap.Units[0].X = 1 // footman adjacent to the archer

	cmds, err := a.Step(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, 10, cmds[0].Unit)
}

func TestStep_TerminalIsNoop(t *testing.T) {
	a, err := New(Config{Plies: 2, Side: game.Attacker, Logger: quietLogger()})
	require.NoError(t, err)

	snap := openField()
	snap.Units[1].HP = 0

	cmds, err := a.Step(context.Background(), snap)
	require.NoError(t, err)
	require.Empty(t, cmds)
}

func TestStep_DecisionLogged(t *testing.T) {
	var buf bytes.Buffer
	a, err := New(Config{Plies: 2, Side: game.Attacker, Logger: slog.New(slog.NewJSONHandler(&buf, nil))})
	require.NoError(t, err)

	_, err = a.Step(context.Background(), openField())
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"msg":"decided"`)
	require.Contains(t, buf.String(), `"nodes":`)
}

func TestDecide_DeepenFullDepth(t *testing.T) {
	a, err := New(Config{Plies: 3, Side: game.Attacker, Deepen: true, Logger: quietLogger()})
	require.NoError(t, err)

	d, err := a.Decide(context.Background(), openField())
	require.NoError(t, err)
	require.Equal(t, 3, d.Result.Stats.Depth)
}

func skirmish2v2() Snapshot {
	return Snapshot{
		MatchID: "m2",
		Width:   10,
		Height:  10,
		Units: []UnitState{
			{ID: 1, Side: "attacker", X: 0, Y: 0, HP: 60, MaxHP: 60, Range: 1, Damage: 12},
			{ID: 2, Side: "attacker", X: 0, Y: 9, HP: 60, MaxHP: 60, Range: 1, Damage: 12},
			{ID: 10, Side: "defender", X: 9, Y: 0, HP: 50, MaxHP: 50, Range: 8, Damage: 6},
			{ID: 11, Side: "defender", X: 9, Y: 9, HP: 50, MaxHP: 50, Range: 8, Damage: 6},
		},
	}
}

func TestStep_TimeoutLimitsDepth(t *testing.T) {
	// Eight plies on a 10x10 2v2 cannot finish in 50ms; the budget must cut
	// depth, not the turn.
	a, err := New(Config{Plies: 8, Side: game.Attacker, Timeout: 50 * time.Millisecond, Logger: quietLogger()})
	require.NoError(t, err)

	d, err := a.Decide(context.Background(), skirmish2v2())
	require.NoError(t, err)
	require.NotEmpty(t, d.Commands)
	require.GreaterOrEqual(t, d.Result.Stats.Depth, 1)
	require.Less(t, d.Result.Stats.Depth, 8)
}

func TestStep_CallerDeadlineLimitsDepth(t *testing.T) {
	a, err := New(Config{Plies: 8, Side: game.Attacker, Logger: quietLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cmds, err := a.Step(ctx, skirmish2v2())
	require.NoError(t, err)
	require.NotEmpty(t, cmds)
}

func TestToState_Validation(t *testing.T) {
	cases := map[string]func(*Snapshot){
		"duplicate id": func(s *Snapshot) { s.Units[1].ID = 1 },
		"unknown side": func(s *Snapshot) { s.Units[0].Side = "cavalry" },
		"off board":    func(s *Snapshot) { s.Units[0].X = 5 },
		"empty board":  func(s *Snapshot) { s.Width = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			snap := openField()
			mutate(&snap)
			_, err := ToState(snap, game.Attacker)
			require.ErrorIs(t, err, ErrBadSnapshot)
		})
	}
}

func TestToState_DropsOutOfBoundsResources(t *testing.T) {
	snap := openField()
	snap.Resources = []grid.Cell{{X: 1, Y: 1}, {X: 9, Y: 9}}

	s, err := ToState(snap, game.Attacker)
	require.NoError(t, err)
	require.Equal(t, []grid.Cell{{X: 1, Y: 1}}, s.Board.Resources())
}

func TestCommands_RoundTrip(t *testing.T) {
	ja := game.JointAction{
		2: game.AttackAction(10),
		1: game.MoveAction(grid.West),
	}
	cmds := ToCommands(ja)
	require.Equal(t, []Command{
		{Unit: 1, Kind: KindMove, Direction: "west"},
		{Unit: 2, Kind: KindAttack, Target: 10},
	}, cmds)

	raw, err := json.Marshal(cmds)
	require.NoError(t, err)
	require.JSONEq(t, `[{"unit":1,"kind":"move","direction":"west","target":0},{"unit":2,"kind":"attack","target":10}]`, string(raw))

	back, err := FromCommands(cmds)
	require.NoError(t, err)
	require.Equal(t, ja, back)
}

func TestCommands_AttackOnUnitZero(t *testing.T) {
	ja := game.JointAction{1: game.AttackAction(0)}

	raw, err := json.Marshal(ToCommands(ja))
	require.NoError(t, err)
	require.JSONEq(t, `[{"unit":1,"kind":"attack","target":0}]`, string(raw))
}

func TestFromCommands_Errors(t *testing.T) {
	_, err := FromCommands([]Command{{Unit: 1, Kind: "dance"}})
	require.ErrorIs(t, err, ErrBadSnapshot)

	_, err = FromCommands([]Command{{Unit: 1, Kind: KindMove, Direction: "up"}})
	require.ErrorIs(t, err, ErrBadSnapshot)

	_, err = FromCommands([]Command{{Unit: 1, Kind: KindAttack, Target: 3}, {Unit: 1, Kind: KindAttack, Target: 4}})
	require.ErrorIs(t, err, ErrBadSnapshot)
}

func TestFromState_RoundTrip(t *testing.T) {
	snap := openField()
	snap.Resources = []grid.Cell{{X: 3, Y: 3}}
	s, err := ToState(snap, game.Attacker)
	require.NoError(t, err)

	back := FromState(s, "m1")
	require.Equal(t, snap.Units, back.Units)
	require.Equal(t, snap.Resources, back.Resources)
}
