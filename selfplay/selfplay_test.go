package selfplay

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brensch/skirmish/agent"
	"github.com/brensch/skirmish/config"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
	"github.com/brensch/skirmish/opponent"
	"github.com/brensch/skirmish/rules"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func smallScenario() config.Scenario {
	return config.Scenario{
		Name:  "small",
		Width: 5, Height: 5,
		Resources: []grid.Cell{{X: 2, Y: 2}},
		Units: []config.UnitSpec{
			{ID: 1, Side: "attacker", X: 0, Y: 0, HP: 30, MaxHP: 30, Range: 1, Damage: 10},
			{ID: 10, Side: "defender", X: 4, Y: 4, HP: 20, MaxHP: 20, Range: 2, Damage: 2},
		},
	}
}

func searchAttacker(t *testing.T) Controller {
	t.Helper()
	a, err := agent.New(agent.Config{Plies: 2, Side: game.Attacker, Logger: quiet()})
	require.NoError(t, err)
	return &SearchController{Agent: a}
}

func TestPlayMatch_SearchVsKiter(t *testing.T) {
	spec := MatchSpec{
		Scenario: smallScenario(),
		Attacker: searchAttacker(t),
		Defender: &ScriptController{Policy: opponent.Kiter()},
		MaxTurns: 40,
	}

	var turns int
	res, err := PlayMatch(context.Background(), spec, quiet(), func(p Progress) {
		turns++
		if p.Turn%10 == 0 {
			t.Logf("turn %d %v %s\n%s", p.Turn, p.Side, p.Action, Render(p.State))
		}
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.MatchID)
	require.Equal(t, turns, res.Turns)
	require.Len(t, res.Rows, res.Turns)

	// Rows alternate sides starting with the attacker and carry search stats
	// only for the search controller.
	for i, row := range res.Rows {
		require.Equal(t, int32(i), row.Turn)
		if i%2 == 0 {
			require.Equal(t, "attacker", row.Side)
			require.Equal(t, "search", row.Controller)
			require.Positive(t, row.Nodes)
		} else {
			require.Equal(t, "defender", row.Side)
			require.Equal(t, "kiter", row.Controller)
			require.Zero(t, row.Nodes)
		}
	}
	require.Equal(t, res.Outcome, res.Rows[len(res.Rows)-1].Outcome)
	t.Logf("outcome %s after %d turns", res.Outcome, res.Turns)
}

type fixed struct {
	cmds []agent.Command
}

func (f fixed) Name() string { return "fixed" }

func (f fixed) Decide(context.Context, *game.GameState) (Decision, error) {
	return Decision{Commands: f.cmds}, nil
}

func TestPlayMatch_RejectsIllegalCommands(t *testing.T) {
	cases := map[string][]agent.Command{
		"off board":      {{Unit: 1, Kind: agent.KindMove, Direction: "north"}},
		"out of range":   {{Unit: 1, Kind: agent.KindAttack, Target: 10}},
		"enemy unit":     {{Unit: 10, Kind: agent.KindMove, Direction: "north"}},
		"unknown kind":   {{Unit: 1, Kind: "dig"}},
		"duplicate unit": {{Unit: 1, Kind: agent.KindMove, Direction: "east"}, {Unit: 1, Kind: agent.KindMove, Direction: "south"}},
	}
	for name, cmds := range cases {
		t.Run(name, func(t *testing.T) {
			spec := MatchSpec{
				Scenario: smallScenario(),
				Attacker: fixed{cmds: cmds},
				Defender: &ScriptController{Policy: opponent.Kiter()},
				MaxTurns: 4,
			}
			_, err := PlayMatch(context.Background(), spec, quiet(), nil)
			require.Error(t, err)
		})
	}

	spec := MatchSpec{
		Scenario: smallScenario(),
		Attacker: fixed{cmds: []agent.Command{{Unit: 1, Kind: agent.KindAttack, Target: 10}}},
		Defender: &ScriptController{Policy: opponent.Kiter()},
		MaxTurns: 4,
	}
	_, err := PlayMatch(context.Background(), spec, quiet(), nil)
	require.ErrorIs(t, err, rules.ErrIllegalAction)
}

func TestPlayMatch_DrawAtMaxTurns(t *testing.T) {
	spec := MatchSpec{
		Scenario: smallScenario(),
		Attacker: fixed{},
		Defender: fixed{},
		MaxTurns: 6,
	}
	res, err := PlayMatch(context.Background(), spec, quiet(), nil)
	require.NoError(t, err)
	require.Equal(t, Draw, res.Outcome)
	require.Equal(t, 6, res.Turns)
	for _, row := range res.Rows {
		require.Equal(t, "pass", row.Action)
	}
}

func TestPlayMatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spec := MatchSpec{Scenario: smallScenario(), Attacker: fixed{}, Defender: fixed{}, MaxTurns: 6}
	res, err := PlayMatch(ctx, spec, quiet(), nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.Zero(t, res.Turns)
}

func TestRunMatches(t *testing.T) {
	specs := make([]MatchSpec, 4)
	for i := range specs {
		specs[i] = MatchSpec{
			Scenario: smallScenario(),
			Attacker: &ScriptController{Policy: opponent.Charger()},
			Defender: &ScriptController{Policy: opponent.Kiter()},
			MaxTurns: 30,
		}
	}
	specs[2].Scenario.Width = 0 // invalid board

	var done atomic.Int32
	results, err := RunMatches(context.Background(), specs, 2, quiet(), func(*MatchResult) { done.Add(1) })
	require.Error(t, err)
	require.Len(t, results, 4)
	require.Nil(t, results[2])
	require.EqualValues(t, 3, done.Load())

	ids := map[string]bool{}
	for i, r := range results {
		if i == 2 {
			continue
		}
		require.NotNil(t, r)
		require.False(t, ids[r.MatchID], "duplicate match id")
		ids[r.MatchID] = true
	}

	_, err = RunMatches(context.Background(), nil, 2, quiet(), nil)
	require.ErrorIs(t, err, ErrNoMatches)
}

func TestRender(t *testing.T) {
	s, err := smallScenario().State(game.Attacker)
	require.NoError(t, err)

	out := Render(s)
	t.Log("\n" + out)
	require.Contains(t, out, "F....\n")
	require.Contains(t, out, "..#..\n")
	require.Contains(t, out, "....A\n")
}
