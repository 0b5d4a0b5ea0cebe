// Package agent is the per-turn shell around the search: it turns a host
// snapshot into a root state, searches, and turns the chosen joint action
// back into unit commands.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brensch/skirmish/eval"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/search"
)

// ErrInvalidPlies is returned by New when the depth is below one.
var ErrInvalidPlies = errors.New("plies must be at least 1")

type Config struct {
	Plies   int
	Side    game.Side
	Weights eval.Weights
	// Deepen runs iterative deepening. It is implied by a Timeout or a
	// deadline on the caller's context, so running out of time returns the
	// deepest finished depth instead of failing the turn.
	Deepen  bool
	Timeout time.Duration
	// Trace keeps the search tree on each Decision.
	Trace  bool
	Logger *slog.Logger
}

// Agent decides for one side. It holds no per-match state, so one Agent can
// serve concurrent requests.
type Agent struct {
	cfg    Config
	engine *search.Engine
	log    *slog.Logger
}

// Decision is one turn's output.
type Decision struct {
	Commands []Command
	Action   game.JointAction
	Result   search.Result
}

func New(cfg Config) (*Agent, error) {
	if cfg.Plies < 1 {
		return nil, fmt.Errorf("plies=%d: %w", cfg.Plies, ErrInvalidPlies)
	}
	if cfg.Weights == (eval.Weights{}) {
		cfg.Weights = eval.DefaultWeights()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Agent{
		cfg: cfg,
		engine: &search.Engine{
			Config: search.Config{Plies: cfg.Plies, Trace: cfg.Trace},
			Eval:   eval.New(cfg.Weights),
		},
		log: logger.With("side", cfg.Side.String()),
	}, nil
}

func (a *Agent) Side() game.Side { return a.cfg.Side }

// Start is called once when a match begins. It only validates the snapshot.
func (a *Agent) Start(snap Snapshot) error {
	s, err := ToState(snap, a.cfg.Side)
	if err != nil {
		return err
	}
	a.log.Info("match started",
		"match", snap.MatchID,
		"board", fmt.Sprintf("%dx%d", s.Board.Width, s.Board.Height),
		"attackers", s.Count(game.Attacker),
		"defenders", s.Count(game.Defender),
	)
	return nil
}

// End is called once when the host reports the match over. Nothing is
// searched.
func (a *Agent) End(snap Snapshot) {
	result := "unknown"
	if s, err := ToState(snap, a.cfg.Side); err == nil {
		result = s.Outcome.String()
	}
	a.log.Info("match ended", "match", snap.MatchID, "turn", snap.Turn, "result", result)
}

// Step returns the commands for this turn.
func (a *Agent) Step(ctx context.Context, snap Snapshot) ([]Command, error) {
	d, err := a.Decide(ctx, snap)
	if err != nil {
		return nil, err
	}
	return d.Commands, nil
}

// Decide is Step with the search result attached.
func (a *Agent) Decide(ctx context.Context, snap Snapshot) (Decision, error) {
	root, err := ToState(snap, a.cfg.Side)
	if err != nil {
		return Decision{}, err
	}
	if root.Terminal() || root.Count(a.cfg.Side) == 0 {
		a.log.Debug("nothing to decide", "match", snap.MatchID, "turn", snap.Turn, "outcome", root.Outcome.String())
		return Decision{Commands: []Command{}, Action: game.JointAction{}}, nil
	}

	res, err := a.DecideState(ctx, root)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Commands: ToCommands(res.Action),
		Action:   res.Action,
		Result:   res,
	}
	a.log.Info("decided",
		"match", snap.MatchID,
		"turn", snap.Turn,
		"action", res.Action.String(),
		"value", res.Value,
		"depth", res.Stats.Depth,
		"nodes", res.Stats.Nodes,
		"cutoffs", res.Stats.Cutoffs,
		"elapsed", res.Stats.Elapsed,
	)
	return d, nil
}

// DecideState searches from a state that already has this agent's side to
// move.
func (a *Agent) DecideState(ctx context.Context, root *game.GameState) (search.Result, error) {
	if root.ToMove != a.cfg.Side {
		return search.Result{}, fmt.Errorf("%v agent asked to move for %v", a.cfg.Side, root.ToMove)
	}
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	if _, ok := ctx.Deadline(); ok || a.cfg.Deepen {
		return a.engine.Deepen(ctx, root)
	}
	return a.engine.Search(ctx, root)
}
