// Package search picks joint actions with depth-limited minimax and
// alpha-beta pruning.
//
// The attacker is always the maximizing side and the defender the minimizing
// one; the evaluator scores from the attacker's view and the engine flips
// comparisons by the side to move. Search is single-threaded: one call builds
// and discards its whole tree.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/rules"
)

// ErrNoMove is returned when the root has nothing to search: it is terminal
// or the plies budget is zero.
var ErrNoMove = errors.New("no move to search")

// Evaluator scores a state produced by a joint action from the attacker's
// point of view. *eval.Evaluator satisfies it.
type Evaluator interface {
	Evaluate(s *game.GameState, a game.JointAction) float64
}

// Orderer optionally adjusts ordering scores. *eval.Evaluator satisfies it.
type Orderer interface {
	OrderScore(s *game.GameState, a game.JointAction, value float64) float64
}

// Config holds search configuration.
type Config struct {
	// Plies is the depth in half-turns.
	Plies int
	// DisableOrdering explores children in enumeration order.
	DisableOrdering bool
	// DisablePruning turns the engine into plain minimax.
	DisablePruning bool
	// Trace records the explored tree in Result.Trace.
	Trace bool
}

// Engine holds the search context.
type Engine struct {
	Config Config
	Eval   Evaluator
}

// Node is a joint action and the state it produced. The root has no action.
type Node struct {
	Action game.JointAction
	State  *game.GameState
}

// Stats counts work done by one search.
type Stats struct {
	Nodes   int           `json:"nodes"`
	Leaves  int           `json:"leaves"`
	Cutoffs int           `json:"cutoffs"`
	Depth   int           `json:"depth"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Result is the decision for the root.
type Result struct {
	Action game.JointAction
	Value  float64
	Stats  Stats
	Trace  *TraceNode
}

// Search runs alpha-beta from root to Config.Plies.
func (e *Engine) Search(ctx context.Context, root *game.GameState) (Result, error) {
	return e.searchDepth(ctx, root, e.Config.Plies)
}

// Deepen searches depth 1, 2, ... up to Config.Plies and returns the deepest
// completed result. If ctx ends mid-iteration the previous depth's result is
// returned with a nil error; if not even depth 1 finished, ctx's error is.
func (e *Engine) Deepen(ctx context.Context, root *game.GameState) (Result, error) {
	var best Result
	have := false
	for depth := 1; depth <= e.Config.Plies; depth++ {
		res, err := e.searchDepth(ctx, root, depth)
		if err != nil {
			if have && ctx.Err() != nil {
				return best, nil
			}
			return res, err
		}
		best, have = res, true
	}
	return best, nil
}

func (e *Engine) searchDepth(ctx context.Context, root *game.GameState, depth int) (Result, error) {
	if depth < 1 {
		return Result{}, fmt.Errorf("plies %d: %w", depth, ErrNoMove)
	}
	if root.Terminal() {
		return Result{}, fmt.Errorf("root is %v: %w", root.Outcome, ErrNoMove)
	}

	start := time.Now()
	w := &walker{
		ctx:   ctx,
		eval:  e.Eval,
		prune: !e.Config.DisablePruning,
		order: !e.Config.DisableOrdering,
		trace: e.Config.Trace,
		stats: Stats{Depth: depth},
	}
	if o, ok := e.Eval.(Orderer); ok {
		w.orderer = o
	}

	var rootTrace *TraceNode
	if w.trace {
		rootTrace = &TraceNode{Side: root.ToMove.String()}
	}

	value, action, err := w.alphaBeta(Node{State: root}, depth, math.Inf(-1), math.Inf(1), nil, rootTrace)
	w.stats.Elapsed = time.Since(start)
	if err != nil {
		return Result{Stats: w.stats}, err
	}
	if action == nil {
		action = game.JointAction{}
	}

	return Result{Action: action, Value: value, Stats: w.stats, Trace: rootTrace}, nil
}

type walker struct {
	ctx     context.Context
	eval    Evaluator
	orderer Orderer
	prune   bool
	order   bool
	trace   bool
	stats   Stats
}

// scored is a child with its static value and ordering key.
type scored struct {
	rules.Child
	value float64
	key   float64
}

// alphaBeta returns the backed-up value of n and, for interior nodes, the
// action of the best child. static is n's own evaluation when the parent
// already computed it.
func (w *walker) alphaBeta(n Node, depth int, alpha, beta float64, static *float64, tr *TraceNode) (float64, game.JointAction, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, nil, err
	}
	w.stats.Nodes++

	if n.State.Terminal() || depth == 0 {
		return w.leaf(n, static, tr), nil, nil
	}

	children, err := rules.Children(n.State)
	if err != nil {
		return 0, nil, err
	}
	if len(children) == 0 {
		return w.leaf(n, static, tr), nil, nil
	}

	maximizing := n.State.ToMove == game.Attacker
	ordered := w.score(children, maximizing)

	best := math.Inf(1)
	if maximizing {
		best = math.Inf(-1)
	}
	var bestAction game.JointAction

	for i := range ordered {
		c := &ordered[i]

		var childTrace *TraceNode
		if tr != nil {
			childTrace = &TraceNode{Action: c.Action.String(), Side: c.State.ToMove.String(), Static: c.value}
			tr.Children = append(tr.Children, childTrace)
		}

		v, _, err := w.alphaBeta(Node{Action: c.Action, State: c.State}, depth-1, alpha, beta, &c.value, childTrace)
		if err != nil {
			return 0, nil, err
		}

		if bestAction == nil || (maximizing && v > best) || (!maximizing && v < best) {
			best = v
			bestAction = c.Action
		}
		if maximizing {
			alpha = math.Max(alpha, best)
		} else {
			beta = math.Min(beta, best)
		}

		if w.prune && beta <= alpha {
			w.stats.Cutoffs++
			if tr != nil {
				tr.Pruned = len(ordered) - i - 1
			}
			break
		}
	}

	if tr != nil {
		tr.Value, tr.Alpha, tr.Beta = best, alpha, beta
		tr.Best = bestAction.String()
	}
	return best, bestAction, nil
}

func (w *walker) leaf(n Node, static *float64, tr *TraceNode) float64 {
	w.stats.Leaves++
	var v float64
	if static != nil {
		v = *static
	} else {
		v = w.eval.Evaluate(n.State, n.Action)
	}
	if tr != nil {
		tr.Value = v
		tr.Leaf = true
	}
	return v
}

// score evaluates every child once and, unless ordering is disabled, sorts
// them best-first for the side to move. The static values are reused as leaf
// values one ply down, so ordering costs nothing extra at the frontier.
func (w *walker) score(children []rules.Child, maximizing bool) []scored {
	out := make([]scored, len(children))
	for i, c := range children {
		v := w.eval.Evaluate(c.State, c.Action)
		key := v
		if w.orderer != nil {
			key = w.orderer.OrderScore(c.State, c.Action, v)
		}
		out[i] = scored{Child: c, value: v, key: key}
	}
	if !w.order {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if maximizing {
			return out[i].key > out[j].key
		}
		return out[i].key < out[j].key
	})
	return out
}
