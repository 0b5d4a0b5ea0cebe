// Package opponent holds scripted policies built from behaviour trees. They
// are the sparring partners self-play runs the search agent against.
package opponent

import (
	"context"
	"fmt"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
	"github.com/brensch/skirmish/pathfind"
)

// Policy builds one behaviour tree per unit per turn.
type Policy struct {
	Side game.Side
	// Build returns the tree for u; it writes its choice through set.
	Build func(b *Blackboard) bt.Node
	Name  string
}

// Blackboard is what a unit's tree reads and writes during one tick.
type Blackboard struct {
	State *game.GameState
	Unit  game.Unit
	// Claimed cells are destinations already taken by allies this turn.
	Claimed map[grid.Cell]bool

	action *game.Action
}

func (b *Blackboard) set(a game.Action) { b.action = &a }

// Decide ticks every living unit's tree once and collects the results. Units
// whose tree fails pass.
func (p *Policy) Decide(ctx context.Context, s *game.GameState) (game.JointAction, error) {
	if s.ToMove != p.Side {
		return nil, fmt.Errorf("%s policy for %v asked to move for %v", p.Name, p.Side, s.ToMove)
	}
	ja := make(game.JointAction)
	claimed := make(map[grid.Cell]bool)

	for _, u := range s.Living(p.Side) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := &Blackboard{State: s, Unit: u, Claimed: claimed}
		status, err := p.Build(b).Tick()
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", u.ID, err)
		}
		if status != bt.Success || b.action == nil {
			continue
		}
		ja[u.ID] = *b.action
		if b.action.Kind == game.Move {
			claimed[u.Cell.Add(b.action.Dir)] = true
		}
	}
	return ja, nil
}

// Kiter is the archer script: step away from adjacent melee, otherwise shoot
// the weakest enemy in range, otherwise close to firing range.
func Kiter() *Policy {
	return &Policy{
		Name: "kiter",
		Side: game.Defender,
		Build: func(b *Blackboard) bt.Node {
			return bt.New(bt.Selector,
				bt.New(bt.Sequence, cond(b, threatened), act(b, flee)),
				bt.New(bt.Sequence, cond(b, enemyInRange), act(b, attackWeakest)),
				act(b, advance),
			)
		},
	}
}

// Charger is the footman script: hit anything in reach, otherwise walk the
// shortest path to the nearest enemy.
func Charger() *Policy {
	return &Policy{
		Name: "charger",
		Side: game.Attacker,
		Build: func(b *Blackboard) bt.Node {
			return bt.New(bt.Selector,
				bt.New(bt.Sequence, cond(b, enemyInRange), act(b, attackWeakest)),
				act(b, advance),
			)
		},
	}
}

func cond(b *Blackboard, f func(*Blackboard) bool) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		if f(b) {
			return bt.Success, nil
		}
		return bt.Failure, nil
	})
}

// act wraps a chooser; no choice is Failure so a Selector moves on.
func act(b *Blackboard, f func(*Blackboard) (game.Action, bool)) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		a, ok := f(b)
		if !ok {
			return bt.Failure, nil
		}
		b.set(a)
		return bt.Success, nil
	})
}

func enemies(b *Blackboard) []game.Unit {
	return b.State.Living(b.Unit.Side.Other())
}

func threatened(b *Blackboard) bool {
	for _, e := range enemies(b) {
		if e.Range < b.Unit.Range && grid.Manhattan(e.Cell, b.Unit.Cell) <= e.Range {
			return true
		}
	}
	return false
}

func enemyInRange(b *Blackboard) bool {
	for _, e := range enemies(b) {
		if grid.Manhattan(e.Cell, b.Unit.Cell) <= b.Unit.Range {
			return true
		}
	}
	return false
}

func attackWeakest(b *Blackboard) (game.Action, bool) {
	best, found := game.Unit{}, false
	for _, e := range enemies(b) {
		if grid.Manhattan(e.Cell, b.Unit.Cell) > b.Unit.Range {
			continue
		}
		if !found || e.HP < best.HP {
			best, found = e, true
		}
	}
	if !found {
		return game.Action{}, false
	}
	return game.AttackAction(best.ID), true
}

// flee picks the open step that maximises the distance to the closest enemy.
// Staying put is not an option here; if no step improves, it fails.
func flee(b *Blackboard) (game.Action, bool) {
	here := closest(b, b.Unit.Cell)
	bestDir, bestDist := grid.North, here
	for _, d := range grid.Directions {
		c := b.Unit.Cell.Add(d)
		if !b.State.Open(c) || b.Claimed[c] {
			continue
		}
		if dist := closest(b, c); dist > bestDist {
			bestDir, bestDist = d, dist
		}
	}
	if bestDist == here {
		return game.Action{}, false
	}
	return game.MoveAction(bestDir), true
}

// advance takes the first step of the shortest path to the nearest enemy.
func advance(b *Blackboard) (game.Action, bool) {
	var path []grid.Cell
	for _, e := range enemies(b) {
		p := pathfind.FindPath(b.State.Board, b.Unit.Cell, e.Cell, b.State.Cells(b.Unit.ID, e.ID)...)
		if len(p) == 0 {
			continue
		}
		if path == nil || len(p) < len(path) {
			path = p
		}
	}
	if len(path) < 2 {
		// Unreachable, or already adjacent and nothing to step to.
		return game.Action{}, false
	}
	next := path[0]
	if b.Claimed[next] || !b.State.Open(next) {
		return game.Action{}, false
	}
	for _, d := range grid.Directions {
		if b.Unit.Cell.Add(d) == next {
			return game.MoveAction(d), true
		}
	}
	return game.Action{}, false
}

func closest(b *Blackboard, c grid.Cell) int {
	best := -1
	for _, e := range enemies(b) {
		if d := grid.Manhattan(e.Cell, c); best < 0 || d < best {
			best = d
		}
	}
	return best
}
