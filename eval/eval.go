// Package eval scores game states for the search. Scores are always from the
// attacker's point of view: higher is better for the attacker.
package eval

import (
	"math"

	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
	"github.com/brensch/skirmish/pathfind"
)

// Weights are the tunable constants of the evaluation. None of them is a
// contract; they are loaded from config and adjusted by watching matches.
type Weights struct {
	// Distance is subtracted per step of path between an attacker and its target.
	Distance float64 `yaml:"distance" json:"distance"`
	// Approach rewards a move that strictly shortened the path to the target.
	Approach float64 `yaml:"approach" json:"approach"`
	// Overshoot punishes a move whose path length changed by more than one step.
	Overshoot float64 `yaml:"overshoot" json:"overshoot"`
	// Corner rewards a move toward the target's last escape cell (or the
	// corner nearest it) once an attacker is engaged.
	Corner float64 `yaml:"corner" json:"corner"`
	// Trapped is added when an engaged target has no open neighbour left.
	Trapped float64 `yaml:"trapped" json:"trapped"`
	// Health scales net damage dealt.
	Health float64 `yaml:"health" json:"health"`
	// Attrition is subtracted per attacker lost since the snapshot.
	Attrition float64 `yaml:"attrition" json:"attrition"`
	// Win is the magnitude of a decided game.
	Win float64 `yaml:"win" json:"win"`
	// AttackOrder is added per attacking attacker when ordering children. It
	// never enters backed-up values.
	AttackOrder float64 `yaml:"attack_order" json:"attack_order"`
}

// DefaultWeights are the weights used when no config is given.
func DefaultWeights() Weights {
	return Weights{
		Distance:    10,
		Approach:    5,
		Overshoot:   100,
		Corner:      8,
		Trapped:     25,
		Health:      1,
		Attrition:   500,
		Win:         1e6,
		AttackOrder: 10,
	}
}

// Evaluator computes static utilities.
type Evaluator struct {
	Weights Weights
}

// New returns an evaluator with the given weights.
func New(w Weights) *Evaluator {
	return &Evaluator{Weights: w}
}

// Evaluate scores s, which was produced by action a (nil at the root).
func (e *Evaluator) Evaluate(s *game.GameState, a game.JointAction) float64 {
	switch s.Outcome {
	case game.AttackerWins:
		return e.Weights.Win - float64(s.Ply)
	case game.DefenderWins:
		return -e.Weights.Win + float64(s.Ply)
	}

	return e.progress(s, a) + e.health(s) + e.attrition(s)
}

// OrderScore is Evaluate plus the attack priority bonus. The search sorts
// children by it; it is never used as a node value.
func (e *Evaluator) OrderScore(s *game.GameState, a game.JointAction, value float64) float64 {
	if e.Weights.AttackOrder == 0 || len(a) == 0 {
		return value
	}
	bonus := 0.0
	for _, id := range a.IDs() {
		act := a[id]
		if act.Kind != game.Attack {
			continue
		}
		// Attackers in a are the side that just moved.
		if s.ToMove.Other() == game.Attacker {
			bonus += e.Weights.AttackOrder
		} else {
			bonus -= e.Weights.AttackOrder
		}
	}
	return value + bonus
}

// Breakdown is the per-term decomposition of a non-terminal evaluation.
type Breakdown struct {
	Progress  float64 `json:"progress"`
	Health    float64 `json:"health"`
	Attrition float64 `json:"attrition"`
	Total     float64 `json:"total"`
}

// Explain returns each term separately; useful in traces and tests.
func (e *Evaluator) Explain(s *game.GameState, a game.JointAction) Breakdown {
	if s.Terminal() {
		v := e.Evaluate(s, a)
		return Breakdown{Total: v}
	}
	b := Breakdown{
		Progress:  e.progress(s, a),
		Health:    e.health(s),
		Attrition: e.attrition(s),
	}
	b.Total = b.Progress + b.Health + b.Attrition
	return b
}

func (e *Evaluator) health(s *game.GameState) float64 {
	return e.Weights.Health * float64(s.HealthLost(game.Defender)-s.HealthLost(game.Attacker))
}

func (e *Evaluator) attrition(s *game.GameState) float64 {
	lost := s.Roster[game.Attacker] - s.Count(game.Attacker)
	if lost <= 0 {
		return 0
	}
	return -e.Weights.Attrition * float64(lost)
}

// progress covers both the distance-closing and the engagement terms.
func (e *Evaluator) progress(s *game.GameState, a game.JointAction) float64 {
	attackers := s.Living(game.Attacker)
	defenders := s.Living(game.Defender)
	if len(attackers) == 0 || len(defenders) == 0 {
		return 0
	}

	fallback := s.Board.Width + s.Board.Height
	dist := make([][]int, len(attackers))
	for i, f := range attackers {
		dist[i] = make([]int, len(defenders))
		for j, d := range defenders {
			dist[i][j] = pathLength(s, f.Cell, d.Cell, f.ID, d.ID, fallback)
		}
	}
	targets := assign(dist)

	total := 0.0
	for i, f := range attackers {
		target := defenders[targets[i]]
		now := dist[i][targets[i]]
		total -= e.Weights.Distance * float64(now)

		act, moved := a[f.ID]
		moved = moved && act.Kind == game.Move
		if moved {
			prev := f.Cell.Add(act.Dir.Opposite())
			before := pathLength(s, prev, target.Cell, f.ID, target.ID, fallback)
			if now < before {
				total += e.Weights.Approach
			}
			if delta := now - before; delta > 1 || delta < -1 {
				total -= e.Weights.Overshoot
			}
		}

		if now <= 1 {
			total += e.engagement(s, a, target)
		}
	}
	return total
}

// engagement rewards herding an adjacent target: once it has at most one open
// neighbour, moves toward that cell (or toward the corner nearest the target
// when it has none) score Corner.
func (e *Evaluator) engagement(s *game.GameState, a game.JointAction, target game.Unit) float64 {
	var open []grid.Cell
	for _, d := range grid.Directions {
		if c := target.Cell.Add(d); s.Open(c) {
			open = append(open, c)
		}
	}
	if len(open) > 1 {
		return 0
	}

	score := 0.0
	var goal grid.Cell
	if len(open) == 1 {
		goal = open[0]
	} else {
		goal = s.Board.NearestCorner(target.Cell)
		score += e.Weights.Trapped
	}

	for _, f := range s.Living(game.Attacker) {
		act, ok := a[f.ID]
		if !ok || act.Kind != game.Move {
			continue
		}
		prev := f.Cell.Add(act.Dir.Opposite())
		if grid.Manhattan(f.Cell, goal) < grid.Manhattan(prev, goal) {
			score += e.Weights.Corner
		}
	}
	return score
}

func pathLength(s *game.GameState, from, to grid.Cell, self, target int, fallback int) int {
	d, ok := pathfind.Distance(s.Board, from, to, s.Cells(self, target)...)
	if !ok {
		return fallback
	}
	return d
}

// assign picks a target index for each attacker. With two attackers and at
// least two defenders it takes the pairing with the smallest total distance;
// otherwise each attacker takes its nearest defender.
func assign(dist [][]int) []int {
	out := make([]int, len(dist))
	for i, row := range dist {
		out[i] = nearest(row)
	}
	if len(dist) != 2 || len(dist[0]) < 2 {
		return out
	}

	best := math.MaxInt
	for i := range dist[0] {
		for j := range dist[1] {
			if i == j {
				continue
			}
			if sum := dist[0][i] + dist[1][j]; sum < best {
				best = sum
				out[0], out[1] = i, j
			}
		}
	}
	return out
}

func nearest(row []int) int {
	best := 0
	for j, d := range row {
		if d < row[best] {
			best = j
		}
	}
	return best
}
