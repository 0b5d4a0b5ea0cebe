// Package pathfind finds shortest 4-connected paths over a grid.Board with A*.
//
// The heuristic is Chebyshev distance. On a grid that only allows axis steps
// it never exceeds the true remaining cost, but the evaluator treats path
// lengths as heuristic signals rather than proofs, so nothing downstream
// depends on optimality.
package pathfind

import (
	"container/heap"

	"github.com/brensch/skirmish/grid"
)

// Grid is the static passability the search runs over. *grid.Board satisfies it.
type Grid interface {
	Passable(c grid.Cell) bool
}

// node is the A* bookkeeping record. It never leaves this package.
type node struct {
	cell   grid.Cell
	g, h   int
	parent *node
	seq    int
	index  int
}

func (n *node) f() int { return n.g + n.h }

type openSet []*node

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	if fi, fj := o[i].f(), o[j].f(); fi != fj {
		return fi < fj
	}
	if o[i].h != o[j].h {
		return o[i].h < o[j].h
	}
	return o[i].seq < o[j].seq
}

func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}

func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}

func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	n.index = -1
	return n
}

// FindPath returns the cells from start to goal, excluding start and ending
// with goal, so path[0] is always the immediate next step. Cells in avoid are
// treated as blocked unless they are the goal itself; the goal only needs to
// be passable, which lets callers path onto an occupied enemy cell.
//
// An empty path means either start == goal or goal is unreachable. Callers
// that need to tell these apart compare the endpoints.
func FindPath(g Grid, start, goal grid.Cell, avoid ...grid.Cell) []grid.Cell {
	if start == goal || !g.Passable(goal) {
		return nil
	}

	blocked := make(map[grid.Cell]struct{}, len(avoid))
	for _, c := range avoid {
		if c != goal {
			blocked[c] = struct{}{}
		}
	}

	seq := 0
	open := &openSet{}
	best := map[grid.Cell]*node{}
	closed := map[grid.Cell]struct{}{}

	root := &node{cell: start, h: grid.Chebyshev(start, goal)}
	heap.Push(open, root)
	best[start] = root

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if cur.cell == goal {
			return reconstruct(cur)
		}
		closed[cur.cell] = struct{}{}

		for _, d := range grid.Directions {
			next := cur.cell.Add(d)
			if !g.Passable(next) {
				continue
			}
			if _, ok := blocked[next]; ok {
				continue
			}
			if _, ok := closed[next]; ok {
				continue
			}

			gNext := cur.g + 1
			if existing, ok := best[next]; ok {
				if existing.g <= gNext {
					continue
				}
				existing.g = gNext
				existing.parent = cur
				heap.Fix(open, existing.index)
				continue
			}

			seq++
			n := &node{cell: next, g: gNext, h: grid.Chebyshev(next, goal), parent: cur, seq: seq}
			best[next] = n
			heap.Push(open, n)
		}
	}

	return nil
}

// Distance is the number of steps on the shortest path. ok is false when the
// goal cannot be reached; start == goal is distance 0.
func Distance(g Grid, start, goal grid.Cell, avoid ...grid.Cell) (int, bool) {
	if start == goal {
		return 0, true
	}
	path := FindPath(g, start, goal, avoid...)
	if len(path) == 0 {
		return 0, false
	}
	return len(path), true
}

func reconstruct(goal *node) []grid.Cell {
	n := 0
	for it := goal; it.parent != nil; it = it.parent {
		n++
	}
	path := make([]grid.Cell, n)
	for it := goal; it.parent != nil; it = it.parent {
		n--
		path[n] = it.cell
	}
	return path
}
