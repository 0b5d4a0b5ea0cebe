package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brensch/skirmish/grid"
)

// ActionKind distinguishes the two primitive actions.
type ActionKind int

const (
	Move ActionKind = iota
	Attack
)

// Action is a single unit's primitive action. Dir is meaningful for Move,
// Target for Attack.
type Action struct {
	Kind   ActionKind
	Dir    grid.Direction
	Target int
}

// MoveAction returns a Move in direction d.
func MoveAction(d grid.Direction) Action {
	return Action{Kind: Move, Dir: d}
}

// AttackAction returns an Attack on the unit with the given ID.
func AttackAction(target int) Action {
	return Action{Kind: Attack, Target: target}
}

func (a Action) String() string {
	if a.Kind == Attack {
		return fmt.Sprintf("attack:%d", a.Target)
	}
	return "move:" + a.Dir.String()
}

// JointAction maps each acting unit's ID to its action. Units that pass have
// no entry. A JointAction is never modified after it is built.
type JointAction map[int]Action

// IDs returns the acting unit IDs in ascending order.
func (j JointAction) IDs() []int {
	ids := make([]int, 0, len(j))
	for id := range j {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Attacks counts the Attack entries.
func (j JointAction) Attacks() int {
	n := 0
	for _, a := range j {
		if a.Kind == Attack {
			n++
		}
	}
	return n
}

func (j JointAction) String() string {
	if len(j) == 0 {
		return "pass"
	}
	parts := make([]string, 0, len(j))
	for _, id := range j.IDs() {
		parts = append(parts, fmt.Sprintf("%d=%s", id, j[id]))
	}
	return strings.Join(parts, " ")
}
