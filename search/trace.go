package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// TraceNode is one explored node of a traced search. Children appear in the
// order they were explored, so pruned siblings are simply missing and counted
// in Pruned.
type TraceNode struct {
	// Action is the joint action that led here; empty at the root.
	Action string `json:"action,omitempty"`
	// Side is the side to move at this node.
	Side string `json:"side"`
	// Static is the evaluation of the node itself, as used for ordering.
	Static float64 `json:"static"`
	// Value is the backed-up minimax value.
	Value float64 `json:"value"`
	Alpha float64 `json:"alpha,omitempty"`
	Beta  float64 `json:"beta,omitempty"`
	// Best is the chosen child's action at interior nodes.
	Best   string `json:"best,omitempty"`
	Leaf   bool   `json:"leaf,omitempty"`
	Pruned int    `json:"pruned,omitempty"`

	Children []*TraceNode `json:"children,omitempty"`
}

// Count returns the number of nodes in the subtree.
func (t *TraceNode) Count() int {
	if t == nil {
		return 0
	}
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}
	return n
}

// MarshalTrace encodes the tree as JSON. Infinite alpha/beta bounds are
// clamped since JSON has no infinity.
func MarshalTrace(t *TraceNode) ([]byte, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(clampTree(t))
}

func clampTree(t *TraceNode) *TraceNode {
	c := *t
	c.Alpha = clamp(c.Alpha)
	c.Beta = clamp(c.Beta)
	c.Value = clamp(c.Value)
	c.Children = make([]*TraceNode, len(t.Children))
	for i, ch := range t.Children {
		c.Children[i] = clampTree(ch)
	}
	return &c
}

const bound = 1e300

func clamp(v float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

// Print writes an indented view of the tree to w, limited to maxDepth levels.
func Print(w io.Writer, t *TraceNode, maxDepth int) {
	printNode(w, t, 0, maxDepth)
}

func printNode(w io.Writer, t *TraceNode, depth, maxDepth int) {
	if t == nil || depth > maxDepth {
		return
	}
	label := t.Action
	if label == "" {
		label = "root"
	}
	fmt.Fprintf(w, "%s%s side=%s static=%.1f value=%.1f", strings.Repeat("  ", depth), label, t.Side, t.Static, t.Value)
	if t.Best != "" {
		fmt.Fprintf(w, " best=[%s]", t.Best)
	}
	if t.Pruned > 0 {
		fmt.Fprintf(w, " pruned=%d", t.Pruned)
	}
	fmt.Fprintln(w)
	for _, c := range t.Children {
		printNode(w, c, depth+1, maxDepth)
	}
}
