package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
)

// Render draws the board: F footman, A archer, # resource, . empty.
// Row 0 is at the top.
func Render(s *game.GameState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ply %d, %v to move, %v\n", s.Ply, s.ToMove, s.Outcome)
	for y := 0; y < s.Board.Height; y++ {
		for x := 0; x < s.Board.Width; x++ {
			c := grid.Cell{X: x, Y: y}
			ch := "."
			if s.Board.IsResource(c) {
				ch = "#"
			}
			for _, u := range s.Units {
				if u.Cell != c {
					continue
				}
				ch = "F"
				if u.Side == game.Defender {
					ch = "A"
				}
			}
			sb.WriteString(ch)
		}
		sb.WriteByte('\n')
	}
	for _, u := range s.Units {
		fmt.Fprintf(&sb, "  %d %v hp=%d/%d at %v\n", u.ID, u.Side, u.HP, u.MaxHP, u.Cell)
	}
	return sb.String()
}
