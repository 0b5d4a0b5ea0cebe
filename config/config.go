// Package config loads the YAML file shared by the commands: search depth,
// evaluation weights and the scenarios self-play runs.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/brensch/skirmish/eval"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/grid"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// Plies is the search depth in half-turns.
	Plies int `yaml:"plies"`
	// Deepen switches the agent to iterative deepening. A MoveTimeout implies it.
	Deepen      bool         `yaml:"deepen"`
	MoveTimeout Duration     `yaml:"move_timeout"`
	MaxTurns    int          `yaml:"max_turns"`
	Weights     eval.Weights `yaml:"weights"`
	Scenarios   []Scenario   `yaml:"scenarios"`
}

// Scenario is a starting position.
type Scenario struct {
	Name      string      `yaml:"name"`
	Width     int         `yaml:"width"`
	Height    int         `yaml:"height"`
	Resources []grid.Cell `yaml:"resources"`
	Units     []UnitSpec  `yaml:"units"`
}

type UnitSpec struct {
	ID     int    `yaml:"id"`
	Side   string `yaml:"side"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	HP     int    `yaml:"hp"`
	MaxHP  int    `yaml:"max_hp"`
	Range  int    `yaml:"range"`
	Damage int    `yaml:"damage"`
}

// Default is used when no file is given and as the base every file is
// decoded over, so a file only needs the keys it changes.
func Default() Config {
	return Config{
		Plies:     2,
		MaxTurns:  200,
		Weights:   eval.DefaultWeights(),
		Scenarios: DefaultScenarios(),
	}
}

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	// Scenarios in the file replace the defaults rather than merging.
	cfg.Scenarios = nil
	if err := loadYAML(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = DefaultScenarios()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Plies < 1 {
		return fmt.Errorf("plies must be at least 1, got %d: %w", c.Plies, ErrInvalid)
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1, got %d: %w", c.MaxTurns, ErrInvalid)
	}
	if c.Weights.Win <= 0 {
		return fmt.Errorf("weights.win must be positive: %w", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario %q: %w", s.Name, ErrInvalid)
		}
		seen[s.Name] = true
		if _, err := s.State(game.Attacker); err != nil {
			return err
		}
	}
	return nil
}

// Scenario looks a scenario up by name.
func (c Config) Scenario(name string) (Scenario, bool) {
	for _, s := range c.Scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// State builds the root state for a scenario.
func (s Scenario) State(toMove game.Side) (*game.GameState, error) {
	if s.Width < 1 || s.Height < 1 {
		return nil, fmt.Errorf("scenario %q: board %dx%d: %w", s.Name, s.Width, s.Height, ErrInvalid)
	}
	board := grid.NewBoard(s.Width, s.Height, s.Resources)

	units := make([]game.Unit, 0, len(s.Units))
	ids := make(map[int]bool, len(s.Units))
	cells := make(map[grid.Cell]bool, len(s.Units))
	for _, u := range s.Units {
		side, err := game.ParseSide(u.Side)
		if err != nil {
			return nil, fmt.Errorf("scenario %q unit %d: %v: %w", s.Name, u.ID, err, ErrInvalid)
		}
		c := grid.Cell{X: u.X, Y: u.Y}
		switch {
		case ids[u.ID]:
			return nil, fmt.Errorf("scenario %q: duplicate unit id %d: %w", s.Name, u.ID, ErrInvalid)
		case !board.Passable(c):
			return nil, fmt.Errorf("scenario %q unit %d: %v is not passable: %w", s.Name, u.ID, c, ErrInvalid)
		case cells[c]:
			return nil, fmt.Errorf("scenario %q unit %d: %v already occupied: %w", s.Name, u.ID, c, ErrInvalid)
		case u.HP < 1:
			return nil, fmt.Errorf("scenario %q unit %d: hp %d: %w", s.Name, u.ID, u.HP, ErrInvalid)
		}
		ids[u.ID], cells[c] = true, true
		units = append(units, game.Unit{
			ID: u.ID, Side: side, HP: u.HP, MaxHP: u.MaxHP,
			Range: u.Range, Damage: u.Damage, Cell: c,
		})
	}

	st := game.NewState(board, units, toMove)
	if st.Terminal() {
		return nil, fmt.Errorf("scenario %q needs units on both sides: %w", s.Name, ErrInvalid)
	}
	return st, nil
}

func footman(id, x, y int) UnitSpec {
	return UnitSpec{ID: id, Side: "attacker", X: x, Y: y, HP: 60, MaxHP: 60, Range: 1, Damage: 12}
}

func archer(id, x, y int) UnitSpec {
	return UnitSpec{ID: id, Side: "defender", X: x, Y: y, HP: 50, MaxHP: 50, Range: 8, Damage: 6}
}

// DefaultScenarios mirror the maps the agent was tuned on: open ground, a
// resource wall, and a two-on-two.
func DefaultScenarios() []Scenario {
	wall := make([]grid.Cell, 0, 6)
	for y := 1; y < 7; y++ {
		wall = append(wall, grid.Cell{X: 5, Y: y})
	}
	return []Scenario{
		{
			Name:  "open_1v1",
			Width: 10, Height: 10,
			Units: []UnitSpec{footman(1, 0, 0), archer(10, 9, 9)},
		},
		{
			Name:  "wall_1v1",
			Width: 10, Height: 8,
			Resources: wall,
			Units:     []UnitSpec{footman(1, 1, 4), archer(10, 8, 4)},
		},
		{
			Name:  "open_2v2",
			Width: 10, Height: 10,
			Units: []UnitSpec{footman(1, 0, 0), footman(2, 0, 9), archer(10, 9, 0), archer(11, 9, 9)},
		},
	}
}
