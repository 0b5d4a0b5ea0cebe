package selfplay

import (
	"context"

	"github.com/brensch/skirmish/agent"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/opponent"
	"github.com/brensch/skirmish/search"
)

// Controller decides for one side. The host hands it the full state with
// that side to move.
type Controller interface {
	Name() string
	Decide(ctx context.Context, s *game.GameState) (Decision, error)
}

// Decision is a controller's answer. Search is nil for scripted controllers.
type Decision struct {
	Commands []agent.Command
	Search   *search.Result
}

// SearchController drives a side with the minimax agent.
type SearchController struct {
	Agent *agent.Agent
}

func (c *SearchController) Name() string { return "search" }

func (c *SearchController) Decide(ctx context.Context, s *game.GameState) (Decision, error) {
	res, err := c.Agent.DecideState(ctx, s)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Commands: agent.ToCommands(res.Action), Search: &res}, nil
}

// ScriptController drives a side with a behaviour-tree policy.
type ScriptController struct {
	Policy *opponent.Policy
}

func (c *ScriptController) Name() string { return c.Policy.Name }

func (c *ScriptController) Decide(ctx context.Context, s *game.GameState) (Decision, error) {
	ja, err := c.Policy.Decide(ctx, s)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Commands: agent.ToCommands(ja)}, nil
}
