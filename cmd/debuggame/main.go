// Command debuggame plays one traced match, prints every turn and the board,
// then writes the match parquet and dumps the search tree of a chosen turn.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brensch/skirmish/agent"
	"github.com/brensch/skirmish/config"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/logging"
	"github.com/brensch/skirmish/opponent"
	"github.com/brensch/skirmish/search"
	"github.com/brensch/skirmish/selfplay"
	"github.com/brensch/skirmish/store"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults built in)")
	scenario := flag.String("scenario", "wall_1v1", "Scenario to play")
	outDir := flag.String("out-dir", "debug_games", "Output directory for the match parquet")
	plies := flag.Int("plies", 0, "Override search plies (0 keeps the config value)")
	treeTurn := flag.Int("tree-turn", 0, "Turn whose search tree is printed")
	treeDepth := flag.Int("tree-depth", 1, "Levels of the tree to print")
	boards := flag.Bool("boards", true, "Print the board after every turn")
	flag.Parse()

	log, err := logging.New(os.Stderr, logging.FormatPretty, "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	if *plies > 0 {
		cfg.Plies = *plies
	}
	sc, ok := cfg.Scenario(*scenario)
	if !ok {
		log.Error("unknown scenario", "scenario", *scenario)
		os.Exit(1)
	}

	a, err := agent.New(agent.Config{
		Plies:   cfg.Plies,
		Side:    game.Attacker,
		Weights: cfg.Weights,
		Deepen:  cfg.Deepen,
		Timeout: cfg.MoveTimeout.Std(),
		Trace:   true,
		Logger:  log,
	})
	if err != nil {
		log.Error("build agent", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	spec := selfplay.MatchSpec{
		Scenario: sc,
		Attacker: &selfplay.SearchController{Agent: a},
		Defender: &selfplay.ScriptController{Policy: opponent.Kiter()},
		MaxTurns: cfg.MaxTurns,
	}

	log.Info("playing debug match", "scenario", sc.Name, "plies", cfg.Plies)
	onProgress := func(p selfplay.Progress) {
		fmt.Printf("  Turn %3d | %-8s | %-24s | value=%10.1f nodes=%d\n", p.Turn, p.Side, p.Action, p.Value, p.Nodes)
		if *boards {
			fmt.Println(selfplay.Render(p.State))
		}
	}

	result, err := selfplay.PlayMatch(ctx, spec, log, onProgress)
	if err != nil {
		log.Error("play match", "error", err)
		os.Exit(1)
	}
	log.Info("match complete", "turns", result.Turns, "outcome", result.Outcome, "elapsed", result.Elapsed)

	path, err := store.WriteMatchParquet(*outDir, result.MatchID, result.Rows)
	if err != nil {
		log.Error("write match", "error", err)
		os.Exit(1)
	}
	log.Info("match written", "path", path)

	if err := printTree(result.Rows, *treeTurn, *treeDepth); err != nil {
		log.Warn("print tree", "error", err)
	}
}

// printTree dumps the recorded search tree for turn. Scripted turns carry no
// tree.
func printTree(rows []store.TurnRow, turn, depth int) error {
	for _, r := range rows {
		if int(r.Turn) != turn {
			continue
		}
		if len(r.TreeJSON) == 0 {
			return fmt.Errorf("turn %d was played by %s and has no tree", turn, r.Controller)
		}
		var tree search.TraceNode
		if err := json.Unmarshal(r.TreeJSON, &tree); err != nil {
			return fmt.Errorf("decode tree: %w", err)
		}
		fmt.Printf("\nSearch tree for turn %d (%d nodes):\n", turn, tree.Count())
		search.Print(os.Stdout, &tree, depth)
		return nil
	}
	return fmt.Errorf("no turn %d in match", turn)
}
