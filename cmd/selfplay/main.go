// Command selfplay runs matches between the search agent and scripted
// opponents, writes one parquet file per match, and shows a live dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/skirmish/agent"
	"github.com/brensch/skirmish/config"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/logging"
	"github.com/brensch/skirmish/opponent"
	"github.com/brensch/skirmish/selfplay"
	"github.com/brensch/skirmish/store"
)

var (
	totalTurns   atomic.Int64
	totalNodes   atomic.Int64
	totalMatches atomic.Int64
)

type options struct {
	configPath string
	scenario   string
	games      int
	workers    int
	outDir     string
	plies      int
	attacker   string
	defender   string
	trace      bool
	tui        bool
	logFile    string
	logFormat  string
	logLevel   string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML config; defaults are used when empty")
	flag.StringVar(&o.scenario, "scenario", "", "Run only this scenario (default: all)")
	flag.IntVar(&o.games, "games", 4, "Matches per scenario")
	flag.IntVar(&o.workers, "workers", 4, "Concurrent matches")
	flag.StringVar(&o.outDir, "out-dir", "data/matches", "Directory for match parquet files")
	flag.IntVar(&o.plies, "plies", 0, "Override the config's search depth")
	flag.StringVar(&o.attacker, "attacker", "search", "Attacker controller: search or charger")
	flag.StringVar(&o.defender, "defender", "kiter", "Defender controller: search or kiter")
	flag.BoolVar(&o.trace, "trace", false, "Store the traced search tree with each decision")
	flag.BoolVar(&o.tui, "tui", true, "Show the dashboard (logs go to -log-file)")
	flag.StringVar(&o.logFile, "log-file", "selfplay.log", "Log file used while the dashboard is up")
	flag.StringVar(&o.logFormat, "log-format", logging.FormatPretty, "pretty or json")
	flag.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	flag.Parse()

	var logOut io.Writer = os.Stderr
	if o.tui {
		f, err := os.OpenFile(o.logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	log, err := logging.New(logOut, o.logFormat, o.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(log, o); err != nil {
		log.Error("selfplay failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, o options) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}
	if o.plies > 0 {
		cfg.Plies = o.plies
	}

	specs, err := buildSpecs(cfg, o, log)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	updates := make(chan MatchUpdate, len(specs))
	onDone := func(res *selfplay.MatchResult) {
		totalMatches.Add(1)
		path, err := store.WriteMatchParquet(o.outDir, res.MatchID, res.Rows)
		if err != nil {
			log.Error("write match", "match", res.MatchID, "err", err)
		} else {
			log.Info("match written", "match", res.MatchID, "path", path, "rows", len(res.Rows))
		}
		select {
		case updates <- MatchUpdate{Result: res, Path: path, Err: err}:
		default:
		}
	}

	log.Info("selfplay starting", "matches", len(specs), "workers", o.workers, "plies", cfg.Plies, "out_dir", o.outDir)

	if !o.tui {
		_, err := selfplay.RunMatches(ctx, specs, o.workers, log, onDone)
		return ignoreCancel(err)
	}

	runErr := make(chan error, 1)
	go func() {
		_, err := selfplay.RunMatches(ctx, specs, o.workers, log, onDone)
		runErr <- err
		close(updates)
	}()

	p := tea.NewProgram(initialModel(updates, len(specs)))
	if _, err := p.Run(); err != nil {
		cancel()
		return err
	}
	cancel()
	return ignoreCancel(<-runErr)
}

// ignoreCancel treats an interrupted run as a clean exit; matches already
// finished are on disk.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func buildSpecs(cfg config.Config, o options, log *slog.Logger) ([]selfplay.MatchSpec, error) {
	scenarios := cfg.Scenarios
	if o.scenario != "" {
		sc, ok := cfg.Scenario(o.scenario)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", o.scenario)
		}
		scenarios = []config.Scenario{sc}
	}

	attacker, err := controller(o.attacker, game.Attacker, cfg, o.trace, log)
	if err != nil {
		return nil, err
	}
	defender, err := controller(o.defender, game.Defender, cfg, o.trace, log)
	if err != nil {
		return nil, err
	}

	onTurn := func(p selfplay.Progress) {
		totalTurns.Add(1)
		totalNodes.Add(int64(p.Nodes))
	}

	specs := make([]selfplay.MatchSpec, 0, len(scenarios)*o.games)
	for _, sc := range scenarios {
		for g := 0; g < o.games; g++ {
			specs = append(specs, selfplay.MatchSpec{
				Scenario:   sc,
				Attacker:   attacker,
				Defender:   defender,
				MaxTurns:   cfg.MaxTurns,
				OnProgress: onTurn,
			})
		}
	}
	return specs, nil
}

func controller(name string, side game.Side, cfg config.Config, trace bool, log *slog.Logger) (selfplay.Controller, error) {
	switch name {
	case "search":
		a, err := agent.New(agent.Config{
			Plies:   cfg.Plies,
			Side:    side,
			Weights: cfg.Weights,
			Deepen:  cfg.Deepen,
			Timeout: cfg.MoveTimeout.Std(),
			Trace:   trace,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		return &selfplay.SearchController{Agent: a}, nil
	case "charger":
		if side != game.Attacker {
			return nil, fmt.Errorf("charger only plays attacker")
		}
		return &selfplay.ScriptController{Policy: opponent.Charger()}, nil
	case "kiter":
		if side != game.Defender {
			return nil, fmt.Errorf("kiter only plays defender")
		}
		return &selfplay.ScriptController{Policy: opponent.Kiter()}, nil
	}
	return nil, fmt.Errorf("unknown controller %q", name)
}

// durationSince keeps rate maths away from a zero divisor.
func durationSince(t time.Time) time.Duration {
	d := time.Since(t)
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}
