// Command skirmish serves the search agent over HTTP and websocket so a host
// engine can ask it for one side's commands each turn.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/brensch/skirmish/agent"
	"github.com/brensch/skirmish/config"
	"github.com/brensch/skirmish/game"
	"github.com/brensch/skirmish/logging"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", getEnvOrDefault("SKIRMISH_LISTEN", ":8080"), "HTTP listen address")
	plies := fs.Int("plies", getEnvIntOrDefault("SKIRMISH_PLIES", 0), "Search depth in half-turns (required unless set in -config)")
	sideName := fs.String("side", getEnvOrDefault("SKIRMISH_SIDE", "attacker"), "Side to play: attacker or defender")
	configPath := fs.String("config", getEnvOrDefault("SKIRMISH_CONFIG", ""), "Optional YAML config with weights")
	moveTimeout := fs.Duration("move-timeout", getEnvDurationOrDefault("SKIRMISH_MOVE_TIMEOUT", 0), "Per-move budget; the deepest depth finished in time is played. 0 means search to full depth")
	deepen := fs.Bool("deepen", getEnvBoolOrDefault("SKIRMISH_DEEPEN", false), "Use iterative deepening; always on when -move-timeout is set")
	logFormat := fs.String("log-format", getEnvOrDefault("SKIRMISH_LOG_FORMAT", logging.FormatPretty), "pretty or json")
	logLevel := fs.String("log-level", getEnvOrDefault("SKIRMISH_LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	log, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(log, *listen, *plies, *sideName, *configPath, *moveTimeout, *deepen); err != nil {
		log.Error("skirmish exited", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, listen string, plies int, sideName, configPath string, moveTimeout time.Duration, deepen bool) error {
	side, err := game.ParseSide(sideName)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if plies == 0 {
			plies = cfg.Plies
		}
		if moveTimeout == 0 {
			moveTimeout = cfg.MoveTimeout.Std()
		}
		deepen = deepen || cfg.Deepen
	}

	a, err := agent.New(agent.Config{
		Plies:   plies,
		Side:    side,
		Weights: cfg.Weights,
		Deepen:  deepen,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	server := NewServer(a, plies, moveTimeout, log)
	srv := &http.Server{
		Addr:              listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("skirmish listening", "addr", listen, "side", side.String(), "plies", plies, "deepen", deepen, "move_timeout", moveTimeout)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
