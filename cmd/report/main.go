// Command report prints win rates and search cost from recorded matches.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/brensch/skirmish/logging"
	"github.com/brensch/skirmish/report"
	"github.com/brensch/skirmish/store"
)

func main() {
	roots := flag.String("roots", "data/matches", "Comma-separated directories holding match parquet files")
	list := flag.Bool("list", false, "Also list every match file")
	logLevel := flag.String("log-level", "warn", "debug, info, warn or error")
	flag.Parse()

	log, err := logging.New(os.Stderr, logging.FormatPretty, *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	dirs := strings.Split(*roots, ",")
	if err := run(context.Background(), os.Stdout, dirs, *list); err != nil {
		log.Error("report failed", "roots", dirs, "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, dirs []string, list bool) error {
	r, err := report.Open(dirs)
	if err != nil {
		return err
	}
	defer r.Close()

	n, err := r.MatchCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d matches\n\n", n)
	if n == 0 {
		return nil
	}

	matchups, err := r.Matchups(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tATTACKER\tDEFENDER\tMATCHES\tATK WINS\tDEF WINS\tDRAWS\tAVG TURNS")
	for _, m := range matchups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.1f\n",
			m.Scenario, m.Attacker, m.Defender, m.Matches, m.AttackerWins, m.DefenderWins, m.Draws, m.AvgTurns)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	costs, err := r.SearchCosts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONTROLLER\tSIDE\tDEPTH\tDECISIONS\tAVG NODES\tAVG CUTOFFS\tAVG MS")
	for _, c := range costs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.0f\t%.1f\t%.2f\n",
			c.Controller, c.Side, c.Depth, c.Decisions, c.AvgNodes, c.AvgCutoffs, c.AvgElapsedMs)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !list {
		return nil
	}
	fmt.Fprintln(out)
	for _, dir := range dirs {
		files, err := store.ListMatches(strings.TrimSpace(dir))
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintf(out, "%s  %s  %-10s %-14s %d turns\n", f.FileName, f.MatchID, f.Scenario, f.Outcome, f.Turns)
		}
	}
	return nil
}
