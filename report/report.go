// Package report runs DuckDB SQL over the match parquet files self-play
// writes.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Report holds an in-memory DuckDB with a "turns" view over every match file
// under its roots.
type Report struct {
	db *sql.DB
}

// Open creates the database and the view. Roots with no files give an empty
// view rather than an error.
func Open(roots []string) (*Report, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	if err := createView(db, globs(roots)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Report{db: db}, nil
}

func (r *Report) Close() error {
	return r.db.Close()
}

// DB exposes the connection for ad-hoc queries.
func (r *Report) DB() *sql.DB { return r.db }

func globs(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		g := filepath.ToSlash(filepath.Join(root, "**", "match_*.parquet"))
		out = append(out, "'"+escapeSQLString(g)+"'")
	}
	return out
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

const emptyView = `CREATE OR REPLACE VIEW turns AS
	SELECT * FROM (
		SELECT
			NULL::VARCHAR AS match_id,
			NULL::VARCHAR AS scenario,
			NULL::INTEGER AS turn,
			NULL::VARCHAR AS side,
			NULL::VARCHAR AS controller,
			NULL::INTEGER AS width,
			NULL::INTEGER AS height,
			NULL::VARCHAR AS action,
			NULL::DOUBLE AS value,
			NULL::INTEGER AS depth,
			NULL::BIGINT AS nodes,
			NULL::BIGINT AS cutoffs,
			NULL::BIGINT AS elapsed_ns,
			NULL::VARCHAR AS outcome,
			NULL::VARCHAR AS filename
	) WHERE 1=0`

func createView(db *sql.DB, globs []string) error {
	// read_parquet fails on a pattern that matches nothing, so drop those.
	live := make([]string, 0, len(globs))
	for _, g := range globs {
		var n int64
		if err := db.QueryRow(`SELECT COUNT(*) FROM glob(` + g + `)`).Scan(&n); err != nil {
			return fmt.Errorf("glob %s: %w", g, err)
		}
		if n > 0 {
			live = append(live, g)
		}
	}
	if len(live) == 0 {
		_, err := db.Exec(emptyView)
		return err
	}

	sqlText := `CREATE OR REPLACE VIEW turns AS
		SELECT * FROM read_parquet([` + strings.Join(live, ",") + `], filename=true, union_by_name=true)`
	if _, err := db.Exec(sqlText); err != nil {
		return fmt.Errorf("create turns view: %w", err)
	}
	return nil
}

// MatchupSummary is the win/loss record of one pairing on one scenario.
type MatchupSummary struct {
	Scenario     string
	Attacker     string
	Defender     string
	Matches      int64
	AttackerWins int64
	DefenderWins int64
	Draws        int64
	AvgTurns     float64
}

// Matchups groups finished matches by scenario and controller pairing.
func (r *Report) Matchups(ctx context.Context) ([]MatchupSummary, error) {
	const query = `WITH last AS (
		SELECT match_id, scenario, outcome, turn
		FROM (
			SELECT match_id, scenario, outcome, turn,
				row_number() OVER (PARTITION BY match_id ORDER BY turn DESC) AS rn
			FROM turns
		)
		WHERE rn = 1
	),
	controllers AS (
		SELECT
			match_id,
			COALESCE(MIN(controller) FILTER (WHERE side = 'attacker'), '')::VARCHAR AS attacker,
			COALESCE(MIN(controller) FILTER (WHERE side = 'defender'), '')::VARCHAR AS defender
		FROM turns
		GROUP BY match_id
	)
	SELECT
		l.scenario,
		c.attacker,
		c.defender,
		COUNT(*)::BIGINT,
		SUM(CASE WHEN l.outcome = 'attacker_wins' THEN 1 ELSE 0 END)::BIGINT,
		SUM(CASE WHEN l.outcome = 'defender_wins' THEN 1 ELSE 0 END)::BIGINT,
		SUM(CASE WHEN l.outcome = 'draw' THEN 1 ELSE 0 END)::BIGINT,
		AVG(l.turn + 1)::DOUBLE
	FROM last l
	JOIN controllers c ON l.match_id = c.match_id
	GROUP BY l.scenario, c.attacker, c.defender
	ORDER BY l.scenario, c.attacker, c.defender`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]MatchupSummary, 0)
	for rows.Next() {
		var m MatchupSummary
		if err := rows.Scan(&m.Scenario, &m.Attacker, &m.Defender, &m.Matches, &m.AttackerWins, &m.DefenderWins, &m.Draws, &m.AvgTurns); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SearchCost is the average work per decision of a searching controller at
// one depth.
type SearchCost struct {
	Controller   string
	Side         string
	Depth        int64
	Decisions    int64
	AvgNodes     float64
	AvgCutoffs   float64
	AvgElapsedMs float64
}

// SearchCosts summarises rows that carry search statistics.
func (r *Report) SearchCosts(ctx context.Context) ([]SearchCost, error) {
	const query = `SELECT
		controller,
		side,
		depth::BIGINT,
		COUNT(*)::BIGINT,
		AVG(nodes)::DOUBLE,
		AVG(cutoffs)::DOUBLE,
		(AVG(elapsed_ns) / 1e6)::DOUBLE
	FROM turns
	WHERE nodes > 0
	GROUP BY controller, side, depth
	ORDER BY controller, side, depth`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SearchCost, 0)
	for rows.Next() {
		var c SearchCost
		if err := rows.Scan(&c.Controller, &c.Side, &c.Depth, &c.Decisions, &c.AvgNodes, &c.AvgCutoffs, &c.AvgElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MatchCount returns the number of distinct matches in the view.
func (r *Report) MatchCount(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT match_id) FROM turns`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
