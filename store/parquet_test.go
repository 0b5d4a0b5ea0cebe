package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRows(matchID string) []TurnRow {
	return []TurnRow{
		{
			MatchID: matchID, Scenario: "open_1v1", Turn: 0, Side: "attacker", Controller: "search",
			Width: 5, Height: 5, ResourceX: []int32{2}, ResourceY: []int32{2},
			Units: []UnitRow{
				{ID: 1, Side: "attacker", X: 0, Y: 0, HP: 30, MaxHP: 30, Range: 1, Damage: 10},
				{ID: 10, Side: "defender", X: 4, Y: 4, HP: 20, MaxHP: 20, Range: 3, Damage: 5},
			},
			Action: "1=move:east", Value: -70, Depth: 2, Nodes: 31, Cutoffs: 4, ElapsedNs: 1200,
			Outcome: "in_progress", TreeJSON: []byte(`{"side":"attacker"}`),
		},
		{
			MatchID: matchID, Scenario: "open_1v1", Turn: 1, Side: "defender", Controller: "kiter",
			Width: 5, Height: 5, ResourceX: []int32{2}, ResourceY: []int32{2},
			Units: []UnitRow{
				{ID: 1, Side: "attacker", X: 1, Y: 0, HP: 30, MaxHP: 30, Range: 1, Damage: 10},
				{ID: 10, Side: "defender", X: 4, Y: 4, HP: 20, MaxHP: 20, Range: 3, Damage: 5},
			},
			Action: "pass", Outcome: "defender_wins",
		},
	}
}

func TestWriteAndReadMatch(t *testing.T) {
	dir := t.TempDir()
	rows := sampleRows("abc")

	path, err := WriteMatchParquet(dir, "abc", rows)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.NoFileExists(t, path+".tmp")
	require.Regexp(t, `match_abc_\d+\.parquet$`, filepath.Base(path))

	got, err := ReadMatchParquet(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, rows[0].Units, got[0].Units)
	require.Equal(t, "1=move:east", got[0].Action)
	require.Equal(t, int64(31), got[0].Nodes)
	require.JSONEq(t, `{"side":"attacker"}`, string(got[0].TreeJSON))
	require.Equal(t, "defender_wins", got[1].Outcome)
}

func TestWriteMatch_NoRows(t *testing.T) {
	_, err := WriteMatchParquet(t.TempDir(), "x", nil)
	require.Error(t, err)
}

func TestListMatches(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteMatchParquet(dir, "one", sampleRows("one"))
	require.NoError(t, err)
	_, err = WriteMatchParquet(dir, "two", sampleRows("two"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "match_junk_1.parquet"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	got, err := ListMatches(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "one", got[0].MatchID)
	require.Equal(t, 2, got[0].Turns)
	require.Equal(t, "defender_wins", got[1].Outcome)

	missing, err := ListMatches(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	require.Empty(t, missing)
}
