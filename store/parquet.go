package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// WriteMatchParquet writes rows to outDir/match_<id>_<ns>.parquet. The file
// appears under its final name only once it is complete.
func WriteMatchParquet(outDir, matchID string, rows []TurnRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("match %s: no rows", matchID)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	name := fmt.Sprintf("match_%s_%d.parquet", matchID, time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := finalPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", SchemaVersion),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadMatchParquet returns every row of one match file.
func ReadMatchParquet(path string) ([]TurnRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if v, ok := pf.Lookup("schema"); ok && v != SchemaVersion {
		return nil, fmt.Errorf("%s: schema %q, want %q", path, v, SchemaVersion)
	}

	reader := parquet.NewGenericReader[TurnRow](pf)
	defer reader.Close()

	out := make([]TurnRow, 0, int(reader.NumRows()))
	buf := make([]TurnRow, 128)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// ListMatches summarises every match file in dir, sorted by file name.
// Unreadable files are skipped. A missing dir is an empty list.
func ListMatches(dir string) ([]MatchSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []MatchSummary{}, nil
		}
		return nil, err
	}

	out := make([]MatchSummary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "match_") || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		rows, err := ReadMatchParquet(filepath.Join(dir, e.Name()))
		if err != nil || len(rows) == 0 {
			continue
		}
		last := rows[len(rows)-1]
		out = append(out, MatchSummary{
			FileName: e.Name(),
			MatchID:  rows[0].MatchID,
			Scenario: rows[0].Scenario,
			Turns:    len(rows),
			Outcome:  last.Outcome,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out, nil
}
