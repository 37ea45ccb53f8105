package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Summary describes a directory of training artifacts.
type Summary struct {
	Samples       int64
	Games         int64
	MaxPly        int64
	BlackToMove   int64
	Wins          int64
	Losses        int64
	Draws         int64
	MeanValue     float64
	MisalignedIDs int64
}

// Summarize queries the three Parquet files in dir with an in-memory DuckDB.
func Summarize(ctx context.Context, dir string) (Summary, error) {
	var s Summary

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return s, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	states := parquetPath(dir, StatesFile)
	policy := parquetPath(dir, PolicyFile)
	values := parquetPath(dir, ValuesFile)

	row := db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(DISTINCT game_id),
		       coalesce(max(ply), 0),
		       count(*) FILTER (WHERE mover = 'black')
		FROM read_parquet(`+states+`)`)
	if err := row.Scan(&s.Samples, &s.Games, &s.MaxPly, &s.BlackToMove); err != nil {
		return s, fmt.Errorf("summarize states: %w", err)
	}

	row = db.QueryRowContext(ctx, `
		SELECT count(*) FILTER (WHERE value > 0),
		       count(*) FILTER (WHERE value < 0),
		       count(*) FILTER (WHERE value = 0),
		       coalesce(avg(value), 0)
		FROM read_parquet(`+values+`)`)
	if err := row.Scan(&s.Wins, &s.Losses, &s.Draws, &s.MeanValue); err != nil {
		return s, fmt.Errorf("summarize values: %w", err)
	}

	// Every index must appear in all three files.
	row = db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM read_parquet(`+states+`) s
		FULL OUTER JOIN read_parquet(`+policy+`) p ON s."index" = p."index"
		FULL OUTER JOIN read_parquet(`+values+`) v ON coalesce(s."index", p."index") = v."index"
		WHERE s."index" IS NULL OR p."index" IS NULL OR v."index" IS NULL`)
	if err := row.Scan(&s.MisalignedIDs); err != nil {
		return s, fmt.Errorf("check alignment: %w", err)
	}

	return s, nil
}

func parquetPath(dir, name string) string {
	return "'" + escapeSQLString(filepath.Join(dir, name)) + "'"
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
