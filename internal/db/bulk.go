// Package db holds the pgx seams shared by the postgres store: the Pool
// interface and COPY-based bulk loading for roster imports.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// copier is the COPY surface shared by Pool and pgx.Tx.
type copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// CopyInto bulk-inserts rows with the COPY protocol. Roster loads go through
// this path; row-at-a-time inserts are too slow for directory-sized files.
func CopyInto(ctx context.Context, c copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := c.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy into %s", table)
	}
	return n, nil
}

// UpsertConfig describes a bulk upsert target.
type UpsertConfig struct {
	Table        string   // target table, e.g. "providers"
	Columns      []string // columns present in every row
	ConflictKeys []string // unique-constraint columns; for rosters, the npi
	UpdateCols   []string // columns refreshed when the key already exists
}

func (cfg UpsertConfig) validate() error {
	if cfg.Table == "" {
		return eris.New("db: upsert: no table")
	}
	if len(cfg.Columns) == 0 {
		return eris.New("db: upsert: no columns")
	}
	if len(cfg.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys")
	}
	if len(cfg.UpdateCols) == 0 {
		return eris.New("db: upsert: no update columns")
	}
	return nil
}

// BulkUpsert stages rows in a temp table via COPY and folds them into the
// target with INSERT ... ON CONFLICT DO UPDATE. Re-importing a roster with
// known registry ids updates providers in place instead of duplicating them.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin")
	}
	defer tx.Rollback(ctx)

	staging := cfg.Table + "_load"
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{staging}.Sanitize(),
		pgx.Identifier{cfg.Table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", cfg.Table)
	}

	if _, err := CopyInto(ctx, tx, staging, cfg.Columns, rows); err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, upsertStatement(cfg, staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: fold into %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit")
	}
	return tag.RowsAffected(), nil
}

func upsertStatement(cfg UpsertConfig, staging string) string {
	cols := idents(cfg.Columns)

	assignments := make([]string, len(cfg.UpdateCols))
	for i, col := range cfg.UpdateCols {
		q := pgx.Identifier{col}.Sanitize()
		assignments[i] = q + " = EXCLUDED." + q
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		pgx.Identifier{cfg.Table}.Sanitize(),
		cols,
		cols,
		pgx.Identifier{staging}.Sanitize(),
		idents(cfg.ConflictKeys),
		strings.Join(assignments, ", "),
	)
}

func idents(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
