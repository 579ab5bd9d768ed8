package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/postrelay/internal/relay"
)

var runColumns = []string{
	"id",
	"trigger_source",
	"started_at",
	"finished_at",
	"status",
	"error_kind",
	"error",
	"post_id",
	"post_url",
	"post_raw",
}

func (r Repo) Record(ctx context.Context, run relay.Run) error {
	const q = `INSERT OR REPLACE INTO runs (
		id,
		trigger_source,
		started_at,
		finished_at,
		status,
		error_kind,
		error,
		post_id,
		post_url,
		post_raw
	) VALUES (
		:id,
		:trigger_source,
		:started_at,
		:finished_at,
		:status,
		:error_kind,
		:error,
		:post_id,
		:post_url,
		:post_raw
	);
	`

	if _, err := r.db.NamedExecContext(ctx, q, run); err != nil {
		return fmt.Errorf("error inserting run: %w", err)
	}

	return nil
}

func (r Repo) Recent(ctx context.Context, limit int) ([]relay.Run, error) {
	q := sq.Select(runColumns...).From("runs").OrderBy("started_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error generating SQL query: %s", err)
	}

	var runs []relay.Run
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting runs: %s", err)
	}

	return runs, nil
}

func (r Repo) Run(ctx context.Context, id string) (relay.Run, error) {
	query, args, err := sq.Select(runColumns...).From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return relay.Run{}, fmt.Errorf("error generating SQL query: %s", err)
	}

	var run relay.Run
	err = r.db.GetContext(ctx, &run, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return relay.Run{}, relay.ErrNotFound
	}
	if err != nil {
		return relay.Run{}, fmt.Errorf("error selecting run: %s", err)
	}

	return run, nil
}
