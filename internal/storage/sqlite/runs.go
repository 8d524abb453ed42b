package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sonroyaalmerol/cardsync/internal/storage"
)

// timeFormat is fixed width so TEXT columns sort chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) RecordRun(ctx context.Context, r storage.Run) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (
				id, started_at, finished_at, collection, change_token,
				remote_cards, local_cards, cached_cards
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.Collection, r.ChangeToken,
			r.RemoteCards, r.LocalCards, r.CachedCards)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for i, sk := range r.Skipped {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO skipped_members (run_id, seq, href, reason) VALUES (?, ?, ?, ?)
			`, r.ID, i, sk.Href, sk.Reason); err != nil {
				return fmt.Errorf("insert skipped member: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, collection, change_token,
		       remote_cards, local_cards, cached_cards
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Run
	for rows.Next() {
		var (
			r                 storage.Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Collection, &r.ChangeToken,
			&r.RemoteCards, &r.LocalCards, &r.CachedCards); err != nil {
			return nil, err
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("run %s: finished_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Skipped, err = s.listSkipped(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) listSkipped(ctx context.Context, runID string) ([]storage.Skipped, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT href, reason FROM skipped_members WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []storage.Skipped
	for rows.Next() {
		var sk storage.Skipped
		if err := rows.Scan(&sk.Href, &sk.Reason); err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}
