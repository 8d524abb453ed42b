package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/cardsync/internal/storage"
)

func (s *Store) RecordRun(ctx context.Context, r storage.Run) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO runs (
				id, started_at, finished_at, collection, change_token,
				remote_cards, local_cards, cached_cards
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, r.ID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Collection, r.ChangeToken,
			r.RemoteCards, r.LocalCards, r.CachedCards)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if len(r.Skipped) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i, sk := range r.Skipped {
			batch.Queue(`INSERT INTO skipped_members (run_id, seq, href, reason) VALUES ($1, $2, $3, $4)`,
				r.ID, i, sk.Href, sk.Reason)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert skipped members: %w", err)
		}
		return nil
	})
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, started_at, finished_at, collection, change_token,
		       remote_cards, local_cards, cached_cards
		FROM runs ORDER BY started_at DESC, id DESC LIMIT $1`, lim)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.Run, error) {
		var r storage.Run
		err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Collection, &r.ChangeToken,
			&r.RemoteCards, &r.LocalCards, &r.CachedCards)
		r.StartedAt = r.StartedAt.UTC()
		r.FinishedAt = r.FinishedAt.UTC()
		return r, err
	})
	if err != nil {
		return nil, err
	}

	for i := range out {
		rows, err := s.pool.Query(ctx, `
			SELECT href, reason FROM skipped_members WHERE run_id = $1 ORDER BY seq`, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Skipped, err = pgx.CollectRows(rows, pgx.RowToStructByPos[storage.Skipped])
		if err != nil {
			return nil, err
		}
		if len(out[i].Skipped) == 0 {
			out[i].Skipped = nil
		}
	}
	return out, nil
}
