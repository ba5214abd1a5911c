package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadscout/pkg/logger"
	"leadscout/pkg/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS channels (
	channel_id   TEXT PRIMARY KEY,
	channel_name TEXT,
	first_seen   TIMESTAMPTZ NOT NULL,
	last_scraped TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL DEFAULT 'new',
	data_json    JSONB
)`

// PostgresStore keeps dedup records in a shared Postgres database
type PostgresStore struct {
	pool *pgxpool.Pool
	now  Clock
}

// OpenPostgres connects to dsn and ensures the channels table exists
func OpenPostgres(ctx context.Context, dsn string, now Clock) (*PostgresStore, error) {
	if now == nil {
		now = time.Now
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create channels table: %w", err)
	}

	logger.GetLogger().WithField("dsn", logger.MaskDSN(dsn)).Debug("Dedup store ready")
	return &PostgresStore{pool: pool, now: now}, nil
}

func (p *PostgresStore) Contains(ctx context.Context, channelID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM channels WHERE channel_id = $1)`, channelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query channel %s: %w", channelID, err)
	}
	return exists, nil
}

func (p *PostgresStore) KnownIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := p.pool.Query(ctx, `SELECT channel_id FROM channels`)
	if err != nil {
		return nil, fmt.Errorf("list channel ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (p *PostgresStore) Upsert(ctx context.Context, channelID, channelName string, snapshot interface{}) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	now := p.now().UTC()

	_, err = p.pool.Exec(ctx, `
		INSERT INTO channels (channel_id, channel_name, first_seen, last_scraped, status, data_json)
		VALUES ($1, $2, $3, $3, 'new', $4)
		ON CONFLICT (channel_id) DO UPDATE SET
			last_scraped = EXCLUDED.last_scraped,
			data_json    = EXCLUDED.data_json`,
		channelID, channelName, now, string(data))
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", channelID, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, channelID string) (*model.DedupRecord, error) {
	var (
		rec  model.DedupRecord
		name *string
		data *string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT channel_id, channel_name, first_seen, last_scraped, status, data_json::text
		FROM channels WHERE channel_id = $1`, channelID).
		Scan(&rec.ChannelID, &name, &rec.FirstSeen, &rec.LastScraped, &rec.Status, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", channelID, err)
	}
	if name != nil {
		rec.ChannelName = *name
	}
	if data != nil {
		rec.Snapshot = []byte(*data)
	}
	return &rec, nil
}

func (p *PostgresStore) UpdateStatus(ctx context.Context, channelID, status string) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `UPDATE channels SET status = $1 WHERE channel_id = $2`, status, channelID)
	if err != nil {
		return fmt.Errorf("update status of %s: %w", channelID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
