package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"leadscout/pkg/logger"
	"leadscout/pkg/model"
)

const DefaultSQLitePath = "cache/channels.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS channels (
	channel_id   TEXT PRIMARY KEY,
	channel_name TEXT,
	first_seen   TEXT,
	last_scraped TEXT,
	status       TEXT DEFAULT 'new',
	data_json    TEXT
)`

// SQLiteStore keeps dedup records in a local SQLite file
type SQLiteStore struct {
	db  *sql.DB
	now Clock
	log *logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path
func OpenSQLite(ctx context.Context, path string, now Clock) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if now == nil {
		now = time.Now
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA journal_mode = WAL;`, `PRAGMA busy_timeout = 5000;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create channels table: %w", err)
	}

	logger.GetLogger().WithField("path", path).Debug("Dedup store ready")
	return &SQLiteStore{db: db, now: now, log: logger.GetLogger().WithField("component", "sqlite_store")}, nil
}

func (s *SQLiteStore) Contains(ctx context.Context, channelID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM channels WHERE channel_id = ?`, channelID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query channel %s: %w", channelID, err)
	}
	return true, nil
}

func (s *SQLiteStore) KnownIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id FROM channels`)
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

func (s *SQLiteStore) Upsert(ctx context.Context, channelID, channelName string, snapshot interface{}) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	now := s.now().UTC().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO channels (channel_id, channel_name, first_seen, last_scraped, status, data_json)
		VALUES (?, ?, ?, ?, 'new', ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			last_scraped = excluded.last_scraped,
			data_json    = excluded.data_json`,
		channelID, channelName, now, now, string(data))
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", channelID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, channelID string) (*model.DedupRecord, error) {
	var (
		rec                    model.DedupRecord
		name, status, data     sql.NullString
		firstSeen, lastScraped sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT channel_id, channel_name, first_seen, last_scraped, status, data_json
		FROM channels WHERE channel_id = ?`, channelID).
		Scan(&rec.ChannelID, &name, &firstSeen, &lastScraped, &status, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", channelID, err)
	}

	rec.ChannelName = name.String
	rec.Status = status.String
	rec.Snapshot = []byte(data.String)
	rec.FirstSeen = s.parseTime(firstSeen.String)
	rec.LastScraped = s.parseTime(lastScraped.String)
	return &rec, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, channelID, status string) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE channels SET status = ? WHERE channel_id = ?`, status, channelID)
	if err != nil {
		return fmt.Errorf("update status of %s: %w", channelID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		s.log.WithField("value", v).Warn("Unparseable timestamp in dedup store")
		return time.Time{}
	}
	return t
}
