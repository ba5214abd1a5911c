package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadscout/pkg/model"
)

// ErrNotFound is returned when no record exists for a channel id
var ErrNotFound = errors.New("storage: channel not found")

// DedupStore persists every channel that ever qualified. Records are never
// deleted. Upsert inserts with status "new" and first-seen now, or refreshes
// last-scraped and the snapshot of an existing record.
type DedupStore interface {
	Contains(ctx context.Context, channelID string) (bool, error)
	KnownIDs(ctx context.Context) (map[string]struct{}, error)
	Upsert(ctx context.Context, channelID, channelName string, snapshot interface{}) error
	Get(ctx context.Context, channelID string) (*model.DedupRecord, error)
	UpdateStatus(ctx context.Context, channelID, status string) error
	Close() error
}

// Clock returns the current time; stores take one so tests can pin it
type Clock func() time.Time

// StorageConfig selects and configures a DedupStore
type StorageConfig struct {
	// Driver is "sqlite", "postgres" or "memory"; empty picks postgres when a
	// DSN is set and sqlite otherwise
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

func encodeSnapshot(snapshot interface{}) ([]byte, error) {
	if raw, ok := snapshot.([]byte); ok {
		return append([]byte(nil), raw...), nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func validateStatus(status string) error {
	if !model.ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	return nil
}
