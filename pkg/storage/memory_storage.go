package storage

import (
	"context"
	"sync"
	"time"

	"leadscout/pkg/model"
)

// MemoryStore is a process-local DedupStore for tests and dry runs
type MemoryStore struct {
	records map[string]model.DedupRecord
	now     Clock
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty store. A nil clock uses time.Now.
func NewMemoryStore(now Clock) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records: make(map[string]model.DedupRecord),
		now:     now,
	}
}

func (ms *MemoryStore) Contains(ctx context.Context, channelID string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, exists := ms.records[channelID]
	return exists, nil
}

func (ms *MemoryStore) KnownIDs(ctx context.Context) (map[string]struct{}, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ids := make(map[string]struct{}, len(ms.records))
	for id := range ms.records {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (ms *MemoryStore) Upsert(ctx context.Context, channelID, channelName string, snapshot interface{}) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now().UTC()
	rec, exists := ms.records[channelID]
	if !exists {
		rec = model.DedupRecord{
			ChannelID:   channelID,
			ChannelName: channelName,
			FirstSeen:   now,
			Status:      model.StatusNew,
		}
	}
	rec.LastScraped = now
	rec.Snapshot = data
	ms.records[channelID] = rec
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, channelID string) (*model.DedupRecord, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	rec, exists := ms.records[channelID]
	if !exists {
		return nil, ErrNotFound
	}
	rec.Snapshot = append([]byte(nil), rec.Snapshot...)
	return &rec, nil
}

func (ms *MemoryStore) UpdateStatus(ctx context.Context, channelID, status string) error {
	if err := validateStatus(status); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	rec, exists := ms.records[channelID]
	if !exists {
		return ErrNotFound
	}
	rec.Status = status
	ms.records[channelID] = rec
	return nil
}

func (ms *MemoryStore) Close() error { return nil }
