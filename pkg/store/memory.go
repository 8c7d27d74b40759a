package store

import (
	"context"
	"sort"
	"sync"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

// MemoryStore keeps state in process memory. Writers are serialized and
// buffer their changes in an overlay that is applied only on success.
type MemoryStore struct {
	mu       sync.RWMutex
	settings *models.Settings
	intents  map[uint64]*models.Intent
	closed   bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents: make(map[uint64]*models.Intent),
	}
}

// Update runs fn with write access and commits only if fn returns nil
func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{store: s, dirty: make(map[uint64]*models.Intent)}
	if err := fn(tx); err != nil {
		return err
	}

	if tx.settings != nil {
		s.settings = tx.settings
	}
	for id, intent := range tx.dirty {
		s.intents[id] = intent
	}
	return nil
}

// View runs fn with read access
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memoryTx{store: s, readOnly: true})
}

// Ping reports whether the store is usable
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Close marks the store closed
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// memoryTx reads through its overlay into the committed state. The caller
// holds the store lock for the lifetime of the transaction.
type memoryTx struct {
	store    *MemoryStore
	readOnly bool
	settings *models.Settings
	dirty    map[uint64]*models.Intent
}

func (tx *memoryTx) Settings(ctx context.Context) (*models.Settings, error) {
	if tx.settings != nil {
		return tx.settings.Clone(), nil
	}
	return tx.store.settings.Clone(), nil
}

func (tx *memoryTx) SaveSettings(ctx context.Context, settings *models.Settings) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.settings = settings.Clone()
	return nil
}

func (tx *memoryTx) Intent(ctx context.Context, id uint64) (*models.Intent, error) {
	if intent, ok := tx.dirty[id]; ok {
		return intent.Clone(), nil
	}
	return tx.store.intents[id].Clone(), nil
}

func (tx *memoryTx) SaveIntent(ctx context.Context, intent *models.Intent) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.dirty[intent.ID] = intent.Clone()
	return nil
}

func (tx *memoryTx) Intents(ctx context.Context, filter IntentFilter) ([]*models.Intent, error) {
	merged := make(map[uint64]*models.Intent, len(tx.store.intents)+len(tx.dirty))
	for id, intent := range tx.store.intents {
		merged[id] = intent
	}
	for id, intent := range tx.dirty {
		merged[id] = intent
	}

	ids := make([]uint64, 0, len(merged))
	for id, intent := range merged {
		if filter.Matches(intent) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if filter.Limit > 0 && len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}

	result := make([]*models.Intent, 0, len(ids))
	for _, id := range ids {
		result = append(result, merged[id].Clone())
	}
	return result, nil
}
