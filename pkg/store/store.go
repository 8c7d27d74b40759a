// Package store persists settlement settings and intents behind a
// transactional port. Every engine operation runs inside exactly one
// Update call; an error returned from the callback discards all writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

// Supported driver names
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrReadOnly is returned when a write is attempted inside View
	ErrReadOnly = errors.New("store: write in read-only transaction")

	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store: closed")
)

// IntentFilter narrows an intent listing. A nil Status matches every state
// and a non-positive Limit returns all matches, ordered by ascending id.
// AfterID skips every intent with an id at or below it, so a caller can page
// through a listing by passing the last id it has seen.
type IntentFilter struct {
	Status  *models.Status
	AfterID uint64
	Limit   int
}

// Matches reports whether intent passes the status and AfterID filters
func (f IntentFilter) Matches(intent *models.Intent) bool {
	if intent.ID <= f.AfterID {
		return false
	}
	return f.Status == nil || intent.Status == *f.Status
}

// Tx is the unit of work handed to Update and View callbacks
type Tx interface {
	// Settings returns the settings singleton, or nil if not yet initialized
	Settings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error

	// Intent returns the intent with the given id, or nil if absent
	Intent(ctx context.Context, id uint64) (*models.Intent, error)
	SaveIntent(ctx context.Context, intent *models.Intent) error
	Intents(ctx context.Context, filter IntentFilter) ([]*models.Intent, error)
}

// Store is a transactional persistence backend
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Open creates a store for the given driver. The source is a file path for
// sqlite, a DSN for postgres and ignored for memory.
func Open(ctx context.Context, driver, source string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite, "sqlite3":
		return OpenSQLite(ctx, source)
	case DriverPostgres, "postgresql":
		return OpenPostgres(ctx, source)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// encodeInt renders an amount as base-10 text, nil encodes as zero
func encodeInt(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decodeInt(column, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s value %q", column, s)
	}
	return v, nil
}
