package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

const settingsColumns = `owner, oracle_address, token_factory_address, slippage_bps,
bridge_fee, target_chain_id, next_intent_id, strict_transitions`

const intentColumns = `id, user_id, source_chain, dest_chain, token_in, token_out,
amount_in, min_amount_out, price_in, price_out, timestamp, status`

// SQLiteStore persists state in a SQLite database file
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path, applying pragmas and the schema.
// A single connection is kept so that writers never contend for the lock.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Update runs fn inside a database transaction, committing only if fn returns nil
func (s *SQLiteStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, false, fn)
}

// View runs fn inside a transaction that rejects writes
func (s *SQLiteStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, true, fn)
}

func (s *SQLiteStore) run(ctx context.Context, readOnly bool, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&sqliteTx{tx: sqlTx, readOnly: readOnly}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if readOnly {
		return sqlTx.Rollback()
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type sqliteTx struct {
	tx       *sql.Tx
	readOnly bool
}

func (t *sqliteTx) Settings(ctx context.Context) (*models.Settings, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM settings WHERE id = 1`)

	var (
		settings                        models.Settings
		owner, fee                      string
		slippage, chainID, nextIntentID int64
		strict                          bool
	)
	err := row.Scan(&owner, &settings.OracleAddress, &settings.TokenFactoryAddress, &slippage,
		&fee, &chainID, &nextIntentID, &strict)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	settings.BridgeFee, err = decodeInt("bridge_fee", fee)
	if err != nil {
		return nil, err
	}
	settings.Owner = models.Identity(owner)
	settings.SlippageBps = uint64(slippage)
	settings.TargetChainID = uint64(chainID)
	settings.NextIntentID = uint64(nextIntentID)
	settings.StrictTransitions = strict
	return &settings, nil
}

func (t *sqliteTx) SaveSettings(ctx context.Context, s *models.Settings) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO settings (id, `+settingsColumns+`)
VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET owner = excluded.owner,
    oracle_address = excluded.oracle_address,
    token_factory_address = excluded.token_factory_address,
    slippage_bps = excluded.slippage_bps,
    bridge_fee = excluded.bridge_fee,
    target_chain_id = excluded.target_chain_id,
    next_intent_id = excluded.next_intent_id,
    strict_transitions = excluded.strict_transitions
`, string(s.Owner), s.OracleAddress, s.TokenFactoryAddress, int64(s.SlippageBps),
		encodeInt(s.BridgeFee), int64(s.TargetChainID), int64(s.NextIntentID), s.StrictTransitions)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (t *sqliteTx) Intent(ctx context.Context, id uint64) (*models.Intent, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM intents WHERE id = ?`, int64(id))
	intent, err := scanIntent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read intent %d: %w", id, err)
	}
	return intent, nil
}

func (t *sqliteTx) SaveIntent(ctx context.Context, i *models.Intent) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO intents (`+intentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE
SET user_id = excluded.user_id,
    source_chain = excluded.source_chain,
    dest_chain = excluded.dest_chain,
    token_in = excluded.token_in,
    token_out = excluded.token_out,
    amount_in = excluded.amount_in,
    min_amount_out = excluded.min_amount_out,
    price_in = excluded.price_in,
    price_out = excluded.price_out,
    timestamp = excluded.timestamp,
    status = excluded.status
`, int64(i.ID), string(i.User), i.SourceChain, i.DestChain, i.TokenIn, i.TokenOut,
		encodeInt(i.AmountIn), encodeInt(i.MinAmountOut), encodeInt(i.PriceIn), encodeInt(i.PriceOut),
		int64(i.Timestamp), int64(i.Status))
	if err != nil {
		return fmt.Errorf("failed to save intent %d: %w", i.ID, err)
	}
	return nil
}

func (t *sqliteTx) Intents(ctx context.Context, filter IntentFilter) ([]*models.Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM intents WHERE id > ?`
	args := []interface{}{int64(filter.AfterID)}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, int64(*filter.Status))
	}
	query += ` ORDER BY id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}
	defer rows.Close()

	var result []*models.Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intent: %w", err)
		}
		result = append(result, intent)
	}
	return result, rows.Err()
}

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntent(row rowScanner) (*models.Intent, error) {
	var (
		intent                                    models.Intent
		id, timestamp, status                     int64
		user, amountIn, minOut, priceIn, priceOut string
	)
	err := row.Scan(&id, &user, &intent.SourceChain, &intent.DestChain, &intent.TokenIn, &intent.TokenOut,
		&amountIn, &minOut, &priceIn, &priceOut, &timestamp, &status)
	if err != nil {
		return nil, err
	}

	intent.ID = uint64(id)
	intent.User = models.Identity(user)
	intent.Timestamp = uint64(timestamp)
	intent.Status = models.Status(status)

	if intent.AmountIn, err = decodeInt("amount_in", amountIn); err != nil {
		return nil, err
	}
	if intent.MinAmountOut, err = decodeInt("min_amount_out", minOut); err != nil {
		return nil, err
	}
	if intent.PriceIn, err = decodeInt("price_in", priceIn); err != nil {
		return nil, err
	}
	if intent.PriceOut, err = decodeInt("price_out", priceOut); err != nil {
		return nil, err
	}
	return &intent, nil
}
