package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

const createPostgresTablesSQL = `
CREATE TABLE IF NOT EXISTS settler_settings (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    owner TEXT NOT NULL,
    oracle_address TEXT NOT NULL,
    token_factory_address TEXT NOT NULL DEFAULT '',
    slippage_bps BIGINT NOT NULL,
    bridge_fee TEXT NOT NULL,
    target_chain_id BIGINT NOT NULL,
    next_intent_id BIGINT NOT NULL,
    strict_transitions BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS settler_intents (
    id BIGINT PRIMARY KEY,
    user_id TEXT NOT NULL,
    source_chain TEXT NOT NULL,
    dest_chain TEXT NOT NULL,
    token_in TEXT NOT NULL,
    token_out TEXT NOT NULL,
    amount_in TEXT NOT NULL,
    min_amount_out TEXT NOT NULL,
    price_in TEXT NOT NULL,
    price_out TEXT NOT NULL,
    timestamp BIGINT NOT NULL,
    status SMALLINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_settler_intents_status ON settler_intents (status, id);
`

// PostgresStore persists state in PostgreSQL tables
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to Postgres using the DSN and ensures the tables exist
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, createPostgresTablesSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Update runs fn in a serializable transaction. The settings row is locked
// on first read so concurrent writers queue behind each other.
func (p *PostgresStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return p.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, false, fn)
}

// View runs fn in a read-only transaction
func (p *PostgresStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return p.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, true, fn)
}

func (p *PostgresStore) run(ctx context.Context, opts pgx.TxOptions, readOnly bool, fn func(tx Tx) error) error {
	tx, err := p.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&postgresTx{tx: tx, readOnly: readOnly}); err != nil {
		return err
	}

	if readOnly {
		return nil
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies the pool can reach the server
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases all pool connections
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

type postgresTx struct {
	tx       pgx.Tx
	readOnly bool
}

func (t *postgresTx) Settings(ctx context.Context) (*models.Settings, error) {
	query := `SELECT ` + settingsColumns + ` FROM settler_settings WHERE id = 1`
	if !t.readOnly {
		query += ` FOR UPDATE`
	}

	var (
		settings                        models.Settings
		owner, fee                      string
		slippage, chainID, nextIntentID int64
	)
	err := t.tx.QueryRow(ctx, query).Scan(&owner, &settings.OracleAddress, &settings.TokenFactoryAddress,
		&slippage, &fee, &chainID, &nextIntentID, &settings.StrictTransitions)
	if errors.Is(err, pgx.ErrNoRows) {
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
	return &settings, nil
}

func (t *postgresTx) SaveSettings(ctx context.Context, s *models.Settings) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, err := t.tx.Exec(ctx, `
INSERT INTO settler_settings (id, `+settingsColumns+`)
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE
SET owner = EXCLUDED.owner,
    oracle_address = EXCLUDED.oracle_address,
    token_factory_address = EXCLUDED.token_factory_address,
    slippage_bps = EXCLUDED.slippage_bps,
    bridge_fee = EXCLUDED.bridge_fee,
    target_chain_id = EXCLUDED.target_chain_id,
    next_intent_id = EXCLUDED.next_intent_id,
    strict_transitions = EXCLUDED.strict_transitions
`, string(s.Owner), s.OracleAddress, s.TokenFactoryAddress, int64(s.SlippageBps),
		encodeInt(s.BridgeFee), int64(s.TargetChainID), int64(s.NextIntentID), s.StrictTransitions)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (t *postgresTx) Intent(ctx context.Context, id uint64) (*models.Intent, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+intentColumns+` FROM settler_intents WHERE id = $1`, int64(id))
	intent, err := scanIntent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read intent %d: %w", id, err)
	}
	return intent, nil
}

func (t *postgresTx) SaveIntent(ctx context.Context, i *models.Intent) error {
	if t.readOnly {
		return ErrReadOnly
	}
	_, err := t.tx.Exec(ctx, `
INSERT INTO settler_intents (`+intentColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE
SET user_id = EXCLUDED.user_id,
    source_chain = EXCLUDED.source_chain,
    dest_chain = EXCLUDED.dest_chain,
    token_in = EXCLUDED.token_in,
    token_out = EXCLUDED.token_out,
    amount_in = EXCLUDED.amount_in,
    min_amount_out = EXCLUDED.min_amount_out,
    price_in = EXCLUDED.price_in,
    price_out = EXCLUDED.price_out,
    timestamp = EXCLUDED.timestamp,
    status = EXCLUDED.status
`, int64(i.ID), string(i.User), i.SourceChain, i.DestChain, i.TokenIn, i.TokenOut,
		encodeInt(i.AmountIn), encodeInt(i.MinAmountOut), encodeInt(i.PriceIn), encodeInt(i.PriceOut),
		int64(i.Timestamp), int16(i.Status))
	if err != nil {
		return fmt.Errorf("failed to save intent %d: %w", i.ID, err)
	}
	return nil
}

func (t *postgresTx) Intents(ctx context.Context, filter IntentFilter) ([]*models.Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM settler_intents WHERE id > $1`
	args := []interface{}{int64(filter.AfterID)}
	if filter.Status != nil {
		args = append(args, int16(*filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := t.tx.Query(ctx, query, args...)
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
