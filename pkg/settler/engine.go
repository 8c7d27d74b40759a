// Package settler implements the intent settlement engine. Every mutating
// operation is a single store transaction: validation, the status write and
// any token factory burn either all take effect or none do, and events are
// emitted only once the transaction has committed.
package settler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/speedrun-hq/speedrun-settler/pkg/bridge"
	"github.com/speedrun-hq/speedrun-settler/pkg/events"
	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

// Operation names used in errors, logs and metrics
const (
	OpInitialize             = "init"
	OpCreateIntent           = "create_intent"
	OpGetIntent              = "get_intent"
	OpListIntents            = "list_intents"
	OpGetTotalIntents        = "get_total_intents"
	OpSetIntentPrices        = "set_intent_prices"
	OpExecuteIntent          = "execute_intent"
	OpExecuteIntentWithBurn  = "execute_intent_with_burn"
	OpCompleteIntent         = "complete_intent"
	OpGetSettings            = "get_settings"
	OpSetOracleAddress       = "set_oracle_address"
	OpSetTokenFactoryAddress = "set_token_factory_address"
	OpSetSlippage            = "set_slippage"
	OpSetBridgeFee           = "set_bridge_fee"
	OpSetTargetChainID       = "set_target_chain_id"
	OpSetStrictTransitions   = "set_strict_transitions"
	OpTransferOwnership      = "transfer_ownership"
)

// Engine runs settlement operations against a store
type Engine struct {
	store             store.Store
	factory           bridge.TokenFactory
	emitter           events.Emitter
	logger            logger.Logger
	now               func() time.Time
	strictTransitions bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.logger = log
	}
}

// WithClock sets the time source used for intent and event timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithStrictTransitions sets the transition policy written at initialization
func WithStrictTransitions(strict bool) Option {
	return func(e *Engine) {
		e.strictTransitions = strict
	}
}

// New creates an engine. A nil factory behaves as bridge.Unavailable and a
// nil emitter discards events.
func New(st store.Store, factory bridge.TokenFactory, emitter events.Emitter, opts ...Option) *Engine {
	e := &Engine{
		store:             st,
		factory:           factory,
		emitter:           emitter,
		logger:            &logger.EmptyLogger{},
		now:               time.Now,
		strictTransitions: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.factory == nil {
		e.factory = bridge.Unavailable{}
	}
	if e.emitter == nil {
		e.emitter = events.Nop{}
	}
	return e
}

// Store returns the backing store
func (e *Engine) Store() store.Store {
	return e.store
}

// ParseIntentID parses the textual form of an intent id, a base 10 unsigned
// integer. Surrounding whitespace is ignored, so " 1 " parses as 1.
func ParseIntentID(op, value string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, models.NewError(models.CodeInvalidIntentID, op, "cannot parse %q", value)
	}
	return id, nil
}

// update runs fn in a write transaction with the settings singleton loaded
func (e *Engine) update(ctx context.Context, op string, fn func(tx store.Tx, settings *models.Settings) error) error {
	err := e.store.Update(ctx, func(tx store.Tx) error {
		settings, err := loadSettings(ctx, tx, op)
		if err != nil {
			return err
		}
		return fn(tx, settings)
	})
	return e.observe(op, err)
}

// view runs fn in a read transaction with the settings singleton loaded
func (e *Engine) view(ctx context.Context, op string, fn func(tx store.Tx, settings *models.Settings) error) error {
	err := e.store.View(ctx, func(tx store.Tx) error {
		settings, err := loadSettings(ctx, tx, op)
		if err != nil {
			return err
		}
		return fn(tx, settings)
	})
	return e.observe(op, err)
}

// observe counts and logs a failed operation
func (e *Engine) observe(op string, err error) error {
	if err == nil {
		return nil
	}

	code := "Internal"
	if c := models.CodeOf(err); c != 0 {
		code = c.String()
	}
	metrics.OperationErrors.WithLabelValues(op, code).Inc()

	if code == "Internal" && !errors.Is(err, context.Canceled) {
		e.logger.Error("Operation %s failed: %v", op, err)
	} else {
		e.logger.Debug("Operation %s rejected: %v", op, err)
	}
	return err
}

func loadSettings(ctx context.Context, tx store.Tx, op string) (*models.Settings, error) {
	settings, err := tx.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, models.NewError(models.CodeNotInitialized, op, "settler has not been initialized")
	}
	return settings, nil
}

func loadIntent(ctx context.Context, tx store.Tx, op string, id uint64) (*models.Intent, error) {
	intent, err := tx.Intent(ctx, id)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, models.NewError(models.CodeNotFound, op, "intent %d does not exist", id)
	}
	return intent, nil
}

func (e *Engine) timestamp() uint64 {
	return uint64(e.now().Unix())
}
