package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/speedrun-hq/speedrun-settler/pkg/bridge"
	"github.com/speedrun-hq/speedrun-settler/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-settler/pkg/config"
	"github.com/speedrun-hq/speedrun-settler/pkg/events"
	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/settler"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
	"github.com/speedrun-hq/speedrun-settler/pkg/tokenfactory"
)

// app is the set of components a command runs against
type app struct {
	cfg     *config.Config
	logger  logger.Logger
	store   store.Store
	engine  *settler.Engine
	chain   *tokenfactory.Client
	breaker *circuitbreaker.CircuitBreaker
}

// openApp loads the configuration, opens the store and builds the engine.
// Logs go to logOut so that command output stays machine readable.
func openApp(ctx context.Context, opts *RootOptions, logOut io.Writer, emitter events.Emitter) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	log := logger.NewWriterLogger(logOut, cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)
	if emitter == nil {
		emitter = events.NewLogEmitter(log)
	}

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.Source())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open %s store", cfg.Store.Driver), err)
	}

	a := &app{
		cfg:    cfg,
		logger: log,
		store:  st,
	}

	var factory bridge.TokenFactory
	if cfg.TokenFactory.Enabled() {
		a.chain, err = tokenfactory.Dial(ctx, cfg.TokenFactory.RPCURL, cfg.TokenFactory.PrivateKey,
			tokenfactory.WithGasMultiplier(cfg.TokenFactory.GasMultiplier),
			tokenfactory.WithReceiptTimeout(cfg.TokenFactory.ReceiptTimeout),
			tokenfactory.WithLogger(log),
		)
		if err != nil {
			_ = st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to connect token factory client", err)
		}

		a.breaker = circuitbreaker.NewCircuitBreaker(
			cfg.CircuitBreaker.Enabled,
			cfg.CircuitBreaker.Threshold,
			cfg.CircuitBreaker.WindowDuration,
			cfg.CircuitBreaker.ResetTimeout,
			log,
		)
		factory = bridge.NewBreaker(a.chain, a.breaker, log)
	} else {
		log.Debug("No RPC_URL/PRIVATE_KEY configured, burns are unavailable")
	}

	a.engine = settler.New(st, factory, emitter,
		settler.WithLogger(log),
		settler.WithStrictTransitions(cfg.StrictTransitions),
	)
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
