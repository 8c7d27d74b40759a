package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/speedrun-hq/speedrun-settler/pkg/events"
	"github.com/speedrun-hq/speedrun-settler/pkg/health"
	"github.com/speedrun-hq/speedrun-settler/pkg/oracle"
	"github.com/speedrun-hq/speedrun-settler/pkg/pricer"
	"github.com/speedrun-hq/speedrun-settler/pkg/tokenfactory"
)

// eventBufferSize is the per subscriber buffer of the daemon event bus
const eventBufferSize = 64

// ServeOptions holds flags for the serve command
type ServeOptions struct {
	*RootOptions
	NoFeeder bool
}

// NewServeCommand creates the serve command
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the price feeder, pricer and health server until interrupted",
		Long: `Run the settler daemon. It keeps the price oracle fed from the price
API, prices created intents against it and serves /health, /ready, /status,
/intents/{id} and /metrics on METRICS_PORT.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoFeeder, "no-feeder", false, "do not fetch prices from the price API")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts *ServeOptions) error {
	bus := events.NewBus(nil)
	a, err := openApp(ctx, opts.RootOptions, cmd.ErrOrStderr(), bus)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.logger
	cfg := a.cfg

	executed, unsubscribe := bus.Subscribe("log", eventBufferSize)
	defer unsubscribe()

	o := oracle.New()
	if cfg.OracleOwner.IsZero() {
		log.Error("No ORACLE_OWNER or OWNER_IDENTITY configured, oracle prices cannot be submitted")
	} else if err := o.Initialize(cfg.OracleOwner); err != nil {
		return err
	}

	healthOpts := []health.Option{health.WithOracle(o), health.WithLogger(log)}
	if a.chain != nil {
		healthOpts = append(healthOpts, health.WithChainClient(a.chain), health.WithCircuitBreaker(a.breaker))
	}
	server := health.NewServer(cfg.MetricsPort, cfg.MetricsAPIKey, a.engine, a.store, healthOpts...)

	p := pricer.New(a.engine, o, cfg.PricerIdentity, cfg.PricingInterval, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		events.RunLogSubscriber(ctx, executed, events.NewLogEmitter(log))
		return nil
	})
	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		p.Run(ctx)
		return nil
	})
	if !opts.NoFeeder {
		feeder := oracle.NewFeeder(o, cfg.PriceAPIEndpoint, cfg.OracleOwner, cfg.PriceFeedInterval, log)
		g.Go(func() error {
			feeder.Run(ctx)
			return nil
		})
	}
	if a.chain != nil {
		monitor := tokenfactory.NewMonitor(a.chain, tokenfactory.DefaultMonitorInterval)
		g.Go(func() error {
			monitor.Run(ctx)
			return nil
		})
	}

	log.Notice("Settler daemon started, store %s, strict transitions %t", cfg.Store.Driver, cfg.StrictTransitions)
	err = g.Wait()
	log.Notice("Settler daemon stopped")
	return err
}
