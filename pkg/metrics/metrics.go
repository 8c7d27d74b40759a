package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	IntentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settler_intents_created_total",
		Help: "The total number of created intents",
	})

	IntentsPriced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settler_intents_priced_total",
		Help: "The total number of intents priced",
	})

	// IntentsExecuted is labelled by mode: "notify" or "burn"
	IntentsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settler_intents_executed_total",
		Help: "The total number of intents moved to executing",
	}, []string{"mode"})

	IntentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settler_intents_completed_total",
		Help: "The total number of completed intents",
	})

	OperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settler_operation_errors_total",
		Help: "Total number of failed operations by operation and error code",
	}, []string{"operation", "code"})

	Burns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settler_burns_total",
		Help: "The total number of token factory burns by target chain and result",
	}, []string{"chain_id", "result"})

	BurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settler_burn_duration_seconds",
		Help:    "Time taken by token factory burn calls",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // Start at 0.5s with 10 buckets doubling in size
	}, []string{"chain_id"})

	GasPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "settler_gas_price_gwei",
		Help: "Current gas price in gwei",
	}, []string{"chain_id"})

	SignerBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "settler_signer_balance_eth",
		Help: "Native balance of the burn signer",
	}, []string{"chain_id"})

	PendingIntents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settler_pending_intents",
		Help: "The number of created intents waiting to be priced",
	})

	OraclePrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "settler_oracle_price_usd",
		Help: "Latest oracle price per feed in USD",
	}, []string{"feed"})

	PriceFeedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settler_price_feed_errors_total",
		Help: "Total number of failed price feed updates",
	}, []string{"reason"})

	DroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settler_events_dropped_total",
		Help: "Number of events dropped because a subscriber buffer was full",
	}, []string{"subscriber"})
)
