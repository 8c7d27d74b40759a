package pricer

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/oracle"
	"github.com/speedrun-hq/speedrun-settler/pkg/settler"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

const (
	owner  models.Identity = "owner"
	alice  models.Identity = "alice"
	feeder models.Identity = "feeder"
)

func setup(t *testing.T) (*settler.Engine, *oracle.Oracle) {
	t.Helper()
	ctx := context.Background()

	engine := settler.New(store.NewMemoryStore(), nil, nil)
	require.NoError(t, engine.Initialize(ctx, owner, "hash-oracle", "0x00000000000000000000000000000000000000f1"))

	o := oracle.New()
	require.NoError(t, o.Initialize(feeder))
	return engine, o
}

func createIntent(t *testing.T, engine *settler.Engine, tokenIn, tokenOut string, amount int64) uint64 {
	t.Helper()
	id, err := engine.CreateIntent(context.Background(), settler.CreateIntentRequest{
		SourceChain: "casper",
		DestChain:   "ethereum",
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    big.NewInt(amount),
	}, alice)
	require.NoError(t, err)
	return id
}

func TestTickPricesCreatedIntents(t *testing.T) {
	ctx := context.Background()
	engine, o := setup(t)
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.BTCUSD, big.NewInt(6_000_000_000_000), 1))
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.ETHUSD, big.NewInt(300_000_000_000), 1))

	btcToEth := createIntent(t, engine, "WBTC", "WETH", 1000)
	ethToUSDC := createIntent(t, engine, "WETH", "USDC", 2)

	p := New(engine, o, alice, time.Hour, nil)
	result, err := p.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Pending: 2, Priced: 2}, result)

	intent, err := engine.GetIntent(ctx, btcToEth)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPriced, intent.Status)
	// 1000 * 60000 / 3000 = 20000, less 1% slippage
	assert.Equal(t, "19800", intent.MinAmountOut.String())

	intent, err = engine.GetIntent(ctx, ethToUSDC)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPriced, intent.Status)
	assert.Equal(t, "100000000", intent.PriceOut.String())
	assert.Equal(t, "5940", intent.MinAmountOut.String())

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PendingIntents))
}

func TestTickSkipsUnpricedTokens(t *testing.T) {
	ctx := context.Background()
	engine, o := setup(t)
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.ETHUSD, big.NewInt(300_000_000_000), 1))

	waiting := createIntent(t, engine, "WBTC", "WETH", 1000)
	unknown := createIntent(t, engine, "DOGE", "WETH", 1000)

	p := New(engine, o, alice, time.Hour, nil)
	result, err := p.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Pending: 2, Skipped: 2}, result)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PendingIntents))

	for _, id := range []uint64{waiting, unknown} {
		intent, err := engine.GetIntent(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCreated, intent.Status)
	}

	// once the oracle has the missing feed the intent gets priced
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.BTCUSD, big.NewInt(6_000_000_000_000), 2))
	result, err = p.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Pending: 2, Priced: 1, Skipped: 1}, result)
}

func TestTickIgnoresNonCreatedIntents(t *testing.T) {
	ctx := context.Background()
	engine, o := setup(t)
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.BTCUSD, big.NewInt(6_000_000_000_000), 1))

	id := createIntent(t, engine, "WBTC", "USDT", 10)
	require.NoError(t, engine.ExecuteIntent(ctx, "1", "0x742d35cc6634c0532925a3b844bc454e4438f44e", alice))

	p := New(engine, o, alice, time.Hour, nil)
	result, err := p.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)

	intent, err := engine.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExecuting, intent.Status)
}

func TestTickReachesIntentsBeyondFirstBatch(t *testing.T) {
	ctx := context.Background()
	engine, o := setup(t)
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.BTCUSD, big.NewInt(6_000_000_000_000), 1))
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.ETHUSD, big.NewInt(300_000_000_000), 1))
	require.NoError(t, o.SubmitPrice(ctx, feeder, oracle.CSPRUSD, big.NewInt(2_000_000), 1))

	// LINK has no feed, so these stay created on every pass
	for i := 0; i < DefaultBatchSize; i++ {
		createIntent(t, engine, "LINK", "CSPR", 10)
	}
	last := createIntent(t, engine, "WBTC", "WETH", 1000)

	p := New(engine, o, alice, time.Hour, nil)
	for i := 0; i < 3; i++ {
		result, err := p.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultBatchSize, result.Skipped)
	}

	intent, err := engine.GetIntent(ctx, last)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPriced, intent.Status)
	assert.Equal(t, "19800", intent.MinAmountOut.String())
	assert.Equal(t, float64(DefaultBatchSize), testutil.ToFloat64(metrics.PendingIntents))
}

func TestRunStopsOnCancel(t *testing.T) {
	engine, o := setup(t)
	p := New(engine, o, alice, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pricer did not stop")
	}
}
