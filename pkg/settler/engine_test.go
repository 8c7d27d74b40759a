package settler

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-settler/pkg/bridge"
	"github.com/speedrun-hq/speedrun-settler/pkg/events"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

const (
	owner        models.Identity = "owner"
	alice        models.Identity = "alice"
	bob          models.Identity = "bob"
	factoryAddr                  = "0x00000000000000000000000000000000000000f1"
	tokenAddr                    = "0x00000000000000000000000000000000000000a1"
	recipient                    = "0x742d35cc6634c0532925a3b844bc454e4438f44e"
	oracleAddr                   = "hash-oracle"
	testUnixTime                 = 1700000000
)

type testEnv struct {
	engine  *Engine
	store   store.Store
	factory *bridge.FakeTokenFactory
	events  *events.Recorder
}

func newTestEnv(t *testing.T, st store.Store, opts ...Option) *testEnv {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	factory := bridge.NewFakeTokenFactory()
	recorder := &events.Recorder{}
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(testUnixTime, 0) })}, opts...)
	return &testEnv{
		engine:  New(st, factory, recorder, opts...),
		store:   st,
		factory: factory,
		events:  recorder,
	}
}

func newInitializedEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := newTestEnv(t, nil, opts...)
	require.NoError(t, env.engine.Initialize(context.Background(), owner, oracleAddr, factoryAddr))
	return env
}

func (env *testEnv) create(t *testing.T, caller models.Identity, amount *big.Int) uint64 {
	t.Helper()
	id, err := env.engine.CreateIntent(context.Background(), CreateIntentRequest{
		SourceChain: "casper",
		DestChain:   "ethereum",
		TokenIn:     "WBTC",
		TokenOut:    "WETH",
		AmountIn:    amount,
	}, caller)
	require.NoError(t, err)
	return id
}

func (env *testEnv) status(t *testing.T, id uint64) models.Status {
	t.Helper()
	intent, err := env.engine.GetIntent(context.Background(), id)
	require.NoError(t, err)
	return intent.Status
}

func idString(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func TestOperationsBeforeInitialize(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.CreateIntent(ctx, CreateIntentRequest{AmountIn: big.NewInt(1)}, alice)
	assert.ErrorIs(t, err, models.ErrNotInitialized)

	_, err = env.engine.GetTotalIntents(ctx)
	assert.ErrorIs(t, err, models.ErrNotInitialized)

	_, err = env.engine.GetIntent(ctx, 1)
	assert.ErrorIs(t, err, models.ErrNotInitialized)

	err = env.engine.SetSlippage(ctx, 50, owner)
	assert.ErrorIs(t, err, models.ErrNotInitialized)

	err = env.engine.ExecuteIntent(ctx, "1", recipient, alice)
	assert.ErrorIs(t, err, models.ErrNotInitialized)

	gotOwner, err := env.engine.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Identity(""), gotOwner)

	factory, err := env.engine.TokenFactoryAddress(ctx)
	require.NoError(t, err)
	assert.Empty(t, factory)
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		env := newInitializedEnv(t)

		settings, err := env.engine.Settings(ctx)
		require.NoError(t, err)
		assert.Equal(t, owner, settings.Owner)
		assert.Equal(t, oracleAddr, settings.OracleAddress)
		assert.Equal(t, factoryAddr, settings.TokenFactoryAddress)
		assert.Equal(t, uint64(100), settings.SlippageBps)
		assert.Equal(t, "2000000000", settings.BridgeFee.String())
		assert.Equal(t, uint64(1), settings.TargetChainID)
		assert.True(t, settings.StrictTransitions)

		total, err := env.engine.GetTotalIntents(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), total)

		gotOracle, err := env.engine.OracleAddress(ctx)
		require.NoError(t, err)
		assert.Equal(t, oracleAddr, gotOracle)
	})

	t.Run("only once", func(t *testing.T) {
		env := newInitializedEnv(t)
		err := env.engine.Initialize(ctx, bob, "other", "")
		assert.ErrorIs(t, err, models.ErrAlreadyInitialized)

		gotOwner, err := env.engine.Owner(ctx)
		require.NoError(t, err)
		assert.Equal(t, owner, gotOwner)
	})

	t.Run("requires caller", func(t *testing.T) {
		env := newTestEnv(t, nil)
		assert.ErrorIs(t, env.engine.Initialize(ctx, " ", oracleAddr, ""), models.ErrUnauthorized)
	})

	t.Run("rejects malformed factory", func(t *testing.T) {
		env := newTestEnv(t, nil)
		assert.ErrorIs(t, env.engine.Initialize(ctx, owner, oracleAddr, "factory"), models.ErrInvalidEthAddress)
	})

	t.Run("permissive policy option", func(t *testing.T) {
		env := newInitializedEnv(t, WithStrictTransitions(false))
		settings, err := env.engine.Settings(ctx)
		require.NoError(t, err)
		assert.False(t, settings.StrictTransitions)
	})
}

func TestCreateIntent(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()

	for expected := uint64(1); expected <= 3; expected++ {
		assert.Equal(t, expected, env.create(t, alice, big.NewInt(1000)))
	}

	total, err := env.engine.GetTotalIntents(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)

	intent, err := env.engine.GetIntent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), intent.ID)
	assert.Equal(t, alice, intent.User)
	assert.Equal(t, "casper", intent.SourceChain)
	assert.Equal(t, "WETH", intent.TokenOut)
	assert.Equal(t, "1000", intent.AmountIn.String())
	assert.Equal(t, 0, intent.PriceIn.Sign())
	assert.Equal(t, 0, intent.PriceOut.Sign())
	assert.Equal(t, 0, intent.MinAmountOut.Sign())
	assert.Equal(t, uint64(testUnixTime), intent.Timestamp)
	assert.Equal(t, models.StatusCreated, intent.Status)
}

func TestCreateIntentRejectsAmounts(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()

	tooWide := new(big.Int).Lsh(big.NewInt(1), 512)
	for _, amount := range []*big.Int{nil, big.NewInt(-1), tooWide} {
		_, err := env.engine.CreateIntent(ctx, CreateIntentRequest{AmountIn: amount}, alice)
		assert.ErrorIs(t, err, models.ErrAmountOutOfRange)
	}

	_, err := env.engine.CreateIntent(ctx, CreateIntentRequest{AmountIn: big.NewInt(1)}, "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	total, err := env.engine.GetTotalIntents(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total, "rejected intents must not consume ids")
}

func TestGetIntentMissing(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()

	_, err := env.engine.GetIntent(ctx, 42)
	assert.ErrorIs(t, err, models.ErrNotFound)

	intent, err := env.engine.LookupIntent(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, intent)
}

func TestSetIntentPrices(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))

	// pricing is open to any caller
	quote, err := env.engine.SetIntentPrices(ctx, id, big.NewInt(100_000_000), big.NewInt(200_000_000), bob)
	require.NoError(t, err)
	assert.Equal(t, "1000", quote.ValueUSD.String())
	assert.Equal(t, "500", quote.ExpectedOut.String())
	assert.Equal(t, "495", quote.MinAmountOut.String())

	intent, err := env.engine.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPriced, intent.Status)
	assert.Equal(t, "100000000", intent.PriceIn.String())
	assert.Equal(t, "200000000", intent.PriceOut.String())
	assert.Equal(t, "495", intent.MinAmountOut.String())
}

func TestSetIntentPricesFailures(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))

	_, err := env.engine.SetIntentPrices(ctx, id, big.NewInt(100_000_000), big.NewInt(0), alice)
	assert.ErrorIs(t, err, models.ErrInvalidPrice)

	intent, err := env.engine.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, intent.Status)
	assert.Equal(t, 0, intent.PriceIn.Sign(), "failed pricing must leave prices untouched")

	_, err = env.engine.SetIntentPrices(ctx, 99, big.NewInt(1), big.NewInt(1), alice)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = env.engine.SetIntentPrices(ctx, id, big.NewInt(1), big.NewInt(1), "  ")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, models.StatusCreated, env.status(t, id))
}

func TestParseIntentID(t *testing.T) {
	tests := []struct {
		value string
		id    uint64
		valid bool
	}{
		{value: "1", id: 1, valid: true},
		{value: " 42\t", id: 42, valid: true},
		{value: "18446744073709551615", id: 18446744073709551615, valid: true},
		{value: "18446744073709551616"},
		{value: "-1"},
		{value: "+1"},
		{value: "0x1"},
		{value: ""},
	}

	for _, tt := range tests {
		t.Run(strconv.Quote(tt.value), func(t *testing.T) {
			id, err := ParseIntentID(OpGetIntent, tt.value)
			if !tt.valid {
				assert.ErrorIs(t, err, models.ErrInvalidIntentID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestSlippageAffectsPricing(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))

	require.NoError(t, env.engine.SetSlippage(ctx, 0, owner))
	quote, err := env.engine.SetIntentPrices(ctx, id, big.NewInt(100_000_000), big.NewInt(200_000_000), alice)
	require.NoError(t, err)
	assert.Equal(t, "500", quote.MinAmountOut.String())
}

func TestExecuteIntent(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))

	assert.ErrorIs(t, env.engine.ExecuteIntent(ctx, "one", recipient, alice), models.ErrInvalidIntentID)
	assert.ErrorIs(t, env.engine.ExecuteIntent(ctx, "-1", recipient, alice), models.ErrInvalidIntentID)
	assert.ErrorIs(t, env.engine.ExecuteIntent(ctx, "77", recipient, alice), models.ErrNotFound)
	assert.ErrorIs(t, env.engine.ExecuteIntent(ctx, idString(id), recipient, bob), models.ErrUnauthorized)
	assert.Equal(t, models.StatusCreated, env.status(t, id))
	assert.Empty(t, env.events.Events())

	// the notification path does not validate the recipient
	require.NoError(t, env.engine.ExecuteIntent(ctx, " "+idString(id)+" ", "not-an-address", alice))
	assert.Equal(t, models.StatusExecuting, env.status(t, id))
	assert.Empty(t, env.factory.Calls())

	require.Len(t, env.events.Events(), 1)
	assert.Equal(t, models.IntentExecuted{
		IntentID:     id,
		User:         alice,
		EthRecipient: "not-an-address",
		Timestamp:    testUnixTime,
	}, env.events.Events()[0])
}

func TestExecuteIntentWithBurn(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))
	_, err := env.engine.SetIntentPrices(ctx, id, big.NewInt(100_000_000), big.NewInt(200_000_000), alice)
	require.NoError(t, err)

	require.NoError(t, env.engine.SetTargetChainID(ctx, 8453, owner))
	require.NoError(t, env.engine.SetBridgeFee(ctx, big.NewInt(5_000_000_000), owner))

	receipt, err := env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, receipt.TxHash)
	assert.Equal(t, models.StatusExecuting, env.status(t, id))

	calls := env.factory.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, id, calls[0].IntentID)
	assert.Equal(t, factoryAddr, calls[0].Factory)
	assert.Equal(t, tokenAddr, calls[0].Token)
	assert.Equal(t, uint64(1000), calls[0].Amount.Uint64())
	assert.Equal(t, common.HexToAddress(recipient), calls[0].Recipient)
	assert.Equal(t, uint64(8453), calls[0].TargetChainID)
	assert.Equal(t, "5000000000", calls[0].Fee.String())

	require.Len(t, env.events.Events(), 1)
	event := env.events.Events()[0]
	assert.Equal(t, id, event.IntentID)
	assert.Equal(t, alice, event.User)
	assert.Equal(t, recipient, event.EthRecipient)
	assert.True(t, event.Burned)
}

func TestExecuteIntentWithBurnRejectsCallers(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))

	tests := []struct {
		name     string
		intentID string
		caller   models.Identity
		want     error
	}{
		{name: "non creator", intentID: idString(id), caller: bob, want: models.ErrUnauthorized},
		{name: "empty caller", intentID: idString(id), caller: "", want: models.ErrUnauthorized},
		{name: "unparsable id", intentID: "x", caller: alice, want: models.ErrInvalidIntentID},
		{name: "unknown id", intentID: "77", caller: alice, want: models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := env.engine.ExecuteIntentWithBurn(ctx, tt.intentID, tokenAddr, recipient, tt.caller)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, receipt)
			assert.Equal(t, models.StatusCreated, env.status(t, id))
		})
	}

	assert.Empty(t, env.factory.Calls())
	assert.Empty(t, env.events.Events())
}

func TestExecuteIntentWithBurnRejectsRecipients(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))

	tests := []struct {
		name      string
		recipient string
	}{
		{name: "missing prefix", recipient: "742d35cc6634c0532925a3b844bc454e4438f44e"},
		{name: "wrong length", recipient: "0x742d35cc6634c0532925a3b844bc454e4438f4"},
		{name: "non hex", recipient: "0x742d35cc6634c0532925a3b844bc454e4438f4zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, tt.recipient, alice)
			assert.ErrorIs(t, err, models.ErrInvalidEthAddress)
			assert.Equal(t, models.StatusCreated, env.status(t, id))
		})
	}

	assert.Empty(t, env.factory.Calls())
	assert.Empty(t, env.events.Events())
}

func TestExecuteIntentWithBurnRequiresFactory(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	require.NoError(t, env.engine.Initialize(ctx, owner, oracleAddr, ""))
	id := env.create(t, alice, big.NewInt(1000))

	_, err := env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	assert.ErrorIs(t, err, models.ErrTokenFactoryNotSet)
	assert.Equal(t, models.StatusCreated, env.status(t, id))

	require.NoError(t, env.engine.SetTokenFactoryAddress(ctx, factoryAddr, owner))
	_, err = env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	require.NoError(t, err)
}

func TestExecuteIntentWithBurnRejectsWideAmount(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, new(big.Int).Lsh(big.NewInt(1), 256))

	_, err := env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	assert.ErrorIs(t, err, models.ErrAmountOutOfRange)
	assert.Equal(t, models.StatusCreated, env.status(t, id))
	assert.Empty(t, env.factory.Calls())
}

func TestBurnFailureRollsBack(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))
	_, err := env.engine.SetIntentPrices(ctx, id, big.NewInt(100_000_000), big.NewInt(200_000_000), alice)
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.OperationErrors.WithLabelValues(OpExecuteIntentWithBurn, "BurnFailed"))

	cause := errors.New("execution reverted")
	env.factory.FailWith(cause)
	_, err = env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	assert.ErrorIs(t, err, models.ErrBurnFailed)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, models.StatusPriced, env.status(t, id), "status write must roll back with the burn")
	assert.Empty(t, env.events.Events(), "rolled back executions emit nothing")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OperationErrors.WithLabelValues(OpExecuteIntentWithBurn, "BurnFailed")))

	env.factory.FailWith(nil)
	_, err = env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExecuting, env.status(t, id))
}

func TestUnavailableFactoryRollsBack(t *testing.T) {
	ctx := context.Background()
	engine := New(store.NewMemoryStore(), nil, nil)
	require.NoError(t, engine.Initialize(ctx, owner, oracleAddr, factoryAddr))
	id, err := engine.CreateIntent(ctx, CreateIntentRequest{AmountIn: big.NewInt(5)}, alice)
	require.NoError(t, err)

	_, err = engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	assert.ErrorIs(t, err, bridge.ErrUnavailable)

	intent, err := engine.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, intent.Status)
}

func TestCompleteIntent(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))
	require.NoError(t, env.engine.ExecuteIntent(ctx, idString(id), recipient, alice))

	assert.ErrorIs(t, env.engine.CompleteIntent(ctx, id, bob), models.ErrUnauthorized)
	assert.ErrorIs(t, env.engine.CompleteIntent(ctx, 55, alice), models.ErrNotFound)
	assert.Equal(t, models.StatusExecuting, env.status(t, id))

	require.NoError(t, env.engine.CompleteIntent(ctx, id, alice))
	assert.Equal(t, models.StatusCompleted, env.status(t, id))
}

func TestStrictTransitions(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	id := env.create(t, alice, big.NewInt(1000))

	assert.ErrorIs(t, env.engine.CompleteIntent(ctx, id, alice), models.ErrInvalidTransition)

	_, err := env.engine.SetIntentPrices(ctx, id, big.NewInt(1), big.NewInt(1), alice)
	require.NoError(t, err)
	_, err = env.engine.SetIntentPrices(ctx, id, big.NewInt(1), big.NewInt(1), alice)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, env.engine.ExecuteIntent(ctx, idString(id), recipient, alice))
	assert.ErrorIs(t, env.engine.ExecuteIntent(ctx, idString(id), recipient, alice), models.ErrInvalidTransition)
	_, err = env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, env.engine.CompleteIntent(ctx, id, alice))
	_, err = env.engine.SetIntentPrices(ctx, id, big.NewInt(1), big.NewInt(1), alice)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, models.StatusCompleted, env.status(t, id))
	assert.Len(t, env.events.Events(), 1)
}

func TestPermissiveTransitions(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	require.NoError(t, env.engine.SetStrictTransitions(ctx, false, owner))
	id := env.create(t, alice, big.NewInt(1000))

	require.NoError(t, env.engine.CompleteIntent(ctx, id, alice))
	assert.Equal(t, models.StatusCompleted, env.status(t, id))

	_, err := env.engine.SetIntentPrices(ctx, id, big.NewInt(100_000_000), big.NewInt(100_000_000), alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPriced, env.status(t, id))

	require.NoError(t, env.engine.ExecuteIntent(ctx, idString(id), recipient, alice))
	require.NoError(t, env.engine.ExecuteIntent(ctx, idString(id), recipient, alice))
	assert.Len(t, env.events.Events(), 2)
}

func TestOwnerOnlySetters(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()

	setters := map[string]func(caller models.Identity) error{
		OpSetOracleAddress: func(caller models.Identity) error {
			return env.engine.SetOracleAddress(ctx, "hash-new-oracle", caller)
		},
		OpSetTokenFactoryAddress: func(caller models.Identity) error {
			return env.engine.SetTokenFactoryAddress(ctx, tokenAddr, caller)
		},
		OpSetSlippage: func(caller models.Identity) error {
			return env.engine.SetSlippage(ctx, 250, caller)
		},
		OpSetBridgeFee: func(caller models.Identity) error {
			return env.engine.SetBridgeFee(ctx, big.NewInt(1), caller)
		},
		OpSetTargetChainID: func(caller models.Identity) error {
			return env.engine.SetTargetChainID(ctx, 42161, caller)
		},
		OpSetStrictTransitions: func(caller models.Identity) error {
			return env.engine.SetStrictTransitions(ctx, false, caller)
		},
	}

	for name, set := range setters {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, set(bob), models.ErrUnauthorized)
			assert.ErrorIs(t, set(""), models.ErrUnauthorized)
			assert.NoError(t, set(owner))
		})
	}

	settings, err := env.engine.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash-new-oracle", settings.OracleAddress)
	assert.Equal(t, tokenAddr, settings.TokenFactoryAddress)
	assert.Equal(t, uint64(250), settings.SlippageBps)
	assert.Equal(t, "1", settings.BridgeFee.String())
	assert.Equal(t, uint64(42161), settings.TargetChainID)
	assert.False(t, settings.StrictTransitions)
}

func TestSetterValidation(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.engine.SetSlippage(ctx, 10000, owner), models.ErrInvalidSlippage)
	assert.NoError(t, env.engine.SetSlippage(ctx, 9999, owner))

	assert.ErrorIs(t, env.engine.SetBridgeFee(ctx, big.NewInt(-1), owner), models.ErrAmountOutOfRange)
	assert.ErrorIs(t, env.engine.SetBridgeFee(ctx, nil, owner), models.ErrAmountOutOfRange)

	assert.ErrorIs(t, env.engine.SetTokenFactoryAddress(ctx, "0x1234", owner), models.ErrInvalidEthAddress)

	settings, err := env.engine.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9999), settings.SlippageBps)
	assert.Equal(t, "2000000000", settings.BridgeFee.String())
	assert.Equal(t, factoryAddr, settings.TokenFactoryAddress)
}

func TestTransferOwnership(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.engine.TransferOwnership(ctx, bob, alice), models.ErrUnauthorized)
	assert.ErrorIs(t, env.engine.TransferOwnership(ctx, "", owner), models.ErrUnauthorized)

	require.NoError(t, env.engine.TransferOwnership(ctx, bob, owner))
	assert.ErrorIs(t, env.engine.SetSlippage(ctx, 10, owner), models.ErrUnauthorized)
	assert.NoError(t, env.engine.SetSlippage(ctx, 10, bob))

	gotOwner, err := env.engine.Owner(ctx)
	require.NoError(t, err)
	assert.Equal(t, bob, gotOwner)
}

func TestListIntents(t *testing.T) {
	env := newInitializedEnv(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		env.create(t, alice, big.NewInt(int64(100*(i+1))))
	}
	_, err := env.engine.SetIntentPrices(ctx, 2, big.NewInt(1), big.NewInt(1), alice)
	require.NoError(t, err)

	created := models.StatusCreated
	intents, err := env.engine.ListIntents(ctx, &created, 0)
	require.NoError(t, err)
	require.Len(t, intents, 3)
	assert.Equal(t, uint64(1), intents[0].ID)
	assert.Equal(t, uint64(3), intents[1].ID)

	all, err := env.engine.ListIntents(ctx, nil, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	next, err := env.engine.ListIntentsAfter(ctx, &created, 1, 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, uint64(3), next[0].ID)
}

func TestLifecycleOnSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settler.db")
	st, err := store.OpenSQLite(ctx, path)
	require.NoError(t, err)

	env := newTestEnv(t, st)
	require.NoError(t, env.engine.Initialize(ctx, owner, oracleAddr, factoryAddr))
	id := env.create(t, alice, big.NewInt(1000))
	_, err = env.engine.SetIntentPrices(ctx, id, big.NewInt(100_000_000), big.NewInt(200_000_000), alice)
	require.NoError(t, err)

	env.factory.FailWith(errors.New("insufficient funds"))
	_, err = env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	assert.ErrorIs(t, err, models.ErrBurnFailed)
	assert.Equal(t, models.StatusPriced, env.status(t, id))

	env.factory.FailWith(nil)
	_, err = env.engine.ExecuteIntentWithBurn(ctx, idString(id), tokenAddr, recipient, alice)
	require.NoError(t, err)
	require.NoError(t, env.engine.CompleteIntent(ctx, id, alice))
	require.NoError(t, st.Close())

	reopened, err := store.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	engine := New(reopened, nil, nil)
	intent, err := engine.GetIntent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, intent.Status)
	assert.Equal(t, "495", intent.MinAmountOut.String())

	newID, err := engine.CreateIntent(ctx, CreateIntentRequest{AmountIn: big.NewInt(1)}, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), newID)
}
