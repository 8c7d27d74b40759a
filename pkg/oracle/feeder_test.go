package oracle

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
)

func newTestFeeder(t *testing.T, handler http.HandlerFunc) (*Feeder, *Oracle) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	o := New()
	require.NoError(t, o.Initialize("feeder"))

	f := NewFeeder(o, server.URL, "feeder", time.Hour, nil)
	f.now = func() time.Time { return time.Unix(1700000000, 0) }
	return f, o
}

func TestToFixedPoint(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{1, "100000000"},
		{65000.5, "6500050000000"},
		{0.02, "2000000"},
		{3421.87, "342187000000"},
		{0.000000004, "0"},
		{0.000000006, "1"},
	}
	for _, tt := range tests {
		value, err := ToFixedPoint(tt.price)
		require.NoError(t, err)
		assert.Equal(t, tt.want, value.String(), "price %v", tt.price)
	}

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := ToFixedPoint(bad)
		assert.Error(t, err, "price %v", bad)
	}
}

func TestFeederUpdate(t *testing.T) {
	var query string
	f, o := newTestFeeder(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000.5},"ethereum":{"usd":3421.87},"casper-network":{"usd":0.02}}`))
	})

	require.NoError(t, f.Update(context.Background()))

	assert.Contains(t, query, "vs_currencies=usd")
	assert.Contains(t, query, "ids=bitcoin%2Ccasper-network%2Cethereum")
	assert.Equal(t, "6500050000000", o.GetPrice(BTCUSD).String())
	assert.Equal(t, "342187000000", o.GetPrice(ETHUSD).String())
	assert.Equal(t, "2000000", o.GetPrice(CSPRUSD).String())
	assert.Equal(t, uint64(1700000000), o.GetLastUpdate())
	assert.InDelta(t, 65000.5, testutil.ToFloat64(metrics.OraclePrice.WithLabelValues(BTCUSD)), 1e-6)
}

func TestFeederSkipsMissingFeeds(t *testing.T) {
	f, o := newTestFeeder(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000},"ethereum":{"eur":3000}}`))
	})

	before := testutil.ToFloat64(metrics.PriceFeedErrors.WithLabelValues("missing"))
	require.NoError(t, f.Update(context.Background()))

	assert.Equal(t, "6500000000000", o.GetPrice(BTCUSD).String())
	assert.Equal(t, int64(0), o.GetPrice(ETHUSD).Int64())
	assert.Equal(t, int64(0), o.GetPrice(CSPRUSD).Int64())
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.PriceFeedErrors.WithLabelValues("missing")))
}

func TestFeederErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		f, o := newTestFeeder(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		})
		err := f.Update(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Equal(t, uint64(0), o.GetLastUpdate())
	})

	t.Run("bad json", func(t *testing.T) {
		f, _ := newTestFeeder(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})
		err := f.Update(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse JSON")
	})

	t.Run("not the owner", func(t *testing.T) {
		f, _ := newTestFeeder(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
		})
		f.caller = "someone-else"
		err := f.Update(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unauthorized")
	})
}

func TestFeederRunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	f, _ := newTestFeeder(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feeder did not stop")
	}
}
