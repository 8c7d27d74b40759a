package tokenfactory

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
)

func TestBurnCost(t *testing.T) {
	tests := []struct {
		name     string
		gasPrice *big.Int
		gasLimit uint64
		expected string
	}{
		{"nil gas price", nil, 300000, "0"},
		{"zero gas price", big.NewInt(0), 300000, "0"},
		{"20 gwei", big.NewInt(20_000_000_000), 300000, "6000000000000000"},
		{"1 gwei high limit", big.NewInt(1_000_000_000), 3000000, "3000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BurnCost(tt.gasPrice, tt.gasLimit).String())
		})
	}
}

func TestMonitorRefresh(t *testing.T) {
	_, keyHex := testKey(t)
	var buf bytes.Buffer
	client, err := New(context.Background(), newFakeBackend(), keyHex,
		WithGasMultiplier(1.5),
		WithLogger(logger.NewWriterLogger(&buf, false, logger.DebugLevel)),
	)
	require.NoError(t, err)

	m := NewMonitor(client, time.Minute)
	assert.Nil(t, m.GasPrice())
	assert.Nil(t, m.Balance())

	m.Refresh(context.Background())

	assert.Equal(t, "3000000000", m.GasPrice().String())
	assert.Equal(t, "2000000000000000000", m.Balance().String())
	assert.NotContains(t, buf.String(), "below the cost")
}

func TestMonitorWarnsOnLowBalance(t *testing.T) {
	_, keyHex := testKey(t)
	backend := newFakeBackend()
	backend.balance = big.NewInt(1000)

	var buf bytes.Buffer
	client, err := New(context.Background(), backend, keyHex,
		WithLogger(logger.NewWriterLogger(&buf, false, logger.DebugLevel)),
	)
	require.NoError(t, err)

	m := NewMonitor(client, time.Minute)
	m.Refresh(context.Background())

	assert.Equal(t, "1000", m.Balance().String())
	assert.Contains(t, buf.String(), "below the cost of one burn")
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	_, keyHex := testKey(t)
	client, err := New(context.Background(), newFakeBackend(), keyHex)
	require.NoError(t, err)

	m := NewMonitor(client, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return m.IsRunning() && m.GasPrice() != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.False(t, m.IsRunning())
}
