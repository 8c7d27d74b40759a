package tokenfactory

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/speedrun-hq/speedrun-settler/pkg/chains"
)

// DefaultMonitorInterval is how often the monitor refreshes gas price and balance
const DefaultMonitorInterval = time.Minute

// Monitor periodically refreshes the gas price and signer balance gauges and
// warns when the signer cannot pay for another burn
type Monitor struct {
	client   *Client
	interval time.Duration

	mu       sync.RWMutex
	gasPrice *big.Int
	balance  *big.Int
	running  bool
}

// NewMonitor creates a monitor for client
func NewMonitor(client *Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		client:   client,
		interval: interval,
	}
}

// Run refreshes immediately and then on every tick until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh(ctx)

	for {
		select {
		case <-ticker.C:
			m.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// IsRunning returns whether Run is active
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Refresh performs a single update of gas price and signer balance
func (m *Monitor) Refresh(ctx context.Context) {
	log := m.client.logger
	chainID := m.client.ChainID()

	gasPrice, err := m.client.UpdateGasPrice(ctx)
	if err != nil {
		log.ErrorWithChain(chainID, "Failed to update gas price: %v", err)
		return
	}

	balance, err := m.client.SignerBalance(ctx)
	if err != nil {
		log.ErrorWithChain(chainID, "Failed to update signer balance: %v", err)
		return
	}

	m.mu.Lock()
	m.gasPrice = gasPrice
	m.balance = balance
	m.mu.Unlock()

	cost := BurnCost(gasPrice, chains.GasLimit(chainID))
	if balance.Cmp(cost) < 0 {
		log.ErrorWithChain(chainID, "Signer %s balance %s wei is below the cost of one burn (%s wei)",
			m.client.Signer().Hex(), balance, cost)
		return
	}
	log.DebugWithChain(chainID, "Gas price %s wei, signer balance %s wei", gasPrice, balance)
}

// GasPrice returns the last refreshed gas price, nil before the first refresh
func (m *Monitor) GasPrice() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gasPrice == nil {
		return nil
	}
	return new(big.Int).Set(m.gasPrice)
}

// Balance returns the last refreshed signer balance, nil before the first refresh
func (m *Monitor) Balance() *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.balance == nil {
		return nil
	}
	return new(big.Int).Set(m.balance)
}

// BurnCost is the upper bound in wei for the gas of one burn transaction,
// excluding the bridge fee sent as value
func BurnCost(gasPrice *big.Int, gasLimit uint64) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
}
