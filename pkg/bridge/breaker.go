package bridge

import (
	"context"
	"errors"

	"github.com/speedrun-hq/speedrun-settler/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
)

// ErrCircuitOpen is returned while the breaker rejects burns
var ErrCircuitOpen = errors.New("circuit breaker open, burn rejected")

// Breaker stops calling the token factory after repeated failures
type Breaker struct {
	next    TokenFactory
	breaker *circuitbreaker.CircuitBreaker
	logger  logger.Logger
}

// NewBreaker wraps next with cb
func NewBreaker(next TokenFactory, cb *circuitbreaker.CircuitBreaker, log logger.Logger) *Breaker {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Breaker{
		next:    next,
		breaker: cb,
		logger:  log,
	}
}

// Burn forwards the request unless the circuit is open
func (b *Breaker) Burn(ctx context.Context, req BurnRequest) (*BurnReceipt, error) {
	if b.breaker.IsOpen() {
		b.logger.ErrorWithChain(req.TargetChainID, "Rejecting burn for intent %d: circuit open", req.IntentID)
		return nil, ErrCircuitOpen
	}

	receipt, err := b.next.Burn(ctx, req)
	if err != nil {
		if ctx.Err() == nil && b.breaker.RecordFailure() {
			b.logger.ErrorWithChain(req.TargetChainID, "Burn failures tripped the circuit breaker")
		}
		return nil, err
	}

	b.breaker.RecordSuccess()
	return receipt, nil
}
