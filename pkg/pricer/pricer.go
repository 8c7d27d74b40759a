// Package pricer periodically prices newly created intents from the oracle.
package pricer

import (
	"context"
	"math/big"
	"time"

	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/pricing"
)

const (
	// DefaultInterval between pricing passes
	DefaultInterval = 30 * time.Second

	// DefaultBatchSize is the page size used to walk created intents
	DefaultBatchSize = 100
)

// Engine is the part of the settlement engine the pricer drives
type Engine interface {
	ListIntentsAfter(ctx context.Context, status *models.Status, afterID uint64, limit int) ([]*models.Intent, error)
	SetIntentPrices(ctx context.Context, id uint64, priceIn, priceOut *big.Int, caller models.Identity) (*pricing.Quote, error)
}

// PriceSource returns 1e8-scaled USD prices for token symbols
type PriceSource interface {
	PriceForToken(symbol string) (*big.Int, error)
}

// Result summarizes one pricing pass
type Result struct {
	Pending int
	Priced  int
	Skipped int
	Failed  int
}

// Pricer prices created intents on an interval
type Pricer struct {
	engine    Engine
	prices    PriceSource
	caller    models.Identity
	interval  time.Duration
	batchSize int
	logger    logger.Logger
}

// New creates a pricer that submits prices as caller
func New(engine Engine, prices PriceSource, caller models.Identity, interval time.Duration, log logger.Logger) *Pricer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Pricer{
		engine:    engine,
		prices:    prices,
		caller:    caller,
		interval:  interval,
		batchSize: DefaultBatchSize,
		logger:    log,
	}
}

// Run prices pending intents on every tick until ctx is cancelled
func (p *Pricer) Run(ctx context.Context) {
	p.logger.Info("Starting pricer with interval %v", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Pricer shutting down")
			return
		case <-ticker.C:
			if _, err := p.Tick(ctx); err != nil {
				p.logger.Error("Pricing pass failed: %v", err)
			}
		}
	}
}

// Tick runs a single pricing pass over every created intent, fetched in
// pages of batchSize. Intents whose tokens have no price yet are left for a
// later pass, and a failure on one intent does not stop the others.
func (p *Pricer) Tick(ctx context.Context) (Result, error) {
	created := models.StatusCreated
	var result Result
	var afterID uint64

	for {
		intents, err := p.engine.ListIntentsAfter(ctx, &created, afterID, p.batchSize)
		if err != nil {
			return result, err
		}
		result.Pending += len(intents)

		for _, intent := range intents {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			p.price(ctx, intent, &result)
		}

		if len(intents) < p.batchSize {
			break
		}
		afterID = intents[len(intents)-1].ID
	}

	if result.Pending > 0 {
		p.logger.Info("Priced %d of %d pending intents (%d skipped, %d failed)",
			result.Priced, result.Pending, result.Skipped, result.Failed)
	}
	metrics.PendingIntents.Set(float64(result.Pending - result.Priced))
	return result, nil
}

func (p *Pricer) price(ctx context.Context, intent *models.Intent, result *Result) {
	priceIn, priceOut, ok := p.quote(intent)
	if !ok {
		result.Skipped++
		return
	}

	quote, err := p.engine.SetIntentPrices(ctx, intent.ID, priceIn, priceOut, p.caller)
	if err != nil {
		result.Failed++
		p.logger.Error("Failed to price intent %d: %v", intent.ID, err)
		return
	}
	result.Priced++
	p.logger.Debug("Priced intent %d, min amount out %s", intent.ID, quote.MinAmountOut.String())
}

func (p *Pricer) quote(intent *models.Intent) (*big.Int, *big.Int, bool) {
	priceIn, err := p.prices.PriceForToken(intent.TokenIn)
	if err != nil {
		p.logger.Debug("Skipping intent %d: %v", intent.ID, err)
		return nil, nil, false
	}
	priceOut, err := p.prices.PriceForToken(intent.TokenOut)
	if err != nil {
		p.logger.Debug("Skipping intent %d: %v", intent.ID, err)
		return nil, nil, false
	}
	if priceIn.Sign() == 0 || priceOut.Sign() == 0 {
		p.logger.Debug("Skipping intent %d: no oracle price for %s/%s yet", intent.ID, intent.TokenIn, intent.TokenOut)
		return nil, nil, false
	}
	return priceIn, priceOut, true
}
