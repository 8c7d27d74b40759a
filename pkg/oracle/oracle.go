// Package oracle holds owner-submitted USD prices for an allow-listed set of
// feeds, scaled by 1e8, and a feeder that keeps them current.
package oracle

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/pricing"
)

// Supported price feeds
const (
	BTCUSD  = "BTC_USD"
	ETHUSD  = "ETH_USD"
	CSPRUSD = "CSPR_USD"
)

const (
	OpInitialize  = "oracle_init"
	OpSubmitPrice = "submit_price"
	OpGetOwner    = "get_owner"
	OpTokenPrice  = "token_price"
)

var feeds = map[string]bool{
	BTCUSD:  true,
	ETHUSD:  true,
	CSPRUSD: true,
}

// tokenFeeds maps token symbols to the feed that prices them
var tokenFeeds = map[string]string{
	"BTC":  BTCUSD,
	"WBTC": BTCUSD,
	"ETH":  ETHUSD,
	"WETH": ETHUSD,
	"CSPR": CSPRUSD,
}

// stablecoins are priced at exactly one dollar
var stablecoins = map[string]bool{
	"USDC": true,
	"USDT": true,
}

// Feeds returns the supported feeds in sorted order
func Feeds() []string {
	result := make([]string, 0, len(feeds))
	for feed := range feeds {
		result = append(result, feed)
	}
	sort.Strings(result)
	return result
}

// IsValidFeed reports whether feed is on the allow-list
func IsValidFeed(feed string) bool {
	return feeds[feed]
}

// FeedForToken returns the feed for a token symbol. Stablecoins report
// stable=true and have no feed.
func FeedForToken(symbol string) (feed string, stable bool, ok bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if stablecoins[symbol] {
		return "", true, true
	}
	feed, ok = tokenFeeds[symbol]
	return feed, false, ok
}

// Snapshot is a point-in-time copy of the oracle state
type Snapshot struct {
	Owner      models.Identity   `json:"owner,omitempty"`
	LastUpdate uint64            `json:"last_update"`
	Prices     map[string]string `json:"prices"`
}

// Oracle stores the latest price per feed. Only the owner may submit.
type Oracle struct {
	mu         sync.RWMutex
	owner      models.Identity
	prices     map[string]*big.Int
	lastUpdate uint64
}

// New creates an uninitialized oracle
func New() *Oracle {
	return &Oracle{
		prices: make(map[string]*big.Int),
	}
}

// Initialize records the owner. It can only be done once.
func (o *Oracle) Initialize(owner models.Identity) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.owner.IsZero() {
		return models.NewError(models.CodeAlreadyInitialized, OpInitialize, "oracle already owned by %s", o.owner)
	}
	if owner.IsZero() {
		return models.NewError(models.CodeUnauthorized, OpInitialize, "owner must not be empty")
	}
	o.owner = owner.Normalize()
	return nil
}

// SubmitPrice overwrites the price of feed and the last update timestamp
func (o *Oracle) SubmitPrice(_ context.Context, caller models.Identity, feed string, value *big.Int, timestamp uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.owner.IsZero() {
		return models.NewError(models.CodeNotInitialized, OpSubmitPrice, "oracle has no owner")
	}
	if !o.owner.Equal(caller) {
		return models.NewError(models.CodeUnauthorized, OpSubmitPrice, "%s is not the oracle owner", caller.Normalize())
	}
	if !IsValidFeed(feed) {
		return models.NewError(models.CodeInvalidPriceFeed, OpSubmitPrice, "unsupported price feed %q", feed)
	}
	if !pricing.FitsAmount(value) {
		return models.NewError(models.CodeAmountOutOfRange, OpSubmitPrice, "price must be a %d-bit unsigned value", pricing.AmountBits)
	}

	o.prices[feed] = new(big.Int).Set(value)
	o.lastUpdate = timestamp

	usd, _ := new(big.Float).Quo(new(big.Float).SetInt(value), new(big.Float).SetInt(pricing.PriceScale)).Float64()
	metrics.OraclePrice.WithLabelValues(feed).Set(usd)
	return nil
}

// GetPrice returns the latest price for feed, zero when never submitted
func (o *Oracle) GetPrice(feed string) *big.Int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if price, ok := o.prices[feed]; ok {
		return new(big.Int).Set(price)
	}
	return new(big.Int)
}

// GetLastUpdate returns the timestamp of the latest submission
func (o *Oracle) GetLastUpdate() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastUpdate
}

// GetOwner returns the owner or NotInitialized
func (o *Oracle) GetOwner() (models.Identity, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.owner.IsZero() {
		return "", models.NewError(models.CodeNotInitialized, OpGetOwner, "oracle has no owner")
	}
	return o.owner, nil
}

// PriceForToken returns the 1e8-scaled USD price of a token symbol
func (o *Oracle) PriceForToken(symbol string) (*big.Int, error) {
	feed, stable, ok := FeedForToken(symbol)
	if !ok {
		return nil, models.NewError(models.CodeInvalidPriceFeed, OpTokenPrice, "no price feed for token %q", symbol)
	}
	if stable {
		return new(big.Int).Set(pricing.PriceScale), nil
	}
	return o.GetPrice(feed), nil
}

// Snapshot copies the current state
func (o *Oracle) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	prices := make(map[string]string, len(o.prices))
	for feed, price := range o.prices {
		prices[feed] = price.String()
	}
	return Snapshot{
		Owner:      o.owner,
		LastUpdate: o.lastUpdate,
		Prices:     prices,
	}
}
