package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/pricing"
)

const (
	// DefaultEndpoint is the CoinGecko simple price API
	DefaultEndpoint = "https://api.coingecko.com/api/v3/simple/price"

	// DefaultInterval is how often the feeder refreshes prices
	DefaultInterval = 5 * time.Minute

	requestTimeout = 10 * time.Second
)

// coinGeckoIDs maps each feed to its CoinGecko coin id
var coinGeckoIDs = map[string]string{
	BTCUSD:  "bitcoin",
	ETHUSD:  "ethereum",
	CSPRUSD: "casper-network",
}

// Feeder periodically fetches USD prices and submits them to the oracle as its owner
type Feeder struct {
	oracle     *Oracle
	endpoint   string
	caller     models.Identity
	interval   time.Duration
	httpClient *http.Client
	logger     logger.Logger
	now        func() time.Time
}

// NewFeeder creates a feeder. An empty endpoint uses CoinGecko and a
// non-positive interval uses DefaultInterval.
func NewFeeder(o *Oracle, endpoint string, caller models.Identity, interval time.Duration, log logger.Logger) *Feeder {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Feeder{
		oracle:     o,
		endpoint:   endpoint,
		caller:     caller,
		interval:   interval,
		httpClient: createHTTPClient(),
		logger:     log,
		now:        time.Now,
	}
}

// Run updates prices immediately and then on every tick until ctx is done
func (f *Feeder) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	if err := f.Update(ctx); err != nil {
		f.logger.Error("Failed to update oracle prices: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := f.Update(ctx); err != nil {
				f.logger.Error("Failed to update oracle prices: %v", err)
			}
		case <-ctx.Done():
			f.logger.Info("Price feeder stopped")
			return
		}
	}
}

// Update fetches every feed once and submits the prices it received.
// Feeds missing from the response are skipped and counted.
func (f *Feeder) Update(ctx context.Context) error {
	prices, err := f.fetchPrices(ctx)
	if err != nil {
		metrics.PriceFeedErrors.WithLabelValues("fetch").Inc()
		return err
	}

	timestamp := uint64(f.now().Unix())
	submitted := 0
	for _, feed := range Feeds() {
		price, ok := prices[coinGeckoIDs[feed]]
		if !ok {
			metrics.PriceFeedErrors.WithLabelValues("missing").Inc()
			f.logger.Debug("No price for %s in response", feed)
			continue
		}

		value, err := ToFixedPoint(price)
		if err != nil {
			metrics.PriceFeedErrors.WithLabelValues("invalid").Inc()
			f.logger.Error("Invalid price for %s: %v", feed, err)
			continue
		}

		if err := f.oracle.SubmitPrice(ctx, f.caller, feed, value, timestamp); err != nil {
			metrics.PriceFeedErrors.WithLabelValues("submit").Inc()
			return fmt.Errorf("failed to submit %s: %w", feed, err)
		}
		submitted++
		f.logger.Debug("Submitted %s = %s", feed, value.String())
	}

	f.logger.Info("Updated %d/%d oracle prices", submitted, len(coinGeckoIDs))
	return nil
}

// ToFixedPoint converts a positive USD price to the 1e8 fixed-point scale, rounding to nearest
func ToFixedPoint(price float64) (*big.Int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("price must be a positive finite number, got %v", price)
	}

	scaled := new(big.Float).Mul(big.NewFloat(price), new(big.Float).SetInt(pricing.PriceScale))
	scaled.Add(scaled, big.NewFloat(0.5))

	value, _ := scaled.Int(nil)
	return value, nil
}

// fetchPrices returns USD prices keyed by CoinGecko id
func (f *Feeder) fetchPrices(ctx context.Context) (map[string]float64, error) {
	ids := make([]string, 0, len(coinGeckoIDs))
	for _, feed := range Feeds() {
		ids = append(ids, coinGeckoIDs[feed])
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")

	timeoutCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, f.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %v", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			f.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var result map[string]map[string]float64
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %v", err)
	}

	prices := make(map[string]float64, len(result))
	for id, quote := range result {
		if usd, ok := quote["usd"]; ok {
			prices[id] = usd
		}
	}
	return prices, nil
}

func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
