package settler

import (
	"context"
	"math"
	"math/big"

	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/pricing"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

// CreateIntentRequest describes a new intent
type CreateIntentRequest struct {
	SourceChain string
	DestChain   string
	TokenIn     string
	TokenOut    string
	AmountIn    *big.Int
}

// Initialize stores the settings singleton with caller as owner. It can run only once.
func (e *Engine) Initialize(ctx context.Context, caller models.Identity, oracleAddress, tokenFactoryAddress string) error {
	err := e.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.NewError(models.CodeAlreadyInitialized, OpInitialize, "owner is %q", existing.Owner)
		}
		if caller.IsZero() {
			return models.NewError(models.CodeUnauthorized, OpInitialize, "caller identity is required")
		}
		if tokenFactoryAddress != "" {
			if err := validateFactoryAddress(OpInitialize, tokenFactoryAddress); err != nil {
				return err
			}
		}

		settings := models.NewSettings(caller, oracleAddress)
		settings.TokenFactoryAddress = tokenFactoryAddress
		settings.StrictTransitions = e.strictTransitions
		return tx.SaveSettings(ctx, settings)
	})
	if err := e.observe(OpInitialize, err); err != nil {
		return err
	}

	e.logger.Notice("Settler initialized, owner %s, oracle %s", caller.Normalize(), oracleAddress)
	return nil
}

// CreateIntent allocates the next intent id and stores the intent as created
func (e *Engine) CreateIntent(ctx context.Context, req CreateIntentRequest, caller models.Identity) (uint64, error) {
	var id uint64
	err := e.update(ctx, OpCreateIntent, func(tx store.Tx, settings *models.Settings) error {
		if caller.IsZero() {
			return models.NewError(models.CodeUnauthorized, OpCreateIntent, "caller identity is required")
		}
		if !pricing.FitsAmount(req.AmountIn) {
			return models.NewError(models.CodeAmountOutOfRange, OpCreateIntent, "amount_in must be a %d-bit unsigned value", pricing.AmountBits)
		}
		if settings.NextIntentID == math.MaxUint64 {
			return models.NewError(models.CodeArithmeticOverflow, OpCreateIntent, "intent counter exhausted")
		}

		id = settings.NextIntentID
		intent := &models.Intent{
			ID:           id,
			User:         caller.Normalize(),
			SourceChain:  req.SourceChain,
			DestChain:    req.DestChain,
			TokenIn:      req.TokenIn,
			TokenOut:     req.TokenOut,
			AmountIn:     new(big.Int).Set(req.AmountIn),
			MinAmountOut: new(big.Int),
			PriceIn:      new(big.Int),
			PriceOut:     new(big.Int),
			Timestamp:    e.timestamp(),
			Status:       models.StatusCreated,
		}
		if err := tx.SaveIntent(ctx, intent); err != nil {
			return err
		}

		settings.NextIntentID++
		return tx.SaveSettings(ctx, settings)
	})
	if err != nil {
		return 0, err
	}

	metrics.IntentsCreated.Inc()
	e.logger.Info("Intent %d created by %s: %s %s on %s -> %s on %s", id, caller.Normalize(),
		req.AmountIn.String(), req.TokenIn, req.SourceChain, req.TokenOut, req.DestChain)
	return id, nil
}

// GetIntent returns the intent or a NotFound error
func (e *Engine) GetIntent(ctx context.Context, id uint64) (*models.Intent, error) {
	var intent *models.Intent
	err := e.view(ctx, OpGetIntent, func(tx store.Tx, _ *models.Settings) error {
		var err error
		intent, err = loadIntent(ctx, tx, OpGetIntent, id)
		return err
	})
	return intent, err
}

// LookupIntent returns the intent, or nil without error if it does not exist
func (e *Engine) LookupIntent(ctx context.Context, id uint64) (*models.Intent, error) {
	intent, err := e.GetIntent(ctx, id)
	if models.CodeOf(err) == models.CodeNotFound {
		return nil, nil
	}
	return intent, err
}

// GetTotalIntents returns the number of intents created so far
func (e *Engine) GetTotalIntents(ctx context.Context) (uint64, error) {
	var total uint64
	err := e.view(ctx, OpGetTotalIntents, func(_ store.Tx, settings *models.Settings) error {
		total = settings.TotalIntents()
		return nil
	})
	return total, err
}

// ListIntents returns intents in id order, optionally filtered by status.
// A non-positive limit returns every match.
func (e *Engine) ListIntents(ctx context.Context, status *models.Status, limit int) ([]*models.Intent, error) {
	return e.ListIntentsAfter(ctx, status, 0, limit)
}

// ListIntentsAfter is ListIntents restricted to ids greater than afterID
func (e *Engine) ListIntentsAfter(ctx context.Context, status *models.Status, afterID uint64, limit int) ([]*models.Intent, error) {
	var intents []*models.Intent
	err := e.view(ctx, OpListIntents, func(tx store.Tx, _ *models.Settings) error {
		var err error
		intents, err = tx.Intents(ctx, store.IntentFilter{Status: status, AfterID: afterID, Limit: limit})
		return err
	})
	return intents, err
}

// SetIntentPrices records oracle prices for an intent and derives its minimum
// output from the configured slippage. Any non-empty caller may price an intent.
func (e *Engine) SetIntentPrices(ctx context.Context, id uint64, priceIn, priceOut *big.Int, caller models.Identity) (*pricing.Quote, error) {
	var quote *pricing.Quote
	err := e.update(ctx, OpSetIntentPrices, func(tx store.Tx, settings *models.Settings) error {
		if caller.IsZero() {
			return models.NewError(models.CodeUnauthorized, OpSetIntentPrices, "caller identity is required")
		}
		intent, err := loadIntent(ctx, tx, OpSetIntentPrices, id)
		if err != nil {
			return err
		}
		if err := checkTransition(OpSetIntentPrices, settings, intent, models.StatusPriced); err != nil {
			return err
		}

		quote, err = pricing.MinAmountOut(intent.AmountIn, priceIn, priceOut, settings.SlippageBps)
		if err != nil {
			return err
		}

		intent.PriceIn = new(big.Int).Set(priceIn)
		intent.PriceOut = new(big.Int).Set(priceOut)
		intent.MinAmountOut = quote.MinAmountOut
		intent.Status = models.StatusPriced
		return tx.SaveIntent(ctx, intent)
	})
	if err != nil {
		return nil, err
	}

	metrics.IntentsPriced.Inc()
	e.logger.Info("Intent %d priced by %s: value %s USD, min out %s", id, caller.Normalize(),
		quote.ValueUSD.String(), quote.MinAmountOut.String())
	return quote, nil
}

// CompleteIntent marks an intent completed. Only its creator may complete it.
func (e *Engine) CompleteIntent(ctx context.Context, id uint64, caller models.Identity) error {
	err := e.update(ctx, OpCompleteIntent, func(tx store.Tx, settings *models.Settings) error {
		intent, err := loadIntent(ctx, tx, OpCompleteIntent, id)
		if err != nil {
			return err
		}
		if err := requireCreator(OpCompleteIntent, intent, caller); err != nil {
			return err
		}
		if err := checkTransition(OpCompleteIntent, settings, intent, models.StatusCompleted); err != nil {
			return err
		}

		intent.Status = models.StatusCompleted
		return tx.SaveIntent(ctx, intent)
	})
	if err != nil {
		return err
	}

	metrics.IntentsCompleted.Inc()
	e.logger.Info("Intent %d completed", id)
	return nil
}
