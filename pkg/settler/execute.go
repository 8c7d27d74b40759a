package settler

import (
	"context"
	"strconv"
	"time"

	"github.com/speedrun-hq/speedrun-settler/pkg/bridge"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

// ExecuteIntent moves an intent to executing and notifies relayers without
// burning anything. The recipient is passed through unvalidated.
func (e *Engine) ExecuteIntent(ctx context.Context, intentID, ethRecipient string, caller models.Identity) error {
	id, err := ParseIntentID(OpExecuteIntent, intentID)
	if err != nil {
		return e.observe(OpExecuteIntent, err)
	}

	var event models.IntentExecuted
	err = e.update(ctx, OpExecuteIntent, func(tx store.Tx, settings *models.Settings) error {
		intent, err := e.beginExecution(ctx, tx, OpExecuteIntent, settings, id, caller)
		if err != nil {
			return err
		}
		if err := tx.SaveIntent(ctx, intent); err != nil {
			return err
		}

		event = models.IntentExecuted{
			IntentID:     intent.ID,
			User:         intent.User,
			EthRecipient: ethRecipient,
			Timestamp:    e.timestamp(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.IntentsExecuted.WithLabelValues("notify").Inc()
	e.logger.Notice("Intent %d executing, recipient %s", id, ethRecipient)
	e.emitter.Emit(event)
	return nil
}

// ExecuteIntentWithBurn moves an intent to executing and burns its input
// amount through the token factory, attaching the configured bridge fee.
// A failed burn rolls back the status change.
func (e *Engine) ExecuteIntentWithBurn(ctx context.Context, intentID, targetToken, ethRecipient string, caller models.Identity) (*bridge.BurnReceipt, error) {
	id, err := ParseIntentID(OpExecuteIntentWithBurn, intentID)
	if err != nil {
		return nil, e.observe(OpExecuteIntentWithBurn, err)
	}

	var (
		event   models.IntentExecuted
		receipt *bridge.BurnReceipt
		chainID uint64
	)
	err = e.update(ctx, OpExecuteIntentWithBurn, func(tx store.Tx, settings *models.Settings) error {
		intent, err := e.beginExecution(ctx, tx, OpExecuteIntentWithBurn, settings, id, caller)
		if err != nil {
			return err
		}

		recipient, err := bridge.ParseEthRecipient(ethRecipient)
		if err != nil {
			return err
		}
		if !settings.HasTokenFactory() {
			return models.NewError(models.CodeTokenFactoryNotSet, OpExecuteIntentWithBurn, "configure a token factory address first")
		}
		amount, err := bridge.NarrowAmount(intent.AmountIn)
		if err != nil {
			return err
		}

		// the status write precedes the burn, a burn failure discards both
		if err := tx.SaveIntent(ctx, intent); err != nil {
			return err
		}

		chainID = settings.TargetChainID
		receipt, err = e.burn(ctx, bridge.BurnRequest{
			IntentID:      intent.ID,
			Factory:       settings.TokenFactoryAddress,
			Token:         targetToken,
			Amount:        amount,
			Recipient:     recipient,
			TargetChainID: settings.TargetChainID,
			Fee:           settings.BridgeFee,
		})
		if err != nil {
			return err
		}

		event = models.IntentExecuted{
			IntentID:     intent.ID,
			User:         intent.User,
			EthRecipient: ethRecipient,
			Timestamp:    e.timestamp(),
			Burned:       true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IntentsExecuted.WithLabelValues("burn").Inc()
	e.logger.NoticeWithChain(chainID, "Intent %d executing, burned for %s in tx %s", id, ethRecipient, receipt.TxHash.Hex())
	e.emitter.Emit(event)
	return receipt, nil
}

// beginExecution loads the intent, checks the caller and transition, and returns it marked executing
func (e *Engine) beginExecution(ctx context.Context, tx store.Tx, op string, settings *models.Settings, id uint64, caller models.Identity) (*models.Intent, error) {
	intent, err := loadIntent(ctx, tx, op, id)
	if err != nil {
		return nil, err
	}
	if err := requireCreator(op, intent, caller); err != nil {
		return nil, err
	}
	if err := checkTransition(op, settings, intent, models.StatusExecuting); err != nil {
		return nil, err
	}
	intent.Status = models.StatusExecuting
	return intent, nil
}

func (e *Engine) burn(ctx context.Context, req bridge.BurnRequest) (*bridge.BurnReceipt, error) {
	chainLabel := strconv.FormatUint(req.TargetChainID, 10)
	start := time.Now()

	receipt, err := e.factory.Burn(ctx, req)
	metrics.BurnDuration.WithLabelValues(chainLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Burns.WithLabelValues(chainLabel, "failure").Inc()
		e.logger.ErrorWithChain(req.TargetChainID, "Burn for intent %d failed: %v", req.IntentID, err)
		return nil, models.WrapError(models.CodeBurnFailed, OpExecuteIntentWithBurn, err)
	}
	if receipt == nil {
		receipt = &bridge.BurnReceipt{}
	}

	metrics.Burns.WithLabelValues(chainLabel, "success").Inc()
	return receipt, nil
}
