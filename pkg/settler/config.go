package settler

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/speedrun-settler/pkg/chains"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/pricing"
	"github.com/speedrun-hq/speedrun-settler/pkg/store"
)

// Settings returns a snapshot of the configuration
func (e *Engine) Settings(ctx context.Context) (*models.Settings, error) {
	var snapshot *models.Settings
	err := e.view(ctx, OpGetSettings, func(_ store.Tx, settings *models.Settings) error {
		snapshot = settings
		return nil
	})
	return snapshot, err
}

// settingsOrZero returns the settings, or empty settings before initialization
func (e *Engine) settingsOrZero(ctx context.Context) (*models.Settings, error) {
	settings, err := e.Settings(ctx)
	if models.CodeOf(err) == models.CodeNotInitialized {
		return &models.Settings{}, nil
	}
	return settings, err
}

// Owner returns the owner, empty before initialization
func (e *Engine) Owner(ctx context.Context) (models.Identity, error) {
	settings, err := e.settingsOrZero(ctx)
	if err != nil {
		return "", err
	}
	return settings.Owner, nil
}

// OracleAddress returns the oracle address, empty before initialization
func (e *Engine) OracleAddress(ctx context.Context) (string, error) {
	settings, err := e.settingsOrZero(ctx)
	if err != nil {
		return "", err
	}
	return settings.OracleAddress, nil
}

// TokenFactoryAddress returns the token factory address, empty when unset
func (e *Engine) TokenFactoryAddress(ctx context.Context) (string, error) {
	settings, err := e.settingsOrZero(ctx)
	if err != nil {
		return "", err
	}
	return settings.TokenFactoryAddress, nil
}

// configure applies mutate to the settings after checking that caller is the owner
func (e *Engine) configure(ctx context.Context, op string, caller models.Identity, mutate func(settings *models.Settings) error) error {
	return e.update(ctx, op, func(tx store.Tx, settings *models.Settings) error {
		if err := requireOwner(op, settings, caller); err != nil {
			return err
		}
		if err := mutate(settings); err != nil {
			return err
		}
		return tx.SaveSettings(ctx, settings)
	})
}

// SetOracleAddress replaces the oracle address
func (e *Engine) SetOracleAddress(ctx context.Context, address string, caller models.Identity) error {
	err := e.configure(ctx, OpSetOracleAddress, caller, func(settings *models.Settings) error {
		settings.OracleAddress = address
		return nil
	})
	if err == nil {
		e.logger.Notice("Oracle address set to %s", address)
	}
	return err
}

// SetTokenFactoryAddress replaces the token factory contract address
func (e *Engine) SetTokenFactoryAddress(ctx context.Context, address string, caller models.Identity) error {
	err := e.configure(ctx, OpSetTokenFactoryAddress, caller, func(settings *models.Settings) error {
		if err := validateFactoryAddress(OpSetTokenFactoryAddress, address); err != nil {
			return err
		}
		settings.TokenFactoryAddress = address
		return nil
	})
	if err == nil {
		e.logger.Notice("Token factory address set to %s", address)
	}
	return err
}

// SetSlippage sets the slippage tolerance in basis points, which must be below 10000
func (e *Engine) SetSlippage(ctx context.Context, slippageBps uint64, caller models.Identity) error {
	err := e.configure(ctx, OpSetSlippage, caller, func(settings *models.Settings) error {
		if slippageBps >= pricing.BpsDenominator {
			return models.NewError(models.CodeInvalidSlippage, OpSetSlippage, "slippage %d bps must be below %d", slippageBps, pricing.BpsDenominator)
		}
		settings.SlippageBps = slippageBps
		return nil
	})
	if err == nil {
		e.logger.Notice("Slippage set to %d bps", slippageBps)
	}
	return err
}

// SetBridgeFee sets the native fee attached to every burn
func (e *Engine) SetBridgeFee(ctx context.Context, fee *big.Int, caller models.Identity) error {
	err := e.configure(ctx, OpSetBridgeFee, caller, func(settings *models.Settings) error {
		if !pricing.FitsAmount(fee) {
			return models.NewError(models.CodeAmountOutOfRange, OpSetBridgeFee, "fee must be a %d-bit unsigned value", pricing.AmountBits)
		}
		settings.BridgeFee = new(big.Int).Set(fee)
		return nil
	})
	if err == nil {
		e.logger.Notice("Bridge fee set to %s", fee.String())
	}
	return err
}

// SetTargetChainID sets the chain burned tokens are bridged to
func (e *Engine) SetTargetChainID(ctx context.Context, chainID uint64, caller models.Identity) error {
	err := e.configure(ctx, OpSetTargetChainID, caller, func(settings *models.Settings) error {
		settings.TargetChainID = chainID
		return nil
	})
	if err != nil {
		return err
	}

	if !chains.IsSupported(chainID) {
		e.logger.Notice("Target chain set to %d, which is not a known chain", chainID)
	} else {
		e.logger.NoticeWithChain(chainID, "Target chain set to %s", chains.Describe(chainID))
	}
	return nil
}

// SetStrictTransitions switches between enforced and unchecked status transitions
func (e *Engine) SetStrictTransitions(ctx context.Context, strict bool, caller models.Identity) error {
	err := e.configure(ctx, OpSetStrictTransitions, caller, func(settings *models.Settings) error {
		settings.StrictTransitions = strict
		return nil
	})
	if err == nil {
		e.logger.Notice("Strict transitions set to %t", strict)
	}
	return err
}

// TransferOwnership hands configuration authority to newOwner
func (e *Engine) TransferOwnership(ctx context.Context, newOwner models.Identity, caller models.Identity) error {
	err := e.configure(ctx, OpTransferOwnership, caller, func(settings *models.Settings) error {
		if newOwner.IsZero() {
			return models.NewError(models.CodeUnauthorized, OpTransferOwnership, "new owner must not be empty")
		}
		settings.Owner = newOwner.Normalize()
		return nil
	})
	if err == nil {
		e.logger.Notice("Ownership transferred from %s to %s", caller.Normalize(), newOwner.Normalize())
	}
	return err
}

func validateFactoryAddress(op, address string) error {
	if !common.IsHexAddress(address) {
		return models.NewError(models.CodeInvalidEthAddress, op, "token factory address %q is not a valid EVM address", address)
	}
	return nil
}
