// Package bridge validates burn inputs and defines the token factory port
// used to burn tokens for bridging to an EVM chain.
package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

const (
	// RecipientPrefix must lead every recipient address
	RecipientPrefix = "0x"

	// RecipientLength is the prefix plus 40 hex digits
	RecipientLength = len(RecipientPrefix) + 2*common.AddressLength

	op = "execute_intent_with_burn"
)

// ErrUnavailable is returned by Unavailable for every burn
var ErrUnavailable = errors.New("token factory client not configured")

// ParseEthRecipient validates a 0x-prefixed 40 hex digit address and decodes it to 20 bytes
func ParseEthRecipient(value string) (common.Address, error) {
	if !strings.HasPrefix(value, RecipientPrefix) {
		return common.Address{}, models.NewError(models.CodeInvalidEthAddress, op, "recipient %q must start with %s", value, RecipientPrefix)
	}
	if len(value) != RecipientLength {
		return common.Address{}, models.NewError(models.CodeInvalidEthAddress, op, "recipient %q must be %d characters", value, RecipientLength)
	}

	raw, err := hex.DecodeString(value[len(RecipientPrefix):])
	if err != nil {
		return common.Address{}, models.NewError(models.CodeInvalidEthAddress, op, "recipient %q is not hex: %v", value, err)
	}
	return common.BytesToAddress(raw), nil
}

// NarrowAmount converts an amount to the 256-bit width of the burn interface.
// Values that do not fit are rejected rather than truncated.
func NarrowAmount(amount *big.Int) (*uint256.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, models.NewError(models.CodeAmountOutOfRange, op, "amount must be non-negative")
	}
	narrowed, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, models.NewError(models.CodeAmountOutOfRange, op, "amount %s exceeds 256 bits", amount.String())
	}
	return narrowed, nil
}

// BurnRequest carries everything the token factory needs for one burn
type BurnRequest struct {
	IntentID      uint64
	Factory       string
	Token         string
	Amount        *uint256.Int
	Recipient     common.Address
	TargetChainID uint64
	Fee           *big.Int
}

// BurnReceipt identifies a completed burn
type BurnReceipt struct {
	TxHash common.Hash
}

// TokenFactory burns tokens so that a relayer can mint them on the target chain
type TokenFactory interface {
	Burn(ctx context.Context, req BurnRequest) (*BurnReceipt, error)
}

// Unavailable is used when no signing credentials are configured; every burn fails
type Unavailable struct{}

// Burn always fails with ErrUnavailable
func (Unavailable) Burn(_ context.Context, _ BurnRequest) (*BurnReceipt, error) {
	return nil, ErrUnavailable
}
