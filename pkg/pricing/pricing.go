// Package pricing computes slippage protected output floors for intents.
//
// Prices follow the oracle fixed-point convention: a price of 1.0 USD is
// represented as 100000000 (1e8). All arithmetic runs on math/big so the
// product of two 512-bit operands never overflows before division; inputs
// and outputs are bounded to 512 bits to match the persisted width.
package pricing

import (
	"math/big"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

const (
	// BpsDenominator is the number of basis points in 100%
	BpsDenominator = 10000

	// AmountBits is the width of persisted amounts and prices
	AmountBits = 512

	op = "set_intent_prices"
)

var (
	// PriceScale is the oracle fixed-point scale (1e8)
	PriceScale = big.NewInt(100_000_000)

	// MaxAmount is the largest value representable in AmountBits (2^512 - 1)
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), AmountBits), big.NewInt(1))

	bpsDenominator = big.NewInt(BpsDenominator)
)

// Quote holds the intermediate and final values of a pricing computation
type Quote struct {
	ValueUSD     *big.Int
	ExpectedOut  *big.Int
	MinAmountOut *big.Int
}

// FitsAmount returns true if v is a non-negative value of at most AmountBits bits
func FitsAmount(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(MaxAmount) <= 0
}

// ValidateSlippage checks that the tolerance leaves a positive share of the output
func ValidateSlippage(slippageBps uint64) error {
	if slippageBps >= BpsDenominator {
		return models.NewError(models.CodeInvalidSlippage, op, "slippage %d bps must be below %d", slippageBps, BpsDenominator)
	}
	return nil
}

// MinAmountOut computes the guaranteed minimum output for amountIn:
//
//	value_usd      = amount_in * price_in / 1e8
//	expected_out   = value_usd * 1e8 / price_out
//	min_amount_out = expected_out * (10000 - slippage_bps) / 10000
//
// Every division truncates.
func MinAmountOut(amountIn, priceIn, priceOut *big.Int, slippageBps uint64) (*Quote, error) {
	if !FitsAmount(amountIn) {
		return nil, models.NewError(models.CodeAmountOutOfRange, op, "amount_in must be a %d-bit unsigned value", AmountBits)
	}
	if !FitsAmount(priceIn) || !FitsAmount(priceOut) {
		return nil, models.NewError(models.CodeInvalidPrice, op, "prices must be %d-bit unsigned values", AmountBits)
	}
	if priceOut.Sign() == 0 {
		return nil, models.NewError(models.CodeInvalidPrice, op, "price_out must be non-zero")
	}
	if err := ValidateSlippage(slippageBps); err != nil {
		return nil, err
	}

	valueUSD := new(big.Int).Mul(amountIn, priceIn)
	valueUSD.Quo(valueUSD, PriceScale)
	if !FitsAmount(valueUSD) {
		return nil, models.NewError(models.CodeArithmeticOverflow, op, "value_usd exceeds %d bits", AmountBits)
	}

	expectedOut := new(big.Int).Mul(valueUSD, PriceScale)
	expectedOut.Quo(expectedOut, priceOut)
	if !FitsAmount(expectedOut) {
		return nil, models.NewError(models.CodeArithmeticOverflow, op, "expected_out exceeds %d bits", AmountBits)
	}

	keep := new(big.Int).SetUint64(BpsDenominator - slippageBps)
	minOut := new(big.Int).Mul(expectedOut, keep)
	minOut.Quo(minOut, bpsDenominator)

	return &Quote{
		ValueUSD:     valueUSD,
		ExpectedOut:  expectedOut,
		MinAmountOut: minOut,
	}, nil
}
