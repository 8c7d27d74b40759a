package models

import (
	"math/big"
)

const (
	// DefaultSlippageBps is the slippage tolerance applied until the owner changes it (1%)
	DefaultSlippageBps = 100

	// DefaultTargetChainID is the chain burns are bridged to until the owner changes it
	DefaultTargetChainID = 1

	// DefaultBridgeFee is the native fee attached to every burn, in base units
	DefaultBridgeFee = "2000000000"

	// FirstIntentID is the identifier assigned to the first intent
	FirstIntentID = 1
)

// Settings holds the owner controlled configuration singletons and the intent counter
type Settings struct {
	Owner               Identity `json:"owner"`
	OracleAddress       string   `json:"oracle_address"`
	TokenFactoryAddress string   `json:"token_factory_address,omitempty"`
	SlippageBps         uint64   `json:"slippage_bps"`
	BridgeFee           *big.Int `json:"bridge_fee"`
	TargetChainID       uint64   `json:"target_chain_id"`
	NextIntentID        uint64   `json:"next_intent_id"`
	StrictTransitions   bool     `json:"strict_transitions"`
}

// NewSettings returns settings owned by owner with all defaults applied
func NewSettings(owner Identity, oracleAddress string) *Settings {
	fee, _ := new(big.Int).SetString(DefaultBridgeFee, 10)
	return &Settings{
		Owner:             owner.Normalize(),
		OracleAddress:     oracleAddress,
		SlippageBps:       DefaultSlippageBps,
		BridgeFee:         fee,
		TargetChainID:     DefaultTargetChainID,
		NextIntentID:      FirstIntentID,
		StrictTransitions: true,
	}
}

// HasTokenFactory returns true once a token factory address is configured
func (s *Settings) HasTokenFactory() bool {
	return s.TokenFactoryAddress != ""
}

// TotalIntents returns the number of intents allocated so far
func (s *Settings) TotalIntents() uint64 {
	if s.NextIntentID < FirstIntentID {
		return 0
	}
	return s.NextIntentID - FirstIntentID
}

// Clone returns a deep copy of the settings
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	c := *s
	c.BridgeFee = cloneInt(s.BridgeFee)
	return &c
}
