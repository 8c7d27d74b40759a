package chains

import (
	"fmt"
	"sort"
)

// Chain IDs of the EVM networks burned tokens can be bridged to
const (
	Ethereum  = 1
	BSC       = 56
	Polygon   = 137
	Base      = 8453
	Arbitrum  = 42161
	Avalanche = 43114
	Sepolia   = 11155111
)

// chainNames maps chain IDs to their names
var chainNames = map[uint64]string{
	Ethereum:  "ETHEREUM",
	BSC:       "BSC",
	Polygon:   "POLYGON",
	Base:      "BASE",
	Arbitrum:  "ARBITRUM",
	Avalanche: "AVALANCHE",
	Sepolia:   "SEPOLIA",
}

// BurnDefaultGasLimit is the gas limit used for burn transactions when estimation fails
var BurnDefaultGasLimit = map[uint64]uint64{
	Ethereum:  300000,
	BSC:       300000,
	Polygon:   300000,
	Base:      300000,
	Arbitrum:  1000000,
	Avalanche: 300000,
	Sepolia:   300000,
}

// FallbackGasLimit applies to chains missing from BurnDefaultGasLimit
const FallbackGasLimit = 300000

// GetChainName returns the name of the chain for a given chain ID
func GetChainName(chainID uint64) string {
	name, exists := chainNames[chainID]
	if !exists {
		return ""
	}
	return name
}

// IsSupported returns true if chainID is a known bridge target
func IsSupported(chainID uint64) bool {
	_, exists := chainNames[chainID]
	return exists
}

// GasLimit returns the burn gas limit for the chain
func GasLimit(chainID uint64) uint64 {
	if limit, ok := BurnDefaultGasLimit[chainID]; ok {
		return limit
	}
	return FallbackGasLimit
}

// Describe renders a chain ID with its name, e.g. "1 (ETHEREUM)"
func Describe(chainID uint64) string {
	if name := GetChainName(chainID); name != "" {
		return fmt.Sprintf("%d (%s)", chainID, name)
	}
	return fmt.Sprintf("%d", chainID)
}

// ChainList returns the supported chain IDs in ascending order
func ChainList() []uint64 {
	ids := make([]uint64, 0, len(chainNames))
	for id := range chainNames {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
