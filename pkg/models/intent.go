package models

import (
	"fmt"
	"math/big"
	"strings"
)

// Identity identifies an account that invokes settlement operations
type Identity string

// Normalize trims surrounding whitespace from the identity
func (i Identity) Normalize() Identity {
	return Identity(strings.TrimSpace(string(i)))
}

// IsZero returns true if the identity is empty
func (i Identity) IsZero() bool {
	return i.Normalize() == ""
}

// Equal compares two identities, an empty identity never matches
func (i Identity) Equal(other Identity) bool {
	if i.IsZero() || other.IsZero() {
		return false
	}
	return i.Normalize() == other.Normalize()
}

func (i Identity) String() string {
	return string(i)
}

// Status represents the lifecycle state of an intent
type Status uint8

const (
	StatusCreated Status = iota
	StatusPriced
	StatusExecuting
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusCreated:   "created",
	StatusPriced:    "priced",
	StatusExecuting: "executing",
	StatusCompleted: "completed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Valid returns true if the status is one of the known states
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus parses a status from its name or numeric code
func ParseStatus(value string) (Status, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for status, name := range statusNames {
		if name == value || fmt.Sprintf("%d", uint8(status)) == value {
			return status, nil
		}
	}
	return 0, fmt.Errorf("invalid status: %s", value)
}

// Intent represents a user request to swap or bridge a token across chains
type Intent struct {
	ID           uint64   `json:"intent_id"`
	User         Identity `json:"user"`
	SourceChain  string   `json:"source_chain"`
	DestChain    string   `json:"dest_chain"`
	TokenIn      string   `json:"token_in"`
	TokenOut     string   `json:"token_out"`
	AmountIn     *big.Int `json:"amount_in"`
	MinAmountOut *big.Int `json:"min_amount_out"`
	PriceIn      *big.Int `json:"price_in"`
	PriceOut     *big.Int `json:"price_out"`
	Timestamp    uint64   `json:"timestamp"`
	Status       Status   `json:"status"`
}

// Clone returns a deep copy of the intent
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	c := *i
	c.AmountIn = cloneInt(i.AmountIn)
	c.MinAmountOut = cloneInt(i.MinAmountOut)
	c.PriceIn = cloneInt(i.PriceIn)
	c.PriceOut = cloneInt(i.PriceOut)
	return &c
}

// IntentExecuted is published when an intent moves to the executing state
type IntentExecuted struct {
	IntentID     uint64   `json:"intent_id"`
	User         Identity `json:"user"`
	EthRecipient string   `json:"eth_recipient"`
	Timestamp    uint64   `json:"timestamp"`
	Burned       bool     `json:"burned"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
