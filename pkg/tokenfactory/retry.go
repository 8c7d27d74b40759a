package tokenfactory

import (
	"strings"
	"time"
)

// Send failure kinds
const (
	KindNetwork             = "network_error"
	KindNodeState           = "node_state_error"
	KindGas                 = "gas_error"
	KindNonce               = "nonce_error"
	KindInsufficientBalance = "insufficient_balance"
	KindContract            = "contract_error"
	KindUnknown             = "unknown_error"
)

const (
	maxSendAttempts = 3
	maxSendBackoff  = 30 * time.Second
)

// sendRetryBackoff is the first resend delay, doubled on every attempt
var sendRetryBackoff = 2 * time.Second

// the node rejected these before broadcasting, so sending again cannot burn twice
var resendable = map[string]bool{
	KindGas:   true,
	KindNonce: true,
}

// ClassifyError maps an RPC send error to a failure kind
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())

	switch {
	case containsAny(errStr, "nonce too low", "nonce too high", "replacement transaction underpriced"):
		return KindNonce
	case containsAny(errStr, "gas price too low", "max fee per gas less than block base fee", "transaction underpriced", "gas required exceeds allowance"):
		return KindGas
	case containsAny(errStr, "insufficient funds", "insufficient balance"):
		return KindInsufficientBalance
	case containsAny(errStr, "execution reverted", "invalid opcode", "out of gas"):
		return KindContract
	case containsAny(errStr, "missing trie node", "layer stale", "header not found", "block not found"):
		return KindNodeState
	case containsAny(errStr, "connection refused", "timeout", "timed out", "context deadline exceeded", "no response", "eof"):
		return KindNetwork
	}
	return KindUnknown
}

// CalculateBackoff returns the delay before resend attempt retryCount+1
func CalculateBackoff(retryCount int) time.Duration {
	backoff := sendRetryBackoff
	for i := 0; i < retryCount && backoff < maxSendBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxSendBackoff {
		backoff = maxSendBackoff
	}
	return backoff
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
