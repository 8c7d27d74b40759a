package bridge

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// FakeTokenFactory records burn requests in memory and can be told to fail.
// It backs local runs without an RPC endpoint and the engine tests.
type FakeTokenFactory struct {
	mu    sync.Mutex
	calls []BurnRequest
	err   error
}

// NewFakeTokenFactory creates a fake that accepts every burn
func NewFakeTokenFactory() *FakeTokenFactory {
	return &FakeTokenFactory{}
}

// FailWith makes subsequent burns return err, nil restores success
func (f *FakeTokenFactory) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Burn records the request and returns a deterministic receipt
func (f *FakeTokenFactory) Burn(ctx context.Context, req BurnRequest) (*BurnReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	f.calls = append(f.calls, req)

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uint64(len(f.calls)))
	hash := crypto.Keccak256Hash(common.HexToAddress(req.Token).Bytes(), req.Recipient.Bytes(), seq[:])
	return &BurnReceipt{TxHash: hash}, nil
}

// Calls returns a copy of the recorded requests
func (f *FakeTokenFactory) Calls() []BurnRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]BurnRequest, len(f.calls))
	copy(calls, f.calls)
	return calls
}
