// Package tokenfactory burns tokens through a TokenFactory contract deployed
// on an EVM chain reached over JSON-RPC.
package tokenfactory

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/speedrun-hq/speedrun-settler/pkg/bridge"
	"github.com/speedrun-hq/speedrun-settler/pkg/chains"
	"github.com/speedrun-hq/speedrun-settler/pkg/contracts"
	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
)

const (
	// DefaultGasMultiplier adds a 10% buffer over the suggested gas price
	DefaultGasMultiplier = 1.1

	// DefaultReceiptTimeout bounds how long a burn waits to be mined
	DefaultReceiptTimeout = 2 * time.Minute

	gasPriceTimeout = 10 * time.Second
)

// Backend is the subset of an Ethereum RPC client used for burns
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client implements bridge.TokenFactory by sending burn transactions
type Client struct {
	backend        Backend
	auth           *bind.TransactOpts
	chainID        uint64
	gasMultiplier  float64
	receiptTimeout time.Duration
	logger         logger.Logger

	// burns share the signer nonce and are sent one at a time
	mu sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithGasMultiplier scales the suggested gas price, values <= 0 are ignored
func WithGasMultiplier(multiplier float64) Option {
	return func(c *Client) {
		if multiplier > 0 {
			c.gasMultiplier = multiplier
		}
	}
}

// WithReceiptTimeout bounds the wait for a burn to be mined
func WithReceiptTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.receiptTimeout = timeout
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// Dial connects to rpcURL and returns a client signing with privateKey
func Dial(ctx context.Context, rpcURL, privateKey string, opts ...Option) (*Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to client: %v", err)
	}

	c, err := New(ctx, client, privateKey, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

// New creates a client on top of an existing backend
func New(ctx context.Context, backend Backend, privateKey string, opts ...Option) (*Client, error) {
	auth, chainID, err := createAuthenticator(ctx, backend, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %v", err)
	}

	c := &Client{
		backend:        backend,
		auth:           auth,
		chainID:        chainID,
		gasMultiplier:  DefaultGasMultiplier,
		receiptTimeout: DefaultReceiptTimeout,
		logger:         &logger.EmptyLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.InfoWithChain(chainID, "Token factory client ready, signer %s", auth.From.Hex())
	return c, nil
}

// ChainID returns the chain the client sends transactions to
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// Signer returns the address burns are sent from
func (c *Client) Signer() common.Address {
	return c.auth.From
}

// UpdateGasPrice queries the network gas price and applies the multiplier
func (c *Client) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, gasPriceTimeout)
	defer cancel()

	gasPrice, err := c.backend.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	multiplied := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(c.gasMultiplier),
	)
	finalGasPrice := new(big.Int)
	multiplied.Int(finalGasPrice)

	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(finalGasPrice), big.NewFloat(1e9)).Float64()
	metrics.GasPrice.WithLabelValues(c.chainLabel()).Set(gwei)

	return finalGasPrice, nil
}

// Ping checks that the RPC endpoint answers
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.backend.HeaderByNumber(ctx, nil); err != nil {
		return fmt.Errorf("failed to get latest header: %v", err)
	}
	return nil
}

// SignerBalance returns the native balance of the signer and records it
func (c *Client) SignerBalance(ctx context.Context) (*big.Int, error) {
	balance, err := c.backend.BalanceAt(ctx, c.auth.From, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get signer balance: %v", err)
	}

	value, _ := new(big.Float).Quo(new(big.Float).SetInt(balance), big.NewFloat(1e18)).Float64()
	metrics.SignerBalance.WithLabelValues(c.chainLabel()).Set(value)
	return balance, nil
}

// Burn sends a burn transaction to req.Factory and waits until it is mined
func (c *Client) Burn(ctx context.Context, req bridge.BurnRequest) (*bridge.BurnReceipt, error) {
	if !common.IsHexAddress(req.Factory) {
		return nil, fmt.Errorf("invalid token factory address: %s", req.Factory)
	}
	if !common.IsHexAddress(req.Token) {
		return nil, fmt.Errorf("invalid token address: %s", req.Token)
	}
	if req.Amount == nil {
		return nil, fmt.Errorf("burn amount is required")
	}

	factory, err := contracts.NewTokenFactory(common.HexToAddress(req.Factory), c.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize contract: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.sendBurn(ctx, factory, req)
	if err != nil {
		return nil, err
	}
	c.logger.DebugWithChain(c.chainID, "Burn for intent %d sent in tx %s", req.IntentID, tx.Hash().Hex())

	waitCtx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for burn transaction %s: %v", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("burn transaction %s reverted", tx.Hash().Hex())
	}

	c.logBurned(factory, receipt)
	return &bridge.BurnReceipt{TxHash: tx.Hash()}, nil
}

// sendBurn submits the burn, resending with a fresh gas price and nonce when
// the node rejected the transaction before broadcasting it
func (c *Client) sendBurn(ctx context.Context, factory *contracts.TokenFactory, req bridge.BurnRequest) (*types.Transaction, error) {
	for attempt := 0; ; attempt++ {
		gasPrice, err := c.UpdateGasPrice(ctx)
		if err != nil {
			return nil, err
		}

		opts := *c.auth
		opts.Context = ctx
		opts.GasPrice = gasPrice
		opts.GasLimit = chains.GasLimit(c.chainID)
		opts.Value = new(big.Int)
		if req.Fee != nil {
			opts.Value.Set(req.Fee)
		}

		tx, err := factory.Burn(&opts, common.HexToAddress(req.Token), req.Amount.ToBig(), req.Recipient, req.TargetChainID)
		if err == nil {
			return tx, nil
		}

		kind := ClassifyError(err)
		if !resendable[kind] || attempt+1 >= maxSendAttempts {
			return nil, fmt.Errorf("failed to send burn transaction (%s): %v", kind, err)
		}

		backoff := CalculateBackoff(attempt)
		c.logger.InfoWithChain(c.chainID, "Resending burn for intent %d in %v (%s): %v", req.IntentID, backoff, kind, err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Client) logBurned(factory *contracts.TokenFactory, receipt *types.Receipt) {
	eventID, err := contracts.TokensBurnedEventID()
	if err != nil {
		return
	}
	for _, log := range receipt.Logs {
		if log == nil || len(log.Topics) == 0 || log.Topics[0] != eventID {
			continue
		}
		burned, err := factory.ParseTokensBurned(*log)
		if err != nil {
			c.logger.ErrorWithChain(c.chainID, "Failed to parse TokensBurned log: %v", err)
			continue
		}
		c.logger.InfoWithChain(c.chainID, "Burned %s of %s for %s, bridging to chain %d",
			burned.Amount.String(), burned.Token.Hex(), common.Address(burned.EthRecipient).Hex(), burned.TargetChainId)
	}
}

func (c *Client) chainLabel() string {
	return strconv.FormatUint(c.chainID, 10)
}

func createAuthenticator(ctx context.Context, backend Backend, privateKeyHex string) (*bind.TransactOpts, uint64, error) {
	if len(privateKeyHex) > 1 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse private key: %v", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get chain ID: %v", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create transactor: %v", err)
	}

	return auth, chainID.Uint64(), nil
}

var _ bridge.TokenFactory = (*Client)(nil)
