package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TokenFactoryABI is the ABI of the TokenFactory contract
const TokenFactoryABI = `[
	{
		"inputs": [
			{
				"internalType": "address",
				"name": "token",
				"type": "address"
			},
			{
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			},
			{
				"internalType": "bytes20",
				"name": "ethRecipient",
				"type": "bytes20"
			},
			{
				"internalType": "uint64",
				"name": "targetChainId",
				"type": "uint64"
			}
		],
		"name": "burn",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"indexed": true,
				"internalType": "address",
				"name": "token",
				"type": "address"
			},
			{
				"indexed": true,
				"internalType": "address",
				"name": "from",
				"type": "address"
			},
			{
				"indexed": false,
				"internalType": "uint256",
				"name": "amount",
				"type": "uint256"
			},
			{
				"indexed": false,
				"internalType": "bytes20",
				"name": "ethRecipient",
				"type": "bytes20"
			},
			{
				"indexed": false,
				"internalType": "uint64",
				"name": "targetChainId",
				"type": "uint64"
			}
		],
		"name": "TokensBurned",
		"type": "event"
	}
]`

// TokenFactory is an auto generated Go binding around an Ethereum contract.
type TokenFactory struct {
	TokenFactoryTransactor // Write-only binding to the contract
	TokenFactoryFilterer   // Log filterer for contract events
}

// TokenFactoryTransactor is an auto generated write-only Go binding around an Ethereum contract.
type TokenFactoryTransactor struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// TokenFactoryFilterer is an auto generated log filtering Go binding around an Ethereum contract events.
type TokenFactoryFilterer struct {
	contract *bind.BoundContract // Generic contract wrapper for the low level calls
}

// NewTokenFactory creates a new instance of TokenFactory, bound to a specific deployed contract.
func NewTokenFactory(address common.Address, backend bind.ContractBackend) (*TokenFactory, error) {
	contract, err := bindTokenFactory(address, backend, backend, backend)
	if err != nil {
		return nil, err
	}
	return &TokenFactory{TokenFactoryTransactor: TokenFactoryTransactor{contract: contract}, TokenFactoryFilterer: TokenFactoryFilterer{contract: contract}}, nil
}

// NewTokenFactoryFilterer creates a new log filterer instance of TokenFactory, bound to a specific deployed contract.
func NewTokenFactoryFilterer(address common.Address, filterer bind.ContractFilterer) (*TokenFactoryFilterer, error) {
	contract, err := bindTokenFactory(address, nil, nil, filterer)
	if err != nil {
		return nil, err
	}
	return &TokenFactoryFilterer{contract: contract}, nil
}

// bindTokenFactory binds a generic wrapper to an already deployed contract.
func bindTokenFactory(address common.Address, caller bind.ContractCaller, transactor bind.ContractTransactor, filterer bind.ContractFilterer) (*bind.BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(TokenFactoryABI))
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(address, parsed, caller, transactor, filterer), nil
}

// Burn is a paid mutator transaction binding the contract method burn.
//
// Solidity: function burn(address token, uint256 amount, bytes20 ethRecipient, uint64 targetChainId) payable returns()
func (_TokenFactory *TokenFactoryTransactor) Burn(opts *bind.TransactOpts, token common.Address, amount *big.Int, ethRecipient [20]byte, targetChainId uint64) (*types.Transaction, error) {
	return _TokenFactory.contract.Transact(opts, "burn", token, amount, ethRecipient, targetChainId)
}

// TokenFactoryTokensBurned represents a TokensBurned event raised by the TokenFactory contract.
type TokenFactoryTokensBurned struct {
	Token         common.Address
	From          common.Address
	Amount        *big.Int
	EthRecipient  [20]byte
	TargetChainId uint64
	Raw           types.Log // Blockchain specific contextual infos
}

// ParseTokensBurned is a log parse operation binding the contract event TokensBurned.
//
// Solidity: event TokensBurned(address indexed token, address indexed from, uint256 amount, bytes20 ethRecipient, uint64 targetChainId)
func (_TokenFactory *TokenFactoryFilterer) ParseTokensBurned(log types.Log) (*TokenFactoryTokensBurned, error) {
	event := new(TokenFactoryTokensBurned)
	if err := _TokenFactory.contract.UnpackLog(event, "TokensBurned", log); err != nil {
		return nil, err
	}
	event.Raw = log
	return event, nil
}

// TokensBurnedEventID returns the topic identifying TokensBurned logs
func TokensBurnedEventID() (common.Hash, error) {
	parsed, err := abi.JSON(strings.NewReader(TokenFactoryABI))
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["TokensBurned"].ID, nil
}
