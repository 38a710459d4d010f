package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"valuationScope/internal/chain"
)

// PairMeta is the immutable identity of a V2 pair: its two token addresses
// and the decimals of the LP token it mints (the pair contract itself).
type PairMeta struct {
	Token0   common.Address
	Token1   common.Address
	Decimals uint8
}

// PairState is the mutable pair state read at a block height.
type PairState struct {
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
}

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string
	Decimals uint8
	Symbol   string
	Name     string
}

// PairMetaCache caches pair identity by address.
type PairMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]PairMeta
}

func NewPairMetaCache() *PairMetaCache {
	return &PairMetaCache{data: make(map[common.Address]PairMeta)}
}

func (c *PairMetaCache) Get(address common.Address) (PairMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PairMetaCache) Set(address common.Address, meta PairMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetchPairMeta loads immutable pair identity from chain.
func FetchPairMeta(ctx context.Context, chainClient *chain.Client, pair common.Address) (PairMeta, error) {
	if chainClient == nil {
		return PairMeta{}, fmt.Errorf("chain client is nil")
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return PairMeta{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := callPairMethod(ctx, chainClient, pair, pairABI, "token0", nil)
	if err != nil {
		return PairMeta{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return PairMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callPairMethod(ctx, chainClient, pair, pairABI, "token1", nil)
	if err != nil {
		return PairMeta{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return PairMeta{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callPairMethod(ctx, chainClient, pair, pairABI, "decimals", nil)
	if err != nil {
		return PairMeta{}, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return PairMeta{}, fmt.Errorf("decimals: %w", err)
	}

	return PairMeta{Token0: token0, Token1: token1, Decimals: decimals}, nil
}

// FetchPairState loads reserves and LP total supply at a block height (nil
// block means latest).
func FetchPairState(ctx context.Context, chainClient *chain.Client, pair common.Address, blockNumber *big.Int) (PairState, error) {
	if chainClient == nil {
		return PairState{}, fmt.Errorf("chain client is nil")
	}

	pairABI, err := V2PairABI()
	if err != nil {
		return PairState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := callPairMethod(ctx, chainClient, pair, pairABI, "getReserves", blockNumber)
	if err != nil {
		return PairState{}, err
	}
	if len(values) < 2 {
		return PairState{}, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return PairState{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return PairState{}, fmt.Errorf("reserve1: %w", err)
	}

	values, err = callPairMethod(ctx, chainClient, pair, pairABI, "totalSupply", blockNumber)
	if err != nil {
		return PairState{}, err
	}
	supply, err := asBigInt(values[0])
	if err != nil {
		return PairState{}, fmt.Errorf("total supply: %w", err)
	}

	return PairState{Reserve0: reserve0, Reserve1: reserve1, TotalSupply: supply}, nil
}

func callPairMethod(ctx context.Context, chainClient *chain.Client, pair common.Address, pairABI abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := pairABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pair, Data: data}
	resp, err := chainClient.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := pairABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls, falling back to the
// bytes32 ABI for non-standard symbol/name implementations.
func FetchTokenMeta(ctx context.Context, chainClient *chain.Client, token common.Address, logger *zap.Logger) (TokenMeta, error) {
	meta := TokenMeta{Address: token.Hex()}
	if chainClient == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &token, Data: data}
		resp, err := chainClient.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
