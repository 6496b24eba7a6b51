package eth

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
)

type tokenOrder struct {
	token0, token1 arbitrage.Token
}

// ChainSource reads pool state over JSON-RPC. A pool's tokens never change
// so token order and symbols are cached; reserves are read fresh every time.
type ChainSource struct {
	client  Caller
	retry   RetryConfig
	orders  *lru.Cache[common.Address, tokenOrder]
	symbols *lru.Cache[common.Address, string]
}

func NewChainSource(client Caller, retry RetryConfig, cacheSize int) (*ChainSource, error) {
	if cacheSize < 1 {
		cacheSize = 1024
	}
	orders, err := lru.New[common.Address, tokenOrder](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("token order cache: %w", err)
	}
	symbols, err := lru.New[common.Address, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("symbol cache: %w", err)
	}

	return &ChainSource{client: client, retry: retry, orders: orders, symbols: symbols}, nil
}

var _ arbitrage.ReserveSource = (*ChainSource)(nil)

// GetReserves reads getReserves() at the latest block
func (s *ChainSource) GetReserves(ctx context.Context, pool common.Address) (arbitrage.Reserves, error) {
	unpacked, err := call(ctx, s.client, s.retry, pool, pairABI, "getReserves")
	if err != nil {
		return arbitrage.Reserves{}, err
	}
	if len(unpacked) < 2 {
		return arbitrage.Reserves{}, fmt.Errorf("unexpected unpack result length: %d", len(unpacked))
	}

	reserve0, err := toUint256(unpacked[0])
	if err != nil {
		return arbitrage.Reserves{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := toUint256(unpacked[1])
	if err != nil {
		return arbitrage.Reserves{}, fmt.Errorf("reserve1: %w", err)
	}

	return arbitrage.Reserves{Reserve0: reserve0, Reserve1: reserve1}, nil
}

// GetPoolTokenOrder returns the pool's token0 and token1 with their symbols
func (s *ChainSource) GetPoolTokenOrder(ctx context.Context, pool common.Address) (arbitrage.Token, arbitrage.Token, error) {
	if cached, ok := s.orders.Get(pool); ok {
		return cached.token0, cached.token1, nil
	}

	addr0, err := s.tokenAddress(ctx, pool, "token0")
	if err != nil {
		return arbitrage.Token{}, arbitrage.Token{}, err
	}
	addr1, err := s.tokenAddress(ctx, pool, "token1")
	if err != nil {
		return arbitrage.Token{}, arbitrage.Token{}, err
	}

	sym0, err := s.TokenSymbol(ctx, addr0)
	if err != nil {
		return arbitrage.Token{}, arbitrage.Token{}, fmt.Errorf("token0 symbol: %w", err)
	}
	sym1, err := s.TokenSymbol(ctx, addr1)
	if err != nil {
		return arbitrage.Token{}, arbitrage.Token{}, fmt.Errorf("token1 symbol: %w", err)
	}

	order := tokenOrder{
		token0: arbitrage.Token{Symbol: sym0, Address: addr0},
		token1: arbitrage.Token{Symbol: sym1, Address: addr1},
	}
	s.orders.Add(pool, order)
	return order.token0, order.token1, nil
}

func (s *ChainSource) tokenAddress(ctx context.Context, pool common.Address, method string) (common.Address, error) {
	unpacked, err := call(ctx, s.client, s.retry, pool, pairABI, method)
	if err != nil {
		return common.Address{}, err
	}
	if len(unpacked) != 1 {
		return common.Address{}, fmt.Errorf("unexpected %s result length: %d", method, len(unpacked))
	}
	addr, ok := unpacked[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s type assertion failed", method)
	}
	return addr, nil
}

// TokenSymbol reads ERC20 symbol(). Older tokens (MKR, SAI) return bytes32
// instead of string; both are accepted.
func (s *ChainSource) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	if sym, ok := s.symbols.Get(token); ok {
		return sym, nil
	}

	raw, err := callRaw(ctx, s.client, s.retry, token, erc20ABI, "symbol")
	if err != nil {
		return "", err
	}

	sym, err := decodeStringOrBytes32(raw, "symbol")
	if err != nil {
		return "", err
	}
	s.symbols.Add(token, sym)
	return sym, nil
}

// TokenInfo returns name, symbol and decimals for display
func (s *ChainSource) TokenInfo(ctx context.Context, token common.Address) (name, symbol string, decimals uint8, err error) {
	raw, err := callRaw(ctx, s.client, s.retry, token, erc20ABI, "name")
	if err != nil {
		return "", "", 0, err
	}
	if name, err = decodeStringOrBytes32(raw, "name"); err != nil {
		return "", "", 0, err
	}

	if symbol, err = s.TokenSymbol(ctx, token); err != nil {
		return "", "", 0, err
	}

	unpacked, err := call(ctx, s.client, s.retry, token, erc20ABI, "decimals")
	if err != nil {
		return "", "", 0, err
	}
	d, ok := unpacked[0].(uint8)
	if !ok {
		return "", "", 0, fmt.Errorf("decimals type assertion failed")
	}
	return name, symbol, d, nil
}

func decodeStringOrBytes32(raw []byte, method string) (string, error) {
	unpacked, err := erc20ABI.Unpack(method, raw)
	if err == nil && len(unpacked) == 1 {
		if s, ok := unpacked[0].(string); ok {
			return s, nil
		}
	}
	if len(raw) == 32 {
		return string(bytes.TrimRight(raw, "\x00")), nil
	}
	return "", fmt.Errorf("unpack %s: unsupported return encoding (%d bytes)", method, len(raw))
}

func toUint256(v interface{}) (*uint256.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("type assertion failed: %T", v)
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("value %s overflows uint256", b)
	}
	return u, nil
}
