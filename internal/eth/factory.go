package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
)

// Factory wraps a Uniswap V2 style factory contract
type Factory struct {
	client Caller
	retry  RetryConfig
	dex    DEXConfig
}

func NewFactory(client Caller, dex DEXConfig, retry RetryConfig) *Factory {
	return &Factory{client: client, dex: dex, retry: retry}
}

func (f *Factory) Name() string { return f.dex.Name }

// GetPair returns the pair address for two tokens. The factory answers the
// zero address for pairs it never created, which is reported as ErrNotFound.
func (f *Factory) GetPair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	unpacked, err := call(ctx, f.client, f.retry, f.dex.Factory, factoryABI, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	pair, ok := unpacked[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("getPair type assertion failed")
	}
	if pair == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s %s/%s: %w", f.dex.Name, tokenA.Hex(), tokenB.Hex(), arbitrage.ErrNotFound)
	}
	return pair, nil
}

// AllPairsLength is the number of pairs the factory has deployed
func (f *Factory) AllPairsLength(ctx context.Context) (uint64, error) {
	unpacked, err := call(ctx, f.client, f.retry, f.dex.Factory, factoryABI, "allPairsLength")
	if err != nil {
		return 0, err
	}
	n, ok := unpacked[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("allPairsLength type assertion failed")
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("allPairsLength %s overflows uint64", n)
	}
	return n.Uint64(), nil
}

// LoadPool reads a pool's tokens and reserves in one go
func LoadPool(ctx context.Context, src *ChainSource, pool common.Address) (*arbitrage.Pool, error) {
	token0, token1, err := src.GetPoolTokenOrder(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("fetch tokens: %w", err)
	}

	reserves, err := src.GetReserves(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("fetch reserves: %w", err)
	}

	return &arbitrage.Pool{
		Address:  pool,
		Token0:   token0,
		Token1:   token1,
		Reserves: reserves,
	}, nil
}
