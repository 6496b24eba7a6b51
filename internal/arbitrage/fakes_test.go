package arbitrage

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	poolX = common.HexToAddress("0x000000000000000000000000000000000000aa01")
	poolY = common.HexToAddress("0x000000000000000000000000000000000000aa02")
	poolZ = common.HexToAddress("0x000000000000000000000000000000000000aa03")
	poolW = common.HexToAddress("0x000000000000000000000000000000000000aa04")
)

func tok(sym string) Token {
	return Token{Symbol: sym}
}

func pair(a, b string, pool common.Address) PairInfo {
	return PairInfo{Token0: tok(a), Token1: tok(b), Pool: pool}
}

type fakePool struct {
	token0, token1 Token
	reserves       Reserves
	orderErr       error
	reservesErr    error
	hang           bool
}

// fakeSource serves fixed pool state; unknown pools are ErrNotFound
type fakeSource struct {
	mu    sync.Mutex
	pools map[common.Address]fakePool
	calls map[common.Address]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pools: make(map[common.Address]fakePool),
		calls: make(map[common.Address]int),
	}
}

func (f *fakeSource) set(pool common.Address, token0, token1 string, r0, r1 uint64) {
	f.pools[pool] = fakePool{token0: tok(token0), token1: tok(token1), reserves: NewReserves(r0, r1)}
}

func (f *fakeSource) GetPoolTokenOrder(ctx context.Context, pool common.Address) (Token, Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[pool]++
	p, ok := f.pools[pool]
	if !ok {
		return Token{}, Token{}, ErrNotFound
	}
	if p.orderErr != nil {
		return Token{}, Token{}, p.orderErr
	}
	return p.token0, p.token1, nil
}

// hang makes reserve reads for pool block until the caller gives up
func (f *fakeSource) hang(pool common.Address) {
	p := f.pools[pool]
	p.hang = true
	f.pools[pool] = p
}

func (f *fakeSource) GetReserves(ctx context.Context, pool common.Address) (Reserves, error) {
	f.mu.Lock()
	p, ok := f.pools[pool]
	f.mu.Unlock()
	if p.hang {
		<-ctx.Done()
		return Reserves{}, ctx.Err()
	}
	if !ok {
		return Reserves{}, ErrNotFound
	}
	if p.reservesErr != nil {
		return Reserves{}, p.reservesErr
	}
	return p.reserves, nil
}

func (f *fakeSource) callCount(pool common.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pool]
}

type fakeCatalog struct {
	pairs []PairInfo
	err   error
	limit int
}

func (c *fakeCatalog) ListTopPairs(ctx context.Context, limit int) ([]PairInfo, error) {
	c.limit = limit
	if c.err != nil {
		return nil, c.err
	}
	if limit < len(c.pairs) {
		return c.pairs[:limit], nil
	}
	return c.pairs, nil
}

// triangleABC is the worked example: A/B (10,20), B/C (5,5), C/A (3,30),
// with the first-named token as token0 in each pool
func triangleABC() ([]PairInfo, *fakeSource) {
	pairs := []PairInfo{
		pair("A", "B", poolX),
		pair("B", "C", poolY),
		pair("C", "A", poolZ),
	}
	src := newFakeSource()
	src.set(poolX, "A", "B", 10, 20)
	src.set(poolY, "B", "C", 5, 5)
	src.set(poolZ, "C", "A", 3, 30)
	return pairs, src
}
