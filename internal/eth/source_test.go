package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
)

type callKey struct {
	to       common.Address
	selector string
}

type response struct {
	out []byte
	err error
}

// fakeChain answers eth_call by target and 4-byte selector. Queued responses
// are served before the fixed one.
type fakeChain struct {
	mu     sync.Mutex
	fixed  map[callKey][]byte
	queued map[callKey][]response
	calls  map[callKey]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		fixed:  make(map[callKey][]byte),
		queued: make(map[callKey][]response),
		calls:  make(map[callKey]int),
	}
}

func key(to common.Address, contract abi.ABI, method string) callKey {
	return callKey{to: to, selector: string(contract.Methods[method].ID)}
}

func (f *fakeChain) respond(t *testing.T, to common.Address, contract abi.ABI, method string, values ...interface{}) {
	t.Helper()
	out, err := contract.Methods[method].Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	f.fixed[key(to, contract, method)] = out
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := callKey{to: *msg.To, selector: string(msg.Data[:4])}
	f.calls[k]++
	if q := f.queued[k]; len(q) > 0 {
		f.queued[k] = q[1:]
		return q[0].out, q[0].err
	}
	// unknown targets behave like an address with no code
	return f.fixed[k], nil
}

func (f *fakeChain) count(k callKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[k]
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxTries: 3, CallTimeout: time.Second, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

var (
	testPool = common.HexToAddress("0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11") // DAI/WETH
)

func seedPool(t *testing.T, chain *fakeChain) {
	chain.respond(t, testPool, pairABI, "token0", DAIAddress)
	chain.respond(t, testPool, pairABI, "token1", WETHAddress)
	chain.respond(t, testPool, pairABI, "getReserves", big.NewInt(5_000_000), big.NewInt(2_000), uint32(1700000000))
	chain.respond(t, DAIAddress, erc20ABI, "symbol", "DAI")
	chain.respond(t, WETHAddress, erc20ABI, "symbol", "WETH")
}

func TestChainSourceReserves(t *testing.T) {
	chain := newFakeChain()
	seedPool(t, chain)
	src, err := NewChainSource(chain, fastRetry(), 16)
	if err != nil {
		t.Fatal(err)
	}

	r, err := src.GetReserves(context.Background(), testPool)
	if err != nil {
		t.Fatalf("GetReserves: %v", err)
	}
	if r.Reserve0.Uint64() != 5_000_000 || r.Reserve1.Uint64() != 2_000 {
		t.Errorf("reserves = %s / %s", r.Reserve0, r.Reserve1)
	}
}

func TestChainSourceTokenOrderCached(t *testing.T) {
	chain := newFakeChain()
	seedPool(t, chain)
	src, err := NewChainSource(chain, fastRetry(), 16)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		t0, t1, err := src.GetPoolTokenOrder(context.Background(), testPool)
		if err != nil {
			t.Fatalf("GetPoolTokenOrder: %v", err)
		}
		if t0.Symbol != "DAI" || t0.Address != DAIAddress || t1.Symbol != "WETH" {
			t.Errorf("token order = %s, %s", t0, t1)
		}
	}
	if n := chain.count(key(testPool, pairABI, "token0")); n != 1 {
		t.Errorf("token0 read %d times, want 1", n)
	}
}

func TestChainSourceNotFound(t *testing.T) {
	chain := newFakeChain()
	src, err := NewChainSource(chain, fastRetry(), 16)
	if err != nil {
		t.Fatal(err)
	}

	// no code at the address: empty return data, not retried
	_, err = src.GetReserves(context.Background(), testPool)
	if !errors.Is(err, arbitrage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := chain.count(key(testPool, pairABI, "getReserves")); n != 1 {
		t.Errorf("empty result retried %d times", n)
	}

	_, err = src.GetReserves(context.Background(), common.Address{})
	if !errors.Is(err, arbitrage.ErrNotFound) {
		t.Errorf("zero address: expected ErrNotFound, got %v", err)
	}

	k := key(testPool, pairABI, "token0")
	chain.queued[k] = []response{{err: errors.New("execution reverted")}}
	_, _, err = src.GetPoolTokenOrder(context.Background(), testPool)
	if !errors.Is(err, arbitrage.ErrNotFound) {
		t.Errorf("revert: expected ErrNotFound, got %v", err)
	}
}

// codeChain adds account code lookups to fakeChain
type codeChain struct {
	*fakeChain
	code     map[common.Address][]byte
	codeErrs []error
	lookups  int
}

func (c *codeChain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if len(c.codeErrs) > 0 {
		err := c.codeErrs[0]
		c.codeErrs = c.codeErrs[1:]
		return nil, err
	}
	return c.code[account], nil
}

func TestEmptyResultChecksCode(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		errs    []error
		want    error
		msg     string
		lookups int
	}{
		{"no contract", nil, nil, arbitrage.ErrNotFound, "no contract at", 1},
		{"live contract", []byte{0x60, 0x80}, nil, arbitrage.ErrNotFound, "returned no data for getReserves", 1},
		{"lookup recovers", nil, []error{errors.New("connection reset")}, arbitrage.ErrNotFound, "no contract at", 2},
		{"lookup keeps failing", nil, []error{errors.New("a"), errors.New("b"), errors.New("c")}, arbitrage.ErrUnavailable, "code at", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &codeChain{fakeChain: newFakeChain(), code: map[common.Address][]byte{testPool: tt.code}, codeErrs: tt.errs}
			src, err := NewChainSource(chain, fastRetry(), 16)
			if err != nil {
				t.Fatal(err)
			}

			_, err = src.GetReserves(context.Background(), testPool)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("expected %q in %v", tt.msg, err)
			}
			if chain.lookups != tt.lookups {
				t.Errorf("code looked up %d times, want %d", chain.lookups, tt.lookups)
			}
		})
	}
}

func TestChainSourceRetry(t *testing.T) {
	chain := newFakeChain()
	seedPool(t, chain)
	src, err := NewChainSource(chain, fastRetry(), 16)
	if err != nil {
		t.Fatal(err)
	}

	k := key(testPool, pairABI, "getReserves")
	chain.queued[k] = []response{{err: errors.New("429 too many requests")}, {err: errors.New("EOF")}}

	r, err := src.GetReserves(context.Background(), testPool)
	if err != nil {
		t.Fatalf("expected success on third try, got %v", err)
	}
	if r.Reserve0.Uint64() != 5_000_000 {
		t.Errorf("reserve0 = %s", r.Reserve0)
	}
	if n := chain.count(k); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}

	chain.queued[k] = []response{{err: errors.New("a")}, {err: errors.New("b")}, {err: errors.New("c")}}
	_, err = src.GetReserves(context.Background(), testPool)
	if !errors.Is(err, arbitrage.ErrUnavailable) {
		t.Errorf("exhausted retries: expected ErrUnavailable, got %v", err)
	}
}

func TestTokenSymbolBytes32(t *testing.T) {
	mkr := common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2")
	chain := newFakeChain()

	var raw [32]byte
	copy(raw[:], "MKR")
	chain.fixed[key(mkr, erc20ABI, "symbol")] = raw[:]

	src, err := NewChainSource(chain, fastRetry(), 16)
	if err != nil {
		t.Fatal(err)
	}
	sym, err := src.TokenSymbol(context.Background(), mkr)
	if err != nil {
		t.Fatalf("TokenSymbol: %v", err)
	}
	if sym != "MKR" {
		t.Errorf("symbol = %q", sym)
	}
}

func TestTokenInfo(t *testing.T) {
	chain := newFakeChain()
	chain.respond(t, DAIAddress, erc20ABI, "name", "Dai Stablecoin")
	chain.respond(t, DAIAddress, erc20ABI, "symbol", "DAI")
	chain.respond(t, DAIAddress, erc20ABI, "decimals", uint8(18))

	src, err := NewChainSource(chain, fastRetry(), 16)
	if err != nil {
		t.Fatal(err)
	}
	name, sym, dec, err := src.TokenInfo(context.Background(), DAIAddress)
	if err != nil {
		t.Fatalf("TokenInfo: %v", err)
	}
	if name != "Dai Stablecoin" || sym != "DAI" || dec != 18 {
		t.Errorf("TokenInfo = %s %s %d", name, sym, dec)
	}
}

func TestFactory(t *testing.T) {
	uni, _ := DEXByName("Uniswap")
	chain := newFakeChain()
	chain.respond(t, uni.Factory, factoryABI, "allPairsLength", big.NewInt(412_345))

	f := NewFactory(chain, uni, fastRetry())
	n, err := f.AllPairsLength(context.Background())
	if err != nil {
		t.Fatalf("AllPairsLength: %v", err)
	}
	if n != 412_345 {
		t.Errorf("AllPairsLength = %d", n)
	}

	// getPair answers the zero address for unknown pairs
	chain.respond(t, uni.Factory, factoryABI, "getPair", common.Address{})
	_, err = f.GetPair(context.Background(), DAIAddress, WBTCAddress)
	if !errors.Is(err, arbitrage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	chain.respond(t, uni.Factory, factoryABI, "getPair", testPool)
	pair, err := f.GetPair(context.Background(), DAIAddress, WETHAddress)
	if err != nil || pair != testPool {
		t.Errorf("GetPair = %s, %v", pair.Hex(), err)
	}
}

func TestLoadPool(t *testing.T) {
	chain := newFakeChain()
	seedPool(t, chain)
	src, err := NewChainSource(chain, fastRetry(), 16)
	if err != nil {
		t.Fatal(err)
	}

	pool, err := LoadPool(context.Background(), src, testPool)
	if err != nil {
		t.Fatalf("LoadPool: %v", err)
	}
	price, err := arbitrage.PoolPrice(pool.Reserves)
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprintf("%.4f", price); got != "0.0004" {
		t.Errorf("WETH per DAI = %s", got)
	}
}
