package arbitrage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// a Token is identified by its address; the symbol is only a display label
type Token struct {
	Symbol  string
	Address common.Address
}

func (t Token) String() string {
	if t.Address == (common.Address{}) {
		return t.Symbol
	}
	return fmt.Sprintf("%s(%s)", t.Symbol, t.Address.Hex())
}

// PairInfo is one normalised catalog record: two tokens and the pool trading them
type PairInfo struct {
	Token0 Token
	Token1 Token
	Pool   common.Address
}

// Reserves are raw base-unit balances as returned by getReserves (uint112 on chain)
type Reserves struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

func NewReserves(r0, r1 uint64) Reserves {
	return Reserves{Reserve0: uint256.NewInt(r0), Reserve1: uint256.NewInt(r1)}
}

// Degenerate reports whether either side is missing or zero
func (r Reserves) Degenerate() bool {
	return r.Reserve0 == nil || r.Reserve1 == nil || r.Reserve0.IsZero() || r.Reserve1.IsZero()
}

// Pool is a uniswapv2 style AMM pool with its live reserves
type Pool struct {
	Address  common.Address
	Token0   Token
	Token1   Token
	Reserves Reserves
}

// Triangle is a closed 3-cycle of graph nodes. Node order follows graph
// enumeration order and defines the forward traversal A->B->C->A.
type Triangle struct {
	A, B, C string
}

func (t Triangle) Nodes() [3]string {
	return [3]string{t.A, t.B, t.C}
}

func (t Triangle) Contains(node string) bool {
	return t.A == node || t.B == node || t.C == node
}

func (t Triangle) String() string {
	return fmt.Sprintf("%s-%s-%s", t.A, t.B, t.C)
}

// Leg is one pool edge of a priced triangle, stored in forward order.
// Token keys are the pool's token0/token1 mapped through the graph NodeKey.
type Leg struct {
	From, To  string
	Pool      Pool
	Token0Key string
	Token1Key string
}

// PricedTriangle is a triangle whose three pools have been read from chain
type PricedTriangle struct {
	Triangle Triangle
	Legs     [3]Leg // A->B, B->C, C->A
}

// Factors holds the cycle multipliers for both traversal directions
type Factors struct {
	ForwardRaw float64
	ReverseRaw float64
	Forward    float64
	Reverse    float64
}

// Profitable is true when either post-fee direction returns more than it started with
func (f Factors) Profitable() bool {
	return f.Forward > 1 || f.Reverse > 1
}

// Best returns the better post-fee direction; forward wins ties
func (f Factors) Best() (factor float64, forward bool) {
	if f.Reverse > f.Forward {
		return f.Reverse, false
	}
	return f.Forward, true
}
