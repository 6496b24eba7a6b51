package catalog

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
)

// Listing is one pool as reported by a pair index, decoded but not yet validated
type Listing struct {
	PoolAddress   string
	Token0Symbol  string
	Token0Address string
	Token1Symbol  string
	Token1Address string
	TxCount       int64
}

// ToPairInfos normalises listings into pair records. Token addresses are
// optional (zero when absent); symbols and the pool address are required.
func ToPairInfos(listings []Listing) ([]arbitrage.PairInfo, error) {
	out := make([]arbitrage.PairInfo, 0, len(listings))
	for i, l := range listings {
		p, err := l.pairInfo(i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (l Listing) pairInfo(i int) (arbitrage.PairInfo, error) {
	sym0 := strings.TrimSpace(l.Token0Symbol)
	sym1 := strings.TrimSpace(l.Token1Symbol)
	if sym0 == "" {
		return arbitrage.PairInfo{}, &arbitrage.ValidationError{Index: i, Field: "token0.symbol", Msg: "missing"}
	}
	if sym1 == "" {
		return arbitrage.PairInfo{}, &arbitrage.ValidationError{Index: i, Field: "token1.symbol", Msg: "missing"}
	}

	pool, err := parseAddress(i, "pool", l.PoolAddress, true)
	if err != nil {
		return arbitrage.PairInfo{}, err
	}
	addr0, err := parseAddress(i, "token0.address", l.Token0Address, false)
	if err != nil {
		return arbitrage.PairInfo{}, err
	}
	addr1, err := parseAddress(i, "token1.address", l.Token1Address, false)
	if err != nil {
		return arbitrage.PairInfo{}, err
	}

	return arbitrage.PairInfo{
		Token0: arbitrage.Token{Symbol: sym0, Address: addr0},
		Token1: arbitrage.Token{Symbol: sym1, Address: addr1},
		Pool:   pool,
	}, nil
}

func parseAddress(i int, field, s string, required bool) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return common.Address{}, &arbitrage.ValidationError{Index: i, Field: field, Msg: "missing"}
		}
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, &arbitrage.ValidationError{Index: i, Field: field, Msg: "not a hex address: " + s}
	}
	return common.HexToAddress(s), nil
}

// topByTxCount orders by tx count descending, keeping input order on ties
func topByTxCount(listings []Listing, limit int) []Listing {
	sorted := append([]Listing(nil), listings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TxCount > sorted[j].TxCount
	})
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}
