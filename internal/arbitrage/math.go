package arbitrage

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// SpotRate is reserveOut/reserveIn: units of the out token one unit of the in
// token buys at the pool's spot price, on raw base units (no decimals).
func SpotRate(reserveIn, reserveOut *uint256.Int) (float64, error) {
	if reserveIn == nil || reserveOut == nil || reserveIn.IsZero() || reserveOut.IsZero() {
		return 0, ErrDegenerateCycle
	}

	in := new(big.Float).SetInt(reserveIn.ToBig())
	out := new(big.Float).SetInt(reserveOut.ToBig())

	rate, _ := new(big.Float).Quo(out, in).Float64()
	return rate, nil
}

// DirectedWeight prices traversing a pool starting from node `from`:
// reserve1/reserve0 when from is the pool's token0, reserve0/reserve1 otherwise.
func DirectedWeight(from string, leg Leg) (float64, error) {
	r := leg.Pool.Reserves
	if from == leg.Token0Key {
		return SpotRate(r.Reserve0, r.Reserve1)
	}
	return SpotRate(r.Reserve1, r.Reserve0)
}

// ApplyFee compounds a per-hop fee over n hops: raw * (1-fee)^hops
func ApplyFee(raw, feeRate float64, hops int) float64 {
	return raw * math.Pow(1-feeRate, float64(hops))
}

func validateFee(feeRate float64) error {
	if math.IsNaN(feeRate) || feeRate < 0 || feeRate >= 1 {
		return fmt.Errorf("fee rate %v outside [0, 1)", feeRate)
	}
	return nil
}

// ComparePrices returns the difference of price between pools (percentage)
func ComparePrices(price1, price2 *big.Float) float64 {
	cmp := price1.Cmp(price2)
	if cmp == 0 {
		return 0.0
	}
	var higher, lower *big.Float
	if cmp > 0 {
		higher = price1
		lower = price2
	} else {
		higher = price2
		lower = price1
	}
	if lower.Sign() == 0 {
		return math.Inf(1)
	}

	diff := new(big.Float).Sub(higher, lower)
	pctDiff := new(big.Float).Quo(diff, lower)
	pctDiff.Mul(pctDiff, big.NewFloat(100.0))

	result, _ := pctDiff.Float64()
	return result
}

// PoolPrice is the token1-per-token0 spot ratio of a pool on raw reserves
func PoolPrice(r Reserves) (*big.Float, error) {
	if r.Degenerate() {
		return nil, ErrDegenerateCycle
	}
	r0 := new(big.Float).SetInt(r.Reserve0.ToBig())
	r1 := new(big.Float).SetInt(r.Reserve1.ToBig())
	return new(big.Float).Quo(r1, r0), nil
}
