package arbitrage

import "fmt"

const cycleHops = 3

// Evaluate multiplies the directed weights around the triangle in both
// directions and applies per-hop fee decay. The reverse product is rebuilt
// from each pool's token order rather than inverted from the forward one.
func Evaluate(pt *PricedTriangle, feeRatePerHop float64) (Factors, error) {
	if err := validateFee(feeRatePerHop); err != nil {
		return Factors{}, err
	}

	ab, bc, ca := pt.Legs[0], pt.Legs[1], pt.Legs[2]

	forward, err := cycleProduct(
		hop{ab.From, ab},
		hop{bc.From, bc},
		hop{ca.From, ca},
	)
	if err != nil {
		return Factors{}, fmt.Errorf("forward %s: %w", pt.Triangle, err)
	}

	// A->C over the C-A pool, C->B over B-C, B->A over A-B
	reverse, err := cycleProduct(
		hop{ca.To, ca},
		hop{bc.To, bc},
		hop{ab.To, ab},
	)
	if err != nil {
		return Factors{}, fmt.Errorf("reverse %s: %w", pt.Triangle, err)
	}

	return Factors{
		ForwardRaw: forward,
		ReverseRaw: reverse,
		Forward:    ApplyFee(forward, feeRatePerHop, cycleHops),
		Reverse:    ApplyFee(reverse, feeRatePerHop, cycleHops),
	}, nil
}

type hop struct {
	from string
	leg  Leg
}

func cycleProduct(hops ...hop) (float64, error) {
	product := 1.0
	for _, h := range hops {
		w, err := DirectedWeight(h.from, h.leg)
		if err != nil {
			return 0, fmt.Errorf("pool %s: %w", h.leg.Pool.Address.Hex(), err)
		}
		product *= w
	}
	return product, nil
}
