package arbitrage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// ReserveSource reads live pool state. Implementations return ErrNotFound
// for pools that do not exist and ErrTimeout/ErrUnavailable once their own
// retries are exhausted.
type ReserveSource interface {
	GetPoolTokenOrder(ctx context.Context, pool common.Address) (token0, token1 Token, err error)
	GetReserves(ctx context.Context, pool common.Address) (Reserves, error)
}

// PairCatalog lists pools ranked by some external criterion (e.g. tx count)
type PairCatalog interface {
	ListTopPairs(ctx context.Context, limit int) ([]PairInfo, error)
}

// TriangleFilter drops triangles before any pool is read. Entries match a
// node's key or its token symbol, so "USDC" works under either keying. A
// triangle is excluded if any node is denied, or if Allow is set and a node
// is not in it.
type TriangleFilter struct {
	Deny  []string
	Allow []string
}

// DefaultDeny keeps stablecoin-heavy cycles, which hover around 1.0, out of the scan
var DefaultDeny = []string{"USDC"}

func (f TriangleFilter) Excluded(t Triangle, g *Graph) bool {
	for _, node := range t.Nodes() {
		names := []string{node}
		if g != nil {
			if tok, ok := g.Token(node); ok && tok.Symbol != node {
				names = append(names, tok.Symbol)
			}
		}
		if matchesAny(f.Deny, names) {
			return true
		}
		if len(f.Allow) > 0 && !matchesAny(f.Allow, names) {
			return true
		}
	}
	return false
}

func matchesAny(list, names []string) bool {
	for _, v := range list {
		for _, n := range names {
			if v == n {
				return true
			}
		}
	}
	return false
}

// PriceTriangle reads token order and reserves for the three pools of t.
// The reads run concurrently. Any failure is returned as a *SkipError so
// that callers can drop this triangle and carry on.
func PriceTriangle(ctx context.Context, t Triangle, g *Graph, src ReserveSource) (*PricedTriangle, error) {
	hops := [3][2]string{{t.A, t.B}, {t.B, t.C}, {t.C, t.A}}

	pt := &PricedTriangle{Triangle: t}
	for i, hop := range hops {
		edge, ok := g.Edge(hop[0], hop[1])
		if !ok {
			return nil, skip(t, common.Address{}, fmt.Errorf("%w: no edge %s-%s", ErrNotFound, hop[0], hop[1]))
		}
		if edge.Pool == (common.Address{}) {
			return nil, skip(t, edge.Pool, ErrNotFound)
		}
		pt.Legs[i] = Leg{From: hop[0], To: hop[1], Pool: Pool{Address: edge.Pool}}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range pt.Legs {
		leg := &pt.Legs[i]
		eg.Go(func() error {
			return loadLeg(egCtx, g, src, leg)
		})
	}
	if err := eg.Wait(); err != nil {
		var se *SkipError
		if errors.As(err, &se) {
			se.Triangle = t
			return nil, se
		}
		return nil, skip(t, common.Address{}, err)
	}

	return pt, nil
}

func loadLeg(ctx context.Context, g *Graph, src ReserveSource, leg *Leg) error {
	addr := leg.Pool.Address

	token0, token1, err := src.GetPoolTokenOrder(ctx, addr)
	if err != nil {
		return &SkipError{Pool: addr, Err: fmt.Errorf("token order: %w", sourceErr(ctx, err))}
	}

	reserves, err := src.GetReserves(ctx, addr)
	if err != nil {
		return &SkipError{Pool: addr, Err: fmt.Errorf("reserves: %w", sourceErr(ctx, err))}
	}
	if reserves.Degenerate() {
		return &SkipError{Pool: addr, Err: ErrDegenerateCycle}
	}

	leg.Pool.Token0 = token0
	leg.Pool.Token1 = token1
	leg.Pool.Reserves = reserves
	leg.Token0Key = g.Key(token0)
	leg.Token1Key = g.Key(token1)
	return nil
}

// a context deadline hit inside the source is reported as a timeout even when
// the source did not classify it
func sourceErr(ctx context.Context, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
