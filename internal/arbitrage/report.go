package arbitrage

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// FormatFactor prints a cycle factor with fixed precision
func FormatFactor(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(6)
}

// ProfitBps is (factor - 1) in basis points
func ProfitBps(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Sub(one).Mul(decimal.NewFromInt(10000)).Round(2)
}

// Print writes the human readable scan summary
func (r *ScanReport) Print(w io.Writer) {
	fmt.Fprintf(w, "Graph: %d pairs, %d tokens, %d pools\n", r.Pairs, r.Graph.Len(), r.Graph.EdgeCount())
	fmt.Fprintf(w, "Triad census: 0=%d 1=%d 2=%d 3=%d\n", r.Census[0], r.Census[1], r.Census[2], r.Census[3])

	fmt.Fprintf(w, "\nFound %d triangles:\n", len(r.Triangles))
	for _, t := range r.Triangles {
		fmt.Fprintf(w, "  %s\n", t)
	}

	fmt.Fprintf(w, "\nCycle factors (fee %s per hop):\n", decimal.NewFromFloat(r.FeeRate).String())
	fmt.Fprintln(w, "==============================")
	for _, res := range r.Results {
		switch res.Status {
		case StatusFiltered:
			continue
		case StatusSkipped:
			fmt.Fprintf(w, "\n%s: skipped (%v)\n", res.Triangle, res.Err)
			continue
		}

		fmt.Fprintf(w, "\n%s:\n", res.Triangle)
		for _, leg := range res.Priced.Legs {
			fmt.Fprintf(w, "  %s->%s  %s  reserves %s / %s  (token0 %s)\n",
				leg.From, leg.To, leg.Pool.Address.Hex(),
				leg.Pool.Reserves.Reserve0.ToBig().String(), leg.Pool.Reserves.Reserve1.ToBig().String(),
				leg.Token0Key)
		}
		f := res.Factors
		fmt.Fprintf(w, "  forward: %s before fees, %s after (%s bps)\n",
			FormatFactor(f.ForwardRaw), FormatFactor(f.Forward), ProfitBps(f.Forward).StringFixed(2))
		fmt.Fprintf(w, "  reverse: %s before fees, %s after (%s bps)\n",
			FormatFactor(f.ReverseRaw), FormatFactor(f.Reverse), ProfitBps(f.Reverse).StringFixed(2))
		if f.Profitable() {
			best, fwd := f.Best()
			dir := "reverse"
			if fwd {
				dir = "forward"
			}
			fmt.Fprintf(w, "  🚨 profitable %s loop: %s\n", dir, FormatFactor(best))
		}
	}

	fmt.Fprintf(w, "\nPriced %d | filtered %d | skipped %d | %s\n",
		r.Count(StatusPriced), r.Count(StatusFiltered), r.Count(StatusSkipped), r.Elapsed.Round(time.Millisecond))
}
