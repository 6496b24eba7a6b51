package arbitrage

import "sort"

// FindTrianglesBruteForce checks every 3-combination of nodes and keeps the
// ones whose induced subgraph has exactly 3 edges. O(n^3) in node count, so
// it is only meant for catalogs of a few dozen tokens and as the reference
// for FindTriangles.
func FindTrianglesBruteForce(g *Graph) []Triangle {
	return ClassifyTriads(g)[3]
}

// ClassifyTriads groups every 3-combination of nodes by induced edge count (0..3)
func ClassifyTriads(g *Graph) map[int][]Triangle {
	census := make(map[int][]Triangle, 4)
	n := g.Len()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ij := g.hasEdgeIdx(i, j)
			for k := j + 1; k < n; k++ {
				edges := 0
				if ij {
					edges++
				}
				if g.hasEdgeIdx(j, k) {
					edges++
				}
				if g.hasEdgeIdx(i, k) {
					edges++
				}
				census[edges] = append(census[edges], g.triangle(i, j, k))
			}
		}
	}
	return census
}

// FindTriangles returns the same triangles, in the same order, as
// FindTrianglesBruteForce, but only walks pairs of common neighbours:
// for i<j<k, {i,j,k} is a triangle iff j and k are both neighbours of i
// and j-k is an edge.
func FindTriangles(g *Graph) []Triangle {
	if g.Len() < 3 {
		return nil
	}

	var out []Triangle
	for i := 0; i < g.Len(); i++ {
		higher := g.neighborsAbove(i)
		for x := 0; x < len(higher); x++ {
			for y := x + 1; y < len(higher); y++ {
				if g.hasEdgeIdx(higher[x], higher[y]) {
					out = append(out, g.triangle(i, higher[x], higher[y]))
				}
			}
		}
	}
	return out
}

func (g *Graph) triangle(i, j, k int) Triangle {
	return Triangle{A: g.nodes[i], B: g.nodes[j], C: g.nodes[k]}
}

func (g *Graph) sortedNeighbors(idx int) []int {
	out := make([]int, 0, len(g.adj[idx]))
	for n := range g.adj[idx] {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// neighbours with a higher insertion index, ascending
func (g *Graph) neighborsAbove(idx int) []int {
	all := g.sortedNeighbors(idx)
	pos := sort.SearchInts(all, idx+1)
	return all[pos:]
}
