package arbitrage

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NodeKey maps a token to its graph identity
type NodeKey func(Token) string

// KeyBySymbol merges tokens that share a symbol. It is the default and
// matches how pair listings have always been graphed here.
func KeyBySymbol(t Token) string { return t.Symbol }

// KeyByAddress gives every token contract its own node
func KeyByAddress(t Token) string { return strings.ToLower(t.Address.Hex()) }

// EdgeConflictPolicy decides what happens when a second pool joins the same two nodes
type EdgeConflictPolicy int

const (
	KeepLast EdgeConflictPolicy = iota
	KeepAll
	RejectDuplicates
)

func (p EdgeConflictPolicy) String() string {
	switch p {
	case KeepLast:
		return "last"
	case KeepAll:
		return "all"
	case RejectDuplicates:
		return "error"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

func ParseConflictPolicy(s string) (EdgeConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last", "keep-last":
		return KeepLast, nil
	case "all", "keep-all":
		return KeepAll, nil
	case "error", "reject":
		return RejectDuplicates, nil
	}
	return 0, fmt.Errorf("unknown edge conflict policy %q", s)
}

func ParseNodeKey(s string) (NodeKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "symbol":
		return KeyBySymbol, nil
	case "address":
		return KeyByAddress, nil
	}
	return nil, fmt.Errorf("unknown node key %q", s)
}

// Edge is the undirected link between two nodes. Pool is the active pool used
// for pricing; Pools lists every pool seen under KeepAll, oldest first.
type Edge struct {
	Pool  common.Address
	Pools []common.Address
}

type edgeKey struct{ lo, hi int }

// Graph is an undirected token graph. It is read-only once built.
type Graph struct {
	key    NodeKey
	policy EdgeConflictPolicy

	nodes  []string
	index  map[string]int
	tokens map[string]Token
	adj    []map[int]struct{}
	edges  map[edgeKey]*Edge

	dropped []DroppedPair
}

// DroppedPair is a catalog record left out of the graph because both of its
// tokens resolve to the same node (e.g. two contracts sharing a symbol)
type DroppedPair struct {
	Index int
	Node  string
	Pool  common.Address
}

type GraphOption func(*Graph)

func WithNodeKey(k NodeKey) GraphOption {
	return func(g *Graph) {
		if k != nil {
			g.key = k
		}
	}
}

func WithConflictPolicy(p EdgeConflictPolicy) GraphOption {
	return func(g *Graph) { g.policy = p }
}

func newGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		key:    KeyBySymbol,
		policy: KeepLast,
		index:  make(map[string]int),
		tokens: make(map[string]Token),
		edges:  make(map[edgeKey]*Edge),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BuildGraph inserts one undirected edge per pair record, storing the pool
// address on the edge. A record missing a symbol or pool aborts the build;
// one whose tokens collapse onto a single node is dropped and kept in Dropped.
func BuildGraph(pairs []PairInfo, opts ...GraphOption) (*Graph, error) {
	g := newGraph(opts...)

	for i, p := range pairs {
		if err := validatePair(i, p); err != nil {
			return nil, err
		}
		a, b := g.key(p.Token0), g.key(p.Token1)
		if a == "" || b == "" {
			return nil, &ValidationError{Index: i, Field: "token", Msg: "empty node key"}
		}
		if a == b {
			g.dropped = append(g.dropped, DroppedPair{Index: i, Node: a, Pool: p.Pool})
			continue
		}
		if err := g.addEdge(g.addNode(a, p.Token0), g.addNode(b, p.Token1), p.Pool); err != nil {
			return nil, fmt.Errorf("pair %d (%s/%s): %w", i, a, b, err)
		}
	}

	return g, nil
}

func validatePair(i int, p PairInfo) error {
	if strings.TrimSpace(p.Token0.Symbol) == "" {
		return &ValidationError{Index: i, Field: "token0.symbol", Msg: "missing"}
	}
	if strings.TrimSpace(p.Token1.Symbol) == "" {
		return &ValidationError{Index: i, Field: "token1.symbol", Msg: "missing"}
	}
	if p.Pool == (common.Address{}) {
		return &ValidationError{Index: i, Field: "pool", Msg: "missing"}
	}
	return nil
}

func (g *Graph) addNode(name string, t Token) int {
	if idx, ok := g.index[name]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, name)
	g.index[name] = idx
	g.tokens[name] = t
	g.adj = append(g.adj, make(map[int]struct{}))
	return idx
}

func (g *Graph) addEdge(a, b int, pool common.Address) error {
	k := makeEdgeKey(a, b)
	e, exists := g.edges[k]
	if !exists {
		g.edges[k] = &Edge{Pool: pool, Pools: []common.Address{pool}}
		g.adj[a][b] = struct{}{}
		g.adj[b][a] = struct{}{}
		return nil
	}
	if e.Pool == pool {
		return nil
	}

	switch g.policy {
	case RejectDuplicates:
		return fmt.Errorf("%w: %s already mapped to %s", ErrDuplicatePool, pool.Hex(), e.Pool.Hex())
	case KeepAll:
		e.Pools = append(e.Pools, pool)
	default:
		e.Pools = []common.Address{pool}
		e.Pool = pool
	}
	return nil
}

func makeEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Key applies the graph's node identity policy to a token
func (g *Graph) Key(t Token) string { return g.key(t) }

func (g *Graph) Policy() EdgeConflictPolicy { return g.policy }

// Nodes returns node names in insertion order
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dropped lists records skipped as self-loops, in catalog order
func (g *Graph) Dropped() []DroppedPair {
	return append([]DroppedPair(nil), g.dropped...)
}

// Token returns the first token seen for a node
func (g *Graph) Token(node string) (Token, bool) {
	t, ok := g.tokens[node]
	return t, ok
}

func (g *Graph) HasEdge(a, b string) bool {
	_, ok := g.Edge(a, b)
	return ok
}

func (g *Graph) Edge(a, b string) (Edge, bool) {
	ia, okA := g.index[a]
	ib, okB := g.index[b]
	if !okA || !okB {
		return Edge{}, false
	}
	e, ok := g.edges[makeEdgeKey(ia, ib)]
	if !ok {
		return Edge{}, false
	}
	return Edge{Pool: e.Pool, Pools: append([]common.Address(nil), e.Pools...)}, true
}

// Neighbors returns adjacent nodes in insertion order
func (g *Graph) Neighbors(node string) []string {
	idx, ok := g.index[node]
	if !ok {
		return nil
	}
	ids := g.sortedNeighbors(idx)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

func (g *Graph) hasEdgeIdx(a, b int) bool {
	_, ok := g.edges[makeEdgeKey(a, b)]
	return ok
}
