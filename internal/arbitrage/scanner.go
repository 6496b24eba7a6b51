package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type ScanConfig struct {
	Pairs           int
	FeeRate         float64
	Filter          TriangleFilter
	Workers         int
	TriangleTimeout time.Duration
	GraphOptions    []GraphOption
}

type Status int

const (
	StatusPriced Status = iota
	StatusFiltered
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPriced:
		return "priced"
	case StatusFiltered:
		return "filtered"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// TriangleResult is the outcome for one enumerated triangle
type TriangleResult struct {
	Triangle Triangle
	Status   Status
	Priced   *PricedTriangle
	Factors  Factors
	Err      error
}

type ScanReport struct {
	Pairs     int
	Graph     *Graph
	Census    map[int]int
	Triangles []Triangle
	Results   []TriangleResult
	FeeRate   float64
	Elapsed   time.Duration
}

// Priced returns the triangles that made it through pricing and evaluation
func (r *ScanReport) Priced() []TriangleResult {
	var out []TriangleResult
	for _, res := range r.Results {
		if res.Status == StatusPriced {
			out = append(out, res)
		}
	}
	return out
}

func (r *ScanReport) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Scanner runs catalog -> graph -> triangles -> pricing -> evaluation
type Scanner struct {
	catalog PairCatalog
	source  ReserveSource
	cfg     ScanConfig
	log     zerolog.Logger
}

func NewScanner(catalog PairCatalog, source ReserveSource, cfg ScanConfig, log zerolog.Logger) *Scanner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Scanner{catalog: catalog, source: source, cfg: cfg, log: log}
}

// Scan fails only on catalog, graph or configuration errors. Individual
// triangles that cannot be priced are reported as skipped.
func (s *Scanner) Scan(ctx context.Context) (*ScanReport, error) {
	start := time.Now()

	if s.cfg.Pairs < 1 {
		return nil, fmt.Errorf("pair limit %d: must be >= 1", s.cfg.Pairs)
	}
	if err := validateFee(s.cfg.FeeRate); err != nil {
		return nil, err
	}

	pairs, err := s.catalog.ListTopPairs(ctx, s.cfg.Pairs)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	s.log.Info().Int("pairs", len(pairs)).Msg("building graph")

	graph, err := BuildGraph(pairs, s.cfg.GraphOptions...)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	for _, d := range graph.Dropped() {
		s.log.Debug().Int("index", d.Index).Str("node", d.Node).Str("pool", d.Pool.Hex()).Msg("pair dropped: both tokens map to one node")
	}

	triads := ClassifyTriads(graph)
	census := make(map[int]int, len(triads))
	for k, v := range triads {
		census[k] = len(v)
	}
	triangles := FindTriangles(graph)
	s.log.Info().
		Int("nodes", graph.Len()).
		Int("edges", graph.EdgeCount()).
		Int("triangles", len(triangles)).
		Msg("graph built")

	report := &ScanReport{
		Pairs:     len(pairs),
		Graph:     graph,
		Census:    census,
		Triangles: triangles,
		Results:   s.evaluateAll(ctx, graph, triangles),
		FeeRate:   s.cfg.FeeRate,
	}
	report.Elapsed = time.Since(start)

	s.log.Info().
		Int("priced", report.Count(StatusPriced)).
		Int("filtered", report.Count(StatusFiltered)).
		Int("skipped", report.Count(StatusSkipped)).
		Dur("elapsed", report.Elapsed).
		Msg("scan complete")

	return report, nil
}

func (s *Scanner) evaluateAll(ctx context.Context, g *Graph, triangles []Triangle) []TriangleResult {
	results := make([]TriangleResult, len(triangles))

	eg := new(errgroup.Group)
	eg.SetLimit(s.cfg.Workers)
	for i, t := range triangles {
		results[i].Triangle = t
		if s.cfg.Filter.Excluded(t, g) {
			results[i].Status = StatusFiltered
			continue
		}
		eg.Go(func() error {
			results[i] = s.evaluateOne(ctx, g, t)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func (s *Scanner) evaluateOne(ctx context.Context, g *Graph, t Triangle) TriangleResult {
	res := TriangleResult{Triangle: t}

	if s.cfg.TriangleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TriangleTimeout)
		defer cancel()
	}

	pt, err := PriceTriangle(ctx, t, g, s.source)
	if err != nil {
		res.Status = StatusSkipped
		res.Err = err
		s.logSkip(t, err)
		return res
	}

	factors, err := Evaluate(pt, s.cfg.FeeRate)
	if err != nil {
		res.Status = StatusSkipped
		res.Err = &SkipError{Triangle: t, Err: err}
		s.logSkip(t, res.Err)
		return res
	}

	res.Status = StatusPriced
	res.Priced = pt
	res.Factors = factors
	if factors.Profitable() {
		best, fwd := factors.Best()
		s.log.Info().Str("triangle", t.String()).Float64("factor", best).Bool("forward", fwd).Msg("profitable cycle")
	}
	return res
}

func (s *Scanner) logSkip(t Triangle, err error) {
	ev := s.log.Debug()
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) {
		ev = s.log.Warn()
	}
	ev.Str("triangle", t.String()).Err(err).Msg("triangle skipped")
}
