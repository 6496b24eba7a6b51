package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
)

const DefaultSubgraphURL = "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v2"

// top pairs by transaction count
const pairsQuery = `query {
  pairs(first: %d, orderBy: txCount, orderDirection: desc) {
    id, txCount, createdAtTimestamp,
    token0Price, token1Price,
    token0 { id, name, symbol, tradeVolume, totalLiquidity },
    token1 { id, name, symbol, tradeVolume, totalLiquidity },
  }
}`

type subgraphToken struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type subgraphPair struct {
	ID      string        `json:"id"`
	TxCount string        `json:"txCount"`
	Token0  subgraphToken `json:"token0"`
	Token1  subgraphToken `json:"token1"`
}

type subgraphResponse struct {
	Data struct {
		Pairs []subgraphPair `json:"pairs"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Subgraph lists Uniswap V2 pairs from a Graph Protocol endpoint
type Subgraph struct {
	url      string
	http     *http.Client
	maxTries uint
}

func NewSubgraph(url string, timeout time.Duration) *Subgraph {
	if url == "" {
		url = DefaultSubgraphURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Subgraph{url: url, http: &http.Client{Timeout: timeout}, maxTries: 3}
}

var _ arbitrage.PairCatalog = (*Subgraph)(nil)

func (s *Subgraph) ListTopPairs(ctx context.Context, limit int) ([]arbitrage.PairInfo, error) {
	listings, err := s.Listings(ctx, limit)
	if err != nil {
		return nil, err
	}
	return ToPairInfos(listings)
}

// Listings returns the raw decoded pairs, ordered as the subgraph ranked them
func (s *Subgraph) Listings(ctx context.Context, limit int) ([]Listing, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit %d must be >= 1", arbitrage.ErrValidation, limit)
	}

	body, err := json.Marshal(map[string]string{"query": fmt.Sprintf(pairsQuery, limit)})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	resp, err := backoff.Retry(ctx, func() (*subgraphResponse, error) {
		return s.post(ctx, body)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		return nil, fmt.Errorf("query subgraph: %w", err)
	}

	listings := make([]Listing, 0, len(resp.Data.Pairs))
	for i, p := range resp.Data.Pairs {
		txCount, err := strconv.ParseInt(strings.TrimSpace(p.TxCount), 10, 64)
		if err != nil {
			return nil, &arbitrage.ValidationError{Index: i, Field: "txCount", Msg: fmt.Sprintf("not an integer: %q", p.TxCount)}
		}
		listings = append(listings, Listing{
			PoolAddress:   p.ID,
			Token0Symbol:  p.Token0.Symbol,
			Token0Address: p.Token0.ID,
			Token1Symbol:  p.Token1.Symbol,
			Token1Address: p.Token1.ID,
			TxCount:       txCount,
		})
	}
	return listings, nil
}

func (s *Subgraph) post(ctx context.Context, body []byte) (*subgraphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("http %d", resp.StatusCode))
	}

	var out subgraphResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, backoff.Permanent(fmt.Errorf("graphql: %s", strings.Join(msgs, "; ")))
	}
	return &out, nil
}
