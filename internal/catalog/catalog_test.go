package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
)

const (
	daiWeth  = "0xa478c2975ab1ea89e8196811f51a7b7ade33eb11"
	usdcWeth = "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc"
	dai      = "0x6b175474e89094c44da98b954eedeac495271d0f"
	weth     = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	usdc     = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
)

const pairsResponse = `{"data":{"pairs":[
  {"id":"` + usdcWeth + `","txCount":"4000000",
   "token0":{"id":"` + usdc + `","name":"USD Coin","symbol":"USDC"},
   "token1":{"id":"` + weth + `","name":"Wrapped Ether","symbol":"WETH"}},
  {"id":"` + daiWeth + `","txCount":"1500000",
   "token0":{"id":"` + dai + `","name":"Dai Stablecoin","symbol":"DAI"},
   "token1":{"id":"` + weth + `","name":"Wrapped Ether","symbol":"WETH"}}
]}}`

func TestSubgraphListTopPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if !strings.Contains(req.Query, "pairs(first: 2, orderBy: txCount, orderDirection: desc)") {
			t.Errorf("unexpected query: %s", req.Query)
		}
		fmt.Fprint(w, pairsResponse)
	}))
	defer srv.Close()

	sg := NewSubgraph(srv.URL, 0)
	pairs, err := sg.ListTopPairs(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListTopPairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}

	p := pairs[1]
	if p.Token0.Symbol != "DAI" || p.Token1.Symbol != "WETH" {
		t.Errorf("symbols: %s/%s", p.Token0.Symbol, p.Token1.Symbol)
	}
	if p.Pool != common.HexToAddress(daiWeth) || p.Token0.Address != common.HexToAddress(dai) {
		t.Errorf("addresses: %s %s", p.Pool.Hex(), p.Token0.Address.Hex())
	}
}

func TestSubgraphBadTxCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Replace(pairsResponse, `"txCount":"1500000"`, `"txCount":"1.5e6"`, 1))
	}))
	defer srv.Close()

	_, err := NewSubgraph(srv.URL, 0).Listings(context.Background(), 2)
	var ve *arbitrage.ValidationError
	if !errors.As(err, &ve) || ve.Index != 1 || ve.Field != "txCount" {
		t.Fatalf("expected txCount validation error on record 1, got %v", err)
	}
	if !errors.Is(err, arbitrage.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSubgraphErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"errors":[{"message":"indexing_error"}]}`)
	}))
	defer srv.Close()

	sg := NewSubgraph(srv.URL, 0)
	_, err := sg.ListTopPairs(context.Background(), 5)
	if err == nil || !strings.Contains(err.Error(), "indexing_error") {
		t.Fatalf("expected graphql error, got %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("graphql errors should not be retried, got %d requests", n)
	}

	if _, err := sg.ListTopPairs(context.Background(), 0); !errors.Is(err, arbitrage.ErrValidation) {
		t.Errorf("limit 0: expected validation error, got %v", err)
	}
}

func TestToPairInfos(t *testing.T) {
	good := Listing{PoolAddress: daiWeth, Token0Symbol: " DAI ", Token0Address: dai, Token1Symbol: "WETH"}

	pairs, err := ToPairInfos([]Listing{good})
	if err != nil {
		t.Fatalf("ToPairInfos: %v", err)
	}
	if pairs[0].Token0.Symbol != "DAI" {
		t.Errorf("symbol should be trimmed: %q", pairs[0].Token0.Symbol)
	}
	if pairs[0].Token1.Address != (common.Address{}) {
		t.Errorf("missing token address should stay zero")
	}

	tests := []struct {
		name  string
		l     Listing
		field string
	}{
		{"no pool", Listing{Token0Symbol: "DAI", Token1Symbol: "WETH"}, "pool"},
		{"bad pool", Listing{PoolAddress: "0x1234", Token0Symbol: "DAI", Token1Symbol: "WETH"}, "pool"},
		{"no symbol", Listing{PoolAddress: daiWeth, Token0Symbol: "DAI"}, "token1.symbol"},
		{"bad token", Listing{PoolAddress: daiWeth, Token0Symbol: "DAI", Token0Address: "dai", Token1Symbol: "WETH"}, "token0.address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToPairInfos([]Listing{good, tt.l})
			var ve *arbitrage.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Index != 1 || ve.Field != tt.field {
				t.Errorf("got index %d field %s", ve.Index, ve.Field)
			}
		})
	}
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.parquet")
	listings := []Listing{
		{PoolAddress: daiWeth, Token0Symbol: "DAI", Token0Address: dai, Token1Symbol: "WETH", Token1Address: weth, TxCount: 1_500_000},
		{PoolAddress: usdcWeth, Token0Symbol: "USDC", Token0Address: usdc, Token1Symbol: "WETH", Token1Address: weth, TxCount: 4_000_000},
	}
	if err := WriteParquet(path, listings); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}

	src := NewParquetSource(path)
	all, err := src.Listings()
	if err != nil {
		t.Fatalf("Listings: %v", err)
	}
	if len(all) != 2 || all[0] != listings[0] {
		t.Errorf("round trip mismatch: %+v", all)
	}

	// ranked by tx count, then limited
	top, err := src.ListTopPairs(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListTopPairs: %v", err)
	}
	if len(top) != 1 || top[0].Token0.Symbol != "USDC" {
		t.Errorf("expected USDC/WETH first, got %+v", top)
	}

	if _, err := NewParquetSource(filepath.Join(t.TempDir(), "missing.parquet")).ListTopPairs(context.Background(), 1); err == nil {
		t.Error("expected error for missing file")
	}
}
