package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
	"github.com/pulkyeet/triangle-scanner/internal/config"
	"github.com/pulkyeet/triangle-scanner/internal/eth"
)

// compare prints the spot price of one token pair on every known V2 fork
func main() {
	configPath := flag.String("config", "", "YAML config file")
	pair := flag.String("pair", "WETH/USDC", "token pair (e.g. WETH/USDC, WETH/DAI, WETH/WBTC)")
	threshold := flag.Float64("threshold", 0.1, "spread in percent worth flagging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	parts := strings.Split(*pair, "/")
	if len(parts) != 2 {
		log.Fatalf("invalid pair format: %s (use e.g. WETH/USDC)", *pair)
	}
	tokenA, okA := eth.KnownTokens[strings.ToUpper(parts[0])]
	tokenB, okB := eth.KnownTokens[strings.ToUpper(parts[1])]
	if !okA || !okB {
		log.Fatalf("unknown token in pair: %s (known: WETH, USDC, USDT, DAI, WBTC)", *pair)
	}

	ctx := context.Background()
	client, err := eth.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		log.Fatalf("failed to connect to Ethereum: %v", err)
	}
	defer client.Close()

	src, err := eth.NewChainSource(client, cfg.Retry(), cfg.RPC.CacheSize)
	if err != nil {
		log.Fatalf("failed to create chain source: %v", err)
	}

	fmt.Printf("comparing %s across %d DEXes...\n\n", *pair, len(eth.KnownDEXes))

	type quote struct {
		dex   string
		pool  *arbitrage.Pool
		price *big.Float
	}
	var quotes []quote

	for _, dex := range eth.KnownDEXes {
		factory := eth.NewFactory(client, dex, cfg.Retry())
		addr, err := factory.GetPair(ctx, tokenA, tokenB)
		if err != nil {
			fmt.Printf("%s: no pool (%v)\n", dex.Name, err)
			continue
		}
		pool, err := eth.LoadPool(ctx, src, addr)
		if err != nil {
			fmt.Printf("%s: failed to load pool: %v\n", dex.Name, err)
			continue
		}
		price, err := arbitrage.PoolPrice(pool.Reserves)
		if err != nil {
			fmt.Printf("%s: %v\n", dex.Name, err)
			continue
		}
		quotes = append(quotes, quote{dex: dex.Name, pool: pool, price: price})

		fmt.Printf("%s (%s):\n", dex.Name, addr.Hex())
		fmt.Printf("  %s reserve: %s\n", pool.Token0.Symbol, pool.Reserves.Reserve0.ToBig().String())
		fmt.Printf("  %s reserve: %s\n", pool.Token1.Symbol, pool.Reserves.Reserve1.ToBig().String())
		fmt.Printf("  %s/%s (raw units): %s\n\n", pool.Token1.Symbol, pool.Token0.Symbol, price.Text('g', 10))
	}

	if len(quotes) < 2 {
		fmt.Println("need at least two pools to compare")
		return
	}

	fmt.Println("Price Comparison:")
	fmt.Println("=================")
	for i := 1; i < len(quotes); i++ {
		diff := arbitrage.ComparePrices(quotes[0].price, quotes[i].price)
		fmt.Printf("%s vs %s: %.4f%%\n", quotes[0].dex, quotes[i].dex, diff)
		if diff > *threshold {
			fmt.Printf("🚨 spread above %.2f%%\n", *threshold)
		}
	}
}
