package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/pulkyeet/triangle-scanner/internal/config"
	"github.com/pulkyeet/triangle-scanner/internal/eth"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	dexName := flag.String("dex", "uniswap", "factory to query (uniswap or sushiswap)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dex, ok := eth.DEXByName(*dexName)
	if !ok {
		log.Fatalf("unknown dex: %s", *dexName)
	}

	ctx := context.Background()
	client, err := eth.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		log.Fatalf("failed to connect to Ethereum: %v", err)
	}
	defer client.Close()

	n, err := eth.NewFactory(client, dex, cfg.Retry()).AllPairsLength(ctx)
	if err != nil {
		log.Fatalf("allPairsLength: %v", err)
	}

	fmt.Printf("%s factory %s has %d pairs\n", dex.Name, dex.Factory.Hex(), n)
}
