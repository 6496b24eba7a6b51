package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
	"github.com/pulkyeet/triangle-scanner/internal/catalog"
	"github.com/pulkyeet/triangle-scanner/internal/config"
	"github.com/pulkyeet/triangle-scanner/internal/eth"
	"github.com/pulkyeet/triangle-scanner/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $TRISCAN_CONFIG)")
	pairs := flag.Int("n", 50, "number of top pairs to pull from the catalog")
	fee := flag.Float64("fee", 0.003, "fee rate per hop")
	deny := flag.String("deny", "USDC", "comma separated node keys to exclude")
	allow := flag.String("allow", "", "comma separated node keys; if set, all three nodes must be listed")
	nodeKey := flag.String("key", "symbol", "graph node identity: symbol or address")
	conflict := flag.String("conflict", "last", "duplicate pool policy: last, all or error")
	workers := flag.Int("workers", 8, "triangles priced concurrently")
	source := flag.String("catalog", "subgraph", "pair catalog: subgraph or a .parquet snapshot")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// explicit flags beat config file and env
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			cfg.Scan.Pairs = *pairs
		case "fee":
			cfg.Scan.FeeRate = *fee
		case "deny":
			cfg.Scan.Deny = config.SplitCSV(*deny)
		case "allow":
			cfg.Scan.Allow = config.SplitCSV(*allow)
		case "key":
			cfg.Scan.NodeKey = *nodeKey
		case "conflict":
			cfg.Scan.Conflict = *conflict
		case "workers":
			cfg.Scan.Workers = *workers
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	scanCfg, err := cfg.ScanConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var pairCatalog arbitrage.PairCatalog
	if *source == "subgraph" {
		pairCatalog = catalog.NewSubgraph(cfg.SubgraphURL, 0)
	} else if strings.HasSuffix(*source, ".parquet") {
		pairCatalog = catalog.NewParquetSource(*source)
	} else {
		log.Fatalf("unknown catalog %q (use subgraph or a .parquet file)", *source)
	}

	client, err := eth.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		log.Fatalf("failed to connect to Ethereum: %v", err)
	}
	defer client.Close()

	head, err := client.BlockNumber(ctx)
	if err != nil {
		log.Fatalf("failed to read head block: %v", err)
	}
	logger.Info().Uint64("block", head).Msg("connected")

	chain, err := eth.NewChainSource(client, cfg.Retry(), cfg.RPC.CacheSize)
	if err != nil {
		log.Fatalf("failed to create chain source: %v", err)
	}

	fmt.Printf("scanning top %d pairs for triangular arbitrage...\n\n", cfg.Scan.Pairs)

	report, err := arbitrage.NewScanner(pairCatalog, chain, scanCfg, logger).Scan(ctx)
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	report.Print(os.Stdout)

	fmt.Println("\n✅ Scan complete")
}
