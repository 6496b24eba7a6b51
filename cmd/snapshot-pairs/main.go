package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/pulkyeet/triangle-scanner/internal/catalog"
	"github.com/pulkyeet/triangle-scanner/internal/config"
)

// snapshot-pairs saves the subgraph's top pairs so scans can run offline
// with -catalog <file>.parquet
func main() {
	configPath := flag.String("config", "", "YAML config file")
	n := flag.Int("n", 50, "number of top pairs to snapshot")
	out := flag.String("file", "", "output parquet file")
	flag.Parse()

	if *out == "" {
		log.Fatal("Usage: snapshot-pairs -file <pairs.parquet> [-n 50]")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	fmt.Printf("📥 Fetching top %d pairs from %s...\n", *n, cfg.SubgraphURL)
	start := time.Now()

	listings, err := catalog.NewSubgraph(cfg.SubgraphURL, 0).Listings(context.Background(), *n)
	if err != nil {
		log.Fatalf("failed to fetch pairs: %v", err)
	}
	// validate before writing so a bad snapshot never hits disk
	if _, err := catalog.ToPairInfos(listings); err != nil {
		log.Fatalf("subgraph returned a bad pair: %v", err)
	}

	if err := catalog.WriteParquet(*out, listings); err != nil {
		log.Fatalf("failed to write snapshot: %v", err)
	}

	fmt.Printf("\n✅ Snapshot complete!\n")
	fmt.Printf("  Pairs: %d\n", len(listings))
	fmt.Printf("  File:  %s\n", *out)
	fmt.Printf("  Time:  %s\n", time.Since(start).Round(time.Millisecond))
}
