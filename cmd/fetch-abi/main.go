package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/triangle-scanner/internal/config"
	"github.com/pulkyeet/triangle-scanner/internal/etherscan"
	"github.com/pulkyeet/triangle-scanner/internal/logging"
	"github.com/pulkyeet/triangle-scanner/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	outDir := flag.String("out", "", "directory for <address>.abi.json (default from config)")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Usage: fetch-abi [-out dir] <address> [address...]")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *outDir == "" {
		*outDir = cfg.Etherscan.OutDir
	}
	logger := logging.New(cfg.Logging)

	disk, err := storage.NewABICache(cfg.Etherscan.CacheDB)
	if err != nil {
		log.Fatalf("failed to open abi cache: %v", err)
	}
	defer disk.Close()

	cache, err := etherscan.NewLRUCache(256, disk)
	if err != nil {
		log.Fatalf("failed to create abi cache: %v", err)
	}

	client := etherscan.NewClient(etherscan.Config{
		BaseURL:  cfg.Etherscan.BaseURL,
		APIKey:   cfg.Etherscan.APIKey,
		Interval: cfg.Etherscan.Interval,
	}, cache, logger)

	ctx := context.Background()
	failed := 0
	for _, arg := range flag.Args() {
		if !common.IsHexAddress(arg) {
			fmt.Printf("❌ %s: not an address\n", arg)
			failed++
			continue
		}
		addr := common.HexToAddress(arg)

		raw, err := client.ABI(ctx, addr)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", addr.Hex(), err)
			failed++
			continue
		}
		parsed, err := etherscan.Parse(raw)
		if err != nil {
			fmt.Printf("❌ %s: %v\n", addr.Hex(), err)
			failed++
			continue
		}
		path, err := etherscan.WriteABIFile(*outDir, addr, raw)
		if err != nil {
			log.Fatalf("failed to write abi: %v", err)
		}

		methods := make([]string, 0, len(parsed.Methods))
		for name := range parsed.Methods {
			methods = append(methods, name)
		}
		sort.Strings(methods)
		fmt.Printf("✓ %s -> %s (%d methods, %d events)\n", addr.Hex(), path, len(parsed.Methods), len(parsed.Events))
		for _, m := range methods {
			fmt.Printf("    %s\n", parsed.Methods[m].Sig)
		}
	}

	if stats, err := disk.GetStats(); err == nil {
		fmt.Printf("\n📊 ABI cache: %d entries\n", stats["abi_entries"])
	}
	if failed > 0 {
		log.Fatalf("%d address(es) failed", failed)
	}
}
