package etherscan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Parse checks the ABI decodes and returns it for inspection
func Parse(raw json.RawMessage) (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi: %w", err)
	}
	return parsed, nil
}

// WriteABIFile writes {"abi": [...], "address": "0x.."} to dir/<address>.abi.json
// with sorted keys and 4-space indent
func WriteABIFile(dir string, address common.Address, raw json.RawMessage) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create abi dir: %w", err)
	}

	// round-trip through interface{} so object keys come out sorted
	var body interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("decode abi: %w", err)
	}
	out, err := json.MarshalIndent(map[string]interface{}{
		"address": address.Hex(),
		"abi":     body,
	}, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode abi file: %w", err)
	}

	path := filepath.Join(dir, address.Hex()+".abi.json")
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("write abi file: %w", err)
	}
	return path, nil
}
