package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Token addresses - Ethereum mainnet
var (
	WETHAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	USDTAddress = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	DAIAddress  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	WBTCAddress = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// KnownTokens - lookup by symbol string
var KnownTokens = map[string]common.Address{
	"WETH": WETHAddress,
	"USDC": USDCAddress,
	"USDT": USDTAddress,
	"DAI":  DAIAddress,
	"WBTC": WBTCAddress,
}

// DEXConfig names a Uniswap V2 fork by its factory
type DEXConfig struct {
	Name    string
	Factory common.Address
}

// KnownDEXes - tracked Uniswap V2 forks on Ethereum mainnet
var KnownDEXes = []DEXConfig{
	{Name: "uniswap", Factory: common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")},
	{Name: "sushiswap", Factory: common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")},
}

func DEXByName(name string) (DEXConfig, bool) {
	for _, d := range KnownDEXes {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return DEXConfig{}, false
}

// Uniswap V2 Pair ABI - getReserves, token0, token1
const UniswapV2PairABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
			{"internalType": "uint32",  "name": "blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "token1",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Uniswap V2 Factory ABI - getPair, allPairsLength
const UniswapV2FactoryABI = `[
	{
		"constant": true,
		"inputs": [
			{"internalType": "address", "name": "tokenA", "type": "address"},
			{"internalType": "address", "name": "tokenB", "type": "address"}
		],
		"name": "getPair",
		"outputs": [{"internalType": "address", "name": "pair", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "allPairsLength",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ERC20 metadata ABI - name, symbol, decimals
const ERC20ABI = `[
	{"constant": true, "inputs": [], "name": "name", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

var (
	pairABI    = mustABI(UniswapV2PairABI)
	factoryABI = mustABI(UniswapV2FactoryABI)
	erc20ABI   = mustABI(ERC20ABI)
)

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("parse abi: " + err.Error())
	}
	return parsed
}
