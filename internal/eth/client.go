package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Caller is the slice of the JSON-RPC API the pool readers need
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// CodeReader is optional on a Caller. When present, an empty eth_call result
// is checked against the account's code before it is treated as not found.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

type Client struct {
	rpc *ethclient.Client
}

func NewClient(ctx context.Context, url string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("rpc url not set (ETH_RPC_URL or ALCHEMY_URL)")
	}

	rpc, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	return &Client{rpc: rpc}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.rpc.CallContract(ctx, msg, blockNumber)
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return c.rpc.CodeAt(ctx, account, blockNumber)
}

// BlockNumber is the head block the scan reads reserves at
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}
