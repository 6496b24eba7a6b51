package eth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
)

// RetryConfig bounds every contract read: a per-attempt timeout and an
// exponential backoff between attempts
type RetryConfig struct {
	MaxTries        uint
	CallTimeout     time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxTries:        3,
		CallTimeout:     10 * time.Second,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (r RetryConfig) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		b.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		b.MaxInterval = r.MaxInterval
	}
	return b
}

// callRaw packs and executes a read-only call at the latest block.
// A revert, or empty return data from an address with no code, means there is
// no such contract/pair and is not retried.
func callRaw(ctx context.Context, c Caller, retry RetryConfig, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]byte, error) {
	if to == (common.Address{}) {
		return nil, fmt.Errorf("%s: %w: zero address", method, arbitrage.ErrNotFound)
	}

	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}

	maxTries := retry.MaxTries
	if maxTries == 0 {
		maxTries = 1
	}

	result, err := backoff.Retry(ctx, func() ([]byte, error) {
		callCtx := ctx
		if retry.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, retry.CallTimeout)
			defer cancel()
		}

		out, err := c.CallContract(callCtx, msg, nil)
		if err != nil {
			if isRevert(err) {
				return nil, backoff.Permanent(fmt.Errorf("%w: %v", arbitrage.ErrNotFound, err))
			}
			return nil, err
		}
		if len(out) == 0 {
			return nil, emptyResult(callCtx, c, to, method)
		}
		return out, nil
	}, backoff.WithBackOff(retry.backOff()), backoff.WithMaxTries(maxTries))
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), classify(ctx, err))
	}

	return result, nil
}

// emptyResult tells a missing contract apart from a live one that doesn't
// implement method. A failed code lookup is retried like any other RPC error.
func emptyResult(ctx context.Context, c Caller, to common.Address, method string) error {
	cr, ok := c.(CodeReader)
	if !ok {
		return backoff.Permanent(fmt.Errorf("%w: empty return data", arbitrage.ErrNotFound))
	}
	code, err := cr.CodeAt(ctx, to, nil)
	if err != nil {
		return fmt.Errorf("code at %s: %w", to.Hex(), err)
	}
	if len(code) == 0 {
		return backoff.Permanent(fmt.Errorf("%w: no contract at %s", arbitrage.ErrNotFound, to.Hex()))
	}
	return backoff.Permanent(fmt.Errorf("%w: contract returned no data for %s", arbitrage.ErrNotFound, method))
}

func call(ctx context.Context, c Caller, retry RetryConfig, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	raw, err := callRaw(ctx, c, retry, to, contract, method, args...)
	if err != nil {
		return nil, err
	}

	unpacked, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return unpacked, nil
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, arbitrage.ErrNotFound):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", arbitrage.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", arbitrage.ErrUnavailable, err)
	}
}
