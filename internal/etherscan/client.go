package etherscan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.etherscan.io/api"

var (
	ErrNotVerified = errors.New("contract source not verified")
	ErrRateLimited = errors.New("etherscan rate limit")
)

type Config struct {
	BaseURL  string
	APIKey   string
	Interval time.Duration // minimum spacing between uncached requests
	MaxTries uint
	Backoff  time.Duration // first retry delay
	Timeout  time.Duration
}

// Client fetches contract ABIs. Cache hits never touch the network or the
// rate limiter.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
	log     zerolog.Logger
}

func NewClient(cfg Config, cache Cache, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		cache:   cache,
		log:     log,
	}
}

func (c *Client) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.Backoff > 0 {
		b.InitialInterval = c.cfg.Backoff
	}
	return b
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// ABI returns the contract ABI as raw JSON
func (c *Client) ABI(ctx context.Context, address common.Address) (json.RawMessage, error) {
	key := cacheKey(address.Hex())
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return json.RawMessage(v), nil
		}
	}

	c.log.Info().Str("address", address.Hex()).Msg("downloading abi")

	abi, err := backoff.Retry(ctx, func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		body, err := c.fetch(ctx, address)
		if err != nil && !errors.Is(err, ErrRateLimited) && !isTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}, backoff.WithBackOff(c.backOff()), backoff.WithMaxTries(c.cfg.MaxTries))
	if err != nil {
		return nil, fmt.Errorf("fetch abi %s: %w", address.Hex(), err)
	}

	if c.cache != nil {
		if err := c.cache.Put(key, abi); err != nil {
			c.log.Warn().Err(err).Str("address", address.Hex()).Msg("abi cache write failed")
		}
	}
	return json.RawMessage(abi), nil
}

func (c *Client) fetch(ctx context.Context, address common.Address) ([]byte, error) {
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "getabi")
	q.Set("address", address.Hex())
	if c.cfg.APIKey != "" {
		q.Set("apikey", c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transient{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, transient{fmt.Errorf("http %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if out.Status != "1" {
		lower := strings.ToLower(out.Result)
		switch {
		case strings.Contains(lower, "rate limit"):
			return nil, ErrRateLimited
		case strings.Contains(lower, "not verified"):
			return nil, ErrNotVerified
		default:
			return nil, fmt.Errorf("etherscan: %s: %s", out.Message, out.Result)
		}
	}

	// result is the ABI JSON encoded as a string
	raw := []byte(out.Result)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("etherscan returned invalid abi json")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("compact abi: %w", err)
	}
	return buf.Bytes(), nil
}

type transient struct{ error }

func (t transient) Unwrap() error { return t.error }

func isTransient(err error) bool {
	var t transient
	return errors.As(err, &t)
}

func cacheKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
