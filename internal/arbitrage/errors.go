package arbitrage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrValidation      = errors.New("invalid pair record")
	ErrDuplicatePool   = errors.New("duplicate pool for token pair")
	ErrNotFound        = errors.New("pool not found")
	ErrTimeout         = errors.New("data source timeout")
	ErrUnavailable     = errors.New("data source unavailable")
	ErrDegenerateCycle = errors.New("degenerate cycle: zero reserve")
	ErrSkip            = errors.New("triangle skipped")
)

// ValidationError points at the catalog record that broke the graph build
type ValidationError struct {
	Index int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pair %d: %s: %s", e.Index, e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// SkipError drops a single triangle from the scan. It matches ErrSkip and
// the underlying cause through errors.Is.
type SkipError struct {
	Triangle Triangle
	Pool     common.Address
	Err      error
}

func (e *SkipError) Error() string {
	if e.Pool == (common.Address{}) {
		return fmt.Sprintf("skip %s: %v", e.Triangle, e.Err)
	}
	return fmt.Sprintf("skip %s at pool %s: %v", e.Triangle, e.Pool.Hex(), e.Err)
}

func (e *SkipError) Unwrap() []error { return []error{ErrSkip, e.Err} }

func skip(t Triangle, pool common.Address, err error) error {
	return &SkipError{Triangle: t, Pool: pool, Err: err}
}
