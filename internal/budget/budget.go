// Package budget tracks the bytes owned by an engine instance's global
// variables and channels, and turns an exhausted budget into OutOfMemory.
//
// Go does not report allocation failure, so the engine models the
// "out of memory" result that creation paths must return as a byte limit.
// A Reserve that would exceed the limit fails without side effects, which
// lets callers leave their prior state untouched.
package budget

import (
	"fmt"

	"github.com/roach88/orcsym/internal/regerr"
)

// Budget is a byte allowance shared by several owners.
//
// A zero limit means unlimited. Budget is not safe for concurrent use;
// reservations only happen on the setup goroutine.
type Budget struct {
	limit int64
	used  int64
}

// New creates a budget with the given limit in bytes (0 = unlimited).
func New(limit int64) *Budget {
	if limit < 0 {
		limit = 0
	}
	return &Budget{limit: limit}
}

// Reserve claims n bytes.
//
// Returns an OutOfMemory error, leaving the budget unchanged, if the
// reservation would exceed the limit.
func (b *Budget) Reserve(n int64) error {
	if n < 0 {
		return regerr.New(regerr.InvalidArgument, "budget.Reserve", "", fmt.Sprintf("negative reservation %d", n))
	}
	if b.limit > 0 && b.used+n > b.limit {
		return &ExhaustedError{Requested: n, Used: b.used, Limit: b.limit}
	}
	b.used += n
	return nil
}

// Release returns n bytes to the budget.
func (b *Budget) Release(n int64) {
	b.used -= n
	if b.used < 0 {
		b.used = 0
	}
}

// Used returns the bytes currently reserved.
func (b *Budget) Used() int64 {
	return b.used
}

// Limit returns the configured limit (0 = unlimited).
func (b *Budget) Limit() int64 {
	return b.limit
}

// Remaining returns the bytes still available, or -1 when unlimited.
func (b *Budget) Remaining() int64 {
	if b.limit == 0 {
		return -1
	}
	return b.limit - b.used
}

// ExhaustedError is returned when a reservation does not fit.
type ExhaustedError struct {
	Requested int64 // Bytes asked for
	Used      int64 // Bytes already reserved
	Limit     int64 // Configured limit
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("memory budget exhausted: %d bytes requested, %d of %d in use",
		e.Requested, e.Used, e.Limit)
}

// ErrorCode classifies the error as OutOfMemory.
func (e *ExhaustedError) ErrorCode() regerr.Code {
	return regerr.OutOfMemory
}
