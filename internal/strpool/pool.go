// Package strpool interns strings into bump-allocated slabs.
//
// An interned string is content-addressed: interning equal content twice
// returns a string backed by the same bytes. Stored strings are never moved
// or freed individually; the whole pool is released by Reset or when the
// engine instance is dropped.
package strpool

import (
	"unsafe"

	"github.com/roach88/orcsym/internal/namehash"
)

// DefaultSlabSize is the number of bytes in a regular slab.
const DefaultSlabSize = 8000

// align is the record alignment inside a slab.
const align = 8

// Pool is a string intern pool. The zero value is not usable; call New.
//
// Pool is not safe for concurrent use.
type Pool struct {
	slabSize int
	index    namehash.Table[string]
	slabs    [][]byte // every slab ever allocated, oldest first
	cur      []byte   // current slab
	used     int      // bytes handed out from cur
	bytes    int      // total record bytes handed out
}

// Option configures a Pool.
type Option func(*Pool)

// WithSlabSize overrides DefaultSlabSize.
func WithSlabSize(n int) Option {
	return func(p *Pool) {
		if n >= align {
			p.slabSize = n
		}
	}
}

// New creates an empty pool.
func New(opts ...Option) *Pool {
	p := &Pool{slabSize: DefaultSlabSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Intern returns the pooled copy of s, storing it first if needed.
//
// The returned string aliases pool memory and stays valid for the life of
// the pool. The empty string is returned as is.
func (p *Pool) Intern(s string) string {
	if s == "" {
		return ""
	}
	if stored, ok := p.index.Lookup(s); ok {
		return stored
	}

	// One terminator byte, rounded up to the record alignment.
	n := (len(s) + 1 + align - 1) &^ (align - 1)
	var rec []byte
	if n > p.slabSize {
		// Oversized strings get a dedicated slab; the current slab stays open.
		rec = make([]byte, n)
		p.slabs = append(p.slabs, rec)
	} else {
		if p.cur == nil || p.used+n > len(p.cur) {
			p.cur = make([]byte, p.slabSize)
			p.used = 0
			p.slabs = append(p.slabs, p.cur)
		}
		rec = p.cur[p.used : p.used+n : p.used+n]
		p.used += n
	}
	copy(rec, s)
	p.bytes += n

	stored := unsafe.String(&rec[0], len(s))
	p.index.Insert(stored, stored)
	return stored
}

// Lookup returns the pooled copy of s without storing it.
func (p *Pool) Lookup(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	return p.index.Lookup(s)
}

// Len returns the number of distinct strings in the pool.
func (p *Pool) Len() int {
	return p.index.Len()
}

// Slabs returns the number of slabs allocated so far.
func (p *Pool) Slabs() int {
	return len(p.slabs)
}

// BytesUsed returns the total record bytes handed out, including padding.
func (p *Pool) BytesUsed() int {
	return p.bytes
}

// Reset releases every slab. Strings returned earlier must not be used
// with this pool again; their memory stays valid for the garbage collector
// as long as a caller holds them.
func (p *Pool) Reset() {
	p.index.Reset()
	p.slabs = nil
	p.cur = nil
	p.used = 0
	p.bytes = 0
}

// SameString reports whether a and b share the same backing bytes.
func SameString(a, b string) bool {
	return len(a) == len(b) && unsafe.StringData(a) == unsafe.StringData(b)
}
