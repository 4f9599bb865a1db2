package instr

import "fmt"

// Kind is the numbering tier an instrument asks for.
type Kind int

const (
	// KindAscending fills the lowest free slots. It is the default.
	KindAscending Kind = iota
	// KindReclaimFromTop places the instrument above the highest used slot.
	KindReclaimFromTop
	// KindExplicit claims a specific slot.
	KindExplicit
)

// String returns the tier name.
func (k Kind) String() string {
	switch k {
	case KindAscending:
		return "ascending"
	case KindReclaimFromTop:
		return "top"
	case KindExplicit:
		return "explicit"
	}
	return "unknown"
}

// Request is the numbering requested at registration.
// The zero value is Ascending().
type Request struct {
	kind   Kind
	number int
}

// Ascending requests the next free slot from the bottom.
func Ascending() Request { return Request{kind: KindAscending} }

// ReclaimFromTop requests a slot above the highest one in use.
func ReclaimFromTop() Request { return Request{kind: KindReclaimFromTop} }

// Explicit requests slot n.
func Explicit(n int) Request { return Request{kind: KindExplicit, number: n} }

// Kind returns the requested tier.
func (r Request) Kind() Kind { return r.kind }

// Number returns the requested slot of an explicit request, 0 otherwise.
func (r Request) Number() int { return r.number }

// String renders the request.
func (r Request) String() string {
	if r.kind == KindExplicit {
		return fmt.Sprintf("explicit(%d)", r.number)
	}
	return r.kind.String()
}

// Order selects which non-explicit tier is resolved first.
type Order int

const (
	// TopFirst resolves the reclaim-from-top tier before the ascending tier.
	TopFirst Order = iota
	// AscendingFirst resolves the ascending tier first (legacy ordering).
	AscendingFirst
)

// String returns the configuration spelling of o.
func (o Order) String() string {
	if o == AscendingFirst {
		return "ascending-first"
	}
	return "top-first"
}

// ParseOrder maps "top-first" or "ascending-first" to an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "top-first":
		return TopFirst, nil
	case "ascending-first":
		return AscendingFirst, nil
	}
	return TopFirst, fmt.Errorf("unknown assignment order %q: must be top-first or ascending-first", s)
}

// tiers returns the non-explicit tiers in resolution order.
func (o Order) tiers() [2]Kind {
	if o == AscendingFirst {
		return [2]Kind{KindAscending, KindReclaimFromTop}
	}
	return [2]Kind{KindReclaimFromTop, KindAscending}
}
