package instr

// DefaultGrowth is the number of slots the table starts with and grows by.
const DefaultGrowth = 200

// DefaultMaxNumber is the highest instrument number a registry accepts
// unless configured otherwise.
const DefaultMaxNumber = 1 << 16

// Slot is an occupied entry of the instrument-number table.
type Slot struct {
	// Name is the instrument name, empty for unnamed numbered instruments.
	Name string

	// Body is the compiled instrument, owned by the compiler.
	Body any
}

// Table is the instrument-number table: slots 1..Max(), indexed by number.
// Slot 0 is never used.
type Table struct {
	slots  []*Slot
	growth int
}

// NewTable creates a table with growth slots that grows by growth.
func NewTable(growth int) *Table {
	if growth < 1 {
		growth = DefaultGrowth
	}
	return &Table{slots: make([]*Slot, growth+1), growth: growth}
}

// Max returns the highest slot number the table can currently hold.
func (t *Table) Max() int {
	return len(t.slots) - 1
}

// Growth returns the growth increment.
func (t *Table) Growth() int {
	return t.growth
}

// Get returns slot n, or nil if n is out of range or free.
func (t *Table) Get(n int) *Slot {
	if n < 1 || n >= len(t.slots) {
		return nil
	}
	return t.slots[n]
}

// Occupied reports whether slot n holds an instrument.
func (t *Table) Occupied(n int) bool {
	return t.Get(n) != nil
}

// Highest returns the highest occupied slot number, or 0 if the table is
// empty.
func (t *Table) Highest() int {
	n := t.Max()
	for n > 0 && t.slots[n] == nil {
		n--
	}
	return n
}

// Count returns the number of occupied slots.
func (t *Table) Count() int {
	c := 0
	for _, s := range t.slots {
		if s != nil {
			c++
		}
	}
	return c
}

// grow adds one growth increment of zeroed slots.
func (t *Table) grow() {
	t.slots = append(t.slots, make([]*Slot, t.growth)...)
}

// ensure grows the table until it can hold slot n.
func (t *Table) ensure(n int) {
	for n > t.Max() {
		t.grow()
	}
}

// install stores s at slot n, growing the table as needed.
func (t *Table) install(n int, s *Slot) {
	t.ensure(n)
	t.slots[n] = s
}

// nextFree returns the first free slot above cursor. The result may lie
// past Max; install grows the table to reach it.
func (t *Table) nextFree(cursor int) int {
	n := cursor + 1
	for n <= t.Max() && t.slots[n] != nil {
		n++
	}
	return n
}

// clear frees slot n.
func (t *Table) clear(n int) {
	if n >= 1 && n <= t.Max() {
		t.slots[n] = nil
	}
}

// Each calls fn for every occupied slot in ascending order.
func (t *Table) Each(fn func(n int, s *Slot) bool) {
	for n := 1; n < len(t.slots); n++ {
		if t.slots[n] != nil && !fn(n, t.slots[n]) {
			return
		}
	}
}

// reset drops every slot and shrinks back to the initial capacity.
func (t *Table) reset() {
	t.slots = make([]*Slot, t.growth+1)
}
