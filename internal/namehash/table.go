package namehash

// entry is one link in a bucket chain.
type entry[V any] struct {
	name  string
	value V
	next  *entry[V]
}

// Table maps names to values using 256 singly linked buckets.
//
// New entries are linked at the head of their bucket. Lookups scan the
// chain with Equal. The zero value is an empty table ready for use.
//
// Table is not safe for concurrent mutation.
type Table[V any] struct {
	buckets [Buckets]*entry[V]
	n       int
}

// Lookup returns the value stored under name. It never allocates.
func (t *Table[V]) Lookup(name string) (V, bool) {
	for e := t.buckets[Hash(name)]; e != nil; e = e.next {
		if Equal(e.name, name) {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Insert stores value under name. It returns false, leaving the table
// unchanged, if name is already present.
func (t *Table[V]) Insert(name string, value V) bool {
	h := Hash(name)
	for e := t.buckets[h]; e != nil; e = e.next {
		if Equal(e.name, name) {
			return false
		}
	}
	t.buckets[h] = &entry[V]{name: name, value: value, next: t.buckets[h]}
	t.n++
	return true
}

// Set replaces the value stored under an existing name. It returns false
// if name is not present.
func (t *Table[V]) Set(name string, value V) bool {
	for e := t.buckets[Hash(name)]; e != nil; e = e.next {
		if Equal(e.name, name) {
			e.value = value
			return true
		}
	}
	return false
}

// Delete unlinks name and returns its value.
func (t *Table[V]) Delete(name string) (V, bool) {
	h := Hash(name)
	var prev *entry[V]
	for e := t.buckets[h]; e != nil; prev, e = e, e.next {
		if !Equal(e.name, name) {
			continue
		}
		if prev == nil {
			t.buckets[h] = e.next
		} else {
			prev.next = e.next
		}
		t.n--
		return e.value, true
	}
	var zero V
	return zero, false
}

// Each calls fn for every entry in bucket order, newest first within a
// bucket, until fn returns false.
func (t *Table[V]) Each(fn func(name string, value V) bool) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			if !fn(e.name, e.value) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (t *Table[V]) Len() int {
	return t.n
}

// Reset removes every entry.
func (t *Table[V]) Reset() {
	t.buckets = [Buckets]*entry[V]{}
	t.n = 0
}
