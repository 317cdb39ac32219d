// Package bitmap implements the field-presence projection used to filter
// embeddings by metadata shape without inspecting value contents: a
// collection's declared field order is projected onto a fixed-length
// bit-set, one bit per field, set iff that field is present in a given
// metadata object.
package bitmap

import "github.com/bits-and-blooms/bitset"

// Set is a fixed-length bit-set indexed by a collection's field order.
type Set struct {
	bits *bitset.BitSet
	n    uint
}

// New returns a Set of length n with every bit clear.
func New(n int) *Set {
	return &Set{bits: bitset.New(uint(n)), n: uint(n)}
}

// Project builds the presence bitmap for fields against hasKey, which
// reports whether a metadata object carries a given key. hasKey is nil
// when the metadata object itself is absent, in which case every bit is
// clear. Only key presence is examined; value contents never matter.
func Project(fields []string, hasKey func(key string) bool) *Set {
	s := New(len(fields))
	if hasKey == nil {
		return s
	}
	for i, f := range fields {
		if hasKey(f) {
			s.bits.Set(uint(i))
		}
	}
	return s
}

// Len returns the number of bit positions in s.
func (s *Set) Len() int {
	return int(s.n)
}

// Test reports whether bit i is set.
func (s *Set) Test(i int) bool {
	return s.bits.Test(uint(i))
}

// Matches reports whether filter is a subset of s: for every bit position
// i, filter[i] implies s[i]. A length mismatch returns false rather than
// panicking. A nil filter matches everything (the empty filter has no
// constraints to violate).
func (s *Set) Matches(filter *Set) bool {
	if filter == nil {
		return true
	}
	if s.n != filter.n {
		return false
	}
	// filter ⊆ s  <=>  filter &^ s has no bits set.
	diff := filter.bits.Difference(s.bits)
	return diff.None()
}
