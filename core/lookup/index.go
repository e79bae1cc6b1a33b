// Package lookup provides the read-only indexes used while building a solve.
//
// Indexes are built once from the reference data of a request and never
// shared across requests.
package lookup

import "slices"

// Index groups records by a statically declared key.
type Index[K comparable, T any] struct {
	byKey map[K][]T
	size  int
}

// NewIndex builds an index of items keyed by key. Records keep their input
// order within a key.
func NewIndex[K comparable, T any](items []T, key func(T) K) *Index[K, T] {
	ix := &Index[K, T]{byKey: make(map[K][]T), size: len(items)}
	for _, it := range items {
		k := key(it)
		ix.byKey[k] = append(ix.byKey[k], it)
	}
	return ix
}

// Get returns a copy of the records stored under k.
func (ix *Index[K, T]) Get(k K) []T {
	return slices.Clone(ix.byKey[k])
}

// GetOneOrNone returns the single record stored under k. It fails with
// ErrAmbiguous if more than one record exists.
func (ix *Index[K, T]) GetOneOrNone(k K) (T, bool, error) {
	var zero T
	recs := ix.byKey[k]
	switch len(recs) {
	case 0:
		return zero, false, nil
	case 1:
		return recs[0], true, nil
	default:
		return zero, false, ErrAmbiguous
	}
}

// Len returns the number of indexed records.
func (ix *Index[K, T]) Len() int { return ix.size }
