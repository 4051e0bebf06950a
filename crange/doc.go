// Package crange implements a concurrent range collection: a
// lock-free-read, fine-grained-locked-write, epoch-reclaimed
// multi-level skip list of half-open integer intervals [key, key+size).
//
// Readers call List.Search to look up the first live node overlapping
// a query interval without ever taking a lock. Writers call List.Lock
// to obtain a Window — a locked run of the collection covering a query
// interval — and call Window.Replace to atomically substitute that
// run with a new set of disjoint, sorted nodes. Window.Release (or
// letting Replace's caller defer it) must always run exactly once per
// window.
package crange
