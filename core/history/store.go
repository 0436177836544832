// Package history holds the bounded list of commands entered at the prompt.
package history

import (
	"iter"
	"strings"
	"unsafe"

	list "github.com/bahlo/generic-list-go"
)

// DefaultMax is the number of entries kept when no limit is configured.
const DefaultMax = 100

// Store is a bounded, ordered history. When a record pushes it past its
// limit the oldest entry is evicted.
//
// Store is not safe for concurrent use; the shell only touches it from the
// goroutine that reads input.
type Store struct {
	entries *list.List[string]
	max     int
}

// New creates a store holding at most max entries. A non-positive max uses
// DefaultMax.
func New(max int) *Store {
	if max <= 0 {
		max = DefaultMax
	}
	return &Store{entries: list.New[string](), max: max}
}

// Record appends text. Blank text is ignored.
func (s *Store) Record(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.entries.PushBack(text)
	if s.entries.Len() > s.max {
		s.EvictOldest()
	}
}

// EvictOldest drops the oldest entry, if any.
func (s *Store) EvictOldest() {
	if front := s.entries.Front(); front != nil {
		s.entries.Remove(front)
	}
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.entries.Init()
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return s.entries.Len()
}

// Max returns the capacity.
func (s *Store) Max() int {
	return s.max
}

// List yields entries oldest first, numbered from 1.
func (s *Store) List() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := 1
		for e := s.entries.Front(); e != nil; e = e.Next() {
			if !yield(i, e.Value) {
				return
			}
			i++
		}
	}
}

// Backward yields entries newest first. Numbering matches List.
func (s *Store) Backward() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		i := s.entries.Len()
		for e := s.entries.Back(); e != nil; e = e.Prev() {
			if !yield(i, e.Value) {
				return
			}
			i--
		}
	}
}

// Entries returns a copy of the entries, oldest first.
func (s *Store) Entries() []string {
	out := make([]string, 0, s.entries.Len())
	for _, text := range s.List() {
		out = append(out, text)
	}
	return out
}

// ApproxBytes estimates the memory held by the store: the text of every
// entry plus per-element bookkeeping.
func (s *Store) ApproxBytes() uint64 {
	var elem list.Element[string]
	overhead := uint64(unsafe.Sizeof(elem))

	var total uint64
	for _, text := range s.List() {
		total += overhead + uint64(len(text))
	}
	return total
}
