// Package label implements the label allocator and the label stores that are
// the source of truth for which files exist on the canvas. Three store
// instances are used: uploaded input files, derived text files, and promoted
// output files. The short alphabetic label is the join key across all three.
package label

import "sync"

// Sequence allocates short alphabetic labels in upload order:
// A, B, ... Z, AA, AB, ... (bijective base-26).
// Labels are never reused until the sequence is reset.
type Sequence struct {
	mu   sync.Mutex
	next int
}

// NewSequence creates a sequence starting at label "A".
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next label in the sequence and advances it.
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	s.next++
	return Letters(n)
}

// Reset restarts the sequence at "A". Only called when the canvas is cleared.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
}

// Advance moves the sequence forward so the next allocation comes after the
// given zero-based index. Earlier positions are never revisited. Used when
// restoring a canvas from a saved document.
func (s *Sequence) Advance(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n+1 > s.next {
		s.next = n + 1
	}
}

// Letters converts a zero-based index to its bijective base-26 label:
// 0 -> "A", 25 -> "Z", 26 -> "AA", 27 -> "AB".
func Letters(n int) string {
	if n < 0 {
		return ""
	}

	var buf []byte
	for {
		buf = append([]byte{byte('A' + n%26)}, buf...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(buf)
}

// Index converts a label back to its zero-based sequence position. It is the
// inverse of Letters; malformed input yields -1.
func Index(letters string) int {
	if letters == "" {
		return -1
	}
	n := 0
	for i := 0; i < len(letters); i++ {
		c := letters[i]
		if c < 'A' || c > 'Z' {
			return -1
		}
		n = n*26 + int(c-'A') + 1
	}
	return n - 1
}
