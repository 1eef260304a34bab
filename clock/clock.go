// Package clock provides the single ambient time source used anywhere an
// inode timestamp is touched, so that tests can supply a deterministic
// clock instead of depending on wall time.
package clock

import "time"

// Clock returns the current time as a UNIX epoch-seconds value, matching
// the 32-bit timestamp fields packed into an on-disk inode.
type Clock interface {
	Now() uint32
}

// System is the production Clock, backed by time.Now.
type System struct{}

// Now returns time.Now as UNIX epoch seconds.
func (System) Now() uint32 {
	return uint32(time.Now().Unix())
}

// Fixed is a Clock that always returns the same value, for use in tests.
type Fixed uint32

// Now returns the fixed value.
func (f Fixed) Now() uint32 {
	return uint32(f)
}

// Sequence is a Clock that returns successive values starting from the
// value given to NewSequence,
// incrementing by one on every call, so that tests can assert ordering
// between two timestamps without needing them distinguishable only by
// wall-clock granularity.
type Sequence struct {
	next uint32
}

// NewSequence returns a Sequence whose first Now() call returns start.
func NewSequence(start uint32) *Sequence {
	return &Sequence{next: start}
}

// Now returns the next value in the sequence and advances it.
func (s *Sequence) Now() uint32 {
	v := s.next
	s.next++
	return v
}
