// Package xferbuf models the shared DMA/transfer buffer used by block
// reads during startup scans and replay: a single shared resource whose
// acquisition may suspend the caller for up to a caller-provided timeout
// (spec.md §5). Modeled as a weighted semaphore of weight 1 rather than a
// hand-rolled channel-based mutex, grounded on the pack's use of
// golang.org/x/sync for bounded concurrent resources.
package xferbuf

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Buffer is the shared scratch buffer capability.
type Buffer interface {
	// Get acquires the buffer, blocking (subject to ctx's deadline)
	// until available, and returns a slice of size bytes, or of the
	// buffer's whole capacity if size exceeds it.
	Get(ctx context.Context, size int) ([]byte, error)
	// Free releases the buffer for the next caller.
	Free()
}

// Shared is the single process-wide transfer buffer.
type Shared struct {
	sem *semaphore.Weighted
	buf []byte
}

// NewShared allocates a transfer buffer of the given size backed by a
// weight-1 semaphore, so at most one caller holds it at a time.
func NewShared(size int) *Shared {
	return &Shared{
		sem: semaphore.NewWeighted(1),
		buf: make([]byte, size),
	}
}

// Get acquires the buffer. size must not exceed the buffer's capacity.
func (s *Shared) Get(ctx context.Context, size int) ([]byte, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if size > len(s.buf) {
		size = len(s.buf)
	}
	return s.buf[:size], nil
}

// Free releases the buffer.
func (s *Shared) Free() {
	s.sem.Release(1)
}
