// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package ringbuffer provides a fixed-capacity circular buffer that overwrites
// the oldest unread elements when writers outpace readers.
package ringbuffer

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"unsafe"
)

// ErrInvalidCapacity is returned by New when the requested capacity cannot be
// allocated.
var ErrInvalidCapacity = errors.New("invalid ring buffer capacity")

// RingBuffer is a generic, thread-unsafe circular buffer that overwrites the
// oldest unread elements when capacity is reached.
//
// Elements are consumed on read: Next moves a value out of the buffer and the
// slot no longer references it. Writes always succeed. When the writer laps
// the reader, the reader skips ahead to the oldest element that still exists
// instead of returning overwritten data.
//
// The read and write cursors each carry an epoch that counts how many times the
// cursor wrapped past index zero. Comparing epochs is what distinguishes an
// empty buffer from a full one, so no element count or full flag is stored.
//
// Note: This implementation is NOT thread-safe. If concurrent access is needed,
// synchronization must be handled externally.
type RingBuffer[T any] struct {
	data []T

	read  int // next read position
	write int // next write position

	readEpoch  uint8
	writeEpoch uint8
}

// New creates a new ring buffer with the given capacity
func New[T any](capacity int) (*RingBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be greater than 0, got %d", ErrInvalidCapacity, capacity)
	}
	var zero T
	if size := unsafe.Sizeof(zero); size > 0 && uint64(capacity) > uint64(math.MaxInt)/uint64(size) {
		return nil, fmt.Errorf("%w: %d elements of %d bytes overflows the addressable size",
			ErrInvalidCapacity, capacity, size)
	}
	return &RingBuffer[T]{
		data: make([]T, capacity),
	}, nil
}

// MustNew is like New but panics if the buffer cannot be constructed.
func MustNew[T any](capacity int) *RingBuffer[T] {
	r, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return r
}

// Push adds an element to the ring buffer, overwriting the oldest unread
// element if full.
func (r *RingBuffer[T]) Push(item T) {
	r.data[r.write] = item
	r.write++
	if r.write == len(r.data) {
		r.write = 0
		r.writeEpoch++
		// A lag of two laps already marks the reader as overrun. Holding it
		// there keeps the 8-bit epochs from wrapping into a false "empty".
		if r.writeEpoch-r.readEpoch > 2 {
			r.readEpoch = r.writeEpoch - 2
		}
	}
}

// Next removes and returns the oldest unread element. The boolean is false
// when the buffer is empty.
func (r *RingBuffer[T]) Next() (T, bool) {
	var zero T
	if r.Empty() {
		return zero, false
	}

	if r.overrun() {
		// Everything between the reader and the writer was overwritten. The
		// oldest surviving element sits at the write cursor, one lap back.
		r.read = r.write
		r.readEpoch = r.writeEpoch - 1
	}

	item := r.data[r.read]
	r.data[r.read] = zero
	r.read++
	if r.read == len(r.data) {
		r.read = 0
		r.readEpoch++
	}
	return item, true
}

// All returns an iterator that pops elements until the buffer is empty.
// Iteration consumes the buffer and cannot be restarted; elements pushed
// during iteration are yielded as well.
func (r *RingBuffer[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			item, ok := r.Next()
			if !ok || !yield(item) {
				return
			}
		}
	}
}

// Drain removes all unread elements and returns them in chronological order
// (oldest to newest), leaving the buffer empty.
func (r *RingBuffer[T]) Drain() []T {
	result := make([]T, 0, r.Len())
	for item := range r.All() {
		result = append(result, item)
	}
	r.Clear()
	return result
}

// Clear resets the read and write cursors. Unread elements become unreachable
// through the buffer but stay in storage until they are overwritten.
func (r *RingBuffer[T]) Clear() {
	r.read = 0
	r.write = 0
	r.readEpoch = 0
	r.writeEpoch = 0
}

// Empty reports whether there are no unread elements.
func (r *RingBuffer[T]) Empty() bool {
	return r.read == r.write && r.readEpoch == r.writeEpoch
}

// Len returns the number of unread elements in the buffer
func (r *RingBuffer[T]) Len() int {
	switch lag := r.writeEpoch - r.readEpoch; {
	case lag == 0:
		return r.write - r.read
	case lag == 1 && r.read >= r.write:
		return len(r.data) - r.read + r.write
	default:
		return len(r.data)
	}
}

// Cap returns the capacity of the buffer
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

// overrun reports whether the writer has lapped the reader, i.e. whether the
// element at the read cursor has already been overwritten.
func (r *RingBuffer[T]) overrun() bool {
	lag := r.writeEpoch - r.readEpoch
	return lag > 1 || (lag == 1 && r.read < r.write)
}
