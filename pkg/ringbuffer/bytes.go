// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package ringbuffer

import "io"

// Compile-time interface checks
var (
	_ io.Reader       = (*Bytes)(nil)
	_ io.Writer       = (*Bytes)(nil)
	_ io.StringWriter = (*Bytes)(nil)
	_ io.ByteReader   = (*Bytes)(nil)
	_ io.ByteWriter   = (*Bytes)(nil)
)

// Bytes is a byte ring buffer usable as an io.Reader and io.Writer.
//
// Writes never fail and never block: once more than Cap bytes are written
// without being read, only the most recent Cap bytes are retained.
type Bytes struct {
	RingBuffer[byte]
}

// NewBytes creates a byte ring buffer holding at most capacity bytes.
func NewBytes(capacity int) (*Bytes, error) {
	r, err := New[byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Bytes{RingBuffer: *r}, nil
}

// Read pops up to len(p) bytes into p and returns how many were copied.
// If the buffer is empty it returns 0, io.EOF. Later writes make data
// available again.
func (b *Bytes) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for c := range b.All() {
		p[n] = c
		n++
		if n == len(p) {
			break
		}
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadByte pops a single byte, returning io.EOF if the buffer is empty.
func (b *Bytes) ReadByte() (byte, error) {
	c, ok := b.Next()
	if !ok {
		return 0, io.EOF
	}
	return c, nil
}

// Write pushes every byte of p. It always returns len(p), nil.
func (b *Bytes) Write(p []byte) (int, error) {
	for _, c := range p {
		b.Push(c)
	}
	return len(p), nil
}

// WriteString pushes every byte of s. It always returns len(s), nil.
func (b *Bytes) WriteString(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		b.Push(s[i])
	}
	return len(s), nil
}

// WriteByte pushes c. It never fails.
func (b *Bytes) WriteByte(c byte) error {
	b.Push(c)
	return nil
}
