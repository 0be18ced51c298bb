// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package tail retains the end of a stream in a fixed amount of memory.
package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"

	"github.com/antimetal/ringtail/pkg/ringbuffer"
)

const (
	// Default number of lines to keep
	defaultLines = 10

	// Chunk size used when reading input in byte mode
	readChunkSize = 32 * 1024

	// Default cap on a single line, matching bufio.MaxScanTokenSize
	defaultMaxLineSize = bufio.MaxScanTokenSize
)

// Mode selects what a Tailer retains.
type Mode string

const (
	ModeLines Mode = "lines"
	ModeBytes Mode = "bytes"
)

// Tailer keeps the last N lines or bytes of a reader.
// Every call uses its own ring buffer, so a Tailer can serve several readers
// concurrently.
type Tailer struct {
	logger      logr.Logger
	mode        Mode
	limit       int
	maxLineSize int
}

type Option func(*Tailer) error

func WithLogger(logger logr.Logger) Option {
	return func(t *Tailer) error {
		t.logger = logger
		return nil
	}
}

// WithLines keeps the last n lines.
func WithLines(n int) Option {
	return func(t *Tailer) error {
		if n <= 0 {
			return fmt.Errorf("line limit must be greater than 0, got %d", n)
		}
		t.mode = ModeLines
		t.limit = n
		return nil
	}
}

// WithBytes keeps the last n bytes.
func WithBytes(n int) Option {
	return func(t *Tailer) error {
		if n <= 0 {
			return fmt.Errorf("byte limit must be greater than 0, got %d", n)
		}
		t.mode = ModeBytes
		t.limit = n
		return nil
	}
}

// WithMaxLineSize sets the longest line accepted in line mode.
func WithMaxLineSize(n int) Option {
	return func(t *Tailer) error {
		if n <= 0 {
			return fmt.Errorf("max line size must be greater than 0, got %d", n)
		}
		t.maxLineSize = n
		return nil
	}
}

func New(opts ...Option) (*Tailer, error) {
	t := &Tailer{
		logger:      logr.Discard(),
		mode:        ModeLines,
		limit:       defaultLines,
		maxLineSize: defaultMaxLineSize,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	t.logger = t.logger.WithName("tail")
	return t, nil
}

func (t *Tailer) Mode() Mode {
	return t.mode
}

func (t *Tailer) Limit() int {
	return t.limit
}

// Lines returns the last lines of r in order, without line terminators.
func (t *Tailer) Lines(ctx context.Context, r io.Reader) ([]string, error) {
	ringBuf, err := ringbuffer.New[string](t.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to create ring buffer: %w", err)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(t.maxLineSize, 4096)), t.maxLineSize)

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !scanner.Scan() {
			break
		}
		ringBuf.Push(scanner.Text())
		seen++
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("line exceeds %d bytes: %w", t.maxLineSize, err)
		}
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	lines := ringBuf.Drain()
	t.logger.V(1).Info("Collected lines", "seen", seen, "kept", len(lines), "dropped", seen-len(lines), "limit", t.limit)
	return lines, nil
}

// Bytes returns the last bytes of r.
func (t *Tailer) Bytes(ctx context.Context, r io.Reader) ([]byte, error) {
	ringBuf, err := ringbuffer.NewBytes(t.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to create ring buffer: %w", err)
	}

	buf := make([]byte, min(t.limit, readChunkSize))
	var seen int64
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		// Bytes ring writes never fail
		_, _ = ringBuf.Write(buf[:n])
		seen += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}

	data, err := io.ReadAll(ringBuf)
	if err != nil {
		return nil, fmt.Errorf("failed to drain ring buffer: %w", err)
	}
	t.logger.V(1).Info("Collected bytes", "seen", seen, "kept", len(data), "limit", t.limit)
	return data, nil
}

// Tail writes the retained end of r to w.
// In line mode every line is written with a trailing newline, including a
// final line that had none in the input.
func (t *Tailer) Tail(ctx context.Context, r io.Reader, w io.Writer) error {
	switch t.mode {
	case ModeBytes:
		data, err := t.Bytes(ctx, r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case ModeLines:
		lines, err := t.Lines(ctx, r)
		if err != nil {
			return err
		}
		bw := bufio.NewWriter(w)
		for _, line := range lines {
			if _, err := bw.WriteString(line); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
		return bw.Flush()
	default:
		return fmt.Errorf("unknown tail mode %q", t.mode)
	}
}
