// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/antimetal/ringtail/internal/tail"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func newConfig(t *testing.T, stdin string, opts ...tail.Option) (config, *bytes.Buffer) {
	tailer, err := tail.New(opts...)
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return config{
		tailer: tailer,
		stdin:  strings.NewReader(stdin),
		stdout: out,
	}, out
}

func TestRun(t *testing.T) {
	t.Run("stdin when no paths", func(t *testing.T) {
		cfg, out := newConfig(t, "1\n2\n3\n", tail.WithLines(2))
		require.NoError(t, run(context.Background(), cfg, nil))
		assert.Equal(t, "2\n3\n", out.String())
	})

	t.Run("single file has no header", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "a.log", "one\ntwo\nthree\n")
		cfg, out := newConfig(t, "", tail.WithLines(1))
		require.NoError(t, run(context.Background(), cfg, []string{path}))
		assert.Equal(t, "three\n", out.String())
	})

	t.Run("multiple files keep argument order", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.log", "a1\na2\na3\n")
		b := writeFile(t, dir, "b.log", "b1\nb2\n")
		cfg, out := newConfig(t, "s1\ns2\n", tail.WithLines(2))

		require.NoError(t, run(context.Background(), cfg, []string{a, "-", b}))
		want := "==> " + a + " <==\na2\na3\n" +
			"\n==> standard input <==\ns1\ns2\n" +
			"\n==> " + b + " <==\nb1\nb2\n"
		assert.Equal(t, want, out.String())
	})

	t.Run("stdin read once", func(t *testing.T) {
		cfg, out := newConfig(t, "first\nlast1\nlast2\n", tail.WithLines(2))

		for i := 0; i < 20; i++ {
			out.Reset()
			cfg.stdin = strings.NewReader("first\nlast1\nlast2\n")
			require.NoError(t, run(context.Background(), cfg, []string{"-", "-"}))
			assert.Equal(t,
				"==> standard input <==\nlast1\nlast2\n\n==> standard input <==\n",
				out.String(), "iteration %d", i)
		}
	})

	t.Run("quiet suppresses headers", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.log", "a1\na2\n")
		b := writeFile(t, dir, "b.log", "b1\n")
		cfg, out := newConfig(t, "", tail.WithLines(1))
		cfg.quiet = true

		require.NoError(t, run(context.Background(), cfg, []string{a, b}))
		assert.Equal(t, "a2\nb1\n", out.String())
	})

	t.Run("byte mode", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "a.bin", "0123456789")
		cfg, out := newConfig(t, "", tail.WithBytes(3))
		require.NoError(t, run(context.Background(), cfg, []string{path}))
		assert.Equal(t, "789", out.String())
	})

	t.Run("missing file", func(t *testing.T) {
		dir := t.TempDir()
		a := writeFile(t, dir, "a.log", "a1\n")
		cfg, out := newConfig(t, "")

		err := run(context.Background(), cfg, []string{a, filepath.Join(dir, "missing.log")})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "missing.log")
		assert.Empty(t, out.String())
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg, _ := newConfig(t, "a\nb\n")
		err := run(ctx, cfg, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunMain_InvalidOptions(t *testing.T) {
	oldLines, oldBytes := *lineLimit, *byteLimit
	t.Cleanup(func() {
		*lineLimit, *byteLimit = oldLines, oldBytes
	})
	*lineLimit, *byteLimit = 0, 0

	core, logs := observer.New(zap.InfoLevel)
	assert.Equal(t, 2, runMain(zap.New(core)))

	entries := logs.FilterMessage("invalid options").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}
