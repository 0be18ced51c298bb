// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/antimetal/ringtail/internal/tail"
)

var (
	lineLimit = flag.Int("n", 10, "Number of lines to output")
	byteLimit = flag.Int("c", 0, "Number of bytes to output (overrides -n when greater than 0)")
	quiet     = flag.Bool("q", false, "Never print headers giving file names")
	verbose   = flag.Bool("v", false, "Enable verbose logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [file ...]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Print the end of each file. With no file, or when file is -, read standard input.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Setup logger
	var zapLogger *zap.Logger
	var err error
	if *verbose {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(2)
	}

	os.Exit(runMain(zapLogger))
}

func runMain(zapLogger *zap.Logger) int {
	// Flush buffered entries before main calls os.Exit
	defer func() { _ = zapLogger.Sync() }()
	logger := zapr.NewLogger(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []tail.Option{tail.WithLogger(logger)}
	if *byteLimit > 0 {
		opts = append(opts, tail.WithBytes(*byteLimit))
	} else {
		opts = append(opts, tail.WithLines(*lineLimit))
	}
	tailer, err := tail.New(opts...)
	if err != nil {
		logger.Error(err, "invalid options")
		return 2
	}

	cfg := config{
		tailer: tailer,
		quiet:  *quiet,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	if err := run(ctx, cfg, flag.Args()); err != nil {
		logger.Error(err, "tail failed")
		return 1
	}
	return 0
}

type config struct {
	tailer *tail.Tailer
	quiet  bool
	stdin  io.Reader
	stdout io.Writer
}

// run tails every path concurrently and prints the results in argument order.
// Standard input is consumed by the first "-" only; later ones read nothing.
func run(ctx context.Context, cfg config, paths []string) error {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	results := make([]bytes.Buffer, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	stdinTaken := false
	for i, path := range paths {
		readStdin := path == "-" && !stdinTaken
		if readStdin {
			stdinTaken = true
		}
		g.Go(func() error {
			r, err := cfg.open(path, readStdin)
			if err != nil {
				return err
			}
			defer r.Close()

			if err := cfg.tailer.Tail(gCtx, r, &results[i]); err != nil {
				return fmt.Errorf("failed to tail %s: %w", displayName(path), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	headers := len(paths) > 1 && !cfg.quiet
	for i, path := range paths {
		if headers {
			if i > 0 {
				fmt.Fprintln(cfg.stdout)
			}
			fmt.Fprintf(cfg.stdout, "==> %s <==\n", displayName(path))
		}
		if _, err := results[i].WriteTo(cfg.stdout); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// open returns the reader for path. readStdin selects the goroutine that owns
// standard input when path is "-".
func (c config) open(path string, readStdin bool) (io.ReadCloser, error) {
	if path == "-" {
		if !readStdin {
			return io.NopCloser(strings.NewReader("")), nil
		}
		return io.NopCloser(c.stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

func displayName(path string) string {
	if path == "-" {
		return "standard input"
	}
	return path
}
