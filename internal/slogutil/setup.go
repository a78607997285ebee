package slogutil

import (
	"io"
	"log/slog"
)

// Options configures Setup.
type Options struct {
	Level      slog.Level
	Format     string
	File       string
	MaxSize    string
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the process logger. Records go to stderr and, if File is
// set, also to that file with size-based rotation. The returned closer
// flushes and closes the file.
func Setup(stderr io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	console := newHandler(stderr, opts.Level, opts.Format)
	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	size, err := ParseSize(opts.MaxSize)
	if err != nil {
		return nil, nil, err
	}
	rf, err := OpenRotatingFile(opts.File, size, opts.MaxBackups)
	if err != nil {
		return nil, nil, err
	}
	// the file records info and above even when the console is quieter
	fileLevel := min(opts.Level, slog.LevelInfo)
	file := newHandler(rf, fileLevel, opts.Format)
	return slog.New(NewTeeHandler(console, file)), rf, nil
}
