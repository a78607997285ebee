package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chronolens/internal/codec"
	"chronolens/internal/config"
	"chronolens/internal/errors"
	"chronolens/internal/parser"
	"chronolens/internal/parser/treesitter"
	"chronolens/internal/paths"
	"chronolens/internal/repository"
	"chronolens/internal/slogutil"
	"chronolens/internal/vcs"
	"chronolens/internal/vcs/gitvcs"
)

// app is the per-command environment: the repository root, its
// configuration and the process logger.
type app struct {
	root   string
	layout paths.Layout
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	stderr io.Writer
}

func newApp(stderr io.Writer) (*app, error) {
	start := repoFlag
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = wd
	}
	root := paths.FindRepoRoot(start)
	if root == "" {
		return nil, errors.Newf(errors.InvalidArgument, "%s is not inside a repository", start)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}
	if _, err := OutputFormat(formatFlag).validate(); err != nil {
		return nil, err
	}

	logFile := cfg.Logging.File
	if logFile != "" && !filepath.IsAbs(logFile) {
		logFile = filepath.Join(root, logFile)
	}
	logger, closer, err := slogutil.Setup(stderr, slogutil.Options{
		Level:      slogutil.LevelFromVerbosity(slogutil.LevelFromString(cfg.Logging.Level), verbosity, quietFlag),
		Format:     cfg.Logging.Format,
		File:       logFile,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return &app{
		root:   root,
		layout: paths.NewLayout(root, cfg.Store.Dir),
		cfg:    cfg,
		logger: logger,
		closer: closer,
		stderr: stderr,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func (a *app) Close() error {
	return a.closer.Close()
}

// vcsRegistry lists the supported version control backends.
func vcsRegistry() *vcs.Registry {
	r := vcs.NewRegistry()
	gitvcs.Register(r)
	return r
}

// live returns the repository read straight from version control.
func (a *app) live(ctx context.Context) (*repository.Interactive, error) {
	provider, err := vcsRegistry().Open(ctx, a.cfg.VCS.Backend, a.root, a.logger.With("component", "vcs"))
	if err != nil {
		return nil, err
	}
	provider = vcs.WithTimeout(provider, time.Duration(a.cfg.VCS.TimeoutMs)*time.Millisecond)

	parsers, err := parser.Build(treesitter.Factories(), a.cfg.Parsers.Enabled)
	if err != nil {
		return nil, err
	}
	return repository.NewInteractive(provider, parsers, repository.InteractiveOptions{
		Filter:  repository.Filter{Include: a.cfg.Persist.Include, Exclude: a.cfg.Persist.Exclude},
		Workers: a.cfg.Persist.Workers,
		Logger:  a.logger.With("component", "interactive"),
	}), nil
}

// repository returns the persisted store if there is one, otherwise the
// live repository. The returned closer releases the store.
func (a *app) repository(ctx context.Context) (repository.Repository, io.Closer, error) {
	stored, err := repository.Load(ctx, a.layout, repository.LoadOptions{
		Verify: a.cfg.Store.Verify,
		Logger: a.logger.With("component", "store"),
	})
	if err != nil {
		return nil, nil, err
	}
	if stored != nil {
		a.logger.Debug("Reading persisted store", "dir", a.layout.Store(), "head", stored.Marker().Head)
		return stored, stored, nil
	}
	a.logger.Debug("No persisted store, reading the repository live", "root", a.root)
	live, err := a.live(ctx)
	if err != nil {
		return nil, nil, err
	}
	return live, nopCloser{}, nil
}

func (a *app) persistOptions() repository.PersistOptions {
	return repository.PersistOptions{
		Compression: codec.Compression(a.cfg.Store.Compression),
		Workers:     a.cfg.Persist.Workers,
		Verify:      a.cfg.Store.Verify,
		Logger:      a.logger.With("component", "persist"),
	}
}

// withApp runs fn with a fresh app and closes it afterwards.
func withApp(stderr io.Writer, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(stderr)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}
