package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lucas-stellet/eventsearch"
	"github.com/lucas-stellet/eventsearch/pgstore"
	"github.com/lucas-stellet/eventsearch/qdrantstore"
)

const configFile = ".eventsearch.toml"

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("EVENTSEARCH_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newService loads the configuration and wires the configured backends. The returned
// cleanup closes the stores and flushes traces.
func newService(ctx context.Context) (*eventsearch.Service, func(), error) {
	cfg, err := eventsearch.LoadConfig(configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s not found (run `eventsearch init` first)", configFile)
		}
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	// Env var overrides TOML data dir
	if envDir := os.Getenv("EVENTSEARCH_DATA"); envDir != "" {
		cfg.Vector.Dir = envDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log := newLogger()

	embedFn, err := cfg.BuildEmbedFunc()
	if err != nil {
		return nil, nil, fmt.Errorf("build embedder: %w", err)
	}
	timeout, _ := cfg.Timeout()

	tracer, shutdownTracing, err := initTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, nil, err
	}

	vectors, err := openVectorStore(ctx, cfg, log)
	if err != nil {
		shutdownTracing(ctx)
		return nil, nil, err
	}
	text, err := openTextSearcher(cfg, vectors, log)
	if err != nil {
		vectors.Close()
		shutdownTracing(ctx)
		return nil, nil, err
	}

	svc, err := eventsearch.NewService(eventsearch.ServiceConfig{
		Vectors:     vectors,
		Text:        text,
		EmbedFunc:   embedFn,
		TopK:        cfg.Search.TopK,
		MaxDistance: cfg.Search.MaxDistance,
		Timeout:     timeout,
		Logger:      log,
		Tracer:      tracer,
	})
	if err != nil {
		vectors.Close()
		shutdownTracing(ctx)
		return nil, nil, fmt.Errorf("init service: %w", err)
	}

	cleanup := func() {
		if err := svc.Close(); err != nil {
			log.Warn("close stores", "error", err)
		}
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("flush traces", "error", err)
		}
	}
	return svc, cleanup, nil
}

func openVectorStore(ctx context.Context, cfg *eventsearch.Config, log *slog.Logger) (eventsearch.VectorStore, error) {
	metric, _ := cfg.Metric()
	dims := cfg.Embedding.Dimensions

	switch cfg.Vector.Backend {
	case eventsearch.BackendPostgres:
		return openPostgres(cfg, metric, log)
	case eventsearch.BackendQdrant:
		s, err := qdrantstore.New(qdrantstore.Config{
			Addr:       cfg.Vector.Addr,
			Collection: cfg.Vector.Collection,
			Dims:       dims,
			Metric:     metric,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureCollection(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		fs, err := eventsearch.NewFileStore(eventsearch.FileStoreConfig{
			Dir:    cfg.Vector.Dir,
			Dims:   dims,
			Metric: metric,
		})
		if err != nil {
			return nil, err
		}
		log.Debug("file store opened", "dir", cfg.Vector.Dir, "records", fs.Len())
		return fs, nil
	}
}

func openTextSearcher(cfg *eventsearch.Config, vectors eventsearch.VectorStore, log *slog.Logger) (eventsearch.TextSearcher, error) {
	switch cfg.FullText.Backend {
	case eventsearch.BackendNone:
		return nil, nil
	case eventsearch.BackendPostgres:
		// Share the pool when vectors already live in the same database.
		if pg, ok := vectors.(*pgstore.Store); ok {
			return pg, nil
		}
		metric, _ := cfg.Metric()
		return openPostgres(cfg, metric, log)
	default:
		path := cfg.FullText.Path
		if path == "" {
			path = filepath.Join(cfg.Vector.Dir, "index.bleve")
		}
		return eventsearch.NewTextIndex(eventsearch.TextIndexConfig{
			Path:     path,
			Language: cfg.FullText.Language,
		})
	}
}

func openPostgres(cfg *eventsearch.Config, metric eventsearch.Metric, log *slog.Logger) (*pgstore.Store, error) {
	return pgstore.Open(pgstore.Config{
		DSN:          cfg.Vector.DSN,
		Table:        cfg.Vector.Table,
		EventsTable:  cfg.FullText.EventsTable,
		Dims:         cfg.Embedding.Dimensions,
		Metric:       metric,
		Language:     cfg.FullText.Language,
		MaxOpenConns: cfg.Vector.MaxOpenConns,
		Logger:       log,
	})
}

// optionalFloat is a flag that records whether it was set.
type optionalFloat struct{ v *float64 }

func (f *optionalFloat) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.FormatFloat(*f.v, 'g', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.v = &v
	return nil
}

// optionalInt64 is a flag that records whether it was set.
type optionalInt64 struct{ v *int64 }

func (f *optionalInt64) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.FormatInt(*f.v, 10)
}

func (f *optionalInt64) Set(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	f.v = &v
	return nil
}
