package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/labrasa/salesdash/internal/config"
	"github.com/labrasa/salesdash/internal/geocode"
	"github.com/labrasa/salesdash/internal/logger"
	"github.com/labrasa/salesdash/internal/metrics"
	"github.com/labrasa/salesdash/internal/normalize"
	"github.com/labrasa/salesdash/internal/pipeline"
	"github.com/labrasa/salesdash/internal/runlock"
	"github.com/labrasa/salesdash/internal/source"
	"github.com/labrasa/salesdash/internal/store"
)

// loadConfig reads the config file chosen by --config or the search path and installs the logger.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Log.Level, err)
	}
	return cfg, nil
}

func newNormalizer(cfg *config.Config) (*normalize.Normalizer, error) {
	rule, err := normalize.NewTimestampRule(cfg.Normalize.SourceTimezone, cfg.Normalize.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to build timestamp rule: %w", err)
	}
	return normalize.New(normalize.Options{
		Timestamps:       rule,
		DeliveryChannels: cfg.Normalize.DeliveryChannels,
		DeriveCancelled:  cfg.Normalize.DeriveCancelled,
	}), nil
}

func newResolver(cfg *config.Config) (*geocode.Resolver, error) {
	cache, err := geocode.Load(cfg.Geocode.CacheFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load geocode cache: %w", err)
	}
	client := geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.Timeout)
	return geocode.NewResolver(cache, client, cfg.Geocode.Workers), nil
}

// sourceFor returns a single-file source when file is set, the configured source otherwise.
func sourceFor(cfg *config.Config, file string) (source.Source, error) {
	if file != "" {
		return &source.FileSource{Path: file}, nil
	}
	return source.New(cfg.Source)
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, io.Closer, error) {
	st, closer, err := store.Open(ctx, cfg.Store, cfg.Normalize.Location())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	return st, closer, nil
}

// newRunner wires one ETL run. The store stays owned by the caller.
func newRunner(cfg *config.Config, src source.Source, st *store.Store, resolver *geocode.Resolver, rec *metrics.Recorder) (*pipeline.Runner, error) {
	norm, err := newNormalizer(cfg)
	if err != nil {
		return nil, err
	}
	return &pipeline.Runner{
		Source:       src,
		Normalizer:   norm,
		Store:        st,
		Geocoder:     resolver,
		Lock:         runlock.New(cfg.RunLock.Path, cfg.RunLock.StaleAfter),
		Metrics:      rec,
		FetchTimeout: cfg.Source.SessionTimeout,
	}, nil
}
