package cmd

import (
	"fmt"

	"github.com/tolaria/manasearch/pkg/config"
	"github.com/tolaria/manasearch/pkg/history"
	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/scryfall"
	"github.com/tolaria/manasearch/pkg/searcher"
	"github.com/tolaria/manasearch/pkg/translate"
)

// pipeline bundles the shared pieces of the search pipeline built from config.
type pipeline struct {
	cfg     *config.Config
	cache   *translate.Cache
	history *history.Store
	limiter *searcher.Limiter
	cards   *scryfall.Client
}

// buildPipeline assembles the translation cache, history store, limiter and
// card client from the config file. Callers must call close when done.
func buildPipeline(configPath string) (*pipeline, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	client := translate.NewClient(cfg.Translator.Endpoint, cfg.Translator.APIKey)
	cache := translate.NewCache(client, cfg.Cache.TTL.Duration, cfg.Cache.MaxEntries)

	if cfg.Cache.Snapshot {
		if err := cache.LoadSnapshot(cfg.SnapshotPath()); err != nil {
			log.ForService("cache").Warnf("loading snapshot: %v", err)
		}
	}

	hist, err := history.Open(cfg.HistoryDBPath(), cfg.History.MaxEntries)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history: %w", err)
	}

	p := &pipeline{
		cfg:     cfg,
		cache:   cache,
		history: hist,
		limiter: searcher.NewLimiter(),
		cards:   scryfall.NewClient(cfg.Scryfall.Endpoint, cfg.Scryfall.MinInterval.Duration),
	}

	cleanup := func() {
		if cfg.Cache.Snapshot {
			if err := cache.SaveSnapshot(cfg.SnapshotPath()); err != nil {
				log.ForService("cache").Warnf("saving snapshot: %v", err)
			}
		}
		if err := hist.Close(); err != nil {
			log.ForService("history").Warnf("closing history: %v", err)
		}
	}
	return p, cleanup, nil
}
