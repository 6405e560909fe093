package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tolaria/manasearch/pkg/api"
	"github.com/tolaria/manasearch/pkg/config"
	"github.com/tolaria/manasearch/pkg/history"
	"github.com/tolaria/manasearch/pkg/log"
	"github.com/tolaria/manasearch/pkg/scryfall"
	"github.com/tolaria/manasearch/pkg/searcher"
	"github.com/tolaria/manasearch/pkg/translate"
	"github.com/urfave/cli/v3"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the search API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address (overrides config)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("debug") {
				log.SetGlobalDebug(true)
			}
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

// swappableTranslator lets config reloads replace the backend client without
// rebuilding the cache wrapped around it.
type swappableTranslator struct {
	mu    sync.RWMutex
	inner translate.Translator
}

func (s *swappableTranslator) Translate(ctx context.Context, req translate.Request) (*translate.Result, error) {
	s.mu.RLock()
	inner := s.inner
	s.mu.RUnlock()
	return inner.Translate(ctx, req)
}

func (s *swappableTranslator) swap(inner translate.Translator) {
	s.mu.Lock()
	s.inner = inner
	s.mu.Unlock()
}

func serve(ctx context.Context, configPath, listenOverride string) error {
	logger := log.ForService("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	swapper := &swappableTranslator{
		inner: translate.NewClient(cfg.Translator.Endpoint, cfg.Translator.APIKey),
	}
	cache := translate.NewCache(swapper, cfg.Cache.TTL.Duration, cfg.Cache.MaxEntries)
	if cfg.Cache.Snapshot {
		if err := cache.LoadSnapshot(cfg.SnapshotPath()); err != nil {
			logger.Warnf("loading cache snapshot: %v", err)
		} else if n := cache.Len(); n > 0 {
			logger.Infof("restored %d cached translations", n)
		}
	}

	hist, err := history.Open(cfg.HistoryDBPath(), cfg.History.MaxEntries)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logger.Warnf("closing history: %v", err)
		}
	}()

	limiter := searcher.NewLimiter()
	cards := scryfall.NewClient(cfg.Scryfall.Endpoint, cfg.Scryfall.MinInterval.Duration)

	server := api.NewServer(cache, hist, limiter, cards, api.Config{
		Timeout:  cfg.Translator.Timeout.Duration,
		Cooldown: cfg.Translator.Cooldown.Duration,
	})

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	listenAddr := cfg.Server.ListenAddr
	if listenOverride != "" {
		listenAddr = listenOverride
	}
	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: api.CorsMiddleware(mux),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Watch the config file so translator endpoint/key changes apply without
	// a restart. Editors often replace the file, so re-add after rename.
	var watchEvents chan fsnotify.Event
	var watchErrors chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("creating config watcher: %v", err)
	} else {
		watchEvents = watcher.Events
		watchErrors = watcher.Errors
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("closing config watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("watching config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
	}

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("http shutdown: %v", err)
		}
		if cfg.Cache.Snapshot {
			if err := cache.SaveSnapshot(cfg.SnapshotPath()); err != nil {
				logger.Warnf("saving cache snapshot: %v", err)
			}
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown()
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				reloadTranslator(configPath, swapper, logger)
			default:
				logger.Infof("shutting down")
				return shutdown()
			}
		case event, ok := <-watchEvents:
			if !ok {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					time.Sleep(200 * time.Millisecond)
					if _, err := os.Stat(configPath); os.IsNotExist(err) {
						logger.Warnf("config file removed and not replaced, skipping reload")
						continue
					}
					if err := watcher.Add(configPath); err != nil {
						logger.Warnf("re-adding config file to watcher: %v", err)
					}
				} else {
					time.Sleep(100 * time.Millisecond)
				}
				reloadTranslator(configPath, swapper, logger)
			}
		case err, ok := <-watchErrors:
			if !ok {
				continue
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

// reloadTranslator re-reads the config and swaps in a fresh backend client.
// Only translator endpoint and API key changes take effect; cache geometry
// and timeouts stay as they were at startup.
func reloadTranslator(configPath string, swapper *swappableTranslator, logger *log.Logger) {
	newCfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Warnf("reloading config: %v", err)
		return
	}
	swapper.swap(translate.NewClient(newCfg.Translator.Endpoint, newCfg.Translator.APIKey))
	logger.Infof("translator reloaded, endpoint %s", newCfg.Translator.Endpoint)
}
