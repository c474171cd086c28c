package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/cache"
	"github.com/kailas-cloud/geogrub/internal/config"
	dbValkey "github.com/kailas-cloud/geogrub/internal/db/valkey"
	"github.com/kailas-cloud/geogrub/internal/domain"
	logpkg "github.com/kailas-cloud/geogrub/internal/logger"
	"github.com/kailas-cloud/geogrub/internal/metrics"
	"github.com/kailas-cloud/geogrub/internal/repository/cachestore"
	favoritesrepo "github.com/kailas-cloud/geogrub/internal/repository/favorites"
	chiTransport "github.com/kailas-cloud/geogrub/internal/transport/chi"
	"github.com/kailas-cloud/geogrub/internal/transport/ipapi"
	"github.com/kailas-cloud/geogrub/internal/transport/nominatim"
	openaiSum "github.com/kailas-cloud/geogrub/internal/transport/openai"
	"github.com/kailas-cloud/geogrub/internal/transport/places"
	detailuc "github.com/kailas-cloud/geogrub/internal/usecase/detail"
	favoritesuc "github.com/kailas-cloud/geogrub/internal/usecase/favorites"
	healthuc "github.com/kailas-cloud/geogrub/internal/usecase/health"
	locationuc "github.com/kailas-cloud/geogrub/internal/usecase/location"
	photouc "github.com/kailas-cloud/geogrub/internal/usecase/photo"
	searchuc "github.com/kailas-cloud/geogrub/internal/usecase/search"
	sessionuc "github.com/kailas-cloud/geogrub/internal/usecase/session"
	"github.com/kailas-cloud/geogrub/internal/version"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err.Error())
	}

	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting geogrub API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.String("favorites_driver", cfg.Favorites.Driver),
		zap.Bool("summaries", cfg.Summary.Enabled()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterProviderMetrics()
	metrics.RegisterHTTPMetrics()

	ctx := context.Background()

	layer, pinger, closeCache := buildCache(ctx, cfg.Cache, logger)
	defer closeCache()

	// Providers
	placesClient := places.NewClient(cfg.Places.APIKey,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithHTTPClient(&http.Client{Timeout: seconds(cfg.Places.TimeoutSec)}),
		places.WithRateLimit(cfg.Places.RequestsPerSecond),
		places.WithLogger(logger),
	)
	geocoder := nominatim.NewGeocoder(nominatim.Config{
		BaseURL:   cfg.Geocoding.BaseURL,
		UserAgent: cfg.Geocoding.UserAgent,
		Timeout:   seconds(cfg.Geocoding.TimeoutSec),
	})
	locator := ipapi.NewLocator(cfg.Locate.BaseURL, seconds(cfg.Locate.TimeoutSec))

	// Pass nil interfaces (not typed nil pointers) when summaries are off.
	var summarizer detailuc.Summarizer
	var summaryChecker healthuc.SummaryChecker
	if cfg.Summary.Enabled() {
		s := openaiSum.NewSummarizer(&openaiSum.Config{
			APIKey:    cfg.Summary.APIKey,
			BaseURL:   cfg.Summary.BaseURL,
			Model:     cfg.Summary.Model,
			MaxTokens: cfg.Summary.MaxTokens,
			Logger:    logger,
		})
		summarizer = s
		summaryChecker = s
	}

	// Use cases
	locationSvc := locationuc.New(layer, geocoder, locator, cfg.Geocoding.CountrySuffix, logger)
	searchSvc := searchuc.New(placesClient, layer, searchuc.Config{
		Category:          cfg.Places.Category,
		RadiusMeters:      cfg.Places.RadiusMeters,
		MaxPages:          cfg.Places.MaxPages,
		PageDelay:         cfg.Places.PageDelay(),
		KeyIncludesParams: cfg.Cache.KeyIncludesParams,
	}, logger)
	sessionSvc := sessionuc.New(locationSvc, searchSvc, domain.SearchOptions{
		RadiusMeters: cfg.Places.RadiusMeters,
		MaxPages:     cfg.Places.MaxPages,
	}, logger)
	defer sessionSvc.Close()

	detailSvc := detailuc.New(placesClient, summarizer)
	photoSvc := photouc.New(placesClient, layer, logger)

	favBackend, closeFavorites, err := buildFavorites(cfg.Favorites)
	if err != nil {
		logger.Fatal("Failed to open favorites store", zap.Error(err))
	}
	defer closeFavorites()
	favoritesSvc := favoritesuc.New(favBackend, logger)
	loaded := favoritesSvc.Load(ctx)
	logger.Info("Favorites loaded",
		zap.String("location", favBackend.Location()),
		zap.Int("count", len(loaded)),
	)

	healthSvc := healthuc.New(pinger, summaryChecker)

	server := chiTransport.NewServer(
		sessionSvc, searchSvc, locationSvc, detailSvc, photoSvc, favoritesSvc, healthSvc,
		cfg.Places.PhotoMaxWidth, logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(cfg.Auth.APIKeys),
		ReadTimeout:  seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: seconds(cfg.HTTP.WriteTimeoutSec),
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildCache assembles the cache layer. With the valkey driver the coordinate
// and result tiers read through a bounded in-process memo to the shared store;
// images always stay in process.
func buildCache(
	ctx context.Context,
	cfg config.CacheConfig,
	logger *zap.Logger,
) (*cache.Layer, healthuc.CachePinger, func()) {
	opts := []cache.Option{cache.WithCounter(metrics.CacheTotal)}

	if cfg.Driver != "valkey" {
		return cache.New(cfg.MaxEntries, opts...), nil, func() {}
	}

	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	if err := store.WaitForReady(ctx, seconds(cfg.ReadinessTimeout)); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Addrs))

	coords := cachestore.New[domain.Coordinate](store, cfg.KeyPrefix+"coord:", logger)
	results := cachestore.New[[]domain.PlaceSummary](store, cfg.KeyPrefix+"results:", logger)
	opts = append(opts,
		cache.WithCoordinateTier(cache.NewReadThrough[string, domain.Coordinate](
			cache.NewMemo[string, domain.Coordinate](cfg.MaxEntries), coords)),
		cache.WithResultTier(cache.NewReadThrough[string, []domain.PlaceSummary](
			cache.NewMemo[string, []domain.PlaceSummary](cfg.MaxEntries), results)),
	)
	return cache.New(cfg.MaxEntries, opts...), store, store.Close
}

// buildFavorites opens the configured backend and returns its closer.
func buildFavorites(cfg config.FavoritesConfig) (favoritesuc.Backend, func(), error) {
	if cfg.Driver == "sqlite" {
		s, err := favoritesrepo.NewSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite favorites: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	}
	return favoritesrepo.NewJSONFile(cfg.Path), func() {}, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
