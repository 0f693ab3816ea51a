package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/DMarby/image-api/internal/cache"
	"github.com/DMarby/image-api/internal/cache/memory"
	"github.com/DMarby/image-api/internal/cache/redis"
	"github.com/DMarby/image-api/internal/cmd"
	"github.com/DMarby/image-api/internal/health"
	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/image/codec"
	"github.com/DMarby/image-api/internal/image/pipeline"
	"github.com/DMarby/image-api/internal/logger"
	"github.com/DMarby/image-api/internal/metrics"
	"github.com/DMarby/image-api/internal/tracing"

	api "github.com/DMarby/image-api/internal/imageapi"

	"github.com/jamiealquiza/envy"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Comandline flags
var (
	// Global
	listen        = flag.String("listen", ":8080", "listen address")
	metricsListen = flag.String("metrics-listen", "127.0.0.1:8082", "metrics listen address")
	loglevel      = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")

	// Processing
	workers        = flag.Int("workers", runtime.NumCPU(), "number of images to process concurrently")
	maxUploadSize  = flag.Int64("max-upload-size", api.DefaultMaxUploadSize, "maximum size of an upload in bytes")
	handlerTimeout = flag.Duration("handler-timeout", cmd.HandlerTimeout, "maximum time to spend handling a request")
	corsOrigins    = flag.String("cors-origins", "", "comma separated list of origins allowed to make browser requests, all origins when empty")

	// Cache
	cacheBackend = flag.String("cache", "none", "which cache backend to use (none, memory, redis)")
	cacheTTL     = flag.Duration("cache-ttl", time.Hour, "how long redis keeps cached results, forever when 0")

	// Cache - Memory
	cacheMemoryEntries = flag.Int("cache-memory-entries", memory.DefaultEntries, "maximum number of results to keep in memory")

	// Cache - Redis
	cacheRedisAddress  = flag.String("cache-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	cacheRedisPoolSize = flag.Int("cache-redis-pool-size", 10, "redis connection pool size")

	// Tracing
	tracingExporter = flag.String("tracing-exporter", tracing.ExporterNone, "which trace exporter to use (none, otlp, stdout)")
)

func main() {
	// Parse environment variables
	envy.Parse("IMAGE_API")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.New(*loglevel)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Initialize tracing
	tracer, err := tracing.New(shutdownCtx, log, "image-api", *tracingExporter)
	if err != nil {
		log.Fatalf("error initializing tracing: %s", err)
	}
	defer tracer.Shutdown(context.Background())

	// Initialize the cache
	cacheProvider, err := setupCache(shutdownCtx, tracer)
	if err != nil {
		log.Fatalf("error initializing cache: %s", err)
	}

	var resultCache *image.Cache
	if cacheProvider != nil {
		defer cacheProvider.Shutdown()
		resultCache = image.NewCache(tracer, cacheProvider)
	}

	// Initialize the image processor
	imageProcessorCtx, imageProcessorCancel := context.WithCancel(context.Background())
	defer imageProcessorCancel()

	c := codec.New()
	imageProcessor := pipeline.New(imageProcessorCtx, log, tracer, *workers, c, resultCache)

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:   checkerCtx,
		Codec: c,
		Log:   log,
	}
	if cacheProvider != nil {
		checker.Cache = cacheProvider
	}
	go checker.Run()

	// Start the metrics http server
	go metrics.Serve(shutdownCtx, log, checker, *metricsListen)

	// Start and listen on http
	api := &api.API{
		ImageProcessor: imageProcessor,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: *handlerTimeout,
		MaxUploadSize:  *maxUploadSize,
		CORSOrigins:    splitList(*corsOrigins),
	}
	server := &http.Server{
		Addr:              *listen,
		Handler:           api.Router(),
		ReadHeaderTimeout: cmd.ReadHeaderTimeout,
		ReadTimeout:       cmd.ReadTimeout,
		WriteTimeout:      cmd.WriteTimeout,
		ErrorLog:          logger.NewHTTPErrorLog(log),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", *listen)

	// Wait for shutdown or error
	err = cmd.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	serverCtx, serverCancel := context.WithTimeout(context.Background(), cmd.ShutdownTimeout)
	defer serverCancel()
	if err := server.Shutdown(serverCtx); err != nil {
		log.Warnf("error shutting down: %s", err)
	}
}

// setupCache returns the configured cache provider, or nil when caching is disabled
func setupCache(ctx context.Context, tracer *tracing.Tracer) (cache.Provider, error) {
	switch *cacheBackend {
	case "none", "":
		return nil, nil
	case "memory":
		return memory.New(*cacheMemoryEntries), nil
	case "redis":
		return redis.New(ctx, tracer, *cacheRedisAddress, *cacheRedisPoolSize, *cacheTTL)
	default:
		return nil, fmt.Errorf("invalid cache backend %q", *cacheBackend)
	}
}

func splitList(list string) []string {
	var values []string
	for _, value := range strings.Split(list, ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}

	return values
}
