package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tair/listing-ledger/internal/ledger"
	"github.com/tair/listing-ledger/internal/listing"
	grpcDelivery "github.com/tair/listing-ledger/internal/listing/delivery/grpc"
	httpDelivery "github.com/tair/listing-ledger/internal/listing/delivery/http"
	"github.com/tair/listing-ledger/internal/listing/domain"
	"github.com/tair/listing-ledger/kafka"
	"github.com/tair/listing-ledger/pkg/auth"
	"github.com/tair/listing-ledger/pkg/config"
	"github.com/tair/listing-ledger/pkg/database"
	"github.com/tair/listing-ledger/pkg/logger"
	"github.com/tair/listing-ledger/pkg/tracing"
)

func main() {
	cfg, err := config.Load("listing-service")
	if err != nil {
		logger.Init("listing-service", true)
		logger.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.Init(cfg.ServiceName, cfg.IsDevelopment())
	logger.SetLevel(cfg.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("log_level", cfg.LogLevel).
		Str("ledger_backend", cfg.LedgerBackend).
		Msg("Starting listing service")

	// Initialize tracer
	tp, err := tracing.InitTracer(cfg.TracingOptions())
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	valueLedger, check, closeLedger := initLedger(ctx, cfg)
	defer closeLedger()

	sink, closeSink := initPublisher(cfg)
	defer closeSink()

	// Initialize registry with Wire DI
	registry := listing.InitializeRegistry(valueLedger, sink)

	logger.Logger.Info().
		Str("account", cfg.LedgerAccount).
		Bool("kafka", cfg.KafkaEnabled).
		Msg("Listing registry initialized")

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	handler := httpDelivery.NewListingHandler(registry, tokens, prometheus.DefaultRegisterer)

	grpcServer := grpcDelivery.NewServer(prometheus.DefaultRegisterer)
	grpcServer.WatchHealth(ctx, grpcDelivery.HealthCheck(check), 10*time.Second)
	go startGRPCServer(grpcServer, cfg.GRPCPort)

	limiter, closeLimiter := initRateLimiter(ctx, cfg)
	defer closeLimiter()

	httpServer := newHTTPServer(handler, check, limiter, rateLimitKey(cfg), cfg.HTTPPort)
	go func() {
		logger.Logger.Info().
			Str("port", cfg.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("swagger_endpoint", "/swagger/").
			Msg("HTTP server started")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	grpcServer.Stop()

	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		logger.Logger.Error().Err(err).Msg("Tracer shutdown failed")
	}
}

// initLedger opens the configured value transfer service and applies the seed
func initLedger(ctx context.Context, cfg config.Config) (domain.ValueTransferService, httpDelivery.HealthCheck, func()) {
	seed, err := ledger.ParseSeed(cfg.LedgerSeed)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to parse LEDGER_SEED")
	}
	account := domain.Principal(cfg.LedgerAccount)

	if cfg.LedgerBackend == config.LedgerMemory {
		mem := ledger.NewMemoryLedger(account)
		for _, a := range seed {
			mem.Mint(a.Principal, a.Tokens, a.Native)
			mem.Approve(a.Principal, account, a.Tokens)
		}
		logger.Logger.Info().
			Int("seeded_accounts", len(seed)).
			Msg("In-memory ledger initialized")
		return mem, nil, func() {}
	}

	// Connect to database
	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}

	gl := ledger.NewGormLedger(db, account)

	// Run migrations
	if err := gl.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	for _, a := range seed {
		if err := gl.Mint(ctx, a.Principal, a.Tokens, a.Native); err != nil {
			logger.Logger.Fatal().Err(err).Str("principal", string(a.Principal)).Msg("Failed to seed ledger account")
		}
		if err := gl.Approve(ctx, a.Principal, account, a.Tokens); err != nil {
			logger.Logger.Fatal().Err(err).Str("principal", string(a.Principal)).Msg("Failed to seed ledger allowance")
		}
	}

	logger.Logger.Info().
		Int("seeded_accounts", len(seed)).
		Msg("Database ledger initialized successfully")

	return gl, sqlDB.PingContext, func() { sqlDB.Close() }
}

// initPublisher returns the Kafka publisher when enabled, else nothing and
// committed notifications are only logged
func initPublisher(cfg config.Config) (listing.EventSink, func()) {
	if !cfg.KafkaEnabled {
		return nil, func() {}
	}

	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize Kafka publisher")
	}
	return kafka.NewBreakerPublisher(publisher, 5, 30*time.Second), func() {
		if err := publisher.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close Kafka publisher")
		}
	}
}

// initRateLimiter connects the shared request limiter when RATE_LIMIT_REQUESTS is set
func initRateLimiter(ctx context.Context, cfg config.Config) (httpDelivery.RateLimiter, func()) {
	if cfg.RateLimitRequests == 0 {
		return nil, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Logger.Warn().Err(err).Str("redis", cfg.RedisAddr).Msg("Redis unreachable, rate limiter will fail open")
	}

	logger.Logger.Info().
		Int("requests", cfg.RateLimitRequests).
		Dur("window", cfg.RateLimitWindow).
		Msg("Rate limiting enabled")

	return httpDelivery.NewRedisRateLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow), func() { client.Close() }
}

// rateLimitKey counts by connection address unless trusted proxies are configured
func rateLimitKey(cfg config.Config) httpDelivery.ClientKeyFunc {
	if len(cfg.RateLimitTrustedProxies) == 0 {
		return httpDelivery.RemoteHost
	}
	proxies, err := httpDelivery.ParseTrustedProxies(cfg.RateLimitTrustedProxies)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to parse RATE_LIMIT_TRUSTED_PROXIES")
	}
	return httpDelivery.TrustedProxyKey(proxies)
}

func newHTTPServer(handler *httpDelivery.ListingHandler, check httpDelivery.HealthCheck, limiter httpDelivery.RateLimiter, clientKey httpDelivery.ClientKeyFunc, port string) *http.Server {
	// Setup router
	router := mux.NewRouter()

	middlewareConfig := httpDelivery.DefaultMiddlewareConfig()
	httpDelivery.RegisterMiddlewares(router, middlewareConfig)
	if limiter != nil {
		router.Use(httpDelivery.RateLimitMiddleware(limiter, clientKey))
	}

	// Register routes
	handler.RegisterRoutes(router)

	// Health check endpoint
	handler.RegisterHealthCheck(router, check)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	httpDelivery.RegisterSwaggerDocs(router, nil)

	return &http.Server{
		Addr:              ":" + port,
		Handler:           httpDelivery.SetupCORS(middlewareConfig)(router),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func startGRPCServer(server *grpcDelivery.Server, port string) {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("port", port).Msg("Failed to listen for gRPC")
	}

	logger.Logger.Info().
		Str("port", port).
		Str("service", grpcDelivery.ServiceName).
		Msg("gRPC health server started")

	if err := server.Serve(lis); err != nil {
		logger.Logger.Error().Err(err).Msg("gRPC server stopped")
	}
}
