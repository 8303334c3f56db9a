package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/gmopay/handler"
	"github.com/mstgnz/gmopay/infra/config"
	"github.com/mstgnz/gmopay/infra/conn"
	"github.com/mstgnz/gmopay/infra/logger"
	"github.com/mstgnz/gmopay/infra/middle"
	"github.com/mstgnz/gmopay/infra/opensearch"
	"github.com/mstgnz/gmopay/infra/response"
	"github.com/mstgnz/gmopay/infra/validate"
	"github.com/mstgnz/gmopay/provider"
	"github.com/mstgnz/gmopay/provider/gmo"
	"github.com/mstgnz/gmopay/router"
	v1 "github.com/mstgnz/gmopay/router/v1"
	"github.com/mstgnz/gmopay/service"
)

const (
	defaultSQLitePath    = "gmopay_tokens.db"
	tokenCleanupInterval = 10 * time.Minute
	shutdownTimeout      = 15 * time.Second
)

func main() {
	// .env is optional; the environment wins when both are present
	envErr := godotenv.Load(".env")

	cfg := config.GetAppConfig()

	var searchLogger *opensearch.Logger
	var searchErr error
	if cfg.EnableLogging {
		var osClient *opensearch.Client
		osClient, searchErr = opensearch.NewClient(opensearch.Config{
			URL:      cfg.OpenSearchURL,
			Username: cfg.OpenSearchUser,
			Password: cfg.OpenSearchPass,
			Enabled:  true,
		})
		if searchErr == nil {
			searchLogger = opensearch.NewLogger(osClient)
		}
	}

	sysLogger := logger.InitGlobalLogger(searchLogger, logger.SystemLoggerConfig{
		EnableConsole:    true,
		EnableOpenSearch: searchLogger != nil,
		MinLevel:         logger.ParseLevel(cfg.LogLevel),
		Service:          "gmopay",
		Version:          "1.0.0",
		Environment:      cfg.Env,
	})
	defer func() { _ = sysLogger.Sync() }()

	if searchErr != nil {
		logger.Warn("OpenSearch unavailable, continuing without call indexing", logger.LogContext{
			Fields: map[string]any{"error": searchErr.Error()},
		})
	}
	if envErr != nil {
		logger.Debug("No .env file loaded", logger.LogContext{Fields: map[string]any{"reason": envErr.Error()}})
	}

	gatewayCfg, err := config.LoadGatewayConfig()
	if err != nil {
		logger.Fatal("Invalid gateway configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenCache, db, err := buildTokenCache(ctx, cfg.TokenCache, cfg.TokenCacheDSN)
	if err != nil {
		logger.Fatal("Failed to initialize token cache", err, logger.LogContext{
			Fields: map[string]any{"backend": cfg.TokenCache},
		})
	}
	defer conn.Close(db)

	var callLog *provider.SQLCallLog
	if cfg.SQLCallLog {
		callLog, err = buildCallLog(ctx, db, cfg.TokenCache)
		if err != nil {
			logger.Fatal("Failed to initialize gateway call log", err)
		}
	}
	if sqlCache, ok := tokenCache.(*provider.SQLTokenCache); ok {
		go purgeExpired(ctx, sqlCache, callLog, time.Duration(cfg.CallLogHours)*time.Hour)
	}

	var recorders gmo.MultiRecorder
	if searchLogger.IsEnabled() {
		recorders = append(recorders, gmo.NewOpenSearchRecorder(searchLogger))
	}
	if callLog != nil {
		recorders = append(recorders, gmo.NewSQLRecorder(callLog))
	}

	opts := []gmo.Option{
		gmo.WithTokenCache(tokenCache),
		gmo.WithLogger(sysLogger),
	}
	if len(recorders) > 0 {
		opts = append(opts, gmo.WithCallRecorder(recorders))
	}

	client, err := gmo.NewClient(gatewayCfg, opts...)
	if err != nil {
		logger.Fatal("Failed to create gateway client", err)
	}

	// One token exchange plus one call, each with every retry
	requestBudget := 2 * client.CallBudget()
	handler.SetRequestTimeout(requestBudget)

	services := service.New(client, service.NewRSACardEncrypter())
	v := validate.New()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middle.RequestIDMiddleware())
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.RequestLoggingMiddleware(sysLogger))

	rateLimiter := middle.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rateLimiter.Stop()
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.IPWhitelistMiddleware(cfg.AllowedIPs))
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middle.APIKeyHeader, middle.RequestIDHeader},
		ExposedHeaders: []string{middle.RequestIDHeader},
		MaxAge:         300,
	}))

	router.Routes(r, router.Config{
		APIKey: cfg.APIKey,
		Health: handler.NewHealthHandler(client, handler.HealthOptions{
			DB:            db,
			CacheBackend:  cfg.TokenCache,
			SearchEnabled: searchLogger.IsEnabled(),
		}),
		V1: v1.Handlers{
			Members:        handler.NewMemberHandler(services.Members, v),
			Merchants:      handler.NewMerchantHandler(services.Merchants, v),
			PaymentMethods: handler.NewPaymentMethodHandler(services.PaymentMethods, v),
			Transactions:   handler.NewTransactionHandler(services.Transactions, v),
			Logs:           handler.NewLogsHandler(searchLogger),
		},
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      requestBudget + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{Fields: map[string]any{
		"port":        cfg.Port,
		"environment": string(client.Environment()),
		"token_cache": cfg.TokenCache,
	}})

	<-ctx.Done()
	logger.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err)
	}
}

// buildTokenCache selects the token cache backend. SQL backends share tokens
// between instances; db is nil for the in-memory cache.
func buildTokenCache(ctx context.Context, backend, dsn string) (provider.TokenCache, *sql.DB, error) {
	var driver string
	switch backend {
	case "", config.CacheMemory:
		return provider.NewInMemoryTokenCache(tokenCleanupInterval), nil, nil
	case config.CacheSQLite:
		driver = conn.DriverSQLite
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		dsn = conn.SQLiteDSN(dsn)
	case config.CachePostgres:
		driver = conn.DriverPostgres
		if dsn == "" {
			return nil, nil, provider.NewConfigurationError("GMO_TOKEN_CACHE_DSN is required for the postgres token cache")
		}
	default:
		return nil, nil, provider.NewConfigurationError(fmt.Sprintf("GMO_TOKEN_CACHE %q is invalid", backend))
	}

	db, err := conn.Open(ctx, driver, dsn)
	if err != nil {
		return nil, nil, err
	}

	cache, err := provider.NewSQLTokenCache(ctx, db, driver)
	if err != nil {
		conn.Close(db)
		return nil, nil, err
	}
	return cache, db, nil
}

// buildCallLog stores gateway calls in the token cache database, so it
// requires a SQL token cache backend.
func buildCallLog(ctx context.Context, db *sql.DB, backend string) (*provider.SQLCallLog, error) {
	if db == nil {
		return nil, provider.NewConfigurationError("GMO_SQL_CALL_LOG requires a sqlite or postgres GMO_TOKEN_CACHE")
	}
	driver := conn.DriverSQLite
	if backend == config.CachePostgres {
		driver = conn.DriverPostgres
	}
	return provider.NewSQLCallLog(ctx, db, driver)
}

func purgeExpired(ctx context.Context, cache *provider.SQLTokenCache, callLog *provider.SQLCallLog, maxAge time.Duration) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := cache.Cleanup(ctx)
			if err != nil {
				logger.Warn("Token cache cleanup failed", logger.LogContext{Fields: map[string]any{"error": err.Error()}})
				continue
			}
			if removed > 0 {
				logger.Debug("Purged expired tokens", logger.LogContext{Fields: map[string]any{"removed": removed}})
			}
			if callLog == nil || maxAge <= 0 {
				continue
			}
			if pruned, err := callLog.Prune(ctx, maxAge); err != nil {
				logger.Warn("Gateway call log pruning failed", logger.LogContext{Fields: map[string]any{"error": err.Error()}})
			} else if pruned > 0 {
				logger.Debug("Pruned gateway call log", logger.LogContext{Fields: map[string]any{"removed": pruned}})
			}
		}
	}
}
