package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/provchain/traceview/internal/health"
	"github.com/provchain/traceview/internal/identity"
	"github.com/provchain/traceview/internal/ledger"
	"github.com/provchain/traceview/internal/provenance/handler"
	"github.com/provchain/traceview/internal/provenance/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("traceviewd exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("traceview")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("traceview")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("ledger.backend", "dfx")
	viper.SetDefault("ledger.dfx_bin", "dfx")
	viper.SetDefault("ledger.canister", "supply_chain")
	viper.SetDefault("ledger.network", "")
	viper.SetDefault("ledger.call_timeout", "30s")
	viper.SetDefault("ledger.rate_limit", 10.0)
	viper.SetDefault("cache.ttl_seconds", 300)
	viper.SetDefault("aggregator.fanout_limit", 8)
	viper.SetDefault("session.secret", "")
	viper.SetDefault("session.issuer", "traceviewd")
	viper.SetDefault("session.ttl", "24h")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Ledger gateway ───────────────────────────────────────────────────────
	var gw ledger.Gateway
	switch backend := viper.GetString("ledger.backend"); backend {
	case "dfx":
		callTimeout, _ := time.ParseDuration(viper.GetString("ledger.call_timeout"))
		gw = ledger.NewDfxGateway(ledger.DfxConfig{
			Bin:         viper.GetString("ledger.dfx_bin"),
			Canister:    viper.GetString("ledger.canister"),
			Network:     viper.GetString("ledger.network"),
			CallTimeout: callTimeout,
			RateLimit:   viper.GetFloat64("ledger.rate_limit"),
		}, logger)
		logger.Info("ledger backend: dfx",
			zap.String("canister", viper.GetString("ledger.canister")),
			zap.String("network", viper.GetString("ledger.network")),
		)
	case "memory":
		// In-process ledger for local development and demos. State does not
		// survive a restart.
		gw = ledger.NewMemoryLedger()
		logger.Warn("ledger backend: memory — state is ephemeral")
	default:
		return fmt.Errorf("unknown ledger backend %q", backend)
	}

	// ── Service ──────────────────────────────────────────────────────────────
	svc := service.New(gw, service.Config{
		CacheTTL:    time.Duration(viper.GetInt("cache.ttl_seconds")) * time.Second,
		FanOutLimit: viper.GetInt("aggregator.fanout_limit"),
	}, logger)

	// ── Session tokens ───────────────────────────────────────────────────────
	secret := viper.GetString("session.secret")
	if secret == "" {
		if viper.GetString("ledger.backend") != "memory" {
			return errors.New("session.secret (TRACEVIEW_SESSION_SECRET) is required")
		}
		// Ephemeral secret for local demos: tokens stop verifying on restart,
		// which matches the ephemeral ledger.
		secret = uuid.NewString()
		logger.Warn("session.secret not set, generated an ephemeral one")
	}
	sessionTTL, _ := time.ParseDuration(viper.GetString("session.ttl"))
	if sessionTTL == 0 {
		sessionTTL = 24 * time.Hour
	}
	tokens, err := identity.NewActorTokens([]byte(secret), viper.GetString("session.issuer"), sessionTTL)
	if err != nil {
		return fmt.Errorf("session token setup: %w", err)
	}

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS
	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	// Per-IP rate limiting
	rps := viper.GetInt("server.rate_limit_rps")
	if rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(requestLogger(logger))
	router.Use(handler.PrometheusMiddleware())

	// Health and metrics (public, no auth)
	checker := health.New(gw, health.Config{}, logger)
	router.GET("/healthz", func(c *gin.Context) {
		handler.SetCacheEntriesGauge(svc.CacheSize())
		if ok, err := checker.Healthy(); !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	// API v1
	auth := handler.ActorAuth(tokens, logger)
	v1 := router.Group("/api/v1")
	handler.NewSessionHandler(tokens, logger).Register(v1)
	handler.NewProductHandler(svc, logger).Register(v1, auth)
	handler.NewEventHandler(svc, logger).Register(v1, auth)
	handler.NewParticipantHandler(svc, logger).Register(v1, auth)

	// ── Serve ────────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("server.port")
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Separate channel: the signal is delivered to every registered channel,
	// while a single channel would be drained by whichever receiver wins.
	probeQuit := make(chan os.Signal, 1)
	signal.Notify(probeQuit, syscall.SIGINT, syscall.SIGTERM)
	go checker.Start(probeQuit)

	go func() {
		logger.Info("traceviewd HTTP listening", zap.Int("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down traceviewd...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("traceviewd stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
