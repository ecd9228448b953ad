package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/stridefit/admin-gateway/config"
	"github.com/stridefit/admin-gateway/handlers"
	"github.com/stridefit/admin-gateway/logger"
	"github.com/stridefit/admin-gateway/router"
	"github.com/stridefit/admin-gateway/services"
	"github.com/stridefit/admin-gateway/session"
	"github.com/stridefit/admin-gateway/types"
)

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Redis-backed session records, with TLS in production. An empty address
	// falls back to the in-memory store for local development.
	var redisClient redis.UniversalClient
	var records session.RecordStore
	if cfg.Redis.Address != "" {
		redisOptions := &redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}
		if cfg.Redis.UseTLS {
			redisOptions.TLSConfig = &tls.Config{
				ServerName: cfg.Redis.Address,
				MinVersion: tls.VersionTLS12,
			}
		}
		client := redis.NewClient(redisOptions)
		defer func() {
			_ = client.Close()
		}()
		redisClient = client
		records = session.NewRedisRecordStore(client)
	} else {
		log.Warnw("No Redis address configured, session records are in-memory")
		records = session.NewMemoryRecordStore()
	}

	// Session core: dual token store, backend verifier, manager.
	store := session.NewStore(session.CookieCodec{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.IsProduction(),
	}, records)

	verifier := session.NewBackendVerifier(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
	)

	manager := session.NewManager(store, verifier, session.ManagerConfig{
		CookieTTL:     time.Duration(cfg.Auth.TokenTTLDays) * 24 * time.Hour,
		VerifyTTL:     time.Duration(cfg.Auth.VerifyTTLSeconds) * time.Second,
		RefreshLeeway: time.Duration(cfg.Auth.RefreshLeewayMinutes) * time.Minute,
	})

	// Shared route policy table, read by both guard layers.
	table := types.NewPolicyTable(cfg.Routes.ProtectedPrefixes, cfg.Routes.PublicOnlyPaths)
	table.Restrict("/admin/settings", types.RoleAdmin)

	// Handlers
	proxyHandler, err := handlers.NewProxyHandler(cfg.Backend.BaseURL, store)
	if err != nil {
		log.Fatalf("Failed to create backend proxy: %v", err)
	}
	healthService := services.NewHealthService(redisClient, cfg.Backend.BaseURL, cfg.Server.Version)

	r := router.SetupRouter(router.Dependencies{
		Config:         cfg,
		Manager:        manager,
		PolicyTable:    table,
		RedisClient:    redisClient,
		SessionHandler: handlers.NewSessionHandler(manager, cfg),
		ProxyHandler:   proxyHandler,
		HealthHandler:  handlers.NewHealthHandler(healthService),
		PageHandler:    handlers.NewPageHandler(),
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting admin gateway on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down admin gateway")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("Forced shutdown", "error", err)
	}
}
