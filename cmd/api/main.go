package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/exewatch/internal/application"
	appai "github.com/bryanwahyu/exewatch/internal/application/ai"
	appauth "github.com/bryanwahyu/exewatch/internal/application/auth"
	appingest "github.com/bryanwahyu/exewatch/internal/application/ingest"
	applogs "github.com/bryanwahyu/exewatch/internal/application/logs"
	appresults "github.com/bryanwahyu/exewatch/internal/application/results"
	appsessions "github.com/bryanwahyu/exewatch/internal/application/sessions"
	"github.com/bryanwahyu/exewatch/internal/config"
	aidomain "github.com/bryanwahyu/exewatch/internal/domain/ai"
	"github.com/bryanwahyu/exewatch/internal/domain/archive"
	openaiclient "github.com/bryanwahyu/exewatch/internal/infra/ai/openai"
	"github.com/bryanwahyu/exewatch/internal/infra/db/sqlite"
	"github.com/bryanwahyu/exewatch/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/exewatch/internal/infra/storage"
	"github.com/bryanwahyu/exewatch/internal/infra/ws"
	"github.com/bryanwahyu/exewatch/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// open store (in-memory, restored from snapshot when present)
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("store open error: %v", err)
	}
	defer store.Close()

	// init repos
	sessionRepo := sqlite.NewSessionRepository(store)
	resultRepo := sqlite.NewResultRepository(store)
	logRepo := sqlite.NewLogRepository(store)

	// init snapshot archiver (optional)
	var archiver archive.Store
	if cfg.Backup.Enabled {
		archiver, err = minioStore.New(ctx,
			cfg.Backup.Endpoint,
			cfg.Backup.Region,
			cfg.Backup.BucketName,
			cfg.Backup.AccessKey,
			cfg.Backup.SecretKey,
			cfg.Backup.UseSSL,
		)
		if err != nil {
			log.Fatalf("backup store init error: %v", err)
		}
	}

	// init AI client (optional)
	var aiClient aidomain.Client
	if cfg.AI.APIKey != "" {
		aiClient = openaiclient.NewClient(cfg.AI.APIKey, cfg.AI.Model)
	}

	// init realtime hub
	secret := []byte(cfg.Auth.JWTSecret)
	hub := ws.NewHub(secret)

	// init services
	clock := application.SystemClock{}
	sessionSvc := appsessions.NewService(sessionRepo, logRepo, clock)
	resultSvc := appresults.NewService(resultRepo, clock)
	logSvc := applogs.NewService(logRepo)
	ingestSvc := appingest.NewService(sessionSvc, resultRepo, logRepo, hub, clock)
	aiSvc := appai.NewService(aiClient, sessionRepo, resultRepo, logRepo, clock)

	authSvc, err := appauth.NewService(secret, cfg.TokenTTL(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatalf("auth init error: %v", err)
	}

	// init rate limiter
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Stop()

	// init router
	mux := httpserver.NewRouter(authSvc, sessionSvc, resultSvc, logSvc, ingestSvc, aiSvc, httpserver.Options{
		JWTSecret:    secret,
		ScannerToken: cfg.Auth.ScannerToken,
		CORSOrigin:   cfg.Server.CORSOrigin,
		RateLimiter:  limiter,
		HealthCheckers: map[string]middleware.HealthChecker{
			"store": &middleware.StoreHealthChecker{Store: store},
		},
		RealtimeHandler: hub,
	})

	// periodic snapshot flush
	go store.AutoFlush(ctx, cfg.FlushInterval(), archiver, cfg.Backup.Prefix)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")
	cancel()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
