package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"couple-cards/internal/bridge"
	"couple-cards/internal/config"
	"couple-cards/internal/couple"
	"couple-cards/internal/db"
	"couple-cards/internal/detect"
	"couple-cards/internal/server"
	"couple-cards/internal/storage"

	"gorm.io/gorm"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	var conn *gorm.DB
	var store storage.Store
	if os.Getenv("DATABASE_URL") != "" {
		opened, err := db.Open()
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		if err := db.Configure(opened, cfg); err != nil {
			log.Fatalf("database pool setup failed: %v", err)
		}
		if err := db.Migrate(opened); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
		conn = opened
		store = storage.NewDB(opened)
	} else {
		log.Println("DATABASE_URL not set, using in-memory storage")
		store = storage.NewMemory()
	}

	adapter := storage.NewAdapter(store, cfg.Profile)
	if err := adapter.RegisterProfile(); err != nil {
		log.Printf("profile registration failed: %v", err)
	}

	var channel bridge.Channel
	if cfg.RedisAddr != "" {
		channel = bridge.NewRedisChannel(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "couple-cards:broadcast")
	}

	detector := detect.New(cfg, channel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	detection := detector.Detect(ctx)
	log.Printf("transport selected mode=%s reason=%q", detection.Mode, detection.Reason)

	eventBridge, err := bridge.New(detection.Mode, bridge.Options{
		Store:         adapter,
		Channel:       channel,
		HubURL:        cfg.HubURL,
		PollInterval:  time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		ReconnectBase: time.Duration(cfg.ReconnectBaseDelayMS) * time.Millisecond,
		ReconnectMax:  time.Duration(cfg.ReconnectMaxDelayMS) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("bridge setup failed: %v", err)
	}
	if err := eventBridge.Connect(ctx); err != nil {
		log.Printf("bridge connect failed, updates arrive after recovery: %v", err)
	}

	agent := couple.NewReconciler(eventBridge, adapter, conn, cfg)
	srv := server.New(server.Options{
		Agent:    agent,
		Bridge:   eventBridge,
		Detector: detector,
		Store:    adapter,
		DB:       conn,
		Config:   cfg,
	})

	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		log.Printf("couple-cards sync agent listening on %s profile=%s", addr, cfg.Profile)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	srv.Heartbeat().Stop()
	eventBridge.Disconnect()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown failed: %v", err)
	}
}
