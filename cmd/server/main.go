package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suPer8Hu/gopherchat/internal/bus"
	"github.com/suPer8Hu/gopherchat/internal/bus/amqpbus"
	"github.com/suPer8Hu/gopherchat/internal/bus/localbus"
	"github.com/suPer8Hu/gopherchat/internal/bus/redisbus"
	"github.com/suPer8Hu/gopherchat/internal/config"
	"github.com/suPer8Hu/gopherchat/internal/httpapi"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/handlers"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
	"github.com/suPer8Hu/gopherchat/internal/store"
	"github.com/suPer8Hu/gopherchat/internal/store/memstore"
	"github.com/suPer8Hu/gopherchat/internal/store/redisstore"
	"github.com/suPer8Hu/gopherchat/internal/upload"
)

func main() {
	cfg := config.Load()

	var st store.Store
	var rds *redisstore.Store
	switch cfg.StoreBackend {
	case "memory":
		st = memstore.New()
	case "redis":
		rds = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rds.Ping(pingCtx); err != nil {
			cancel()
			log.Fatalf("redis ping: %v", err)
		}
		cancel()
		st = rds
	default:
		log.Fatalf("unsupported STORE_BACKEND=%q", cfg.StoreBackend)
	}

	var eventBus bus.Bus
	switch cfg.BusBackend {
	case "local":
		eventBus = localbus.New(st, cfg.BusPollInterval)
	case "redis":
		if rds != nil {
			eventBus = redisbus.NewFromClient(rds.Client())
		} else {
			eventBus = redisbus.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
	case "amqp":
		b, err := amqpbus.New(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("rabbit dial: %v", err)
		}
		eventBus = b
	default:
		log.Fatalf("unsupported BUS_BACKEND=%q", cfg.BusBackend)
	}
	defer eventBus.Close()

	var uploader upload.Uploader
	staticDir := ""
	switch cfg.UploadBackend {
	case "disk":
		disk, err := upload.NewLocalDisk(cfg.UploadDir, cfg.UploadURLBase)
		if err != nil {
			log.Fatalf("upload dir: %v", err)
		}
		uploader = disk
		staticDir = disk.Dir()
	case "media":
		if cfg.MediaUploadURL == "" {
			log.Fatal("MEDIA_UPLOAD_URL is required for the media upload backend")
		}
		uploader = upload.NewMediaHTTP(cfg.MediaUploadURL, cfg.MediaAPIKey)
	default:
		log.Fatalf("unsupported UPLOAD_BACKEND=%q", cfg.UploadBackend)
	}

	rl := middleware.NewRateLimiter(120, 120)
	defer rl.Stop()

	h := handlers.NewHandler(cfg, st, eventBus, uploader)
	router := httpapi.NewRouter(h, rl, staticDir)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("server started addr=%s store=%s bus=%s upload=%s local=%v",
			cfg.ListenAddr, cfg.StoreBackend, cfg.BusBackend, cfg.UploadBackend, cfg.LocalMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
