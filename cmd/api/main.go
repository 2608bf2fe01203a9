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

	"filmrental/internal/app"
	"filmrental/internal/config"
	"filmrental/internal/database"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/repository"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.LogSQL)
	if err != nil {
		log.Fatal(err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("redis %s: %v", cfg.RedisAddr, err)
		}
		defer client.Close()
		locker = lock.NewRedis(client, cfg.LockTTL)
		log.Printf("[INFO] allocation lock: redis %s", cfg.RedisAddr)
	}

	a := app.New(cfg, db, locker)
	defer a.Hub.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[INFO] listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] shutdown: %v", err)
	}
	log.Println("[INFO] server stopped")
}
