package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"homeserve/api"
	"homeserve/config"
	"homeserve/internal/bootstrap"
	"homeserve/internal/cache"
	"homeserve/internal/logging"
	"homeserve/internal/store"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bookings := store.NewMemoryStore()

	var idem store.IdempotencyStore = store.NewMemoryIdempotencyStore()
	if cfg.Redis.Addr != "" {
		redisStore := cache.NewRedisIdempotencyStore(cfg.Redis)
		defer redisStore.Close()
		idem = redisStore
		logger.Info("using redis idempotency store", zap.String("addr", cfg.Redis.Addr))
	}

	handler := api.NewBookingHandler(bookings, idem, cfg.Redis.IdempotencyTTL(), logger)
	if err := bootstrap.Run(ctx, cfg, handler, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
