package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mapsketch/mapsketch-backend/config"
	"github.com/mapsketch/mapsketch-backend/internal/bootstrap"
	cleanuprepo "github.com/mapsketch/mapsketch-backend/internal/cleanup/repository"
	cleanupsvc "github.com/mapsketch/mapsketch-backend/internal/cleanup/service"
	"github.com/mapsketch/mapsketch-backend/internal/storage/blob"
	"github.com/mapsketch/mapsketch-backend/internal/storage/postgres"

	cronjob "github.com/mapsketch/mapsketch-backend/internal/cleanup/cron"
)

const serviceName = "mapsketch-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.PgxDSN()})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	sqlDB, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("db (cleanup): %v", err)
	}
	defer sqlDB.Close()

	blobs, err := blob.NewS3Store(ctx, blob.S3Options{
		Bucket:   cfg.Storage.Bucket,
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
	})
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := cache.Ping(ctx).Err(); err != nil {
			log.Printf("[warn] operation=redis_ping error=%v (cache disabled)", err)
			cache = nil
		}
	}

	cleanup := cleanupsvc.NewCleanupService(cleanuprepo.NewCleanupRepository(sqlDB), blobs, cleanupsvc.Options{
		Retention:  time.Duration(cfg.Cleanup.RetentionDays) * 24 * time.Hour,
		StaleAfter: cfg.Cleanup.LockStale,
		BatchSize:  cfg.Cleanup.BatchSize,
		MaxPerRun:  cfg.Cleanup.MaxPerRun,
	})

	scheduler := cronjob.NewScheduler(cleanup, cfg.Cleanup.CronSpec)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("cleanup scheduler: %v", err)
	}
	defer scheduler.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		DB:          pool,
		Blobs:       blobs,
		Cache:       cache,
		CacheTTL:    cfg.Redis.TTL,
		Cleanup:     cleanup,
	})

	log.Printf("%s %s listening on :%s (env=%s)", serviceName, cfg.App.Version, cfg.Server.Port, cfg.App.Environment)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
