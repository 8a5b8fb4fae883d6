package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mapsketch/mapsketch-backend/config"
	"github.com/mapsketch/mapsketch-backend/internal/cleanup/domain"
	"github.com/mapsketch/mapsketch-backend/internal/cleanup/repository"
	"github.com/mapsketch/mapsketch-backend/internal/cleanup/service"
	"github.com/mapsketch/mapsketch-backend/internal/storage/blob"
	"github.com/mapsketch/mapsketch-backend/internal/storage/postgres"
)

// One-shot cleanup run, for external schedulers and operators.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	blobs, err := blob.NewS3Store(ctx, blob.S3Options{
		Bucket:   cfg.Storage.Bucket,
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
	})
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	cleanup := service.NewCleanupService(repository.NewCleanupRepository(db), blobs, service.Options{
		Retention:  time.Duration(cfg.Cleanup.RetentionDays) * 24 * time.Hour,
		StaleAfter: cfg.Cleanup.LockStale,
		BatchSize:  cfg.Cleanup.BatchSize,
		MaxPerRun:  cfg.Cleanup.MaxPerRun,
	})

	res, err := cleanup.Execute(ctx)
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		log.Println("skipped: another cleanup run is active")
	case err != nil:
		log.Fatalf("cleanup: %v", err)
	default:
		log.Printf("done: record=%d canvases=%d errors=%d",
			res.DeletionRecordID, res.CanvasesProcessed, len(res.Errors))
	}
}
