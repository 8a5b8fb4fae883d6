package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	canvasdomain "github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
	"github.com/mapsketch/mapsketch-backend/internal/cleanup/domain"
	"github.com/mapsketch/mapsketch-backend/internal/storage/blob"
)

// Repository is the relational surface the cleanup run needs.
type Repository interface {
	AcquireLock(ctx context.Context, lockedBy string, staleAfter time.Duration) error
	ReleaseLock(ctx context.Context) error
	FindEligibleCanvases(ctx context.Context, cutoff time.Time, limit int) ([]domain.EligibleCanvas, error)
	ListCanvasTiles(ctx context.Context, canvasID string) ([]domain.TileRef, error)
	DeleteCanvasTiles(ctx context.Context, canvasID string) (int, error)
	DeleteCanvasLayers(ctx context.Context, canvasID string) (int, error)
	DeleteCanvas(ctx context.Context, canvasID string) error
	FindOrphanTiles(ctx context.Context, limit int) ([]domain.TileRef, error)
	DeleteTile(ctx context.Context, tileID string) error
	ExistingCanvasIDs(ctx context.Context, ids []string) (map[string]bool, error)
	TotalTileCount(ctx context.Context) (int, error)
	InsertDeletionRecord(ctx context.Context, rec *domain.DeletionRecord) (int64, error)
}

// CleanupService deletes abandoned canvases and orphaned blobs in one
// exclusive batch run, then writes a permanent audit record.
type CleanupService struct {
	repo  Repository
	blobs blob.Store

	retention   time.Duration
	staleAfter  time.Duration
	batchSize   int
	maxCanvases int
	runnerID    string
	now         func() time.Time
}

// Options tune one run; zero values fall back to the domain defaults.
type Options struct {
	Retention  time.Duration
	StaleAfter time.Duration
	BatchSize  int
	MaxPerRun  int
}

func NewCleanupService(repo Repository, blobs blob.Store, opts Options) *CleanupService {
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	if opts.Retention <= 0 {
		opts.Retention = domain.RetentionAge
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = domain.LockStaleAge
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = domain.ScanBatchSize
	}
	if opts.MaxPerRun <= 0 {
		opts.MaxPerRun = domain.MaxCanvasesPerRun
	}
	return &CleanupService{
		repo:        repo,
		blobs:       blobs,
		retention:   opts.Retention,
		staleAfter:  opts.StaleAfter,
		batchSize:   opts.BatchSize,
		maxCanvases: opts.MaxPerRun,
		runnerID:    fmt.Sprintf("%s-%d", host, os.Getpid()),
		now:         time.Now,
	}
}

// runState accumulates the audit counters across run phases.
type runState struct {
	canvasesDeleted int
	tilesDeleted    int
	layersDeleted   int
	ogpDeleted      int
	orphanTiles     int
	orphanOGP       int
	reclaimedBytes  int64
	errs            []string
}

func (rs *runState) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	rs.errs = append(rs.errs, msg)
	log.Printf("[warn] operation=cleanup %s", msg)
}

// Execute runs one cleanup pass. A held, non-stale lock returns
// domain.ErrLockHeld with no record written. Any later failure still
// releases the lock and still tries to write a record of the partial
// progress.
func (s *CleanupService) Execute(ctx context.Context) (*domain.CleanupResult, error) {
	if err := s.repo.AcquireLock(ctx, s.runnerID, s.staleAfter); err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil, err
		}
		return nil, fmt.Errorf("acquire cleanup lock: %w", err)
	}
	defer func() {
		if err := s.repo.ReleaseLock(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[error] operation=cleanup_unlock error=%v", err)
		}
	}()

	start := s.now()
	rs := &runState{}

	totalBefore, err := s.repo.TotalTileCount(ctx)
	if err != nil {
		rs.fail("total tile count: %v", err)
	}

	processed, fatal := s.deleteAbandonedCanvases(ctx, rs)
	if fatal == nil {
		fatal = s.deleteOrphanTiles(ctx, rs)
	}
	if fatal == nil {
		fatal = s.deleteOrphanOGP(ctx, rs)
	}
	if fatal != nil {
		rs.fail("run aborted: %v", fatal)
	}

	totalAfter, err := s.repo.TotalTileCount(ctx)
	if err != nil {
		rs.fail("total tile count after run: %v", err)
		totalAfter = totalBefore - rs.tilesDeleted - rs.orphanTiles
	}

	rec := &domain.DeletionRecord{
		ExecutedAt:            start,
		CanvasesDeleted:       rs.canvasesDeleted,
		TilesDeleted:          rs.tilesDeleted,
		LayersDeleted:         rs.layersDeleted,
		OGPImagesDeleted:      rs.ogpDeleted,
		TotalTilesBefore:      totalBefore,
		TotalTilesAfter:       totalAfter,
		StorageReclaimedBytes: rs.reclaimedBytes,
		OrphanedTilesDeleted:  rs.orphanTiles,
		OrphanedOGPDeleted:    rs.orphanOGP,
		DurationMS:            s.now().Sub(start).Milliseconds(),
	}
	if len(rs.errs) > 0 {
		joined := strings.Join(rs.errs, "; ")
		rec.ErrorsEncountered = &joined
	}

	recordID, err := s.repo.InsertDeletionRecord(ctx, rec)
	if err != nil {
		log.Printf("[error] operation=cleanup_record error=%v", err)
		if fatal == nil {
			fatal = fmt.Errorf("insert deletion record: %w", err)
		}
	}

	result := &domain.CleanupResult{
		Success:           fatal == nil,
		DeletionRecordID:  recordID,
		CanvasesProcessed: processed,
		Errors:            rs.errs,
	}
	log.Printf("[info] operation=cleanup canvases=%d tiles=%d orphan_tiles=%d reclaimed_bytes=%d duration_ms=%d errors=%d",
		rs.canvasesDeleted, rs.tilesDeleted, rs.orphanTiles, rs.reclaimedBytes, rec.DurationMS, len(rs.errs))
	return result, fatal
}

// deleteAbandonedCanvases scans and deletes in batches until the scan comes
// back empty or the per-run ceiling is hit.
func (s *CleanupService) deleteAbandonedCanvases(ctx context.Context, rs *runState) (int, error) {
	cutoff := s.now().Add(-s.retention)
	processed := 0

	for processed < s.maxCanvases {
		limit := s.batchSize
		if rest := s.maxCanvases - processed; rest < limit {
			limit = rest
		}
		batch, err := s.repo.FindEligibleCanvases(ctx, cutoff, limit)
		if err != nil {
			return processed, fmt.Errorf("scan eligible canvases: %w", err)
		}
		if len(batch) == 0 {
			return processed, nil
		}
		for _, c := range batch {
			if err := s.deleteCanvas(ctx, rs, c.ID); err != nil {
				return processed, err
			}
			processed++
		}
	}
	return processed, nil
}

// deleteCanvas removes one canvas bottom-up: tile rows, tile blobs, the OGP
// preview, layer rows, then the canvas row. Rows go before blobs; the canvas
// row survives a crash mid-way and the next run picks the canvas up again.
func (s *CleanupService) deleteCanvas(ctx context.Context, rs *runState, canvasID string) error {
	tiles, err := s.repo.ListCanvasTiles(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("list tiles of %s: %w", canvasID, err)
	}

	n, err := s.repo.DeleteCanvasTiles(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("delete tile rows of %s: %w", canvasID, err)
	}
	rs.tilesDeleted += n

	for _, t := range tiles {
		s.deleteBlob(ctx, rs, t.StorageKey)
	}

	if s.deleteBlob(ctx, rs, canvasdomain.OGPStorageKey(canvasID)) {
		rs.ogpDeleted++
	}

	n, err = s.repo.DeleteCanvasLayers(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("delete layer rows of %s: %w", canvasID, err)
	}
	rs.layersDeleted += n

	if err := s.repo.DeleteCanvas(ctx, canvasID); err != nil {
		return fmt.Errorf("delete canvas row %s: %w", canvasID, err)
	}
	rs.canvasesDeleted++
	return nil
}

// deleteOrphanTiles removes tile rows whose canvas row is gone, row first.
func (s *CleanupService) deleteOrphanTiles(ctx context.Context, rs *runState) error {
	orphans, err := s.repo.FindOrphanTiles(ctx, s.maxCanvases)
	if err != nil {
		return fmt.Errorf("scan orphan tiles: %w", err)
	}
	for _, t := range orphans {
		if err := s.repo.DeleteTile(ctx, t.ID); err != nil {
			return fmt.Errorf("delete orphan tile %s: %w", t.ID, err)
		}
		s.deleteBlob(ctx, rs, t.StorageKey)
		rs.orphanTiles++
	}
	return nil
}

// deleteOrphanOGP compares OGP blobs in storage against canvas metadata and
// removes previews whose canvas no longer exists. OGP previews live at the
// key root as {canvasId}.png, so a keyed listing plus an existence probe is
// enough.
func (s *CleanupService) deleteOrphanOGP(ctx context.Context, rs *runState) error {
	keys, err := s.blobs.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list blobs: %w", err)
	}

	byID := make(map[string]string)
	var ids []string
	for _, key := range keys {
		id, ok := ogpCanvasID(key)
		if !ok {
			continue
		}
		byID[id] = key
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	existing, err := s.repo.ExistingCanvasIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("match ogp blobs to canvases: %w", err)
	}
	for id, key := range byID {
		if existing[id] {
			continue
		}
		if s.deleteBlob(ctx, rs, key) {
			rs.orphanOGP++
		}
	}
	return nil
}

// deleteBlob removes one blob, retrying once. Failures past the retry are
// recorded and skipped. Returns whether a blob actually existed.
func (s *CleanupService) deleteBlob(ctx context.Context, rs *runState, key string) bool {
	size, err := s.blobs.Size(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return false
	}
	if err != nil {
		size = 0
	}

	if err := s.blobs.Delete(ctx, key); err != nil {
		if err = s.blobs.Delete(ctx, key); err != nil {
			rs.fail("delete blob %s: %v", key, err)
			return false
		}
	}
	rs.reclaimedBytes += size
	return true
}

// ogpCanvasID parses a storage key as {canvasId}.png at the key root.
func ogpCanvasID(key string) (string, bool) {
	if strings.Contains(key, "/") {
		return "", false
	}
	id, ok := strings.CutSuffix(key, ".png")
	if !ok || !canvasdomain.ValidCanvasID(id) {
		return "", false
	}
	return id, true
}
