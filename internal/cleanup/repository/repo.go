package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/mapsketch/mapsketch-backend/internal/cleanup/domain"
)

// lockID is the fixed primary key of the one advisory-lock row.
const lockID = 1

// CleanupRepository holds the relational side of the cleanup job: the
// advisory lock, the eligibility and orphan scans, the cascading metadata
// deletes and the audit record.
type CleanupRepository struct {
	db *sql.DB
}

func NewCleanupRepository(db *sql.DB) *CleanupRepository {
	return &CleanupRepository{db: db}
}

// AcquireLock inserts the fixed-id lock row. A unique-constraint violation
// means another run is active; if that run's lock is older than staleAfter
// the row is force-deleted and acquisition retried once.
func (r *CleanupRepository) AcquireLock(ctx context.Context, lockedBy string, staleAfter time.Duration) error {
	err := r.insertLock(ctx, lockedBy)
	if err == nil {
		return nil
	}
	var pgErr *pq.Error
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	const q = `SELECT locked_at FROM cleanup_lock WHERE id = $1;`
	var lockedAt time.Time
	switch err := r.db.QueryRowContext(ctx, q, lockID).Scan(&lockedAt); {
	case errors.Is(err, sql.ErrNoRows):
		// The other run released between our insert and this read.
	case err != nil:
		return err
	case time.Since(lockedAt) < staleAfter:
		return domain.ErrLockHeld
	default:
		const del = `DELETE FROM cleanup_lock WHERE id = $1 AND locked_at = $2;`
		if _, err := r.db.ExecContext(ctx, del, lockID, lockedAt); err != nil {
			return err
		}
	}

	if err := r.insertLock(ctx, lockedBy); err != nil {
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrLockHeld
		}
		return err
	}
	return nil
}

func (r *CleanupRepository) insertLock(ctx context.Context, lockedBy string) error {
	const q = `INSERT INTO cleanup_lock (id, locked_at, locked_by) VALUES ($1, now(), $2);`
	_, err := r.db.ExecContext(ctx, q, lockID, lockedBy)
	return err
}

// ReleaseLock deletes the lock row. Releasing an already-released lock is
// not an error.
func (r *CleanupRepository) ReleaseLock(ctx context.Context) error {
	const q = `DELETE FROM cleanup_lock WHERE id = $1;`
	_, err := r.db.ExecContext(ctx, q, lockID)
	return err
}

// FindEligibleCanvases returns one batch of abandoned canvases: empty or
// never shared, and older than the cutoff. Deleted rows drop out of the
// next batch, so callers just re-run the query until it comes back empty.
func (r *CleanupRepository) FindEligibleCanvases(ctx context.Context, cutoff time.Time, limit int) ([]domain.EligibleCanvas, error) {
	const q = `
SELECT id, tile_count, created_at
FROM canvases
WHERE (tile_count = 0 OR (share_lat IS NULL AND share_lng IS NULL AND share_zoom IS NULL))
  AND created_at <= $1
ORDER BY created_at
LIMIT $2;
`
	rows, err := r.db.QueryContext(ctx, q, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EligibleCanvas
	for rows.Next() {
		var c domain.EligibleCanvas
		if err := rows.Scan(&c.ID, &c.TileCount, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCanvasTiles returns the tile rows of one canvas with their blob keys.
func (r *CleanupRepository) ListCanvasTiles(ctx context.Context, canvasID string) ([]domain.TileRef, error) {
	const q = `SELECT id, canvas_id, storage_key FROM drawing_tiles WHERE canvas_id = $1;`
	return r.queryTileRefs(ctx, q, canvasID)
}

// DeleteCanvasTiles removes all tile rows of one canvas.
func (r *CleanupRepository) DeleteCanvasTiles(ctx context.Context, canvasID string) (int, error) {
	const q = `DELETE FROM drawing_tiles WHERE canvas_id = $1;`
	return r.execCount(ctx, q, canvasID)
}

// DeleteCanvasLayers removes all layer rows of one canvas.
func (r *CleanupRepository) DeleteCanvasLayers(ctx context.Context, canvasID string) (int, error) {
	const q = `DELETE FROM layers WHERE canvas_id = $1;`
	return r.execCount(ctx, q, canvasID)
}

// DeleteCanvas removes the canvas row itself, last in the cascade.
func (r *CleanupRepository) DeleteCanvas(ctx context.Context, canvasID string) error {
	const q = `DELETE FROM canvases WHERE id = $1;`
	_, err := r.db.ExecContext(ctx, q, canvasID)
	return err
}

// FindOrphanTiles returns tile rows whose parent canvas no longer exists.
func (r *CleanupRepository) FindOrphanTiles(ctx context.Context, limit int) ([]domain.TileRef, error) {
	const q = `
SELECT t.id, t.canvas_id, t.storage_key
FROM drawing_tiles t
LEFT JOIN canvases c ON c.id = t.canvas_id
WHERE c.id IS NULL
LIMIT $1;
`
	return r.queryTileRefs(ctx, q, limit)
}

// DeleteTile removes a single tile row by primary key.
func (r *CleanupRepository) DeleteTile(ctx context.Context, tileID string) error {
	const q = `DELETE FROM drawing_tiles WHERE id = $1;`
	_, err := r.db.ExecContext(ctx, q, tileID)
	return err
}

// ExistingCanvasIDs filters the given ids down to those that still have a
// canvas row. Used to match OGP blobs in storage against metadata.
func (r *CleanupRepository) ExistingCanvasIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	const q = `SELECT id FROM canvases WHERE id = ANY($1);`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// TotalTileCount returns the system-wide tile row count, once before and
// once after a run for the audit record.
func (r *CleanupRepository) TotalTileCount(ctx context.Context) (int, error) {
	const q = `SELECT count(*) FROM drawing_tiles;`
	var n int
	err := r.db.QueryRowContext(ctx, q).Scan(&n)
	return n, err
}

// InsertDeletionRecord writes the permanent audit row and returns its id.
func (r *CleanupRepository) InsertDeletionRecord(ctx context.Context, rec *domain.DeletionRecord) (int64, error) {
	const q = `
INSERT INTO deletion_records (
  executed_at, canvases_deleted, tiles_deleted, layers_deleted,
  ogp_images_deleted, total_tiles_before, total_tiles_after,
  storage_reclaimed_bytes, orphaned_tiles_deleted, orphaned_ogp_deleted,
  errors_encountered, duration_ms
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING id;
`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		rec.ExecutedAt, rec.CanvasesDeleted, rec.TilesDeleted, rec.LayersDeleted,
		rec.OGPImagesDeleted, rec.TotalTilesBefore, rec.TotalTilesAfter,
		rec.StorageReclaimedBytes, rec.OrphanedTilesDeleted, rec.OrphanedOGPDeleted,
		rec.ErrorsEncountered, rec.DurationMS,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *CleanupRepository) queryTileRefs(ctx context.Context, q string, args ...any) ([]domain.TileRef, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TileRef
	for rows.Next() {
		var t domain.TileRef
		if err := rows.Scan(&t.ID, &t.CanvasID, &t.StorageKey); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *CleanupRepository) execCount(ctx context.Context, q string, args ...any) (int, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
