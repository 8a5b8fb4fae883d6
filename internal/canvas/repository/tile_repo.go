package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

// TileRepo persists drawing-tile metadata. (canvas_id, z, x, y) is unique.
type TileRepo struct {
	db *pgxpool.Pool
}

func NewTileRepo(db *pgxpool.Pool) *TileRepo {
	return &TileRepo{db: db}
}

// Upsert inserts the tile or, when the coordinate already exists, refreshes
// its timestamp. Returns true when a new row was created.
func (r *TileRepo) Upsert(ctx context.Context, t *domain.DrawingTile) (bool, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	const q = `
insert into drawing_tiles (id, canvas_id, layer_id, z, x, y, storage_key)
values ($1, $2, $3, $4, $5, $6, $7)
on conflict (canvas_id, z, x, y)
do update set updated_at = now(),
              layer_id = coalesce(excluded.layer_id, drawing_tiles.layer_id)
returning (xmax = 0) as inserted;
`
	var inserted bool
	err := r.db.QueryRow(ctx, q, t.ID, t.CanvasID, t.LayerID, t.Z, t.X, t.Y, t.StorageKey).
		Scan(&inserted)
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// Get returns the metadata row for one tile coordinate.
func (r *TileRepo) Get(ctx context.Context, canvasID string, z, x, y int) (*domain.DrawingTile, error) {
	const q = `
select id, canvas_id, layer_id, z, x, y, storage_key, created_at, updated_at
from drawing_tiles
where canvas_id = $1 and z = $2 and x = $3 and y = $4;
`
	var t domain.DrawingTile
	err := r.db.QueryRow(ctx, q, canvasID, z, x, y).Scan(
		&t.ID, &t.CanvasID, &t.LayerID, &t.Z, &t.X, &t.Y,
		&t.StorageKey, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTileNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindInArea returns the coordinates of stored tiles inside the inclusive
// index range, optionally restricted to one layer.
func (r *TileRepo) FindInArea(ctx context.Context, canvasID string, z, minX, maxX, minY, maxY int, layerID *string) ([]domain.TileCoordinate, error) {
	const q = `
select z, x, y
from drawing_tiles
where canvas_id = $1 and z = $2
  and x between $3 and $4
  and y between $5 and $6
  and ($7::uuid is null or layer_id = $7::uuid)
order by y, x;
`
	rows, err := r.db.Query(ctx, q, canvasID, z, minX, maxX, minY, maxY, layerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TileCoordinate, 0, 32)
	for rows.Next() {
		var c domain.TileCoordinate
		if err := rows.Scan(&c.Z, &c.X, &c.Y); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes the metadata row and returns its storage key so the caller
// can drop the blob as well.
func (r *TileRepo) Delete(ctx context.Context, canvasID string, z, x, y int) (string, error) {
	const q = `
delete from drawing_tiles
where canvas_id = $1 and z = $2 and x = $3 and y = $4
returning storage_key;
`
	var key string
	err := r.db.QueryRow(ctx, q, canvasID, z, x, y).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrTileNotFound
		}
		return "", err
	}
	return key, nil
}
