package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

// CanvasRepo persists canvas metadata.
type CanvasRepo struct {
	db *pgxpool.Pool
}

func NewCanvasRepo(db *pgxpool.Pool) *CanvasRepo {
	return &CanvasRepo{db: db}
}

// Create inserts a new canvas, generating a fresh token on id collision.
func (r *CanvasRepo) Create(ctx context.Context, centerLat, centerLng float64, zoom int) (*domain.Canvas, error) {
	for i := 0; i < 5; i++ {
		id, err := domain.NewCanvasID()
		if err != nil {
			return nil, err
		}

		const q = `
insert into canvases (id, center_lat, center_lng, zoom)
values ($1, $2, $3, $4)
returning id, center_lat, center_lng, zoom, share_lat, share_lng, share_zoom,
          tile_count, created_at, updated_at;
`
		var c domain.Canvas
		err = r.db.QueryRow(ctx, q, id, centerLat, centerLng, zoom).Scan(
			&c.ID, &c.CenterLat, &c.CenterLng, &c.Zoom,
			&c.ShareLat, &c.ShareLng, &c.ShareZoom,
			&c.TileCount, &c.CreatedAt, &c.UpdatedAt,
		)
		if err == nil {
			return &c, nil
		}

		// unique violation on id → regenerate
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique canvas id")
}

func (r *CanvasRepo) Get(ctx context.Context, id string) (*domain.Canvas, error) {
	const q = `
select id, center_lat, center_lng, zoom, share_lat, share_lng, share_zoom,
       tile_count, created_at, updated_at
from canvases
where id = $1;
`
	var c domain.Canvas
	err := r.db.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.CenterLat, &c.CenterLng, &c.Zoom,
		&c.ShareLat, &c.ShareLng, &c.ShareZoom,
		&c.TileCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCanvasNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CanvasRepo) UpdatePosition(ctx context.Context, id string, lat, lng float64, zoom int) error {
	const q = `
update canvases
set center_lat = $2, center_lng = $3, zoom = $4, updated_at = now()
where id = $1;
`
	ct, err := r.db.Exec(ctx, q, id, lat, lng, zoom)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCanvasNotFound
	}
	return nil
}

// SetSharedView stores the share triple. Pass all three nil to unshare; the
// all-or-nothing rule is validated at the service layer.
func (r *CanvasRepo) SetSharedView(ctx context.Context, id string, lat, lng *float64, zoom *int) error {
	const q = `
update canvases
set share_lat = $2, share_lng = $3, share_zoom = $4, updated_at = now()
where id = $1;
`
	ct, err := r.db.Exec(ctx, q, id, lat, lng, zoom)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCanvasNotFound
	}
	return nil
}

// AddTileCount atomically shifts the persisted tile count after a save or
// delete and refreshes updated_at.
func (r *CanvasRepo) AddTileCount(ctx context.Context, id string, delta int) error {
	const q = `
update canvases
set tile_count = tile_count + $2, updated_at = now()
where id = $1;
`
	ct, err := r.db.Exec(ctx, q, id, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCanvasNotFound
	}
	return nil
}
