package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

// LayerRepo persists the ordered layer stack of a canvas.
type LayerRepo struct {
	db *pgxpool.Pool
}

func NewLayerRepo(db *pgxpool.Pool) *LayerRepo {
	return &LayerRepo{db: db}
}

func (r *LayerRepo) Create(ctx context.Context, canvasID, name string, order int) (*domain.Layer, error) {
	const q = `
insert into layers (id, canvas_id, name, "order", visible)
values ($1, $2, $3, $4, true)
returning id, canvas_id, name, "order", visible, created_at, updated_at;
`
	var l domain.Layer
	err := r.db.QueryRow(ctx, q, uuid.New().String(), canvasID, name, order).Scan(
		&l.ID, &l.CanvasID, &l.Name, &l.Order, &l.Visible, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LayerRepo) ListByCanvas(ctx context.Context, canvasID string) ([]domain.Layer, error) {
	const q = `
select id, canvas_id, name, "order", visible, created_at, updated_at
from layers
where canvas_id = $1
order by "order";
`
	rows, err := r.db.Query(ctx, q, canvasID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Layer, 0, domain.MaxLayersPerCanvas)
	for rows.Next() {
		var l domain.Layer
		if err := rows.Scan(&l.ID, &l.CanvasID, &l.Name, &l.Order, &l.Visible, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LayerRepo) Get(ctx context.Context, canvasID, layerID string) (*domain.Layer, error) {
	const q = `
select id, canvas_id, name, "order", visible, created_at, updated_at
from layers
where canvas_id = $1 and id = $2;
`
	var l domain.Layer
	err := r.db.QueryRow(ctx, q, canvasID, layerID).Scan(
		&l.ID, &l.CanvasID, &l.Name, &l.Order, &l.Visible, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLayerNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LayerRepo) Rename(ctx context.Context, canvasID, layerID, name string) error {
	const q = `
update layers set name = $3, updated_at = now()
where canvas_id = $1 and id = $2;
`
	ct, err := r.db.Exec(ctx, q, canvasID, layerID, name)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrLayerNotFound
	}
	return nil
}

func (r *LayerRepo) SetVisible(ctx context.Context, canvasID, layerID string, visible bool) error {
	const q = `
update layers set visible = $3, updated_at = now()
where canvas_id = $1 and id = $2;
`
	ct, err := r.db.Exec(ctx, q, canvasID, layerID, visible)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrLayerNotFound
	}
	return nil
}

// Reorder rewrites the full order of a canvas's layers in one transaction.
// Orders are shifted out of the way first so the per-canvas unique constraint
// holds at every step.
func (r *LayerRepo) Reorder(ctx context.Context, canvasID string, layerIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const shift = `update layers set "order" = "order" + 1000 where canvas_id = $1;`
	if _, err := tx.Exec(ctx, shift, canvasID); err != nil {
		return err
	}

	const set = `update layers set "order" = $3, updated_at = now() where canvas_id = $1 and id = $2;`
	for i, id := range layerIDs {
		ct, err := tx.Exec(ctx, set, canvasID, id, i)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrLayerNotFound
		}
	}

	return tx.Commit(ctx)
}

func (r *LayerRepo) Delete(ctx context.Context, canvasID, layerID string) error {
	const q = `delete from layers where canvas_id = $1 and id = $2;`
	ct, err := r.db.Exec(ctx, q, canvasID, layerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrLayerNotFound
	}
	return nil
}

func (r *LayerRepo) CountByCanvas(ctx context.Context, canvasID string) (int, error) {
	const q = `select count(*) from layers where canvas_id = $1;`
	var n int
	if err := r.db.QueryRow(ctx, q, canvasID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
