package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

// In-memory repository fakes mirroring the Postgres semantics the services
// rely on: unique (canvas,z,x,y), atomic count increments, ordered layers.

type fakeCanvasRepo struct {
	canvases map[string]*domain.Canvas
	getErr   error
}

func newFakeCanvasRepo() *fakeCanvasRepo {
	return &fakeCanvasRepo{canvases: make(map[string]*domain.Canvas)}
}

func (f *fakeCanvasRepo) Create(_ context.Context, lat, lng float64, zoom int) (*domain.Canvas, error) {
	id, err := domain.NewCanvasID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	c := &domain.Canvas{ID: id, CenterLat: lat, CenterLng: lng, Zoom: zoom, CreatedAt: now, UpdatedAt: now}
	f.canvases[id] = c
	return c, nil
}

func (f *fakeCanvasRepo) Get(_ context.Context, id string) (*domain.Canvas, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.canvases[id]
	if !ok {
		return nil, domain.ErrCanvasNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCanvasRepo) UpdatePosition(_ context.Context, id string, lat, lng float64, zoom int) error {
	c, ok := f.canvases[id]
	if !ok {
		return domain.ErrCanvasNotFound
	}
	c.CenterLat, c.CenterLng, c.Zoom = lat, lng, zoom
	c.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCanvasRepo) SetSharedView(_ context.Context, id string, lat, lng *float64, zoom *int) error {
	c, ok := f.canvases[id]
	if !ok {
		return domain.ErrCanvasNotFound
	}
	c.ShareLat, c.ShareLng, c.ShareZoom = lat, lng, zoom
	c.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCanvasRepo) AddTileCount(_ context.Context, id string, delta int) error {
	c, ok := f.canvases[id]
	if !ok {
		return domain.ErrCanvasNotFound
	}
	c.TileCount += delta
	c.UpdatedAt = time.Now()
	return nil
}

type tileKey struct {
	canvas  string
	z, x, y int
}

type fakeTileRepo struct {
	tiles map[tileKey]*domain.DrawingTile
}

func newFakeTileRepo() *fakeTileRepo {
	return &fakeTileRepo{tiles: make(map[tileKey]*domain.DrawingTile)}
}

func (f *fakeTileRepo) Upsert(_ context.Context, t *domain.DrawingTile) (bool, error) {
	k := tileKey{t.CanvasID, t.Z, t.X, t.Y}
	if existing, ok := f.tiles[k]; ok {
		existing.UpdatedAt = time.Now()
		if t.LayerID != nil {
			existing.LayerID = t.LayerID
		}
		return false, nil
	}
	cp := *t
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.tiles[k] = &cp
	return true, nil
}

func (f *fakeTileRepo) Get(_ context.Context, canvasID string, z, x, y int) (*domain.DrawingTile, error) {
	t, ok := f.tiles[tileKey{canvasID, z, x, y}]
	if !ok {
		return nil, domain.ErrTileNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTileRepo) FindInArea(_ context.Context, canvasID string, z, minX, maxX, minY, maxY int, layerID *string) ([]domain.TileCoordinate, error) {
	var out []domain.TileCoordinate
	for k, t := range f.tiles {
		if k.canvas != canvasID || k.z != z {
			continue
		}
		if k.x < minX || k.x > maxX || k.y < minY || k.y > maxY {
			continue
		}
		if layerID != nil && (t.LayerID == nil || *t.LayerID != *layerID) {
			continue
		}
		out = append(out, domain.TileCoordinate{Z: k.z, X: k.x, Y: k.y})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out, nil
}

func (f *fakeTileRepo) Delete(_ context.Context, canvasID string, z, x, y int) (string, error) {
	k := tileKey{canvasID, z, x, y}
	t, ok := f.tiles[k]
	if !ok {
		return "", domain.ErrTileNotFound
	}
	delete(f.tiles, k)
	return t.StorageKey, nil
}

type fakeLayerRepo struct {
	layers map[string][]*domain.Layer // canvasID -> ordered stack
}

func newFakeLayerRepo() *fakeLayerRepo {
	return &fakeLayerRepo{layers: make(map[string][]*domain.Layer)}
}

func (f *fakeLayerRepo) Create(_ context.Context, canvasID, name string, order int) (*domain.Layer, error) {
	now := time.Now()
	l := &domain.Layer{
		ID: uuid.New().String(), CanvasID: canvasID, Name: name,
		Order: order, Visible: true, CreatedAt: now, UpdatedAt: now,
	}
	f.layers[canvasID] = append(f.layers[canvasID], l)
	return l, nil
}

func (f *fakeLayerRepo) ListByCanvas(_ context.Context, canvasID string) ([]domain.Layer, error) {
	stack := f.layers[canvasID]
	out := make([]domain.Layer, len(stack))
	for i, l := range stack {
		out[i] = *l
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeLayerRepo) Get(_ context.Context, canvasID, layerID string) (*domain.Layer, error) {
	for _, l := range f.layers[canvasID] {
		if l.ID == layerID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrLayerNotFound
}

func (f *fakeLayerRepo) Rename(_ context.Context, canvasID, layerID, name string) error {
	for _, l := range f.layers[canvasID] {
		if l.ID == layerID {
			l.Name = name
			return nil
		}
	}
	return domain.ErrLayerNotFound
}

func (f *fakeLayerRepo) SetVisible(_ context.Context, canvasID, layerID string, visible bool) error {
	for _, l := range f.layers[canvasID] {
		if l.ID == layerID {
			l.Visible = visible
			return nil
		}
	}
	return domain.ErrLayerNotFound
}

func (f *fakeLayerRepo) Reorder(_ context.Context, canvasID string, layerIDs []string) error {
	for i, id := range layerIDs {
		found := false
		for _, l := range f.layers[canvasID] {
			if l.ID == id {
				l.Order = i
				found = true
			}
		}
		if !found {
			return domain.ErrLayerNotFound
		}
	}
	return nil
}

func (f *fakeLayerRepo) Delete(_ context.Context, canvasID, layerID string) error {
	stack := f.layers[canvasID]
	for i, l := range stack {
		if l.ID == layerID {
			f.layers[canvasID] = append(stack[:i], stack[i+1:]...)
			return nil
		}
	}
	return domain.ErrLayerNotFound
}

func (f *fakeLayerRepo) CountByCanvas(_ context.Context, canvasID string) (int, error) {
	return len(f.layers[canvasID]), nil
}

// mustCanvasID builds a deterministic valid canvas token for tests.
func mustCanvasID(n int) string {
	return fmt.Sprintf("testcanvas%011d", n)
}
