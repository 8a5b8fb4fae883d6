package service

import (
	"context"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

// CanvasRepository is the canvas-metadata persistence the services depend on.
type CanvasRepository interface {
	Create(ctx context.Context, centerLat, centerLng float64, zoom int) (*domain.Canvas, error)
	Get(ctx context.Context, id string) (*domain.Canvas, error)
	UpdatePosition(ctx context.Context, id string, lat, lng float64, zoom int) error
	SetSharedView(ctx context.Context, id string, lat, lng *float64, zoom *int) error
	AddTileCount(ctx context.Context, id string, delta int) error
}

// TileRepository is the drawing-tile metadata persistence.
type TileRepository interface {
	Upsert(ctx context.Context, t *domain.DrawingTile) (bool, error)
	Get(ctx context.Context, canvasID string, z, x, y int) (*domain.DrawingTile, error)
	FindInArea(ctx context.Context, canvasID string, z, minX, maxX, minY, maxY int, layerID *string) ([]domain.TileCoordinate, error)
	Delete(ctx context.Context, canvasID string, z, x, y int) (string, error)
}

// LayerRepository is the layer-stack persistence.
type LayerRepository interface {
	Create(ctx context.Context, canvasID, name string, order int) (*domain.Layer, error)
	ListByCanvas(ctx context.Context, canvasID string) ([]domain.Layer, error)
	Get(ctx context.Context, canvasID, layerID string) (*domain.Layer, error)
	Rename(ctx context.Context, canvasID, layerID, name string) error
	SetVisible(ctx context.Context, canvasID, layerID string, visible bool) error
	Reorder(ctx context.Context, canvasID string, layerIDs []string) error
	Delete(ctx context.Context, canvasID, layerID string) error
	CountByCanvas(ctx context.Context, canvasID string) (int, error)
}
