package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
	"github.com/mapsketch/mapsketch-backend/internal/tilemath"
)

// DefaultLayerName names the layer every new canvas starts with.
const DefaultLayerName = "Layer 1"

// CanvasService handles canvas lifecycle and the layer stack invariants:
// 1..10 layers per canvas, unique order, the last layer cannot be removed.
type CanvasService struct {
	canvases CanvasRepository
	layers   LayerRepository
}

func NewCanvasService(canvases CanvasRepository, layers LayerRepository) *CanvasService {
	return &CanvasService{canvases: canvases, layers: layers}
}

// CreateCanvas creates a canvas on the first stroke, with its default layer.
func (s *CanvasService) CreateCanvas(ctx context.Context, lat, lng float64, zoom int) (*domain.Canvas, error) {
	if err := validateGeo(lat, lng, zoom); err != nil {
		return nil, err
	}

	canvas, err := s.canvases.Create(ctx, lat, lng, zoom)
	if err != nil {
		return nil, err
	}
	if _, err := s.layers.Create(ctx, canvas.ID, DefaultLayerName, 0); err != nil {
		return nil, fmt.Errorf("create default layer: %w", err)
	}
	return canvas, nil
}

func (s *CanvasService) GetCanvas(ctx context.Context, id string) (*domain.Canvas, error) {
	if !domain.ValidCanvasID(id) {
		return nil, domain.NewValidationError("canvas_id", "malformed token")
	}
	return s.canvases.Get(ctx, id)
}

func (s *CanvasService) UpdatePosition(ctx context.Context, id string, lat, lng float64, zoom int) error {
	if !domain.ValidCanvasID(id) {
		return domain.NewValidationError("canvas_id", "malformed token")
	}
	if err := validateGeo(lat, lng, zoom); err != nil {
		return err
	}
	return s.canvases.UpdatePosition(ctx, id, lat, lng, zoom)
}

// SetSharedView stores or clears the shared view. The triple is
// all-or-nothing: either every value is present or all are nil.
func (s *CanvasService) SetSharedView(ctx context.Context, id string, lat, lng *float64, zoom *int) error {
	if !domain.ValidCanvasID(id) {
		return domain.NewValidationError("canvas_id", "malformed token")
	}

	set := 0
	if lat != nil {
		set++
	}
	if lng != nil {
		set++
	}
	if zoom != nil {
		set++
	}
	if set != 0 && set != 3 {
		return domain.NewValidationError("share", "lat, lng and zoom must be set together")
	}
	if set == 3 {
		if err := validateGeo(*lat, *lng, *zoom); err != nil {
			return err
		}
	}
	return s.canvases.SetSharedView(ctx, id, lat, lng, zoom)
}

func (s *CanvasService) ListLayers(ctx context.Context, canvasID string) ([]domain.Layer, error) {
	if !domain.ValidCanvasID(canvasID) {
		return nil, domain.NewValidationError("canvas_id", "malformed token")
	}
	if _, err := s.canvases.Get(ctx, canvasID); err != nil {
		return nil, err
	}
	return s.layers.ListByCanvas(ctx, canvasID)
}

// AddLayer appends a layer at the top of the stack.
func (s *CanvasService) AddLayer(ctx context.Context, canvasID, name string) (*domain.Layer, error) {
	if !domain.ValidCanvasID(canvasID) {
		return nil, domain.NewValidationError("canvas_id", "malformed token")
	}
	if err := validateLayerName(name); err != nil {
		return nil, err
	}
	if _, err := s.canvases.Get(ctx, canvasID); err != nil {
		return nil, err
	}

	count, err := s.layers.CountByCanvas(ctx, canvasID)
	if err != nil {
		return nil, err
	}
	if count >= domain.MaxLayersPerCanvas {
		return nil, domain.NewValidationError("layers",
			fmt.Sprintf("a canvas holds at most %d layers", domain.MaxLayersPerCanvas))
	}

	return s.layers.Create(ctx, canvasID, strings.TrimSpace(name), count)
}

func (s *CanvasService) RenameLayer(ctx context.Context, canvasID, layerID, name string) error {
	if err := validateLayerName(name); err != nil {
		return err
	}
	return s.layers.Rename(ctx, canvasID, layerID, strings.TrimSpace(name))
}

func (s *CanvasService) SetLayerVisible(ctx context.Context, canvasID, layerID string, visible bool) error {
	return s.layers.SetVisible(ctx, canvasID, layerID, visible)
}

// ReorderLayers applies a full new ordering; layerIDs must name every layer
// of the canvas exactly once.
func (s *CanvasService) ReorderLayers(ctx context.Context, canvasID string, layerIDs []string) error {
	count, err := s.layers.CountByCanvas(ctx, canvasID)
	if err != nil {
		return err
	}
	if len(layerIDs) != count {
		return domain.NewValidationError("layers", "reorder must list every layer exactly once")
	}
	seen := make(map[string]bool, len(layerIDs))
	for _, id := range layerIDs {
		if seen[id] {
			return domain.NewValidationError("layers", "duplicate layer id in reorder")
		}
		seen[id] = true
	}
	return s.layers.Reorder(ctx, canvasID, layerIDs)
}

// DeleteLayer removes a layer; the last layer of a canvas is undeletable.
func (s *CanvasService) DeleteLayer(ctx context.Context, canvasID, layerID string) error {
	count, err := s.layers.CountByCanvas(ctx, canvasID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return domain.ErrLastLayer
	}
	return s.layers.Delete(ctx, canvasID, layerID)
}

func validateGeo(lat, lng float64, zoom int) error {
	if lat < -90 || lat > 90 {
		return domain.NewValidationError("lat", "outside [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		return domain.NewValidationError("lng", "outside [-180, 180]")
	}
	if !tilemath.ValidZoom(zoom) {
		return domain.NewValidationError("zoom", "outside [1, 19]")
	}
	return nil
}

func validateLayerName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return domain.NewValidationError("name", "empty")
	}
	if len(trimmed) > domain.MaxLayerNameLen {
		return domain.NewValidationError("name",
			fmt.Sprintf("longer than %d characters", domain.MaxLayerNameLen))
	}
	return nil
}
