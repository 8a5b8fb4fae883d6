package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
	"github.com/mapsketch/mapsketch-backend/internal/storage/blob"
	"github.com/mapsketch/mapsketch-backend/internal/tilemath"
)

// TileService is the server-side tile store: durable blobs plus a metadata
// index, with the per-canvas quota enforced at this layer rather than in the
// database alone.
type TileService struct {
	canvases CanvasRepository
	tiles    TileRepository
	blobs    blob.Store
	images   *ImageCache
}

// NewTileService wires the tile store. images may be nil when no redis cache
// is configured.
func NewTileService(canvases CanvasRepository, tiles TileRepository, blobs blob.Store, images *ImageCache) *TileService {
	return &TileService{canvases: canvases, tiles: tiles, blobs: blobs, images: images}
}

// SaveTiles upserts a batch of encoded tiles for one canvas. Existing
// coordinates are overwritten in place and only refresh their timestamp; new
// coordinates count toward the 1000-tile quota, and a batch that would cross
// it fails as a whole with QuotaExceededError. The quota check reads the
// count once at batch start (soft quota; the final increment is atomic).
func (s *TileService) SaveTiles(ctx context.Context, canvasID string, tiles []domain.TileUpload) (*domain.SaveResult, error) {
	if err := validateBatch(canvasID, tiles); err != nil {
		return nil, err
	}

	canvas, err := s.canvases.Get(ctx, canvasID)
	if err != nil {
		return nil, err
	}

	// Classify the batch before writing anything so a quota breach rejects
	// it as a whole instead of leaving a partial write behind.
	isNew := make([]bool, len(tiles))
	newCount := 0
	for i, up := range tiles {
		_, err := s.tiles.Get(ctx, canvasID, up.Z, up.X, up.Y)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrTileNotFound):
			isNew[i] = true
			newCount++
		default:
			return nil, fmt.Errorf("look up tile %d/%d/%d: %w", up.Z, up.X, up.Y, err)
		}
	}
	if newCount > 0 && canvas.TileCount+newCount >= domain.MaxTilesPerCanvas {
		return nil, &domain.QuotaExceededError{
			CanvasID:  canvasID,
			Current:   canvas.TileCount,
			Requested: newCount,
			Limit:     domain.MaxTilesPerCanvas,
		}
	}

	saved := make([]domain.TileCoordinate, 0, len(tiles))
	for _, up := range tiles {
		key := domain.TileStorageKey(canvasID, up.Z, up.X, up.Y)
		if err := s.blobs.Put(ctx, key, up.Data, "image/jpeg"); err != nil {
			return nil, fmt.Errorf("store tile blob %s: %w", key, err)
		}

		if _, err := s.tiles.Upsert(ctx, &domain.DrawingTile{
			CanvasID:   canvasID,
			LayerID:    up.LayerID,
			Z:          up.Z,
			X:          up.X,
			Y:          up.Y,
			StorageKey: key,
		}); err != nil {
			return nil, fmt.Errorf("upsert tile %d/%d/%d: %w", up.Z, up.X, up.Y, err)
		}

		saved = append(saved, up.TileCoordinate)
		s.images.Invalidate(ctx, canvasID, up.TileCoordinate)
	}

	// One atomic increment for the genuinely new tiles; a plain touch keeps
	// updated_at fresh for overwrite-only batches.
	if err := s.canvases.AddTileCount(ctx, canvasID, newCount); err != nil {
		return nil, fmt.Errorf("update tile count for %s: %w", canvasID, err)
	}

	return &domain.SaveResult{Saved: saved, NewCount: newCount}, nil
}

// GetTilesInArea lists stored tile coordinates inside an index range,
// optionally restricted to one layer.
func (s *TileService) GetTilesInArea(ctx context.Context, canvasID string, z, minX, maxX, minY, maxY int, layerID *string) ([]domain.TileCoordinate, error) {
	if !domain.ValidCanvasID(canvasID) {
		return nil, domain.NewValidationError("canvas_id", "malformed token")
	}
	if !tilemath.ValidZoom(z) {
		return nil, domain.NewValidationError("z", "zoom out of range")
	}
	if minX > maxX || minY > maxY {
		return nil, domain.NewValidationError("range", "min exceeds max")
	}
	return s.tiles.FindInArea(ctx, canvasID, z, minX, maxX, minY, maxY, layerID)
}

// GetTileImage returns the encoded blob for one tile, read through the redis
// cache when one is configured.
func (s *TileService) GetTileImage(ctx context.Context, canvasID string, z, x, y int) ([]byte, error) {
	if !domain.ValidCanvasID(canvasID) {
		return nil, domain.NewValidationError("canvas_id", "malformed token")
	}
	if !tilemath.ValidTile(x, y, z) {
		return nil, domain.NewValidationError("tile", "coordinate out of range")
	}

	coord := domain.TileCoordinate{Z: z, X: x, Y: y}
	if data, ok := s.images.Get(ctx, canvasID, coord); ok {
		return data, nil
	}

	tile, err := s.tiles.Get(ctx, canvasID, z, x, y)
	if err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, tile.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, domain.ErrTileNotFound
		}
		return nil, fmt.Errorf("fetch tile blob %s: %w", tile.StorageKey, err)
	}

	s.images.Set(ctx, canvasID, coord, data)
	return data, nil
}

// DeleteTile removes the metadata row and the durable blob.
func (s *TileService) DeleteTile(ctx context.Context, canvasID string, z, x, y int) error {
	if !domain.ValidCanvasID(canvasID) {
		return domain.NewValidationError("canvas_id", "malformed token")
	}
	if !tilemath.ValidTile(x, y, z) {
		return domain.NewValidationError("tile", "coordinate out of range")
	}

	key, err := s.tiles.Delete(ctx, canvasID, z, x, y)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		// The metadata row is gone; the blob is unreferenced from here on.
		log.Printf("[warn] operation=delete_tile key=%s error=%v", key, err)
	}
	s.images.Invalidate(ctx, canvasID, domain.TileCoordinate{Z: z, X: x, Y: y})

	return s.canvases.AddTileCount(ctx, canvasID, -1)
}

func validateBatch(canvasID string, tiles []domain.TileUpload) error {
	if !domain.ValidCanvasID(canvasID) {
		return domain.NewValidationError("canvas_id", "malformed token")
	}
	if len(tiles) == 0 {
		return domain.NewValidationError("tiles", "empty batch")
	}
	for _, up := range tiles {
		if !tilemath.ValidTile(up.X, up.Y, up.Z) {
			return domain.NewValidationError("tile",
				fmt.Sprintf("coordinate %d/%d/%d out of range", up.Z, up.X, up.Y))
		}
		if len(up.Data) == 0 {
			return domain.NewValidationError("tile", "empty blob")
		}
	}
	return nil
}
