package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
	"github.com/mapsketch/mapsketch-backend/internal/tilemath"
)

// Saver persists a batch of encoded tiles. Satisfied by the canvas tile service.
type Saver interface {
	SaveTiles(ctx context.Context, canvasID string, tiles []domain.TileUpload) (*domain.SaveResult, error)
}

// RetryPolicy bounds retries on the save step. Quota and validation failures
// are never retried; only transient storage errors are.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy matches the save path's interactive latency budget.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second}
}

// Pipeline drives extract -> encode -> save as a sequential chain of stages.
type Pipeline struct {
	extractor *Extractor
	encoder   *Encoder
	saver     Saver
	retry     RetryPolicy
}

// NewPipeline wires the stages together.
func NewPipeline(saver Saver, retry RetryPolicy) *Pipeline {
	return &Pipeline{
		extractor: NewExtractor(),
		encoder:   NewEncoder(),
		saver:     saver,
		retry:     retry,
	}
}

// Run extracts the dirty tiles of surface for the viewport at targetZoom,
// encodes each under the byte budget and persists the batch. Oversized tiles
// are logged and kept (accept-with-warning).
func (p *Pipeline) Run(ctx context.Context, canvasID string, layerID *string, surface Surface, targetZoom int, viewport tilemath.Bounds) (*domain.SaveResult, error) {
	tiles := p.extractor.Extract(surface, targetZoom, viewport)
	if len(tiles) == 0 {
		return &domain.SaveResult{Saved: []domain.TileCoordinate{}}, nil
	}

	uploads := make([]domain.TileUpload, 0, len(tiles))
	for _, t := range tiles {
		enc, err := p.encoder.Encode(t.Image)
		if err != nil {
			return nil, fmt.Errorf("encode tile %d/%d/%d: %w", t.Coord.Z, t.Coord.X, t.Coord.Y, err)
		}
		if enc.Oversized {
			log.Printf("[warn] operation=encode_tile canvas=%s z=%d x=%d y=%d size=%d over budget at floor quality",
				canvasID, t.Coord.Z, t.Coord.X, t.Coord.Y, len(enc.Data))
		}
		uploads = append(uploads, domain.TileUpload{
			TileCoordinate: t.Coord,
			LayerID:        layerID,
			Data:           enc.Data,
		})
	}

	return p.save(ctx, canvasID, uploads)
}

func (p *Pipeline) save(ctx context.Context, canvasID string, uploads []domain.TileUpload) (*domain.SaveResult, error) {
	backoff := p.retry.Backoff
	var lastErr error

	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		res, err := p.saver.SaveTiles(ctx, canvasID, uploads)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var ve *domain.ValidationError
		if domain.IsQuotaExceeded(err) || errors.As(err, &ve) {
			return nil, err
		}
		if attempt == p.retry.MaxAttempts {
			break
		}

		log.Printf("[warn] operation=save_tiles canvas=%s attempt=%d error=%v", canvasID, attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if p.retry.MaxBackoff > 0 && backoff > p.retry.MaxBackoff {
			backoff = p.retry.MaxBackoff
		}
	}
	return nil, fmt.Errorf("save tiles after %d attempts: %w", p.retry.MaxAttempts, lastErr)
}
