package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	"github.com/mapsketch/mapsketch-backend/internal/tilemath"
)

const (
	// MaxTileBytes is the hard size budget for one encoded tile.
	MaxTileBytes = 100 * 1024

	qualityStart = 85
	qualityFloor = 30
	qualityStep  = 10
)

// Encoded is the output of one tile encoding. Oversized is set when even the
// floor quality could not meet the byte budget; the blob is still usable.
type Encoded struct {
	Data      []byte
	Quality   int
	Oversized bool
}

// Encoder compresses raw tile bitmaps into size-bounded JPEG blobs by walking
// a quality ladder downwards until the budget is met.
type Encoder struct {
	maxBytes int
}

// NewEncoder creates an Encoder with the standard 100 KiB budget.
func NewEncoder() *Encoder {
	return &Encoder{maxBytes: MaxTileBytes}
}

// Encode normalizes img to the canonical tile size and compresses it. It
// starts at quality 85 and steps down by 10 until the blob fits or the floor
// of 30 is reached; at the floor the blob is returned with Oversized set.
func (e *Encoder) Encode(img image.Image) (*Encoded, error) {
	normalized := Normalize(img)

	for q := qualityStart; ; {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, normalized, &jpeg.Options{Quality: q}); err != nil {
			return nil, fmt.Errorf("encode tile at quality %d: %w", q, err)
		}

		if buf.Len() <= e.maxBytes {
			return &Encoded{Data: buf.Bytes(), Quality: q}, nil
		}
		if q == qualityFloor {
			return &Encoded{Data: buf.Bytes(), Quality: q, Oversized: true}, nil
		}
		// The last step clamps to the floor so quality 30 is always tried
		// before a blob is declared oversized.
		if q -= qualityStep; q < qualityFloor {
			q = qualityFloor
		}
	}
}

// Normalize returns img as an opaque 256x256 bitmap. Undersized edge tiles are
// padded at the top-left; oversized inputs are resampled down. Transparent
// areas composite over white, matching the map background.
func Normalize(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, tilemath.TileSize, tilemath.TileSize))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	if b.Dx() == tilemath.TileSize && b.Dy() == tilemath.TileSize {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
		return dst
	}
	if b.Dx() <= tilemath.TileSize && b.Dy() <= tilemath.TileSize {
		draw.Draw(dst, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Over)
		return dst
	}

	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
