// Package render turns drawn raster surfaces into persisted map tiles:
// dirty-tile extraction, size-bounded lossy encoding, the in-process tile
// cache and the extract-encode-save pipeline.
package render

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
	"github.com/mapsketch/mapsketch-backend/internal/tilemath"
)

// Surface is a drawn raster with its geographic anchoring. Origin is the
// geographic coordinate at the center of the bitmap; Zoom is the zoom level
// the surface was drawn at.
type Surface struct {
	Image     image.Image
	OriginLat float64
	OriginLng float64
	Zoom      int
}

// ExtractedTile is one non-empty target-zoom tile cut from a surface,
// resampled to the canonical tile size.
type ExtractedTile struct {
	Coord domain.TileCoordinate
	Image *image.NRGBA
}

// Extractor computes the minimal set of non-empty tiles a surface dirties.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the target-zoom tiles that overlap the viewport and contain
// at least one non-transparent pixel of the surface. Tiles with zero overlap
// are skipped regardless of content; partially covered tiles are extracted
// when any sampled pixel has non-zero alpha.
func (e *Extractor) Extract(surface Surface, targetZoom int, viewport tilemath.Bounds) []ExtractedTile {
	minX, maxX, minY, maxY := tileRange(viewport, targetZoom)

	bounds := surface.Image.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	// Offsets are measured in surface-zoom world pixels so surface and target
	// zoom may differ without loss of precision.
	scale := math.Pow(2, float64(targetZoom-surface.Zoom))
	srcSize := tilemath.TileSize / scale

	originPx, originPy := tilemath.ProjectToPixel(surface.OriginLat, surface.OriginLng, surface.Zoom)

	var out []ExtractedTile
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			cLat, cLng := tilemath.TileCenter(x, y, targetZoom)
			cPx, cPy := tilemath.ProjectToPixel(cLat, cLng, surface.Zoom)

			// Source rectangle on the surface, centered on the tile center.
			cx := width/2 + (cPx - originPx)
			cy := height/2 + (cPy - originPy)
			srcRect := image.Rect(
				int(math.Floor(cx-srcSize/2)),
				int(math.Floor(cy-srcSize/2)),
				int(math.Ceil(cx+srcSize/2)),
				int(math.Ceil(cy+srcSize/2)),
			)

			visible := srcRect.Intersect(bounds.Sub(bounds.Min))
			if visible.Empty() {
				continue
			}
			if !hasInk(surface.Image, visible.Add(bounds.Min)) {
				continue
			}

			out = append(out, ExtractedTile{
				Coord: domain.TileCoordinate{Z: targetZoom, X: x, Y: y},
				Image: resampleTile(surface.Image, srcRect),
			})
		}
	}
	return out
}

// tileRange returns inclusive tile indices covering the viewport at zoom.
func tileRange(viewport tilemath.Bounds, zoom int) (minX, maxX, minY, maxY int) {
	x1, y1 := tilemath.GeoToTile(viewport.North, viewport.West, zoom)
	x2, y2 := tilemath.GeoToTile(viewport.South, viewport.East, zoom)
	minX, maxX = min(x1, x2), max(x1, x2)
	minY, maxY = min(y1, y2), max(y1, y2)
	return minX, maxX, minY, maxY
}

// hasInk scans the alpha channel of rect; a tile whose every pixel is fully
// transparent is considered empty and never persisted.
func hasInk(img image.Image, rect image.Rectangle) bool {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a != 0 {
				return true
			}
		}
	}
	return false
}

// resampleTile cuts srcRect out of the surface (areas beyond the surface stay
// transparent) and resamples it to the canonical tile size.
func resampleTile(img image.Image, srcRect image.Rectangle) *image.NRGBA {
	b := img.Bounds()

	src := image.NewNRGBA(image.Rect(0, 0, srcRect.Dx(), srcRect.Dy()))
	visible := srcRect.Intersect(b.Sub(b.Min))
	xdraw.Draw(src, visible.Sub(srcRect.Min), img, visible.Min.Add(b.Min), xdraw.Src)

	dst := image.NewNRGBA(image.Rect(0, 0, tilemath.TileSize, tilemath.TileSize))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
