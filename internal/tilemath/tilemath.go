// Package tilemath implements the Web-Mercator tile pyramid math used by the
// drawing pipeline: geographic coordinate <-> tile index <-> world pixel.
// All functions are pure; callers validate zoom/coordinate ranges.
package tilemath

import "math"

const (
	// TileSize is the edge length of one pyramid tile in pixels.
	TileSize = 256

	// ZoomMin and ZoomMax bound the pyramid levels the service accepts.
	ZoomMin = 1
	ZoomMax = 19
)

// Bounds is the geographic extent of a tile.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// GeoToTile returns the tile indices containing (lat, lng) at the given zoom.
// Longitude maps linearly; latitude uses the spherical-Mercator projection.
func GeoToTile(lat, lng float64, zoom int) (x, y int) {
	n := float64(int64(1) << uint(zoom))
	x = int(math.Floor((lng + 180.0) / 360.0 * n))

	latRad := lat * math.Pi / 180.0
	y = int(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

	max := int(n) - 1
	x = clamp(x, 0, max)
	y = clamp(y, 0, max)
	return x, y
}

// TileToGeo returns the geographic coordinate of the tile's north-west corner.
func TileToGeo(x, y, zoom int) (lat, lng float64) {
	n := float64(int64(1) << uint(zoom))
	lng = float64(x)/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1.0 - 2.0*float64(y)/n)))
	lat = latRad * 180.0 / math.Pi
	return lat, lng
}

// TileBounds returns the geographic extent covered by tile (x, y) at zoom.
func TileBounds(x, y, zoom int) Bounds {
	north, west := TileToGeo(x, y, zoom)
	south, east := TileToGeo(x+1, y+1, zoom)
	return Bounds{South: south, West: west, North: north, East: east}
}

// ProjectToPixel returns world-pixel coordinates at the given zoom, on the
// 2^zoom * TileSize global raster. Pixel offsets between two points at the
// same zoom follow directly from the difference of their projections.
func ProjectToPixel(lat, lng float64, zoom int) (px, py float64) {
	scale := float64(int64(1)<<uint(zoom)) * TileSize
	px = (lng + 180.0) / 360.0 * scale

	latRad := lat * math.Pi / 180.0
	py = (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * scale
	return px, py
}

// TileCenter returns the geographic center of tile (x, y) at zoom.
func TileCenter(x, y, zoom int) (lat, lng float64) {
	b := TileBounds(x, y, zoom)
	return (b.North + b.South) / 2.0, (b.West + b.East) / 2.0
}

// ValidZoom reports whether zoom is inside the pyramid the service serves.
func ValidZoom(zoom int) bool {
	return zoom >= ZoomMin && zoom <= ZoomMax
}

// ValidTile reports whether (x, y) is a legal index at zoom.
func ValidTile(x, y, zoom int) bool {
	if !ValidZoom(zoom) {
		return false
	}
	n := int(int64(1) << uint(zoom))
	return x >= 0 && x < n && y >= 0 && y < n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
