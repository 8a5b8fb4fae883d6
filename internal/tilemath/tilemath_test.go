package tilemath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoToTile(t *testing.T) {
	t.Run("tokyo station at zoom 18", func(t *testing.T) {
		// Known slippy-map indices for (35.6812, 139.7671).
		x, y := GeoToTile(35.6812, 139.7671, 18)
		assert.Equal(t, 232847, x)
		assert.Equal(t, 103226, y)
	})

	t.Run("origin maps to the middle of the pyramid", func(t *testing.T) {
		x, y := GeoToTile(0, 0, 4)
		assert.Equal(t, 8, x)
		assert.Equal(t, 8, y)
	})

	t.Run("indices stay inside 0..2^z-1", func(t *testing.T) {
		points := []struct{ lat, lng float64 }{
			{85.0511, 179.999}, {-85.0511, -179.999}, {0, 180.0}, {51.5, -0.12},
		}
		for zoom := ZoomMin; zoom <= ZoomMax; zoom++ {
			n := 1 << uint(zoom)
			for _, p := range points {
				x, y := GeoToTile(p.lat, p.lng, zoom)
				assert.GreaterOrEqual(t, x, 0)
				assert.GreaterOrEqual(t, y, 0)
				assert.Less(t, x, n)
				assert.Less(t, y, n)
			}
		}
	})
}

func TestTileToGeoRoundTrip(t *testing.T) {
	// The tile derived from a point must contain that point, and the tile's
	// center must map back to the same indices (round-trip up to flooring;
	// the NW corner itself sits on the cell boundary).
	points := []struct{ lat, lng float64 }{
		{35.6812, 139.7671},
		{-33.8688, 151.2093},
		{64.1466, -21.9426},
		{0.0001, 0.0001},
	}
	for _, p := range points {
		for _, zoom := range []int{1, 5, 10, 15, 19} {
			x, y := GeoToTile(p.lat, p.lng, zoom)

			b := TileBounds(x, y, zoom)
			assert.GreaterOrEqual(t, p.lat, b.South, "lat=%f lng=%f z=%d", p.lat, p.lng, zoom)
			assert.LessOrEqual(t, p.lat, b.North, "lat=%f lng=%f z=%d", p.lat, p.lng, zoom)
			assert.GreaterOrEqual(t, p.lng, b.West, "lat=%f lng=%f z=%d", p.lat, p.lng, zoom)
			assert.LessOrEqual(t, p.lng, b.East, "lat=%f lng=%f z=%d", p.lat, p.lng, zoom)

			clat, clng := TileCenter(x, y, zoom)
			rx, ry := GeoToTile(clat, clng, zoom)
			assert.Equal(t, x, rx, "lat=%f lng=%f z=%d", p.lat, p.lng, zoom)
			assert.Equal(t, y, ry, "lat=%f lng=%f z=%d", p.lat, p.lng, zoom)
		}
	}
}

func TestTileBounds(t *testing.T) {
	b := TileBounds(232847, 103226, 18)

	require.Less(t, b.South, b.North)
	require.Less(t, b.West, b.East)

	// The point used to derive the tile must sit inside its bounds.
	assert.GreaterOrEqual(t, 35.6812, b.South)
	assert.LessOrEqual(t, 35.6812, b.North)
	assert.GreaterOrEqual(t, 139.7671, b.West)
	assert.LessOrEqual(t, 139.7671, b.East)

	// Adjacent tiles share edges.
	right := TileBounds(232848, 103226, 18)
	assert.InDelta(t, b.East, right.West, 1e-9)
}

func TestProjectToPixel(t *testing.T) {
	t.Run("matches tile index times tile size", func(t *testing.T) {
		lat, lng := TileToGeo(232847, 103226, 18)
		px, py := ProjectToPixel(lat, lng, 18)
		assert.InDelta(t, float64(232847*TileSize), px, 0.5)
		assert.InDelta(t, float64(103226*TileSize), py, 0.5)
	})

	t.Run("doubles when zoom increases by one", func(t *testing.T) {
		px1, py1 := ProjectToPixel(35.6812, 139.7671, 17)
		px2, py2 := ProjectToPixel(35.6812, 139.7671, 18)
		assert.InDelta(t, px1*2, px2, 1e-6)
		assert.InDelta(t, py1*2, py2, 1e-6)
	})
}

func TestTileCenter(t *testing.T) {
	lat, lng := TileCenter(232847, 103226, 18)
	x, y := GeoToTile(lat, lng, 18)
	assert.Equal(t, 232847, x)
	assert.Equal(t, 103226, y)
}

func TestValidTile(t *testing.T) {
	assert.True(t, ValidTile(0, 0, 1))
	assert.True(t, ValidTile(1, 1, 1))
	assert.False(t, ValidTile(2, 0, 1))
	assert.False(t, ValidTile(-1, 0, 5))
	assert.False(t, ValidTile(0, 0, 0))
	assert.False(t, ValidTile(0, 0, 20))
	assert.True(t, ValidTile((1<<19)-1, 0, 19))
}
