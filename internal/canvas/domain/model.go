package domain

import "time"

const (
	// MaxTilesPerCanvas is the hard per-canvas quota on persisted tiles.
	MaxTilesPerCanvas = 1000

	// MaxLayersPerCanvas bounds the layer stack; a canvas always keeps at least one.
	MaxLayersPerCanvas = 10

	// MaxLayerNameLen bounds the user-visible layer name.
	MaxLayerNameLen = 50
)

// Canvas is one shareable drawing surface, created on the first stroke and
// removed only by the cleanup job.
type Canvas struct {
	ID        string    `json:"id"`
	CenterLat float64   `json:"center_lat"`
	CenterLng float64   `json:"center_lng"`
	Zoom      int       `json:"zoom"`
	ShareLat  *float64  `json:"share_lat,omitempty"`
	ShareLng  *float64  `json:"share_lng,omitempty"`
	ShareZoom *int      `json:"share_zoom,omitempty"`
	TileCount int       `json:"tile_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Shared reports whether the canvas carries a shared view. The share triple is
// all-or-nothing; Shared is true only when all three are set.
func (c *Canvas) Shared() bool {
	return c.ShareLat != nil && c.ShareLng != nil && c.ShareZoom != nil
}

// Layer is one ordered drawing surface inside a canvas. Order 0 is the bottom
// of the stack and is unique per canvas.
type Layer struct {
	ID        string    `json:"id"`
	CanvasID  string    `json:"canvas_id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TileCoordinate identifies one tile inside a canvas pyramid.
type TileCoordinate struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// DrawingTile is the persisted metadata for one compressed raster tile.
// (CanvasID, Z, X, Y) is unique; LayerID nil means the legacy default layer.
type DrawingTile struct {
	ID         string    `json:"id"`
	CanvasID   string    `json:"canvas_id"`
	LayerID    *string   `json:"layer_id,omitempty"`
	Z          int       `json:"z"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TileUpload is one encoded tile handed to SaveTiles.
type TileUpload struct {
	TileCoordinate
	LayerID *string
	Data    []byte
}

// SaveResult reports what a SaveTiles batch actually did.
type SaveResult struct {
	Saved    []TileCoordinate `json:"saved"`
	NewCount int              `json:"new_count"`
}

// GeoPoint is a geographic coordinate as drawn by the client.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Stroke is one pen gesture. Strokes exist only for redraw on the client and
// for dirty-region coalescing on ingest; tiles are the durable representation.
type Stroke struct {
	Points    []GeoPoint `json:"points"`
	Color     string     `json:"color"`
	Thickness float64    `json:"thickness"`
	Erase     bool       `json:"erase"`
	LayerID   string     `json:"layer_id"`
	Zoom      int        `json:"zoom"`
}
