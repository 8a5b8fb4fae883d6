package http

import (
	"time"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
	"github.com/mapsketch/mapsketch-backend/internal/canvas/service"
	"github.com/mapsketch/mapsketch-backend/internal/render"
)

// Handler bundles the dependencies for canvas HTTP endpoints.
type Handler struct {
	canvases *service.CanvasService
	tiles    *service.TileService
	pipeline *render.Pipeline
	saves    *saveLimiter
}

func New(canvases *service.CanvasService, tiles *service.TileService) *Handler {
	return &Handler{
		canvases: canvases,
		tiles:    tiles,
		pipeline: render.NewPipeline(tiles, render.DefaultRetryPolicy()),
		saves:    newSaveLimiter(5, 10),
	}
}

// Close stops the rate limiter's background pruner.
func (h *Handler) Close() {
	h.saves.Close()
}

type createCanvasReq struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

type positionReq struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// shareReq carries the shared-view triple; all three null clears the share.
type shareReq struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Zoom *int     `json:"zoom"`
}

type layerCreateReq struct {
	Name string `json:"name"`
}

type layerPatchReq struct {
	Name    *string `json:"name"`
	Visible *bool   `json:"visible"`
}

type layerOrderReq struct {
	LayerIDs []string `json:"layer_ids"`
}

type saveTileReq struct {
	Z    int    `json:"z"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Data []byte `json:"data"` // base64 in JSON
}

type saveTilesReq struct {
	LayerID *string       `json:"layer_id"`
	Tiles   []saveTileReq `json:"tiles"`
}

type canvasResp struct {
	ID        string    `json:"id"`
	CenterLat float64   `json:"center_lat"`
	CenterLng float64   `json:"center_lng"`
	Zoom      int       `json:"zoom"`
	ShareLat  *float64  `json:"share_lat,omitempty"`
	ShareLng  *float64  `json:"share_lng,omitempty"`
	ShareZoom *int      `json:"share_zoom,omitempty"`
	TileCount int       `json:"tile_count"`
	Shared    bool      `json:"shared"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCanvasResp(c *domain.Canvas) canvasResp {
	return canvasResp{
		ID:        c.ID,
		CenterLat: c.CenterLat,
		CenterLng: c.CenterLng,
		Zoom:      c.Zoom,
		ShareLat:  c.ShareLat,
		ShareLng:  c.ShareLng,
		ShareZoom: c.ShareZoom,
		TileCount: c.TileCount,
		Shared:    c.Shared(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type layerResp struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Visible bool   `json:"visible"`
}

func toLayerResp(l *domain.Layer) layerResp {
	return layerResp{ID: l.ID, Name: l.Name, Order: l.Order, Visible: l.Visible}
}
