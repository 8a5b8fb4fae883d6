package http

import (
	"bytes"
	"image/png"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mapsketch/mapsketch-backend/internal/render"
	"github.com/mapsketch/mapsketch-backend/internal/tilemath"
)

// ingestReq carries a drawn surface snapshot: a PNG anchored at its
// geographic center, plus the viewport the client wants tiled.
type ingestReq struct {
	Surface     []byte   `json:"surface"` // base64 PNG in JSON
	OriginLat   float64  `json:"origin_lat"`
	OriginLng   float64  `json:"origin_lng"`
	SurfaceZoom int      `json:"surface_zoom"`
	TargetZoom  int      `json:"target_zoom"`
	LayerID     *string  `json:"layer_id"`
	Viewport    viewport `json:"viewport"`
}

type viewport struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

func (h *Handler) ingestSurface(c *gin.Context) {
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Surface) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	if !tilemath.ValidZoom(req.SurfaceZoom) || !tilemath.ValidZoom(req.TargetZoom) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "zoom out of range"})
		return
	}

	img, err := png.Decode(bytes.NewReader(req.Surface))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "surface is not a valid png"})
		return
	}

	res, err := h.pipeline.Run(c.Request.Context(), c.Param("canvas_id"), req.LayerID,
		render.Surface{
			Image:     img,
			OriginLat: req.OriginLat,
			OriginLng: req.OriginLng,
			Zoom:      req.SurfaceZoom,
		},
		req.TargetZoom,
		tilemath.Bounds{
			South: req.Viewport.South,
			West:  req.Viewport.West,
			North: req.Viewport.North,
			East:  req.Viewport.East,
		},
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "saved": res.Saved, "new_count": res.NewCount})
}
