package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mapsketch/mapsketch-backend/internal/canvas/domain"
)

func (h *Handler) createCanvas(c *gin.Context) {
	var req createCanvasReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	canvas, err := h.canvases.CreateCanvas(c.Request.Context(), req.Lat, req.Lng, req.Zoom)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "canvas": toCanvasResp(canvas)})
}

func (h *Handler) getCanvas(c *gin.Context) {
	canvas, err := h.canvases.GetCanvas(c.Request.Context(), c.Param("canvas_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "canvas": toCanvasResp(canvas)})
}

func (h *Handler) updatePosition(c *gin.Context) {
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	err := h.canvases.UpdatePosition(c.Request.Context(), c.Param("canvas_id"), req.Lat, req.Lng, req.Zoom)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) setSharedView(c *gin.Context) {
	var req shareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	err := h.canvases.SetSharedView(c.Request.Context(), c.Param("canvas_id"), req.Lat, req.Lng, req.Zoom)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listLayers(c *gin.Context) {
	layers, err := h.canvases.ListLayers(c.Request.Context(), c.Param("canvas_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]layerResp, len(layers))
	for i := range layers {
		out[i] = toLayerResp(&layers[i])
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "layers": out})
}

func (h *Handler) addLayer(c *gin.Context) {
	var req layerCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	layer, err := h.canvases.AddLayer(c.Request.Context(), c.Param("canvas_id"), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "layer": toLayerResp(layer)})
}

func (h *Handler) patchLayer(c *gin.Context) {
	var req layerPatchReq
	if err := c.ShouldBindJSON(&req); err != nil || (req.Name == nil && req.Visible == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	canvasID, layerID := c.Param("canvas_id"), c.Param("layer_id")
	ctx := c.Request.Context()

	if req.Name != nil {
		if err := h.canvases.RenameLayer(ctx, canvasID, layerID, *req.Name); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.Visible != nil {
		if err := h.canvases.SetLayerVisible(ctx, canvasID, layerID, *req.Visible); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) reorderLayers(c *gin.Context) {
	var req layerOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	err := h.canvases.ReorderLayers(c.Request.Context(), c.Param("canvas_id"), req.LayerIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) deleteLayer(c *gin.Context) {
	err := h.canvases.DeleteLayer(c.Request.Context(), c.Param("canvas_id"), c.Param("layer_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) saveTiles(c *gin.Context) {
	var req saveTilesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	uploads := make([]domain.TileUpload, len(req.Tiles))
	for i, t := range req.Tiles {
		uploads[i] = domain.TileUpload{
			TileCoordinate: domain.TileCoordinate{Z: t.Z, X: t.X, Y: t.Y},
			LayerID:        req.LayerID,
			Data:           t.Data,
		}
	}

	res, err := h.tiles.SaveTiles(c.Request.Context(), c.Param("canvas_id"), uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "saved": res.Saved, "new_count": res.NewCount})
}

func (h *Handler) listTiles(c *gin.Context) {
	z, err1 := strconv.Atoi(c.Query("z"))
	minX, err2 := strconv.Atoi(c.Query("min_x"))
	maxX, err3 := strconv.Atoi(c.Query("max_x"))
	minY, err4 := strconv.Atoi(c.Query("min_y"))
	maxY, err5 := strconv.Atoi(c.Query("max_y"))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "z, min_x, max_x, min_y, max_y are required integers"})
		return
	}
	var layerID *string
	if v := c.Query("layer_id"); v != "" {
		layerID = &v
	}

	coords, err := h.tiles.GetTilesInArea(c.Request.Context(), c.Param("canvas_id"), z, minX, maxX, minY, maxY, layerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if coords == nil {
		coords = []domain.TileCoordinate{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "tiles": coords})
}

func (h *Handler) getTileImage(c *gin.Context) {
	z, x, y, ok := tilePathParams(c)
	if !ok {
		return
	}

	data, err := h.tiles.GetTileImage(c.Request.Context(), c.Param("canvas_id"), z, x, y)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (h *Handler) deleteTile(c *gin.Context) {
	z, x, y, ok := tilePathParams(c)
	if !ok {
		return
	}

	if err := h.tiles.DeleteTile(c.Request.Context(), c.Param("canvas_id"), z, x, y); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func tilePathParams(c *gin.Context) (z, x, y int, ok bool) {
	z, err1 := strconv.Atoi(c.Param("z"))
	x, err2 := strconv.Atoi(c.Param("x"))
	y, err3 := strconv.Atoi(c.Param("y"))
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "tile coordinates must be integers"})
		return 0, 0, 0, false
	}
	return z, x, y, true
}

// respondError maps domain errors onto status codes and a structured body.
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var qerr *domain.QuotaExceededError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": verr.Error(), "field": verr.Field})
	case errors.As(err, &qerr):
		c.JSON(http.StatusConflict, gin.H{
			"ok": false, "error": "tile quota exceeded",
			"current": qerr.Current, "requested": qerr.Requested, "limit": qerr.Limit,
		})
	case errors.Is(err, domain.ErrCanvasNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "canvas not found"})
	case errors.Is(err, domain.ErrLayerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "layer not found"})
	case errors.Is(err, domain.ErrTileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "tile not found"})
	case errors.Is(err, domain.ErrLastLayer):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "the last layer cannot be deleted"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
