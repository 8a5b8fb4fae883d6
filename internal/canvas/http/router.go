package http

import "github.com/gin-gonic/gin"

// Register attaches canvas, layer and tile routes to the given group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.createCanvas)

	canvas := rg.Group("/:canvas_id")
	canvas.GET("", h.getCanvas)
	canvas.PATCH("/position", h.updatePosition)
	canvas.PUT("/share", h.setSharedView)

	canvas.GET("/layers", h.listLayers)
	canvas.POST("/layers", h.addLayer)
	canvas.PUT("/layers/order", h.reorderLayers)
	canvas.PATCH("/layers/:layer_id", h.patchLayer)
	canvas.DELETE("/layers/:layer_id", h.deleteLayer)

	canvas.POST("/tiles", h.saves.Middleware(), h.saveTiles)
	canvas.POST("/ingest", h.saves.Middleware(), h.ingestSurface)
	canvas.GET("/tiles", h.listTiles)
	canvas.GET("/tiles/:z/:x/:y", h.getTileImage)
	canvas.DELETE("/tiles/:z/:x/:y", h.deleteTile)
}
