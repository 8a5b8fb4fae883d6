package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/mapsketch/mapsketch-backend/internal/api/http"
	canvashttp "github.com/mapsketch/mapsketch-backend/internal/canvas/http"
	"github.com/mapsketch/mapsketch-backend/internal/canvas/repository"
	"github.com/mapsketch/mapsketch-backend/internal/canvas/service"
	cronjob "github.com/mapsketch/mapsketch-backend/internal/cleanup/cron"
	cleanuphttp "github.com/mapsketch/mapsketch-backend/internal/cleanup/http"
	"github.com/mapsketch/mapsketch-backend/internal/storage/blob"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Environment string
	DB          *pgxpool.Pool
	Blobs       blob.Store
	Cache       *redis.Client
	CacheTTL    time.Duration
	Cleanup     cronjob.Runner
}

// BuildRouter wires repositories, services and handlers onto one engine.
// Share URLs are anonymous, so CORS allows any origin.
func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Cache)
	healthHandler.RegisterRoutes(r)

	canvasRepo := repository.NewCanvasRepo(dep.DB)
	layerRepo := repository.NewLayerRepo(dep.DB)
	tileRepo := repository.NewTileRepo(dep.DB)

	var images *service.ImageCache
	if dep.Cache != nil {
		images = service.NewImageCache(dep.Cache, dep.CacheTTL)
	}

	canvasService := service.NewCanvasService(canvasRepo, layerRepo)
	tileService := service.NewTileService(canvasRepo, tileRepo, dep.Blobs, images)

	api := r.Group("/api/v1")

	canvasHandler := canvashttp.New(canvasService, tileService)
	canvasHandler.Register(api.Group("/canvases"))

	if dep.Cleanup != nil {
		cleanupHandler := cleanuphttp.NewHandler(dep.Cleanup, dep.Environment)
		cleanupHandler.Register(api.Group("/admin"))
	}

	return r
}
