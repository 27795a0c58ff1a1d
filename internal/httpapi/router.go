package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cms_mirror/internal/domain"
)

type RouterConfig struct {
	WebhookHandler *WebhookHandler
	SyncHandler    *SyncHandler
	ReadHandler    *ReadHandler
	SyncSecret     string
	CORSOrigins    []string
	Logger         *slog.Logger
}

var kindPaths = map[domain.Kind]string{
	domain.KindStory:      "stories",
	domain.KindPlace:      "places",
	domain.KindInitiative: "initiatives",
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(cfg.Logger))

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/healthcheck", HealthCheck)
	router.POST("/webhooks/cms", cfg.WebhookHandler.Receive)

	api := router.Group("/api")
	{
		for _, kind := range domain.EntityKinds {
			path := "/" + kindPaths[kind]
			api.GET(path, cfg.ReadHandler.ListKind(kind))
			api.GET(path+"/:slug", cfg.ReadHandler.GetBySlug(kind))
		}
		api.GET("/entities", cfg.ReadHandler.ListEntities)
		api.GET("/tags", cfg.ReadHandler.Tags)
		api.GET("/sync/status", cfg.ReadHandler.SyncStatus)
		api.POST("/sync", RequireBearer(cfg.SyncSecret), cfg.SyncHandler.Trigger)
	}

	return router
}
