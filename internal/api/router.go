package api

import (
	"github.com/gin-gonic/gin"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/ingest"
	"iot-telemetry-backend/internal/mw"
	"iot-telemetry-backend/internal/store"
)

// NewRouter wires the HTTP surface: device and profile CRUD, dashboard
// reads, ingestion control and push subscription management.
func NewRouter(s store.Store, session *ingest.Session, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := NewHandler(s, session, &cfg.Push)

	cached := mw.CacheResponses(cfg.Server.CacheTTL)

	api := r.Group("/api")
	api.Use(mw.RateLimit(cfg.Server.RateLimitPerSec, cfg.Server.RateLimitBurst))
	{
		api.GET("/devices", cached, h.ListDevices)
		api.POST("/devices", h.CreateDevice)
		api.GET("/devices/:id", h.GetDevice)
		api.PUT("/devices/:id", h.UpdateDevice)
		api.DELETE("/devices/:id", h.DeleteDevice)
		api.GET("/devices/:id/readings", cached, h.DeviceReadings)

		api.GET("/readings", cached, h.AllReadings)
		api.GET("/readings/:metric", cached, h.ReadingsByMetric)

		api.GET("/broker-profiles", h.ListBrokerProfiles)
		api.POST("/broker-profiles", h.CreateBrokerProfile)
		api.GET("/broker-profiles/active", h.ActiveBrokerProfile)
		api.GET("/broker-profiles/:id", h.GetBrokerProfile)
		api.PUT("/broker-profiles/:id", h.UpdateBrokerProfile)
		api.DELETE("/broker-profiles/:id", h.DeleteBrokerProfile)
		api.POST("/broker-profiles/:id/activate", h.ActivateBrokerProfile)

		api.GET("/topic-profiles", h.ListTopicProfiles)
		api.POST("/topic-profiles", h.CreateTopicProfile)
		api.GET("/topic-profiles/active", h.ActiveTopicProfile)
		api.GET("/topic-profiles/:id", h.GetTopicProfile)
		api.PUT("/topic-profiles/:id", h.UpdateTopicProfile)
		api.DELETE("/topic-profiles/:id", h.DeleteTopicProfile)
		api.POST("/topic-profiles/:id/activate", h.ActivateTopicProfile)

		api.POST("/ingest/start", h.StartIngestion)
		api.POST("/ingest/stop", h.StopIngestion)
		api.POST("/ingest/subscribe", h.SubscribeTopic)
		api.POST("/ingest/unsubscribe", h.UnsubscribeTopic)
		api.POST("/ingest/publish", h.PublishMessage)
		api.GET("/ingest/status", h.IngestionStatus)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
