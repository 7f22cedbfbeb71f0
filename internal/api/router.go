package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"coop-door-backend/config"
	"coop-door-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(mw.RequestID(), mw.Logger(log.Named("http")), mw.Recovery(log), mw.CORS(cfg.Server.AllowedOrigins))

	handler := NewHandler(cfg, deps)
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	auth := mw.AccessKey(cfg.Server.AccessKey)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/", Root)

	// Routes kept for deployed door clients.
	legacy := r.Group("/", rateLimiter, auth)
	{
		legacy.GET("/get_door_status", handler.GetDoorStatus)
		legacy.PUT("/update_door_status", handler.PutDoorStatus)
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/status", auth, handler.GetDoorStatus)
		api.PUT("/status", auth, handler.PutDoorStatus)
		api.GET("/status/stream", mw.AccessKeyOrQuery(cfg.Server.AccessKey, "access_key"), handler.GetStatusStream)
		api.GET("/schedule/today", auth, caching, handler.GetScheduleToday)

		api.GET("/subscriptions", auth, handler.GetSubscription)
		api.PUT("/subscriptions", auth, handler.PutSubscription)
		api.DELETE("/subscriptions", auth, handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
