package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coop-door-backend/config"
	"coop-door-backend/internal/store"
	"coop-door-backend/internal/stream"
	"coop-door-backend/internal/sun"
)

// Deps are the collaborators the handlers need. DB, WebPush and Hub may be
// nil when the matching feature is disabled.
type Deps struct {
	Status  store.Store
	Almanac *sun.Almanac
	DB      *gorm.DB
	WebPush *webpush.Options
	Hub     *stream.Hub
	Logger  *zap.Logger
	Clock   func() time.Time
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg     *config.Config
	status  store.Store
	almanac *sun.Almanac
	db      *gorm.DB
	webpush *webpush.Options
	hub     *stream.Hub
	log     *zap.Logger
	clock   func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Handler{
		cfg:     cfg,
		status:  deps.Status,
		almanac: deps.Almanac,
		db:      deps.DB,
		webpush: deps.WebPush,
		hub:     deps.Hub,
		log:     log.Named("api"),
		clock:   clock,
	}
}
