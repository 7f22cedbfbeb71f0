package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"coop-door-backend/internal/parse"
	"coop-door-backend/internal/sun"
)

type scheduleResponse struct {
	Ordinal      int     `json:"ordinal"`
	Sunrise      float64 `json:"sunrise"`
	Sunset       float64 `json:"sunset"`
	SunriseClock string  `json:"sunrise_clock"`
	SunsetClock  string  `json:"sunset_clock"`
	GraceSeconds float64 `json:"grace_seconds"`
	SecondsOfDay float64 `json:"seconds_of_day"`
	Daylight     bool    `json:"daylight"`
}

// GetScheduleToday handles GET /api/schedule/today.
func (h *Handler) GetScheduleToday(c *gin.Context) {
	secs, ordinal := sun.LocalClock(h.clock(), h.cfg.Door.HourOffset)
	couplet, err := h.almanac.Lookup(ordinal)
	if err != nil {
		if errors.Is(err, sun.ErrScheduleGap) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	grace := float64(h.cfg.Door.GraceSeconds)
	if grace <= 0 {
		grace = sun.Grace
	}

	c.JSON(http.StatusOK, scheduleResponse{
		Ordinal:      ordinal,
		Sunrise:      couplet.Sunrise,
		Sunset:       couplet.Sunset,
		SunriseClock: parse.FormatClock(couplet.Sunrise),
		SunsetClock:  parse.FormatClock(couplet.Sunset),
		GraceSeconds: grace,
		SecondsOfDay: secs,
		Daylight:     couplet.Daylight(secs, grace),
	})
}
