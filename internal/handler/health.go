package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything that can report its own reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness, version and the welcome payload
type HealthHandler struct {
	name    string
	version string
	store   Pinger
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(name, version string, store Pinger) *HealthHandler {
	return &HealthHandler{
		name:    name,
		version: version,
		store:   store,
		started: time.Now(),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "error",
			"database": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": h.name, "version": h.version})
}

// Welcome handles GET /
func (h *HealthHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the " + h.name + " API",
		"version": h.version,
		"endpoints": gin.H{
			"query":         "POST /api/weather/query",
			"history":       "GET /api/weather/history",
			"clear_history": "DELETE /api/weather/history",
			"health":        "GET /health",
			"metrics":       "GET /metrics",
		},
	})
}
