package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"weatheragent/internal/model"
)

// SessionHeader carries the conversation id in both directions
const SessionHeader = "X-Session-ID"

// Agent is what the weather handlers need from the pipeline
type Agent interface {
	ProcessQuery(ctx context.Context, query, sessionID string) (*model.WeatherQueryResponse, error)
	ClearHistory(ctx context.Context, sessionID string) (bool, error)
	History(ctx context.Context, sessionID string, limit int) ([]model.Turn, error)
}

// WeatherHandler handles weather-related HTTP requests
type WeatherHandler struct {
	agent        Agent
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(agent Agent, defaultLimit, maxLimit int, logger *zap.Logger) *WeatherHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &WeatherHandler{
		agent:        agent,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger.With(zap.String("component", "weather_handler")),
	}
}

// Register mounts the weather routes on a group
func (h *WeatherHandler) Register(r gin.IRoutes) {
	r.POST("/weather/query", h.Query)
	r.GET("/weather/history", h.History)
	r.DELETE("/weather/history", h.ClearHistory)
}

// Query handles POST /api/weather/query
func (h *WeatherHandler) Query(c *gin.Context) {
	var req model.WeatherQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sessionID := sessionFrom(c)
	if sessionID == "" {
		sessionID = uuid.NewString()
		h.logger.Debug("generated session id", zap.String("session_id", sessionID))
	}
	c.Header(SessionHeader, sessionID)

	response, err := h.agent.ProcessQuery(c.Request.Context(), req.Query, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing query: " + err.Error()})
		return
	}
	response.SessionID = sessionID

	c.JSON(http.StatusOK, response)
}

// ClearHistory handles DELETE /api/weather/history
func (h *WeatherHandler) ClearHistory(c *gin.Context) {
	sessionID := sessionFrom(c)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	ok, err := h.agent.ClearHistory(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error clearing history: " + err.Error()})
		return
	}

	message := "Chat history cleared"
	if !ok {
		message = "Chat history could not be cleared"
	}
	c.JSON(http.StatusOK, model.ClearHistoryResponse{
		Success:   ok,
		SessionID: sessionID,
		Message:   message,
	})
}

// History handles GET /api/weather/history?limit=N
func (h *WeatherHandler) History(c *gin.Context) {
	sessionID := sessionFrom(c)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit: must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	turns, err := h.agent.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching history: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.HistoryResponse{SessionID: sessionID, Turns: turns})
}

// sessionFrom prefers the header and falls back to ?session_id=.
func sessionFrom(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("session_id"))
}
