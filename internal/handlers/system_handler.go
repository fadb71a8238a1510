package handlers

import (
	"net/http"
	"time"

	appmetrics "github.com/Adriano-Lengruber/flowtasks/internal/metrics"
	"github.com/Adriano-Lengruber/flowtasks/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemHandler serves health, metrics and the websocket endpoint.
type SystemHandler struct {
	db  *gorm.DB
	hub *services.WebSocketHub
}

func NewSystemHandler(db *gorm.DB, hub *services.WebSocketHub) *SystemHandler {
	return &SystemHandler{db: db, hub: hub}
}

// Health reports service liveness and database connectivity.
func (h *SystemHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			dbStatus = "error: " + err.Error()
		}
	} else {
		dbStatus = "not configured"
	}
	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":    "up",
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics returns the in-process counters as JSON.
func (h *SystemHandler) Metrics(c *gin.Context) {
	total, byStatus := appmetrics.AutomationSnapshot()
	resp := gin.H{
		"automation_executions_total":     total,
		"automation_executions_by_status": byStatus,
		"rate_limit_drops":                appmetrics.RateLimitDrops(),
	}
	if h.hub != nil {
		resp["websocket_clients"] = h.hub.GetClientCount()
	}
	c.JSON(http.StatusOK, resp)
}

// WebSocket upgrades the connection for realtime notification delivery.
func (h *SystemHandler) WebSocket(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "WebSocket unavailable"})
		return
	}
	h.hub.HandleWebSocket(c)
}
