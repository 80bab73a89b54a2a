package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/influence-engine/funnel-go/stores"
)

// HealthHandler reports liveness and database connectivity.
func HealthHandler(db *stores.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ok"
		dbStatus := "ok"
		if db == nil || db.Conn == nil {
			dbStatus = "not configured"
		} else if err := db.Conn.Ping(); err != nil {
			status = "degraded"
			dbStatus = err.Error()
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "database": dbStatus})
	}
}
