// Package router provides knowledge base service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/minerva/internal/kb/handler"
	"github.com/kart-io/minerva/pkg/component/storage"
)

// Register registers the knowledge base routes on the gin engine.
func Register(engine *gin.Engine, kbHandler *handler.KBHandler, storageMgr *storage.Manager) {
	logger.Info("Registering knowledge base routes...")

	engine.GET("/healthz", healthHandler(storageMgr))

	v1 := engine.Group("/v1")
	{
		kb := v1.Group("/kb")
		{
			// Section CRUD
			kb.POST("/sections", kbHandler.Add)
			kb.GET("/sections", kbHandler.GetByHeader)
			kb.GET("/sections/:identifier", kbHandler.Get)
			kb.PUT("/sections/:identifier", kbHandler.Update)
			kb.DELETE("/sections/:identifier", kbHandler.Delete)

			// Hierarchy
			kb.GET("/children", kbHandler.Children)
			kb.GET("/tree", kbHandler.Tree)
			kb.POST("/export", kbHandler.Export)

			// Retrieval and maintenance
			kb.POST("/search", kbHandler.Search)
			kb.POST("/reindex", kbHandler.Reindex)
			kb.GET("/stats", kbHandler.Stats)
		}
	}

	logger.Info("HTTP routes registered")
}

// healthHandler 聚合所有存储后端的健康状态。
// 任一后端不健康时返回 503。
func healthHandler(mgr *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		statuses := mgr.HealthCheckAll(c.Request.Context())

		healthy := true
		detail := make(map[string]any, len(statuses))
		for name, status := range statuses {
			entry := map[string]any{
				"healthy": status.Healthy,
				"latency": status.Latency.String(),
			}
			if status.Error != nil {
				entry["error"] = status.Error.Error()
				healthy = false
			}
			detail[name] = entry
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"healthy": healthy, "backends": detail})
	}
}
