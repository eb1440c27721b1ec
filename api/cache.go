package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/yttext/logger"
	"github.com/kbukum/yttext/server"
	"github.com/kbukum/yttext/transcription"
	"github.com/kbukum/yttext/util"
)

func (h *Handler) listBackends(c *gin.Context) {
	infos := []transcription.Info{}
	if h.backends != nil {
		infos = h.backends.Info(c.Request.Context())
	}
	server.RespondOK(c, gin.H{"backends": infos})
}

func (h *Handler) cacheStats(c *gin.Context) {
	stats, err := h.cache.Stats(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, newCacheStatsResponse(stats))
}

// clearCache drops one URL's entries when ?url= is given, everything otherwise.
func (h *Handler) clearCache(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.log.WithContext(ctx)

	if url := util.SanitizeString(c.Query("url")); url != "" {
		removed, err := h.cache.InvalidateURL(ctx, url)
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
		log.Info("Cache invalidated", logger.Fields("url", url, "removed", removed))
		c.JSON(http.StatusOK, gin.H{"url": url, "removed": removed})
		return
	}

	if err := h.cache.Clear(ctx); err != nil {
		server.RespondWithError(c, err)
		return
	}
	log.Info("Cache cleared")
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
