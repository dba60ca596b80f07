package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Environment string `json:"environment"`
}

// Health answers 503 with status "degraded" when a configured dependency
// fails its ping. Dependencies that are not configured report "memory" or
// "disabled" and never degrade the result.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Database:    "memory",
		Cache:       "disabled",
		Environment: h.cfg.Environment,
	}

	if h.db != nil {
		resp.Database = h.check(ctx, "database", h.db.Ping)
	}
	if h.cache != nil {
		resp.Cache = h.check(ctx, "redis", func(ctx context.Context) error {
			return h.cache.Ping(ctx).Err()
		})
	}

	status := http.StatusOK
	if resp.Database == "error" || resp.Cache == "error" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h HandlerSet) check(ctx context.Context, name string, ping func(context.Context) error) string {
	if err := ping(ctx); err != nil {
		h.log.Error().Err(err).Str("dependency", name).Msg("health check failed")
		return "error"
	}
	return "ok"
}
