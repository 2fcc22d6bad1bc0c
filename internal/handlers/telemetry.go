package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"incubator-backend/internal/service"
)

const (
	defaultRangeLimit = 100
	maxRangeLimit     = 1000

	errQueryTelemetry = "failed to query telemetry"
)

// parseTimeQuery reads an RFC3339 query param; absent or malformed values
// yield a zero time (open bound).
func parseTimeQuery(c *gin.Context, key string) time.Time {
	s := c.Query(key)
	if s == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func parseLimitQuery(c *gin.Context) int {
	limit := defaultRangeLimit
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= maxRangeLimit {
			limit = v
		}
	}
	return limit
}

func (h *Handler) getTelemetryRange(c *gin.Context) {
	reports, err := h.services.Telemetry.Range(c.Request.Context(), c.Param("id"),
		parseTimeQuery(c, "from"), parseTimeQuery(c, "to"), parseLimitQuery(c))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errQueryTelemetry, "telemetry_range_failed", err, "device", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *Handler) getTelemetryLatest(c *gin.Context) {
	report, err := h.services.Telemetry.Latest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNoTelemetry) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no telemetry for device"})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errQueryTelemetry, "telemetry_latest_failed", err, "device", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) getTelemetryStats(c *gin.Context) {
	stats, err := h.services.Telemetry.Stats(c.Request.Context(), c.Param("id"),
		parseTimeQuery(c, "from"), parseTimeQuery(c, "to"))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errQueryTelemetry, "telemetry_stats_failed", err, "device", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, stats)
}
