package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-portal/internal/observability"
)

// MetricsHandler exposes in-memory counters.
type MetricsHandler struct {
	metrics   *observability.Metrics
	poolStats func() map[string]int
}

// NewMetricsHandler constructs handler. poolStats may be nil.
func NewMetricsHandler(metrics *observability.Metrics, poolStats func() map[string]int) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, poolStats: poolStats}
}

// Snapshot GET /metrics.
func (h *MetricsHandler) Snapshot(c *fiber.Ctx) error {
	body := fiber.Map{"counters": h.metrics.Snapshot()}
	if h.poolStats != nil {
		body["worker_pool"] = h.poolStats()
	}
	return c.JSON(fiber.Map{"data": body})
}
