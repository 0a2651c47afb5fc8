package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler returns an echo.HandlerFunc serving the monitor's snapshot at
// whatever path the caller mounts it on, mirroring
// http.HealthCheckHandlerWithDetails's status-code convention: 200 for
// healthy/degraded, 503 for unhealthy, since a degraded component is still
// serving traffic.
func Handler(m *Monitor) echo.HandlerFunc {
	return func(c echo.Context) error {
		snapshot := m.SnapshotNow(c.Request().Context())
		code := http.StatusOK
		if snapshot.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, snapshot)
	}
}

// Mount registers the health endpoint on e at /health.
func Mount(e *echo.Echo, m *Monitor) {
	e.GET("/health", Handler(m))
}
