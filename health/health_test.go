package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Snapshot_AggregatesWorstStatus(t *testing.T) {
	m := New("repoanalyzer", "1.2.3")
	m.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusHealthy}
	})
	m.Register("neo4j", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded, Detail: "slow"}
	})

	snap := m.Snapshot(context.Background(), time.Unix(0, 0))
	assert.Equal(t, StatusDegraded, snap.Status)
	assert.Equal(t, "repoanalyzer", snap.Service)
	assert.Len(t, snap.Components, 2)
}

func TestMonitor_Snapshot_UnhealthyWins(t *testing.T) {
	m := New("repoanalyzer", "1.2.3")
	m.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded}
	})
	m.Register("neo4j", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUnhealthy}
	})

	snap := m.Snapshot(context.Background(), time.Unix(0, 0))
	assert.Equal(t, StatusUnhealthy, snap.Status)
}

func TestMonitor_Snapshot_EmptyRegistryIsHealthy(t *testing.T) {
	m := New("repoanalyzer", "1.2.3")
	snap := m.Snapshot(context.Background(), time.Unix(0, 0))
	assert.Equal(t, StatusHealthy, snap.Status)
	assert.Empty(t, snap.Components)
}

func TestHandler_ServesSnapshotJSON(t *testing.T) {
	m := New("repoanalyzer", "1.2.3")
	m.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusHealthy}
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Handler(m)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, StatusHealthy, snap.Status)
}

func TestHandler_UnhealthyReturns503(t *testing.T) {
	m := New("repoanalyzer", "1.2.3")
	m.Register("postgres", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusUnhealthy}
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Handler(m)(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
