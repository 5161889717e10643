package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drumtrack-service/internal/clock"
	"drumtrack-service/internal/config"
	"drumtrack-service/internal/logging"
	"drumtrack-service/internal/models"
	"drumtrack-service/internal/schedule"
	"drumtrack-service/internal/scheduler"
)

func testRouter(t *testing.T) (*gin.Engine, *scheduler.Context, *clock.Estimator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewEstimator()
	sctx := scheduler.NewContext("drum-1")
	h := NewHandler(nil, logging.NewNop(), sctx, clk, nil, nil, nil, "drum-1")

	var cfg config.Config
	cfg.API.BasePath = "/api/v0"
	return NewRouter(logging.NewNop(), cfg, h), sctx, clk
}

func TestHealth(t *testing.T) {
	r, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetEstimatedNow(t *testing.T) {
	r, _, clk := testRouter(t)
	require.NoError(t, clk.Sync("2024-01-01 09:30:00"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/now", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		EstimatedNowMs int64  `json:"estimated_now_ms"`
		EstimatedNow   string `json:"estimated_now"`
		ClockSynced    bool   `json:"clock_synced"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.ClockSynced)
	assert.True(t, strings.HasPrefix(body.EstimatedNow, "2024-01-01 09:30:0"))

	anchor, err := clock.ParseNaive("2024-01-01 09:30:00")
	require.NoError(t, err)
	assert.InDelta(t, anchor, body.EstimatedNowMs, float64(5*time.Second/time.Millisecond))
}

func TestGetStateExposesScheduleAndWarning(t *testing.T) {
	r, sctx, _ := testRouter(t)

	groups := schedule.Group([]models.ChemicalAddition{
		{ID: 1, ProcessID: 7, ConfirmTime: "2024-01-01 10:00:00", OperateTime: 5},
	})
	sctx.ApplyGroups(7, groups, schedule.Windows(groups))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v0/state", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		State       scheduler.Snapshot `json:"state"`
		ClockSynced bool               `json:"clock_synced"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.State.ProcessID)
	require.Len(t, body.State.Groups, 1)
	assert.Equal(t, models.PhasePending, body.State.Groups[0].Phase)
	// a single distinct confirmation time is flagged as suspect data
	assert.NotEmpty(t, body.State.ScheduleWarning)
	assert.False(t, body.ClockSynced)
}

func TestAcknowledgeRejectsMissingConfirmTime(t *testing.T) {
	r, _, _ := testRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v0/alerts/acknowledge", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
