package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/monitor"
)

func stubCollector(t *testing.T, value interface{}, err error) *monitor.Collector {
	t.Helper()
	return monitor.NewCollector(context.Background(), "stub", time.Hour, time.Hour, zap.NewNop(),
		func(ctx context.Context) (interface{}, error) {
			return value, err
		})
}

func TestMonitorServesCollectorPayload(t *testing.T) {
	mon := &monitor.Monitor{
		Memory: stubCollector(t, &monitor.MemoryInfo{Total: 1024, Used: 512, Unit: "bytes"}, nil),
	}
	h := NewMonitor(mon, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Memory(rec, httptest.NewRequest(http.MethodGet, "/v1/monitor/memory", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string             `json:"status"`
		Data   monitor.MemoryInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Success", body.Status)
	assert.Equal(t, uint64(1024), body.Data.Total)
}

func TestMonitorSampleFailureReturns500Envelope(t *testing.T) {
	mon := &monitor.Monitor{
		CPU: stubCollector(t, nil, errors.New("probe failed")),
	}
	h := NewMonitor(mon, zap.NewNop())

	rec := httptest.NewRecorder()
	h.CPU(rec, httptest.NewRequest(http.MethodGet, "/v1/monitor/cpu", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Error", body.Status)
}
