package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geointel/internal/config"
	"geointel/internal/domain/intel"
	"geointel/internal/logger"
)

// stubEngine answers every read with empty state
type stubEngine struct{}

func (stubEngine) EnableSource(string) error                    { return nil }
func (stubEngine) DisableSource(string) error                   { return nil }
func (stubEngine) Sources() []intel.SourceStatus                { return nil }
func (stubEngine) Entities(intel.Kind) []intel.GeoEntity        { return []intel.GeoEntity{} }
func (stubEngine) Fixes(intel.Kind) []intel.GeoEntity           { return []intel.GeoEntity{} }
func (stubEngine) Filtered(intel.Kind) []intel.GeoEntity        { return []intel.GeoEntity{} }
func (stubEngine) Trails() []intel.TrailSegment                 { return nil }
func (stubEngine) Criteria() intel.Criteria                     { return intel.DefaultCriteria() }
func (stubEngine) SetCriteria(intel.Criteria) error             { return nil }
func (stubEngine) Metrics() intel.Metrics                       { return intel.Metrics{ThreatScore: 5} }
func (stubEngine) Tooltip(string, string) (intel.Tooltip, bool) { return intel.Tooltip{}, false }

func newTestServer(checks map[string]HealthCheck) *Server {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0, CorsOrigins: []string{"*"}}
	return NewServer(cfg, stubEngine{}, nil, "intel", logger.Discard(), checks)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Routes(t *testing.T) {
	h := newTestServer(nil).Handler()

	tests := []struct {
		target string
		code   int
	}{
		{"/api/health", http.StatusOK},
		{"/api/v1/intel/sources", http.StatusOK},
		{"/api/v1/intel/entities?kind=vessel", http.StatusOK},
		{"/api/v1/intel/entities.geojson", http.StatusOK},
		{"/api/v1/intel/metrics", http.StatusOK},
		{"/api/v1/intel/filter", http.StatusOK},
		{"/api/v1/intel/tooltip/news/n1", http.StatusNotFound},
		{"/metrics", http.StatusOK},
		{"/ws/intel", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.code, get(t, h, tt.target).Code)
		})
	}
}

func TestServer_PrometheusExposition(t *testing.T) {
	rec := get(t, newTestServer(nil).Handler(), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "geointel_threat_score")
}

func TestServer_HealthReportsFailures(t *testing.T) {
	checks := map[string]HealthCheck{
		"nats":  func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}

	rec := get(t, newTestServer(checks).Handler(), "/api/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "redis: connection refused", rec.Body.String())
}
