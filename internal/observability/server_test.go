package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthFunc
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "metrics",
			path:       "/metrics",
			wantStatus: http.StatusOK,
			wantBody:   "vale_ls_sync_operations_total",
		},
		{
			name: "health up",
			health: func(context.Context) Health {
				return Health{Status: "up", Snapshot: 3, Assets: map[string]int{"RuleFile": 2}}
			},
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "health down",
			health:     func(context.Context) Health { return Health{Status: "starting"} },
			path:       "/health",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "unknown route",
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	SyncOperationsTotal.WithLabelValues("install", "succeeded").Add(0)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(":0", tt.health, nil)
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			if tt.path == "/health" {
				var h Health
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
				assert.NotEmpty(t, h.Status)
			}
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer("127.0.0.1:0", nil, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
