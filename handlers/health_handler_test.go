package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fina4you/entitlement-api/jwks"
)

type stubKeyStats struct {
	stats jwks.Stats
}

func (s stubKeyStats) Stats() jwks.Stats { return s.stats }

func TestHealthHandler_HandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, false, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHealthHandler_HandleReadiness(t *testing.T) {
	tests := []struct {
		name           string
		keys           KeyCacheStats
		provider       bool
		expectedStatus int
		expectedChecks map[string]string
	}{
		{
			name:           "ready with cold cache",
			keys:           stubKeyStats{},
			provider:       true,
			expectedStatus: http.StatusOK,
			expectedChecks: map[string]string{"payment_provider": "configured", "signing_keys": "cold"},
		},
		{
			name:           "ready with cached keys",
			keys:           stubKeyStats{stats: jwks.Stats{CachedKeys: 2}},
			provider:       true,
			expectedStatus: http.StatusOK,
			expectedChecks: map[string]string{"payment_provider": "configured", "signing_keys": "cached"},
		},
		{
			name:           "provider not configured",
			keys:           stubKeyStats{},
			provider:       false,
			expectedStatus: http.StatusServiceUnavailable,
			expectedChecks: map[string]string{"payment_provider": "not_configured", "signing_keys": "cold"},
		},
		{
			name:           "no key cache",
			keys:           nil,
			provider:       true,
			expectedStatus: http.StatusServiceUnavailable,
			expectedChecks: map[string]string{"payment_provider": "configured", "signing_keys": "not_initialized"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.keys, tt.provider, zap.NewNop())

			w := httptest.NewRecorder()
			handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedChecks, resp.Checks)
		})
	}
}
