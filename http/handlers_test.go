package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentperf/ml"
	"studentperf/pipeline"
)

const fixtureModel = "../ml/testdata/logistic_model.json"

func newTestHandler(t *testing.T, adapter *ml.Adapter) http.Handler {
	t.Helper()
	service, err := pipeline.New(adapter)
	require.NoError(t, err)
	return NewHandler(DefaultServerConfig(), service, nil)
}

func loadedAdapter(t *testing.T) *ml.Adapter {
	t.Helper()
	adapter := ml.NewAdapter(ml.AdapterConfig{ModelType: ml.LogisticRegressionType, ModelPath: fixtureModel}, nil)
	require.True(t, adapter.Loaded())
	return adapter
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, stringsReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), rr.Body.String())
	return payload
}

func TestHealthHandler(t *testing.T) {
	rr := serve(newTestHandler(t, loadedAdapter(t)), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","model_loaded":true}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestHealthHandlerDegraded(t *testing.T) {
	rr := serve(newTestHandler(t, ml.NewAdapterWithClassifier(nil)), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"degraded","model_loaded":false}`, rr.Body.String())
}

func TestRootHandler(t *testing.T) {
	tests := []struct {
		name    string
		adapter *ml.Adapter
		status  string
	}{
		{"loaded", loadedAdapter(t), "active"},
		{"unloaded", ml.NewAdapterWithClassifier(nil), "model not loaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(newTestHandler(t, tt.adapter), http.MethodGet, "/", "")
			require.Equal(t, http.StatusOK, rr.Code)

			payload := decode(t, rr)
			assert.Equal(t, ServiceName, payload["message"])
			assert.Equal(t, Version, payload["version"])
			assert.Equal(t, tt.status, payload["status"])
			assert.Equal(t, map[string]interface{}{
				"predict": "/predict",
				"health":  "/health",
				"stats":   "/stats",
				"metrics": "/metrics",
			}, payload["endpoints"])
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	handler := newTestHandler(t, loadedAdapter(t))
	serve(handler, http.MethodPost, "/predict", sampleBody)

	rr := serve(handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `studentperf_prediction_requests_total{outcome="succeeded"}`)
	assert.Contains(t, rr.Body.String(), `studentperf_http_request_duration_seconds`)
}

func TestUnknownRoute(t *testing.T) {
	rr := serve(newTestHandler(t, loadedAdapter(t)), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatsHandler(t *testing.T) {
	handler := newTestHandler(t, loadedAdapter(t))
	serve(handler, http.MethodPost, "/predict", sampleBody)
	serve(handler, http.MethodPost, "/predict", `{"sex":3}`)

	rr := serve(handler, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)

	payload := decode(t, rr)
	assert.Equal(t, float64(2), payload["total_processed"])
	assert.Equal(t, float64(1), payload["succeeded"])
	assert.Equal(t, float64(1), payload["rejected"])
	assert.Equal(t, float64(1), payload["pass"])
}
