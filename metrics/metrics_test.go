package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictCount(t *testing.T) {
	before := testutil.ToFloat64(PredictCount.WithLabelValues(OutcomeRejected))
	PredictCount.WithLabelValues(OutcomeRejected).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PredictCount.WithLabelValues(OutcomeRejected)))
}

func TestHandler(t *testing.T) {
	ModelLoaded.Set(1)
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "studentperf_prediction_model_loaded 1")
}
