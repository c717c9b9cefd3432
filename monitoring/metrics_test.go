package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcost/ml"
)

func TestObservePrediction(t *testing.T) {
	m := NewMetrics()
	m.ObservePrediction("success", false, time.Millisecond)
	m.ObservePrediction("success", true, time.Microsecond)
	m.ObservePrediction("model_unavailable", false, time.Microsecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("success", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("success", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions.WithLabelValues("model_unavailable", "false")))
}

func TestModelLoaded(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.modelLoaded))

	loadedAt := time.Unix(1760000000, 0)
	m.ModelLoaded(&ml.Artifact{Info: ml.ArtifactInfo{LoadedAt: loadedAt}})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelLoaded))
	assert.Equal(t, float64(loadedAt.Unix()), testutil.ToFloat64(m.modelLoadedAt))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest(http.MethodPost, http.StatusOK, 10*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `medcost_http_requests_total{code="200",method="POST"} 1`)
}
