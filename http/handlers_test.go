package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"medcost/ml"
	"medcost/monitoring"
)

// linearCoefficients 覆盖年龄、BMI、子女数与吸烟四个特征
var linearCoefficients = []float64{250, 320, 400, 0, 0, 0, 24000, 0, 0, 0, 0}

const linearIntercept = -11000.0

func expectedCost(raw ml.RawInput) float64 {
	cost := linearIntercept
	for i, v := range ml.Encode(raw).Values {
		cost += linearCoefficients[i] * v
	}
	return ml.RoundCost(cost)
}

type testEnv struct {
	handler http.Handler
	store   *ml.ModelStore
	metrics *monitoring.Metrics
}

func newTestEnv(t *testing.T, withModel bool) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, withModel, zaptest.NewLogger(t))
}

// newTestEnvWithLogger WebSocket测试中处理协程可能在测试结束后才退出，需使用不绑定testing.T的日志器
func newTestEnvWithLogger(t *testing.T, withModel bool, logger *zap.Logger) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rfr_model.json")
	if withModel {
		model, err := ml.NewLinearRegression(ml.FeatureNames(), linearCoefficients, linearIntercept)
		require.NoError(t, err)
		require.NoError(t, ml.SaveModel(path, model))
	}

	metrics := monitoring.NewMetrics()
	store := ml.NewModelStore(path, logger)
	store.OnLoad(metrics.ModelLoaded)
	predictor, err := ml.NewPredictor(store, 32, ml.WithObserver(metrics), ml.WithLogger(logger))
	require.NoError(t, err)

	handlers, err := NewHandlers(Dependencies{
		Predictor:      predictor,
		Models:         store,
		Metrics:        metrics,
		Logger:         logger,
		Language:       language.Chinese,
		AllowedOrigins: []string{"*"},
	})
	require.NoError(t, err)

	config := DefaultServerConfig()
	config.RateLimit = 0
	return &testEnv{handler: NewHandler(config, handlers), store: store, metrics: metrics}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload), rr.Body.String())
	return payload
}

func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(handleHealth)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	expected := `{"status":"ok"}`
	if rr.Body.String() != expected+"\n" && rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v", rr.Body.String(), expected)
	}
}

func TestHandlePredict(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(postJSON(`{"age":30,"sex":"female","bmi":25.0,"children":2,"smoker":"no","region":"southeast"}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	payload := decodeResponse(t, rr)
	raw := ml.RawInput{Age: 30, Sex: ml.SexFemale, BMI: 25, Children: 2, Smoker: ml.SmokerNo, Region: ml.RegionSoutheast}
	assert.Equal(t, "success", payload["outcome"])
	assert.Equal(t, expectedCost(raw), payload["cost"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestHandlePredictAcceptsChineseLabels(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(postJSON(`{"age":45,"sex":"男性","bmi":31.2,"children":0,"smoker":"是","region":"西北部"}`))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	payload := decodeResponse(t, rr)
	raw := ml.RawInput{Age: 45, Sex: ml.SexMale, BMI: 31.2, Smoker: ml.SmokerYes, Region: ml.RegionNorthwest}
	assert.Equal(t, expectedCost(raw), payload["cost"])
	input := payload["input"].(map[string]interface{})
	assert.Equal(t, "northwest", input["region"])
}

func TestHandlePredictInvalidInput(t *testing.T) {
	env := newTestEnv(t, true)

	tests := map[string]string{
		"missing age":    `{"sex":"female","bmi":25,"children":2,"smoker":"no","region":"southeast"}`,
		"negative bmi":   `{"age":30,"sex":"female","bmi":-1,"children":2,"smoker":"no","region":"southeast"}`,
		"unknown region": `{"age":30,"sex":"female","bmi":25,"children":2,"smoker":"no","region":"midwest"}`,
		"fractional age": `{"age":30.5,"sex":"female","bmi":25,"children":2,"smoker":"no","region":"southeast"}`,
		"unknown field":  `{"age":30,"sex":"female","bmi":25,"children":2,"smoker":"no","region":"southeast","income":1}`,
		"malformed json": `{"age":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rr := env.do(postJSON(body))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "invalid_input", decodeResponse(t, rr)["outcome"])
		})
	}
}

func TestHandlePredictModelMissing(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(postJSON(`{"age":30,"sex":"female","bmi":25.0,"children":2,"smoker":"no","region":"southeast"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	payload := decodeResponse(t, rr)
	assert.Equal(t, "model_unavailable", payload["outcome"])
	assert.NotContains(t, payload, "cost")
}

func TestHandleModel(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/model", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var status modelStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.True(t, status.Loaded)
	assert.True(t, status.SchemaOK)
	assert.Equal(t, ml.ModelTypeLinear, status.ModelType)
	assert.Equal(t, ml.FeatureNames(), status.FeatureNames)

	metrics := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), "medcost_model_loaded 1")
}

func TestHandleModelMissing(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/model", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var status modelStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.False(t, status.Loaded)
	assert.Contains(t, status.Error, "model unavailable")
}

func TestHandlePredictBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, true)

	body := `{"age":30,"sex":"` + string(bytes.Repeat([]byte("x"), 1<<17)) + `"}`
	rr := env.do(postJSON(body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
