package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcost/ml"
)

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func sampleForm() url.Values {
	return url.Values{
		"age":      {"30"},
		"sex":      {"female"},
		"bmi":      {"25.0"},
		"children": {"2"},
		"smoker":   {"no"},
		"region":   {"southeast"},
	}
}

func TestIntroPage(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "欢迎使用！")
	assert.Contains(t, rr.Body.String(), "support@example.com")

	rr = env.do(httptest.NewRequest(http.MethodGet, "/?lang=en", nil))
	assert.Contains(t, rr.Body.String(), "Welcome!")
}

func TestPredictPageLanguageFromHeader(t *testing.T) {
	env := newTestEnv(t, true)

	req := httptest.NewRequest(http.MethodGet, "/predict", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	rr := env.do(req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Number of children")
	assert.Contains(t, body, `<option value="southeast" selected>Southeast</option>`)
	assert.NotContains(t, body, `class="error"`)
}

func TestPredictPageModelMissing(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/predict", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "模型文件未找到，请确保rfr_model.json在正确的路径下")
}

func TestPredictSubmit(t *testing.T) {
	env := newTestEnv(t, true)

	rr := env.do(postForm("/predict", sampleForm()))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, "根据您输入的数据，预测该客户的医疗费用是：")
	assert.Contains(t, body, "5300.00")
	assert.NotContains(t, body, "5,300.00")
	// 提交后保留输入
	assert.Contains(t, body, `value="female" checked`)
}

func TestPredictSubmitChineseLabels(t *testing.T) {
	env := newTestEnv(t, true)

	form := sampleForm()
	form.Set("sex", "女性")
	form.Set("smoker", "否")
	form.Set("region", "东南部")
	rr := env.do(postForm("/predict?lang=en", form))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Predicted medical cost for this customer: 5300.00")
}

func TestPredictSubmitInvalid(t *testing.T) {
	env := newTestEnv(t, true)

	form := sampleForm()
	form.Set("age", "thirty")
	rr := env.do(postForm("/predict?lang=en", form))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid input:")
	assert.Contains(t, rr.Body.String(), "age must be a whole number")
}

func TestPredictSubmitModelMissing(t *testing.T) {
	env := newTestEnv(t, false)

	rr := env.do(postForm("/predict", sampleForm()))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "模型文件未找到")
	assert.NotContains(t, rr.Body.String(), "预测该客户的医疗费用是")
}

type failingPredictor struct{}

func (failingPredictor) Predict(ml.RawInput) ml.Result {
	return ml.Result{Outcome: ml.OutcomePredictionFailed, Message: "feature schema mismatch"}
}

func TestPredictSubmitPredictionFailed(t *testing.T) {
	env := newTestEnv(t, true)
	handlers, err := NewHandlers(Dependencies{Predictor: failingPredictor{}, Models: env.store})
	require.NoError(t, err)
	mux := http.NewServeMux()
	RegisterHandlers(mux, handlers)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, postForm("/predict", sampleForm()))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "预测过程中出现错误: feature schema mismatch")
	assert.Contains(t, rr.Body.String(), "请检查输入数据和模型特征是否匹配")
}
