package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"medcost/ml"
	"medcost/monitoring"
)

// Predictor 单次预测
type Predictor interface {
	Predict(raw ml.RawInput) ml.Result
}

// ModelStore 模型文件状态
type ModelStore interface {
	ml.ArtifactSource
	Loaded() (*ml.Artifact, bool)
	Path() string
}

// Dependencies 处理器依赖
type Dependencies struct {
	Predictor    Predictor
	Models       ModelStore
	Metrics      *monitoring.Metrics
	Logger       *zap.Logger
	Language     language.Tag
	SupportEmail string
	// AllowedOrigins 同时用于CORS和WebSocket来源校验
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Handlers 页面、JSON接口与WebSocket处理器
type Handlers struct {
	deps      Dependencies
	templates *template.Template
	upgrader  websocket.Upgrader
}

// NewHandlers 创建处理器
func NewHandlers(deps Dependencies) (*Handlers, error) {
	if deps.Predictor == nil || deps.Models == nil {
		return nil, errors.New("predictor and model store are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Language == language.Und {
		deps.Language = language.Chinese
	}
	if deps.SupportEmail == "" {
		deps.SupportEmail = "support@example.com"
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 16
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	h := &Handlers{deps: deps, templates: templates}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h, nil
}

// RegisterHandlers 注册所有处理器
func RegisterHandlers(mux *http.ServeMux, h *Handlers) {
	// 页面
	mux.HandleFunc("GET /{$}", h.handleIntroPage)
	mux.HandleFunc("GET /predict", h.handlePredictPage)
	mux.HandleFunc("POST /predict", h.handlePredictSubmit)

	// JSON接口
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/ws/predict", h.handlePredictWS)

	if h.deps.Metrics != nil {
		mux.Handle("GET /metrics", h.deps.Metrics.Handler())
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// predictResponse 预测响应，成功时一定包含cost（即使为0）
type predictResponse struct {
	Outcome ml.Outcome   `json:"outcome"`
	Cost    *float64     `json:"cost,omitempty"`
	Message string       `json:"message,omitempty"`
	Input   *ml.RawInput `json:"input,omitempty"`
}

func newPredictResponse(res ml.Result, raw *ml.RawInput) predictResponse {
	resp := predictResponse{Outcome: res.Outcome, Message: res.Message, Input: raw}
	if res.OK() {
		cost := res.Cost
		resp.Cost = &cost
	}
	return resp
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes)

	var req predictRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		res := invalidInput(err)
		writeJSON(w, statusFor(res.Outcome), newPredictResponse(res, nil))
		return
	}

	res, raw := h.predict(req)
	writeJSON(w, statusFor(res.Outcome), newPredictResponse(res, raw))
}

// predict 转换请求并执行预测，请求不合法时不调用模型
func (h *Handlers) predict(req predictRequest) (ml.Result, *ml.RawInput) {
	raw, err := req.toRawInput()
	if err != nil {
		return invalidInput(err), nil
	}
	return h.deps.Predictor.Predict(raw), &raw
}

// modelStatus 模型状态
type modelStatus struct {
	Path                string     `json:"path"`
	Loaded              bool       `json:"loaded"`
	ModelType           string     `json:"model_type,omitempty"`
	FeatureNames        []string   `json:"feature_names,omitempty"`
	EncoderFeatureNames []string   `json:"encoder_feature_names"`
	SchemaOK            bool       `json:"schema_ok"`
	LoadedAt            *time.Time `json:"loaded_at,omitempty"`
	Error               string     `json:"error,omitempty"`
}

func (h *Handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	status := modelStatus{
		Path:                h.deps.Models.Path(),
		EncoderFeatureNames: ml.FeatureNames(),
	}

	if _, err := h.deps.Models.Artifact(); err != nil {
		status.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	artifact, _ := h.deps.Models.Loaded()
	status.Loaded = true
	status.ModelType = artifact.Info.ModelType
	status.FeatureNames = artifact.Info.FeatureNames
	loadedAt := artifact.Info.LoadedAt
	status.LoadedAt = &loadedAt
	if err := ml.CheckSchema(artifact); err != nil {
		status.Error = err.Error()
	} else {
		status.SchemaOK = true
	}
	writeJSON(w, http.StatusOK, status)
}

func invalidInput(err error) ml.Result {
	if !errors.Is(err, ml.ErrInvalidInput) {
		err = errors.Join(ml.ErrInvalidInput, err)
	}
	return ml.Result{Outcome: ml.OutcomeInvalidInput, Message: err.Error(), Err: err}
}

func statusFor(outcome ml.Outcome) int {
	switch outcome {
	case ml.OutcomeSuccess:
		return http.StatusOK
	case ml.OutcomeInvalidInput:
		return http.StatusBadRequest
	case ml.OutcomeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
