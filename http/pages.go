package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"medcost/ml"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// regionOption 区域下拉选项，顺序与原表单一致
type regionOption struct {
	Value string
	Label string
}

var regionLabels = map[ml.Region]string{
	ml.RegionSoutheast: "Southeast",
	ml.RegionSouthwest: "Southwest",
	ml.RegionNortheast: "Northeast",
	ml.RegionNorthwest: "Northwest",
}

var regionOptions = newRegionOptions()

func newRegionOptions() []regionOption {
	options := make([]regionOption, 0, len(regionLabels))
	for _, region := range ml.Regions() {
		options = append(options, regionOption{Value: string(region), Label: regionLabels[region]})
	}
	return options
}

// pageData 模板数据
type pageData struct {
	Lang         string
	Page         string
	T            func(key string, args ...interface{}) string
	SupportEmail string

	Form    formValues
	Regions []regionOption

	ModelError string
	Success    string
	Failure    string
	Hint       string
}

func (h *Handlers) newPage(r *http.Request, page string) *pageData {
	tag := requestLanguage(r, h.deps.Language)
	printer := newPrinter(tag)
	base, _ := tag.Base()
	return &pageData{
		Lang: base.String(),
		Page: page,
		T: func(key string, args ...interface{}) string {
			return printer.Sprintf(key, args...)
		},
		SupportEmail: h.deps.SupportEmail,
		Form:         defaultFormValues(),
		Regions:      regionOptions,
	}
}

func (h *Handlers) handleIntroPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.newPage(r, "intro"))
}

func (h *Handlers) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	page := h.newPage(r, "predict")
	h.checkModel(page)
	h.render(w, http.StatusOK, page)
}

func (h *Handlers) handlePredictSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes)
	page := h.newPage(r, "predict")
	if err := r.ParseForm(); err != nil {
		page.Failure = page.T("Invalid input: %s", err.Error())
		h.render(w, http.StatusBadRequest, page)
		return
	}
	page.Form = readForm(r.PostForm)

	// 模型不可用时只提示一次，不再尝试预测
	if !h.checkModel(page) {
		h.render(w, http.StatusServiceUnavailable, page)
		return
	}

	raw, err := page.Form.rawInput()
	if err != nil {
		page.Failure = page.T("Invalid input: %s", err.Error())
		h.render(w, http.StatusBadRequest, page)
		return
	}

	res := h.deps.Predictor.Predict(raw)
	switch res.Outcome {
	case ml.OutcomeSuccess:
		// 格式化后再交给printer，避免按语言环境插入千位分隔符
		page.Success = page.T("Predicted medical cost for this customer: %s", strconv.FormatFloat(res.Cost, 'f', 2, 64))
	case ml.OutcomeModelUnavailable:
		page.ModelError = h.modelErrorMessage(page, res.Err)
	case ml.OutcomeInvalidInput:
		page.Failure = page.T("Invalid input: %s", res.Message)
	default:
		page.Failure = page.T("Error during prediction: %s", res.Message)
		page.Hint = page.T("Please check that the input data matches the model features")
	}
	h.render(w, statusFor(res.Outcome), page)
}

// checkModel 页面加载时检查模型文件，不可用时设置提示
func (h *Handlers) checkModel(page *pageData) bool {
	if _, err := h.deps.Models.Artifact(); err != nil {
		page.ModelError = h.modelErrorMessage(page, err)
		return false
	}
	return true
}

func (h *Handlers) modelErrorMessage(page *pageData, err error) string {
	if errors.Is(err, os.ErrNotExist) {
		return page.T("Model file not found, make sure %s is at the correct path", filepath.Base(h.deps.Models.Path()))
	}
	return page.T("Model could not be loaded: %s", err.Error())
}

func (h *Handlers) render(w http.ResponseWriter, status int, page *pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "layout", page); err != nil {
		h.deps.Logger.Error("render page failed", zap.String("page", page.Page), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
