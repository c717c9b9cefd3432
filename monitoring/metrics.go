// Package monitoring 提供预测服务的Prometheus指标
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medcost/ml"
)

const namespace = "medcost"

// Metrics 指标收集器
type Metrics struct {
	registry *prometheus.Registry

	predictions    *prometheus.CounterVec
	predictLatency prometheus.Histogram
	modelLoaded    prometheus.Gauge
	modelLoadedAt  prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	wsConnections  prometheus.Gauge
}

// NewMetrics 创建指标收集器，使用独立注册表避免测试之间互相污染
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions by outcome and whether they were served from the memo cache.",
		}, []string{"outcome", "cached"}),
		predictLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent validating, encoding and invoking the model.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		modelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 once the model artifact has been loaded.",
		}),
		modelLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded_timestamp_seconds",
			Help:      "Unix time the model artifact was loaded.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open prediction websocket connections.",
		}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.predictLatency,
		m.modelLoaded,
		m.modelLoadedAt,
		m.httpRequests,
		m.httpLatency,
		m.wsConnections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePrediction 记录一次预测，实现 ml.Observer
func (m *Metrics) ObservePrediction(outcome string, cached bool, d time.Duration) {
	m.predictions.WithLabelValues(outcome, strconv.FormatBool(cached)).Inc()
	m.predictLatency.Observe(d.Seconds())
}

// ModelLoaded 记录模型加载完成，用作 ml.ModelStore.OnLoad 回调
func (m *Metrics) ModelLoaded(a *ml.Artifact) {
	m.modelLoaded.Set(1)
	m.modelLoadedAt.Set(float64(a.Info.LoadedAt.Unix()))
}

// ObserveRequest 记录一次HTTP请求
func (m *Metrics) ObserveRequest(method string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method).Observe(d.Seconds())
}

// WebSocketOpened 连接数+1
func (m *Metrics) WebSocketOpened() { m.wsConnections.Inc() }

// WebSocketClosed 连接数-1
func (m *Metrics) WebSocketClosed() { m.wsConnections.Dec() }

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
