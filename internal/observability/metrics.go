// Package observability はPrometheusメトリクスを提供する
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ティックの結果
const (
	TickAnalyzed       = "analyzed"
	TickIdle           = "idle"
	TickMissingSubject = "missing_subject"
	TickFailed         = "failed"
)

// Metrics はサービスで使うPrometheus計測器をまとめる
type Metrics struct {
	registry *prometheus.Registry

	Ticks           *prometheus.CounterVec
	AnalysisLatency prometheus.Histogram
	LoopRunning     prometheus.Gauge
	Trainings       *prometheus.CounterVec
	CameraBound     prometheus.Gauge
}

// NewMetrics は専用レジストリにメトリクスを登録する
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Polling loop ticks by outcome.",
		}, []string{"outcome"}),
		AnalysisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_latency_ms",
			Help:      "Round-trip latency of the analysis endpoint in milliseconds.",
			Buckets:   []float64{50, 100, 200, 400, 800, 1500, 3000, 6000},
		}),
		LoopRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poll_loop_running",
			Help:      "1 while the polling loop is running.",
		}),
		Trainings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_activations_total",
			Help:      "Training trigger activations by outcome.",
		}, []string{"outcome"}),
		CameraBound: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "camera_bound",
			Help:      "1 while a camera stream is bound to the video surface.",
		}),
	}
}

// ObserveTick はティック結果を記録する
func (m *Metrics) ObserveTick(outcome string) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(outcome).Inc()
}

// ObserveAnalysis は解析の往復時間を記録する
func (m *Metrics) ObserveAnalysis(d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisLatency.Observe(float64(d.Milliseconds()))
}

// SetLoopRunning はループの稼働状態を記録する
func (m *Metrics) SetLoopRunning(running bool) {
	if m == nil {
		return
	}
	m.LoopRunning.Set(boolToFloat(running))
}

// SetCameraBound はカメラのバインド状態を記録する
func (m *Metrics) SetCameraBound(bound bool) {
	if m == nil {
		return
	}
	m.CameraBound.Set(boolToFloat(bound))
}

// ObserveTraining は学習トリガーの結果を記録する
func (m *Metrics) ObserveTraining(outcome string) {
	if m == nil {
		return
	}
	m.Trainings.WithLabelValues(outcome).Inc()
}

// Handler は/metrics用のハンドラを返す
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
