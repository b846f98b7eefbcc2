package lottery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics exports collection and draw measurements to Prometheus
type PromMetrics struct {
	probes         *prometheus.CounterVec
	probeLatency   *prometheus.HistogramVec
	draws          *prometheus.CounterVec
	drawLatency    prometheus.Histogram
	analysisPValue *prometheus.GaugeVec
}

// NewPromMetrics creates the collectors and registers them with reg.
// A nil reg registers with the default registerer.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	probes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_probe_invocations_total",
		Help: "Entropy probe invocations by probe and result.",
	}, []string{"probe", "result"})
	probeLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lottery_probe_duration_seconds",
		Help:    "Time spent sampling one entropy probe.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"probe"})
	draws := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_draws_total",
		Help: "Generated draws by result.",
	}, []string{"result"})
	drawLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lottery_draw_duration_seconds",
		Help:    "End-to-end latency from collection to generated draw.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	pValue := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lottery_analysis_p_value",
		Help: "Chi-square p-value of the last analyzed batch by domain.",
	}, []string{"domain"})

	reg.MustRegister(probes, probeLatency, draws, drawLatency, pValue)

	return &PromMetrics{
		probes:         probes,
		probeLatency:   probeLatency,
		draws:          draws,
		drawLatency:    drawLatency,
		analysisPValue: pValue,
	}
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordProbe implements MetricsRecorder
func (p *PromMetrics) RecordProbe(name string, success bool, duration time.Duration) {
	p.probes.WithLabelValues(name, resultLabel(success)).Inc()
	p.probeLatency.WithLabelValues(name).Observe(duration.Seconds())
}

// RecordDraw implements MetricsRecorder
func (p *PromMetrics) RecordDraw(success bool, duration time.Duration) {
	p.draws.WithLabelValues(resultLabel(success)).Inc()
	p.drawLatency.Observe(duration.Seconds())
}

// RecordAnalysis implements MetricsRecorder
func (p *PromMetrics) RecordAnalysis(pValueNumbers, pValueStars float64) {
	p.analysisPValue.WithLabelValues("numbers").Set(pValueNumbers)
	p.analysisPValue.WithLabelValues("stars").Set(pValueStars)
}
