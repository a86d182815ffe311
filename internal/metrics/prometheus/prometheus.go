package prometheus

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics/metricsTypes"
)

type PrometheusMetricsConfig struct {
	Metrics map[metricsTypes.MetricsType][]metricsTypes.MetricsTypeConfig
}

type PrometheusMetricsClient struct {
	logger *zap.Logger
	config *PrometheusMetricsConfig

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

func NewPrometheusMetricsClient(config *PrometheusMetricsConfig, l *zap.Logger) (*PrometheusMetricsClient, error) {
	client := &PrometheusMetricsClient{
		config: config,
		logger: l,

		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	client.initializeTypes()

	return client, nil
}

// sanitizeName maps dotted metric names onto the prometheus name grammar.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func (pmc *PrometheusMetricsClient) logExistingMetric(t metricsTypes.MetricsType, metric metricsTypes.MetricsTypeConfig) {
	pmc.logger.Sugar().Warnw("Prometheus metric already exists for type",
		zap.String("type", string(t)),
		zap.String("name", metric.Name),
	)
}

func (pmc *PrometheusMetricsClient) initializeTypes() {
	for t, types := range pmc.config.Metrics {
		for _, mt := range types {
			name := sanitizeName(mt.Name)
			switch t {
			case metricsTypes.MetricsType_Incr:
				if _, ok := pmc.counters[name]; ok {
					pmc.logExistingMetric(t, mt)
					continue
				}
				pmc.counters[name] = prometheus.NewCounterVec(prometheus.CounterOpts{
					Name: name,
				}, mt.Labels)
				prometheus.MustRegister(pmc.counters[name])
			case metricsTypes.MetricsType_Gauge:
				if _, ok := pmc.gauges[name]; ok {
					pmc.logExistingMetric(t, mt)
					continue
				}
				pmc.gauges[name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
					Name: name,
				}, mt.Labels)
				prometheus.MustRegister(pmc.gauges[name])
			case metricsTypes.MetricsType_Timing:
				if _, ok := pmc.histograms[name]; ok {
					pmc.logExistingMetric(t, mt)
					continue
				}
				pmc.histograms[name] = prometheus.NewHistogramVec(prometheus.HistogramOpts{
					Name: name,
				}, mt.Labels)
				prometheus.MustRegister(pmc.histograms[name])
			}
		}
	}
}

func (pmc *PrometheusMetricsClient) formatLabels(labels []metricsTypes.MetricsLabel) prometheus.Labels {
	l := make(prometheus.Labels)
	if labels == nil {
		return l
	}
	for _, label := range labels {
		l[label.Name] = label.Value
	}
	return l
}

func (pmc *PrometheusMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	m, ok := pmc.counters[sanitizeName(name)]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus counter not found",
			zap.String("name", name),
		)
		return nil
	}
	m.With(pmc.formatLabels(labels)).Add(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.gauges[sanitizeName(name)]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus gauge not found",
			zap.String("name", name),
		)
		return nil
	}
	m.With(pmc.formatLabels(labels)).Set(value)
	return nil
}

func (pmc *PrometheusMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	m, ok := pmc.histograms[sanitizeName(name)]
	if !ok {
		pmc.logger.Sugar().Warnw("Prometheus histogram not found",
			zap.String("name", name),
		)
		return nil
	}
	m.With(pmc.formatLabels(labels)).Observe(float64(value.Milliseconds()))
	return nil
}
