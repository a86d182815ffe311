package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_ChunkScanned          = "scanner.chunkScanned"
	Metric_Incr_LogDecoded            = "scanner.logDecoded"
	Metric_Incr_DistributorDiscovered = "detector.distributorDiscovered"
	Metric_Incr_DateIndexed           = "blockFinder.dateIndexed"
	Metric_Incr_BalanceFetched        = "balances.fetched"
	Metric_Incr_OutflowEventRecorded  = "outflows.eventRecorded"

	Metric_Gauge_LastScannedBlock = "detector.lastScannedBlock"

	Metric_Timing_ScanRangeDuration = "scanner.scanRange.duration"
	Metric_Timing_DetectDuration    = "detector.detect.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_ChunkScanned,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_LogDecoded,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_DistributorDiscovered,
			Labels: []string{"type"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_DateIndexed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_BalanceFetched,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_OutflowEventRecorded,
			Labels: []string{},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_LastScannedBlock,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_ScanRangeDuration,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_DetectDuration,
			Labels: []string{},
		},
	},
}
