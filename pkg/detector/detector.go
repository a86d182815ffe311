package detector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics/metricsTypes"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/fileStore"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/retry"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/scanner"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

// Detector drives incremental distributor discovery: each run scans only
// the blocks the registry has not covered yet and appends what it finds.
type Detector struct {
	logger       *zap.Logger
	globalConfig *config.Config
	store        *fileStore.FileStore
	scanner      *scanner.Scanner
	retryConfig  *retry.Config
	metricsSink  *metrics.MetricsSink
}

func NewDetector(
	cfg *config.Config,
	store *fileStore.FileStore,
	s *scanner.Scanner,
	retryConfig *retry.Config,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *Detector {
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig("detector")
	}
	return &Detector{
		logger:       l,
		globalConfig: cfg,
		store:        store,
		scanner:      s,
		retryConfig:  retryConfig,
		metricsSink:  ms,
	}
}

// DetectDistributors brings the registry up to date through endDate's
// closing block. Reruns over covered ground return the registry as-is
// with no RPC traffic and no write; existing records are never modified,
// so a rerun cannot disturb data added by hand.
func (d *Detector) DetectDistributors(ctx context.Context, provider ethereum.Provider, endDate time.Time) (*types.DistributorRegistry, error) {
	runId := uuid.New().String()
	start := time.Now()
	date := endDate.UTC().Format(types.DateFormat)

	index, err := d.store.ReadBlockNumbers()
	if err != nil {
		return nil, err
	}
	if index == nil {
		return nil, errors.New("Block numbers data not found")
	}
	endBlock, ok := index.Blocks.Get(date)
	if !ok {
		return nil, errors.Errorf("Block number not found for date %s", date)
	}

	registry, err := d.store.ReadDistributors()
	if err != nil {
		return nil, err
	}
	if registry == nil {
		// The only moment the registry's chain id is ever taken from the
		// network. It is never reconciled afterwards.
		chainId, err := retry.Do(d.logger, d.retryConfig.WithOperationName("detectDistributors.getChainId"), func() (uint64, error) {
			return provider.GetChainId(ctx)
		})
		if err != nil {
			return nil, err
		}
		registry = types.NewDistributorRegistry(chainId, config.ArbOwnerAddress)
		d.logger.Sugar().Infow("Starting a new distributor registry",
			zap.String("runId", runId),
			zap.Uint64("chainId", chainId),
		)
	}

	if endBlock <= registry.Metadata.LastScannedBlock {
		d.logger.Sugar().Infow("Registry already covers the requested date",
			zap.String("runId", runId),
			zap.String("endDate", date),
			zap.Uint64("endBlock", endBlock),
			zap.Uint64("lastScannedBlock", registry.Metadata.LastScannedBlock),
		)
		return registry, nil
	}

	fromBlock := registry.Metadata.LastScannedBlock + 1
	d.logger.Sugar().Infow("Detecting distributors",
		zap.String("runId", runId),
		zap.String("endDate", date),
		zap.Uint64("fromBlock", fromBlock),
		zap.Uint64("endBlock", endBlock),
	)

	records, err := d.scanner.ScanBlockRange(ctx, provider, fromBlock, endBlock)
	if err != nil {
		return nil, err
	}

	added := 0
	for _, record := range records {
		if _, exists := registry.Distributors.Get(record.DistributorAddress); exists {
			continue
		}
		registry.Distributors.Set(record.DistributorAddress, record)
		added++
		_ = d.metricsSink.Incr(metricsTypes.Metric_Incr_DistributorDiscovered, []metricsTypes.MetricsLabel{
			{Name: "type", Value: string(record.Type)},
		}, 1)
	}

	// Coverage advances even when the scan found nothing, so the next run
	// does not rescan these blocks.
	registry.Metadata.LastScannedBlock = endBlock

	if err := d.store.WriteDistributors(registry); err != nil {
		return nil, err
	}

	_ = d.metricsSink.Gauge(metricsTypes.Metric_Gauge_LastScannedBlock, float64(endBlock), nil)
	_ = d.metricsSink.Timing(metricsTypes.Metric_Timing_DetectDuration, time.Since(start), nil)
	d.logger.Sugar().Infow("Detection run complete",
		zap.String("runId", runId),
		zap.Uint64("blocksCovered", endBlock-fromBlock+1),
		zap.Int("recordsFound", len(records)),
		zap.Int("recordsAdded", added),
		zap.Int("totalDistributors", registry.Distributors.Len()),
	)
	return registry, nil
}
