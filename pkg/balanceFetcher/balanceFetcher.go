package balanceFetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics/metricsTypes"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/fileStore"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/retry"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

// BalanceFetcher records each distributor's balance at every indexed
// date's closing block, from the distributor's discovery date onward.
type BalanceFetcher struct {
	logger       *zap.Logger
	globalConfig *config.Config
	store        *fileStore.FileStore
	retryConfig  *retry.Config
	metricsSink  *metrics.MetricsSink
}

func NewBalanceFetcher(
	cfg *config.Config,
	store *fileStore.FileStore,
	retryConfig *retry.Config,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *BalanceFetcher {
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig("balanceFetcher")
	}
	return &BalanceFetcher{
		logger:       l,
		globalConfig: cfg,
		store:        store,
		retryConfig:  retryConfig,
		metricsSink:  ms,
	}
}

// FetchBalances fills missing balance entries for every registry
// distributor through endDate and returns how many distributors changed.
func (bf *BalanceFetcher) FetchBalances(ctx context.Context, provider ethereum.Provider, endDate time.Time) (int, error) {
	date := endDate.UTC().Format(types.DateFormat)

	index, err := bf.store.ReadBlockNumbers()
	if err != nil {
		return 0, err
	}
	if index == nil {
		return 0, errors.New("Block numbers data not found")
	}
	registry, err := bf.store.ReadDistributors()
	if err != nil {
		return 0, err
	}
	if registry == nil {
		return 0, errors.New("Distributors data not found")
	}

	updated := 0
	for pair := registry.Distributors.Oldest(); pair != nil; pair = pair.Next() {
		changed, err := bf.FetchBalancesForDistributor(ctx, provider, index, registry.Metadata.ChainId, pair.Value, date)
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}

	bf.logger.Sugar().Infow("Balance fetch complete",
		zap.String("endDate", date),
		zap.Int("distributors", registry.Distributors.Len()),
		zap.Int("updated", updated),
	)
	return updated, nil
}

// FetchBalancesForDistributor fills one distributor's missing entries for
// the indexed dates in [discovery date, endDate]. Entries already present
// are never refetched, so a balance captured once is never disturbed by a
// rerun. The series is written only when something was added.
func (bf *BalanceFetcher) FetchBalancesForDistributor(
	ctx context.Context,
	provider ethereum.Provider,
	index *types.BlockNumberIndex,
	chainId uint64,
	record *types.DistributorRecord,
	endDate string,
) (bool, error) {
	distributor := common.HexToAddress(record.DistributorAddress)

	series, err := bf.store.ReadBalances(distributor)
	if err != nil {
		return false, err
	}
	if series == nil {
		series = types.NewBalanceSeries(chainId, distributor)
	}

	operationName := fmt.Sprintf("fetchBalances.getBalance(%s)", distributor.Hex())
	changed := false
	for pair := index.Blocks.Oldest(); pair != nil; pair = pair.Next() {
		date, block := pair.Key, pair.Value
		if date < record.Date {
			continue
		}
		if date > endDate {
			break
		}
		if _, exists := series.Balances.Get(date); exists {
			continue
		}

		balance, err := retry.Do(bf.logger, bf.retryConfig.WithOperationName(operationName), func() (string, error) {
			return provider.GetBalance(ctx, distributor, block)
		})
		if err != nil {
			return false, err
		}

		series.Balances.Set(date, &types.BalanceEntry{
			BlockNumber: block,
			BalanceWei:  balance,
		})
		changed = true
		_ = bf.metricsSink.Incr(metricsTypes.Metric_Incr_BalanceFetched, nil, 1)
	}

	if !changed {
		return false, nil
	}
	if err := bf.store.WriteBalances(distributor, series); err != nil {
		return false, err
	}
	return true, nil
}
