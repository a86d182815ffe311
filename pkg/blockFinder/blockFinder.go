package blockFinder

import (
	"context"
	"time"

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

// BlockFinder maintains the date → closing-block index every other
// tracker keys its data on.
type BlockFinder struct {
	logger       *zap.Logger
	globalConfig *config.Config
	store        *fileStore.FileStore
	retryConfig  *retry.Config
	metricsSink  *metrics.MetricsSink
}

func NewBlockFinder(
	cfg *config.Config,
	store *fileStore.FileStore,
	retryConfig *retry.Config,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *BlockFinder {
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig("blockFinder")
	}
	return &BlockFinder{
		logger:       l,
		globalConfig: cfg,
		store:        store,
		retryConfig:  retryConfig,
		metricsSink:  ms,
	}
}

// FindBlockNumbers fills the index with the last block of every missing
// UTC date through endDate. On an existing index it resumes from the day
// after the newest entry; on a fresh one it starts from startDate, or the
// chain's genesis date when startDate is empty. Days the chain has not
// finished yet are skipped without error. The index is written once, after
// all dates resolve.
func (f *BlockFinder) FindBlockNumbers(ctx context.Context, provider ethereum.Provider, startDate string, endDate time.Time) (*types.BlockNumberIndex, error) {
	index, err := f.store.ReadBlockNumbers()
	if err != nil {
		return nil, err
	}
	if index == nil {
		chainId, err := retry.Do(f.logger, f.retryConfig.WithOperationName("findBlockNumbers.getChainId"), func() (uint64, error) {
			return provider.GetChainId(ctx)
		})
		if err != nil {
			return nil, err
		}
		index = types.NewBlockNumberIndex(chainId)
	}

	first, err := f.firstMissingDate(index, startDate)
	if err != nil {
		return nil, err
	}
	last := endDate.UTC().Truncate(24 * time.Hour)
	if first.After(last) {
		f.logger.Sugar().Infow("Block number index already covers the requested date",
			zap.String("endDate", last.Format(types.DateFormat)),
			zap.String("lastIndexedDate", index.LastIndexedDate()),
		)
		return index, nil
	}

	head, err := retry.Do(f.logger, f.retryConfig.WithOperationName("findBlockNumbers.getBlockNumber"), func() (uint64, error) {
		return provider.GetBlockNumber(ctx)
	})
	if err != nil {
		return nil, err
	}
	if head == 0 {
		return index, nil
	}

	timestamps := make(map[uint64]uint64)
	headTime, err := f.blockTimestamp(ctx, provider, head, timestamps)
	if err != nil {
		return nil, err
	}

	searchLow := uint64(1)
	if newest := index.Blocks.Newest(); newest != nil {
		searchLow = newest.Value
	}

	added := 0
	for date := first; !date.After(last); date = date.AddDate(0, 0, 1) {
		// The day's closing block is the last one before the next UTC
		// midnight; the day is only closed once the chain has passed it.
		deadline := uint64(date.AddDate(0, 0, 1).Unix())
		if headTime < deadline {
			f.logger.Sugar().Infow("Chain has not finished this date yet, stopping",
				zap.String("date", date.Format(types.DateFormat)),
				zap.Uint64("headBlock", head),
			)
			break
		}

		closing, found, err := f.lastBlockBefore(ctx, provider, deadline, searchLow, head, timestamps)
		if err != nil {
			return nil, err
		}
		if !found {
			// The chain did not exist yet on this date.
			continue
		}

		index.Blocks.Set(date.Format(types.DateFormat), closing)
		searchLow = closing
		added++
		_ = f.metricsSink.Incr(metricsTypes.Metric_Incr_DateIndexed, nil, 1)
	}

	if added == 0 {
		return index, nil
	}
	if err := f.store.WriteBlockNumbers(index); err != nil {
		return nil, err
	}

	f.logger.Sugar().Infow("Block number index updated",
		zap.Int("datesAdded", added),
		zap.String("lastIndexedDate", index.LastIndexedDate()),
	)
	return index, nil
}

// firstMissingDate picks where indexing resumes: the day after the newest
// entry, or the start date (explicit or chain genesis) for a fresh index.
func (f *BlockFinder) firstMissingDate(index *types.BlockNumberIndex, startDate string) (time.Time, error) {
	if lastIndexed := index.LastIndexedDate(); lastIndexed != "" {
		parsed, err := time.Parse(types.DateFormat, lastIndexed)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "corrupt date key '%s' in block numbers index", lastIndexed)
		}
		return parsed.AddDate(0, 0, 1), nil
	}

	if startDate == "" {
		startDate = f.globalConfig.GetGenesisDate()
	}
	parsed, err := time.Parse(types.DateFormat, startDate)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid start date '%s'", startDate)
	}
	return parsed, nil
}

// lastBlockBefore binary-searches [low, high] for the greatest block whose
// timestamp is before deadline. Block timestamps are non-decreasing, which
// is what makes the bisection sound. found is false when even low sits at
// or past the deadline.
func (f *BlockFinder) lastBlockBefore(ctx context.Context, provider ethereum.Provider, deadline uint64, low uint64, high uint64, timestamps map[uint64]uint64) (uint64, bool, error) {
	lowTime, err := f.blockTimestamp(ctx, provider, low, timestamps)
	if err != nil {
		return 0, false, err
	}
	if lowTime >= deadline {
		return 0, false, nil
	}

	for low < high {
		mid := low + (high-low+1)/2
		midTime, err := f.blockTimestamp(ctx, provider, mid, timestamps)
		if err != nil {
			return 0, false, err
		}
		if midTime < deadline {
			low = mid
		} else {
			high = mid - 1
		}
	}
	return low, true, nil
}

func (f *BlockFinder) blockTimestamp(ctx context.Context, provider ethereum.Provider, blockNumber uint64, timestamps map[uint64]uint64) (uint64, error) {
	if ts, ok := timestamps[blockNumber]; ok {
		return ts, nil
	}

	block, err := retry.Do(f.logger, f.retryConfig.WithOperationName("findBlockNumbers.getBlock"), func() (*ethereum.EthereumBlock, error) {
		return provider.GetBlockByNumber(ctx, blockNumber)
	})
	if err != nil {
		return 0, err
	}
	if block == nil {
		return 0, errors.Errorf("Block %d not found", blockNumber)
	}

	ts := block.Timestamp.Value()
	timestamps[blockNumber] = ts
	return ts, nil
}
