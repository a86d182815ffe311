package outflowFetcher

import (
	"context"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics/metricsTypes"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/fileStore"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/retry"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types/numbers"
)

// A RecipientRecieved event carries two unindexed words: the recipient
// address and the paid value.
const payoutEventDataLength = 64

// OutflowFetcher records, per UTC date, what each reward distributor paid
// out and to whom.
type OutflowFetcher struct {
	logger       *zap.Logger
	globalConfig *config.Config
	store        *fileStore.FileStore
	retryConfig  *retry.Config
	metricsSink  *metrics.MetricsSink
}

func NewOutflowFetcher(
	cfg *config.Config,
	store *fileStore.FileStore,
	retryConfig *retry.Config,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *OutflowFetcher {
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig("outflowFetcher")
	}
	return &OutflowFetcher{
		logger:       l,
		globalConfig: cfg,
		store:        store,
		retryConfig:  retryConfig,
		metricsSink:  ms,
	}
}

// FetchOutflows updates the outflow series of every reward distributor in
// the registry through endDate and returns how many changed. Plain
// distributors have no payout events and are skipped.
func (of *OutflowFetcher) FetchOutflows(ctx context.Context, provider ethereum.Provider, endDate time.Time) (int, error) {
	date := endDate.UTC().Format(types.DateFormat)

	index, err := of.store.ReadBlockNumbers()
	if err != nil {
		return 0, err
	}
	if index == nil {
		return 0, errors.New("Block numbers data not found")
	}
	registry, err := of.store.ReadDistributors()
	if err != nil {
		return 0, err
	}
	if registry == nil {
		return 0, errors.New("Distributors data not found")
	}

	updated := 0
	for pair := registry.Distributors.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value.IsRewardDistributor {
			continue
		}
		changed, err := of.FetchOutflowsForDistributor(ctx, provider, index, registry.Metadata.ChainId, pair.Value, date)
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}

	of.logger.Sugar().Infow("Outflow fetch complete",
		zap.String("endDate", date),
		zap.Int("updated", updated),
	)
	return updated, nil
}

// FetchOutflowsForDistributor scans payout events from the block after
// the last recorded date's closing block (or the discovery block, for a
// fresh series) through endDate's closing block, groups them by the UTC
// date of their block, and appends one entry per new date. Dates already
// recorded are never touched.
func (of *OutflowFetcher) FetchOutflowsForDistributor(
	ctx context.Context,
	provider ethereum.Provider,
	index *types.BlockNumberIndex,
	chainId uint64,
	record *types.DistributorRecord,
	endDate string,
) (bool, error) {
	endBlock, ok := index.Blocks.Get(endDate)
	if !ok {
		return false, errors.Errorf("Block number not found for date %s", endDate)
	}
	distributor := common.HexToAddress(record.DistributorAddress)

	series, err := of.store.ReadOutflows(distributor)
	if err != nil {
		return false, err
	}
	if series == nil {
		series = types.NewOutflowSeries(chainId, distributor)
	}

	fromBlock := record.Block
	if newest := series.Outflows.Newest(); newest != nil {
		fromBlock = newest.Value.BlockNumber + 1
	}
	if fromBlock > endBlock {
		return false, nil
	}

	logs, err := of.fetchPayoutLogs(ctx, provider, distributor, fromBlock, endBlock)
	if err != nil {
		return false, err
	}
	if len(logs) == 0 {
		return false, nil
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].LogIndex < logs[j].LogIndex
	})

	// Logs are block-ordered, so dates come out chronological and each
	// group is complete when the date changes.
	type dayGroup struct {
		date   string
		events []*types.OutflowEvent
		values []string
	}
	groups := make([]*dayGroup, 0)
	blockDates := make(map[uint64]string)
	for _, log := range logs {
		recipient, value, err := decodePayoutEvent(log)
		if err != nil {
			return false, err
		}
		date, err := of.blockDate(ctx, provider, log.BlockNumber.Value(), blockDates)
		if err != nil {
			return false, err
		}

		if len(groups) == 0 || groups[len(groups)-1].date != date {
			groups = append(groups, &dayGroup{date: date})
		}
		group := groups[len(groups)-1]
		group.events = append(group.events, &types.OutflowEvent{
			Recipient: recipient.Hex(),
			ValueWei:  value.String(),
			TxHash:    log.TransactionHash.Value(),
		})
		group.values = append(group.values, value.String())
	}

	changed := false
	for _, group := range groups {
		if _, exists := series.Outflows.Get(group.date); exists {
			continue
		}
		dayBlock, ok := index.Blocks.Get(group.date)
		if !ok {
			return false, errors.Errorf("Block number not found for date %s", group.date)
		}
		total, err := numbers.SumWei(group.values...)
		if err != nil {
			return false, err
		}

		series.Outflows.Set(group.date, &types.OutflowEntry{
			BlockNumber:     dayBlock,
			TotalOutflowWei: total,
			Events:          group.events,
		})
		changed = true
		_ = of.metricsSink.Incr(metricsTypes.Metric_Incr_OutflowEventRecorded, nil, float64(len(group.events)))
	}

	if !changed {
		return false, nil
	}
	if err := of.store.WriteOutflows(distributor, series); err != nil {
		return false, err
	}

	of.logger.Sugar().Infow("Recorded outflows",
		zap.String("distributor", distributor.Hex()),
		zap.Uint64("fromBlock", fromBlock),
		zap.Uint64("endBlock", endBlock),
		zap.Int("events", len(logs)),
	)
	return true, nil
}

func (of *OutflowFetcher) fetchPayoutLogs(ctx context.Context, provider ethereum.Provider, distributor common.Address, fromBlock uint64, toBlock uint64) ([]*ethereum.EthereumEventLog, error) {
	var logs []*ethereum.EthereumEventLog

	for chunkStart := fromBlock; chunkStart <= toBlock; {
		chunkEnd := chunkStart + config.ScanChunkSize - 1
		if chunkEnd > toBlock || chunkEnd < chunkStart {
			chunkEnd = toBlock
		}

		chunkLogs, err := retry.Do(of.logger, of.retryConfig.WithOperationName("fetchOutflows.getLogs"), func() ([]*ethereum.EthereumEventLog, error) {
			return provider.GetLogs(ctx, chunkStart, chunkEnd, distributor, []common.Hash{config.RecipientRecievedTopic0})
		})
		if err != nil {
			return nil, err
		}
		logs = append(logs, chunkLogs...)

		if chunkEnd == toBlock {
			break
		}
		chunkStart = chunkEnd + 1
	}
	return logs, nil
}

func (of *OutflowFetcher) blockDate(ctx context.Context, provider ethereum.Provider, blockNumber uint64, cache map[uint64]string) (string, error) {
	if date, ok := cache[blockNumber]; ok {
		return date, nil
	}

	block, err := retry.Do(of.logger, of.retryConfig.WithOperationName("fetchOutflows.getBlock"), func() (*ethereum.EthereumBlock, error) {
		return provider.GetBlockByNumber(ctx, blockNumber)
	})
	if err != nil {
		return "", err
	}
	if block == nil {
		return "", errors.Errorf("Block %d not found", blockNumber)
	}

	date := time.Unix(int64(block.Timestamp.Value()), 0).UTC().Format(types.DateFormat)
	cache[blockNumber] = date
	return date, nil
}

func decodePayoutEvent(log *ethereum.EthereumEventLog) (common.Address, *big.Int, error) {
	raw, err := hexutil.Decode(log.Data.Value())
	if err != nil {
		return common.Address{}, nil, errors.Wrapf(err, "failed to decode payout event data in tx %s", log.TransactionHash.Value())
	}
	if len(raw) < payoutEventDataLength {
		return common.Address{}, nil, errors.Errorf("payout event in tx %s has %d bytes of data, expected %d", log.TransactionHash.Value(), len(raw), payoutEventDataLength)
	}

	recipient := common.BytesToAddress(raw[12:32])
	value := new(big.Int).SetBytes(raw[32:payoutEventDataLength])
	return recipient, value, nil
}
