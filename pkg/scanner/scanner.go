package scanner

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
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/retry"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

// An owner action that installs a distributor carries at least a 4-byte
// selector and one ABI-encoded address word.
const minOwnerActionPayload = 36

// Scanner finds fee distributor installations by reading OwnerActs events
// off the ArbOwner precompile.
type Scanner struct {
	logger       *zap.Logger
	globalConfig *config.Config
	retryConfig  *retry.Config
	metricsSink  *metrics.MetricsSink
}

func NewScanner(cfg *config.Config, retryConfig *retry.Config, ms *metrics.MetricsSink, l *zap.Logger) *Scanner {
	if retryConfig == nil {
		retryConfig = retry.DefaultConfig("scanner")
	}
	return &Scanner{
		logger:       l,
		globalConfig: cfg,
		retryConfig:  retryConfig,
		metricsSink:  ms,
	}
}

// ScanBlockRange collects every distributor installation in
// [fromBlock, toBlock], inclusive. Records come back in ascending block
// order (log index order within a block), so partitioning a range across
// calls yields the same records as one call over the whole range.
func (s *Scanner) ScanBlockRange(ctx context.Context, provider ethereum.Provider, fromBlock uint64, toBlock uint64) ([]*types.DistributorRecord, error) {
	if fromBlock > toBlock {
		return nil, errors.Errorf("invalid block range: fromBlock %d is after toBlock %d", fromBlock, toBlock)
	}
	start := time.Now()

	logs, err := s.fetchOwnerActionLogs(ctx, provider, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].LogIndex < logs[j].LogIndex
	})

	blockDates := make(map[uint64]string)
	records := make([]*types.DistributorRecord, 0, len(logs))
	for _, log := range logs {
		record, err := s.decodeOwnerAction(ctx, provider, log, blockDates)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
		_ = s.metricsSink.Incr(metricsTypes.Metric_Incr_LogDecoded, nil, 1)
	}

	_ = s.metricsSink.Timing(metricsTypes.Metric_Timing_ScanRangeDuration, time.Since(start), nil)
	s.logger.Sugar().Infow("Scanned block range",
		zap.Uint64("fromBlock", fromBlock),
		zap.Uint64("toBlock", toBlock),
		zap.Int("ownerActions", len(logs)),
		zap.Int("distributorRecords", len(records)),
	)
	return records, nil
}

// fetchOwnerActionLogs queries eth_getLogs in chunks of at most
// ScanChunkSize blocks. Providers reject unbounded ranges, so a scan of
// [0, 25000] issues three queries: [0, 9999], [10000, 19999], [20000, 25000].
func (s *Scanner) fetchOwnerActionLogs(ctx context.Context, provider ethereum.Provider, fromBlock uint64, toBlock uint64) ([]*ethereum.EthereumEventLog, error) {
	var logs []*ethereum.EthereumEventLog

	for chunkStart := fromBlock; chunkStart <= toBlock; {
		chunkEnd := chunkStart + config.ScanChunkSize - 1
		if chunkEnd > toBlock || chunkEnd < chunkStart {
			chunkEnd = toBlock
		}

		s.logger.Sugar().Debugw("Fetching owner action logs",
			zap.Uint64("chunkStart", chunkStart),
			zap.Uint64("chunkEnd", chunkEnd),
		)
		chunkLogs, err := retry.Do(s.logger, s.retryConfig.WithOperationName("scanBlockRange.getLogs"), func() ([]*ethereum.EthereumEventLog, error) {
			return provider.GetLogs(ctx, chunkStart, chunkEnd, config.ArbOwnerAddress, []common.Hash{config.OwnerActsTopic0})
		})
		if err != nil {
			return nil, err
		}
		logs = append(logs, chunkLogs...)
		_ = s.metricsSink.Incr(metricsTypes.Metric_Incr_ChunkScanned, nil, 1)

		if chunkEnd == toBlock {
			break
		}
		chunkStart = chunkEnd + 1
	}
	return logs, nil
}

// decodeOwnerAction turns one OwnerActs log into a draft distributor
// record. Logs here already matched the event topic, so a payload that
// does not parse means the chain data violates our assumptions and the
// scan must abort rather than skip.
func (s *Scanner) decodeOwnerAction(ctx context.Context, provider ethereum.Provider, log *ethereum.EthereumEventLog, blockDates map[uint64]string) (*types.DistributorRecord, error) {
	txHash := log.TransactionHash.Value()

	if len(log.Topics) < 3 {
		return nil, errors.Errorf("owner action log in tx %s has %d topics, expected 3", txHash, len(log.Topics))
	}

	payload, err := decodeOwnerActionData(log.Data.Value())
	if err != nil {
		return nil, errors.Wrapf(err, "tx %s", txHash)
	}
	if len(payload) < minOwnerActionPayload {
		return nil, errors.Errorf("owner action payload in tx %s is %d bytes, expected at least %d", txHash, len(payload), minOwnerActionPayload)
	}

	selector := hexutil.Encode(payload[0:4])
	distributorType, ok := config.DistributorTypeByMethod[selector]
	if !ok {
		return nil, errors.Errorf("unknown owner action method %s in tx %s", selector, txHash)
	}
	distributor := common.BytesToAddress(payload[16:minOwnerActionPayload])

	date, err := s.blockDate(ctx, provider, log.BlockNumber.Value(), blockDates)
	if err != nil {
		return nil, err
	}

	return &types.DistributorRecord{
		Type:                distributorType,
		Block:               log.BlockNumber.Value(),
		Date:                date,
		TxHash:              txHash,
		Method:              selector,
		Owner:               common.HexToAddress(log.Topics[2].Value()).Hex(),
		EventData:           log.Data.Value(),
		IsRewardDistributor: s.IsRewardDistributor(ctx, provider, distributor),
		DistributorAddress:  distributor.Hex(),
	}, nil
}

// blockDate resolves a block number to its UTC calendar date, caching per
// scan since several owner actions often land in one block.
func (s *Scanner) blockDate(ctx context.Context, provider ethereum.Provider, blockNumber uint64, cache map[uint64]string) (string, error) {
	if date, ok := cache[blockNumber]; ok {
		return date, nil
	}

	block, err := retry.Do(s.logger, s.retryConfig.WithOperationName("scanBlockRange.getBlock"), func() (*ethereum.EthereumBlock, error) {
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

// decodeOwnerActionData unwraps the ABI-encoded `bytes data` argument of
// an OwnerActs event: a 32-byte offset word, a 32-byte length word, then
// the padded payload (the calldata of the owner's call).
func decodeOwnerActionData(dataHex string) ([]byte, error) {
	raw, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode owner action data")
	}
	if len(raw) < 64 {
		return nil, errors.Errorf("owner action data is %d bytes, too short for an ABI bytes argument", len(raw))
	}

	offset := new(big.Int).SetBytes(raw[0:32])
	if !offset.IsUint64() || offset.Uint64() > uint64(len(raw))-32 {
		return nil, errors.Errorf("owner action data has payload offset %s beyond its %d bytes", offset, len(raw))
	}
	payloadStart := offset.Uint64() + 32

	length := new(big.Int).SetBytes(raw[offset.Uint64():payloadStart])
	if !length.IsUint64() || length.Uint64() > uint64(len(raw))-payloadStart {
		return nil, errors.Errorf("owner action data declares payload length %s beyond its %d bytes", length, len(raw))
	}

	return raw[payloadStart : payloadStart+length.Uint64()], nil
}
