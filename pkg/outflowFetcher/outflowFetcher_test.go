package outflowFetcher

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/tests"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/fileStore"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

var (
	testOwner      = common.HexToAddress("0x912cE59144191C1204E64559FE8253a0e49E6548")
	rewardDist     = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	plainDist      = common.HexToAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	recipientOne   = common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	recipientTwo   = common.HexToAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
	testTxHash     = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"
	testEndDate    = time.Date(2023, 1, 2, 12, 0, 0, 0, time.UTC)
	blockFourTime  = uint64(1672591200)
	blockEightTime = uint64(1672667600)
)

func setup(t *testing.T) (*OutflowFetcher, *fileStore.FileStore, *tests.FakeProvider) {
	l := tests.GetLogger()
	store := fileStore.NewFileStore(t.TempDir(), l)
	of := NewOutflowFetcher(tests.GetConfig(), store, tests.GetRetryConfig(), metrics.NewNoopMetricsSink(), l)
	return of, store, tests.NewFakeProvider()
}

func discoveryRecord(distributor common.Address, block uint64, isReward bool) *types.DistributorRecord {
	return &types.DistributorRecord{
		Type:                types.DistributorType_L2BaseFee,
		Block:               block,
		Date:                "2023-01-01",
		TxHash:              testTxHash,
		Method:              config.MethodSetInfraFeeAccount,
		Owner:               testOwner.Hex(),
		EventData:           "0x57f585db",
		IsRewardDistributor: isReward,
		DistributorAddress:  distributor.Hex(),
	}
}

func writeFixtures(t *testing.T, store *fileStore.FileStore) {
	index := types.NewBlockNumberIndex(42161)
	index.Blocks.Set("2023-01-01", 5)
	index.Blocks.Set("2023-01-02", 10)
	assert.NoError(t, store.WriteBlockNumbers(index))

	registry := types.NewDistributorRegistry(42161, config.ArbOwnerAddress)
	registry.Metadata.LastScannedBlock = 10
	registry.Distributors.Set(rewardDist.Hex(), discoveryRecord(rewardDist, 3, true))
	registry.Distributors.Set(plainDist.Hex(), discoveryRecord(plainDist, 3, false))
	assert.NoError(t, store.WriteDistributors(registry))
}

func scriptPayouts(provider *tests.FakeProvider) {
	provider.AddBlock(4, blockFourTime)
	provider.AddBlock(8, blockEightTime)
	provider.AddRecipientRecievedLog(4, 1, testTxHash, rewardDist, recipientOne, big.NewInt(600))
	provider.AddRecipientRecievedLog(4, 2, testTxHash, rewardDist, recipientTwo, big.NewInt(400))
	provider.AddRecipientRecievedLog(8, 1, testTxHash, rewardDist, recipientOne, big.NewInt(1000))
}

func TestFetchOutflowsRecordsDailyEntries(t *testing.T) {
	of, store, provider := setup(t)
	writeFixtures(t, store)
	scriptPayouts(provider)

	updated, err := of.FetchOutflows(context.Background(), provider, testEndDate)
	assert.NoError(t, err)
	assert.Equal(t, 1, updated)

	assert.Equal(t, [2]uint64{3, 10}, provider.GetLogsRanges[0], "A fresh series scans from the discovery block")

	series, err := store.ReadOutflows(rewardDist)
	assert.NoError(t, err)
	assert.Equal(t, 2, series.Outflows.Len())

	dayOne, ok := series.Outflows.Get("2023-01-01")
	assert.True(t, ok)
	assert.Equal(t, uint64(5), dayOne.BlockNumber, "An entry records the date's closing block, not the event's block")
	assert.Equal(t, "1000", dayOne.TotalOutflowWei)
	assert.Len(t, dayOne.Events, 2)
	assert.Equal(t, recipientOne.Hex(), dayOne.Events[0].Recipient)
	assert.Equal(t, "600", dayOne.Events[0].ValueWei)
	assert.Equal(t, recipientTwo.Hex(), dayOne.Events[1].Recipient)
	assert.Equal(t, "400", dayOne.Events[1].ValueWei)

	dayTwo, ok := series.Outflows.Get("2023-01-02")
	assert.True(t, ok)
	assert.Equal(t, uint64(10), dayTwo.BlockNumber)
	assert.Equal(t, "1000", dayTwo.TotalOutflowWei)
	assert.Len(t, dayTwo.Events, 1)
}

func TestFetchOutflowsSkipsPlainDistributors(t *testing.T) {
	of, store, provider := setup(t)
	writeFixtures(t, store)
	scriptPayouts(provider)

	_, err := of.FetchOutflows(context.Background(), provider, testEndDate)
	assert.NoError(t, err)

	series, err := store.ReadOutflows(plainDist)
	assert.NoError(t, err)
	assert.Nil(t, series, "Distributors that are not reward distributors have no payout events to record")
}

func TestFetchOutflowsResumesAfterLastRecordedDate(t *testing.T) {
	of, store, provider := setup(t)
	writeFixtures(t, store)
	scriptPayouts(provider)

	existing := types.NewOutflowSeries(42161, rewardDist)
	existing.Outflows.Set("2023-01-01", &types.OutflowEntry{
		BlockNumber:     5,
		TotalOutflowWei: "123",
		Events: []*types.OutflowEvent{
			{Recipient: recipientOne.Hex(), ValueWei: "123", TxHash: testTxHash},
		},
	})
	assert.NoError(t, store.WriteOutflows(rewardDist, existing))

	updated, err := of.FetchOutflows(context.Background(), provider, testEndDate)
	assert.NoError(t, err)
	assert.Equal(t, 1, updated)

	assert.Equal(t, [2]uint64{6, 10}, provider.GetLogsRanges[0], "The scan resumes after the last recorded date's closing block")

	series, err := store.ReadOutflows(rewardDist)
	assert.NoError(t, err)
	dayOne, _ := series.Outflows.Get("2023-01-01")
	assert.Equal(t, "123", dayOne.TotalOutflowWei, "A recorded date is never rewritten")
	dayTwo, ok := series.Outflows.Get("2023-01-02")
	assert.True(t, ok)
	assert.Equal(t, "1000", dayTwo.TotalOutflowWei)
}

func TestFetchOutflowsIsIdempotent(t *testing.T) {
	of, store, provider := setup(t)
	writeFixtures(t, store)
	scriptPayouts(provider)

	_, err := of.FetchOutflows(context.Background(), provider, testEndDate)
	assert.NoError(t, err)

	path := filepath.Join(store.BaseDir(), "distributors", rewardDist.Hex(), "outflows.json")
	before, err := os.ReadFile(path)
	assert.NoError(t, err)
	callsAfterFirstRun := len(provider.Calls)

	updated, err := of.FetchOutflows(context.Background(), provider, testEndDate)
	assert.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Equal(t, callsAfterFirstRun, len(provider.Calls), "A series already at endDate costs no RPC calls")

	after, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestFetchOutflowsSumsAreExactBeyondFloatPrecision(t *testing.T) {
	of, store, provider := setup(t)
	writeFixtures(t, store)

	provider.AddBlock(4, blockFourTime)
	value := new(big.Int)
	value.SetString("9007199254740993", 10)
	provider.AddRecipientRecievedLog(4, 1, testTxHash, rewardDist, recipientOne, value)
	provider.AddRecipientRecievedLog(4, 2, testTxHash, rewardDist, recipientTwo, value)

	_, err := of.FetchOutflows(context.Background(), provider, testEndDate)
	assert.NoError(t, err)

	series, err := store.ReadOutflows(rewardDist)
	assert.NoError(t, err)
	dayOne, _ := series.Outflows.Get("2023-01-01")
	assert.Equal(t, "18014398509481986", dayOne.TotalOutflowWei)
}

func TestFetchOutflowsRejectsMalformedEventData(t *testing.T) {
	of, store, provider := setup(t)
	writeFixtures(t, store)

	provider.AddBlock(4, blockFourTime)
	provider.Logs = append(provider.Logs, &ethereum.EthereumEventLog{
		LogIndex:        1,
		TransactionHash: ethereum.EthereumHexString(testTxHash),
		BlockNumber:     4,
		Address:         ethereum.EthereumHexString("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"),
		Data:            "0x1234",
		Topics:          []ethereum.EthereumHexString{ethereum.EthereumHexString(config.RecipientRecievedTopic0.Hex())},
	})

	_, err := of.FetchOutflows(context.Background(), provider, testEndDate)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "payout event")
	assert.Contains(t, err.Error(), "expected 64")

	series, err := store.ReadOutflows(rewardDist)
	assert.NoError(t, err)
	assert.Nil(t, series, "Nothing is written when decoding fails")
}
