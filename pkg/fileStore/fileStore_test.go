package fileStore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

const (
	testArbOwner    = "0x0000000000000000000000000000000000000070"
	testDistributor = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testRecipient   = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testTxHash      = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"
	testEventData   = "0xfcdde2b40000000000000000000000005aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
)

func setup(t *testing.T) *FileStore {
	l, _ := zap.NewDevelopment()
	return NewFileStore(t.TempDir(), l)
}

func validRecord() *types.DistributorRecord {
	return &types.DistributorRecord{
		Type:                types.DistributorType_L2BaseFee,
		Block:               152,
		Date:                "2022-07-12",
		TxHash:              testTxHash,
		Method:              "0x57f585db",
		Owner:               testArbOwner,
		EventData:           testEventData,
		IsRewardDistributor: true,
		DistributorAddress:  testDistributor,
	}
}

func TestReadMissingFilesReturnsNil(t *testing.T) {
	fs := setup(t)

	index, err := fs.ReadBlockNumbers()
	assert.NoError(t, err, "Missing block numbers file should not be an error")
	assert.Nil(t, index, "Missing block numbers file should read as nil")

	registry, err := fs.ReadDistributors()
	assert.NoError(t, err, "Missing registry file should not be an error")
	assert.Nil(t, registry, "Missing registry file should read as nil")

	balances, err := fs.ReadBalances(common.HexToAddress(testDistributor))
	assert.NoError(t, err, "Missing balances file should not be an error")
	assert.Nil(t, balances, "Missing balances file should read as nil")

	outflows, err := fs.ReadOutflows(common.HexToAddress(testDistributor))
	assert.NoError(t, err, "Missing outflows file should not be an error")
	assert.Nil(t, outflows, "Missing outflows file should read as nil")
}

func TestWriteAndReadBlockNumbers(t *testing.T) {
	fs := setup(t)

	doc := types.NewBlockNumberIndex(42161)
	doc.Blocks.Set("2022-07-11", 98)
	doc.Blocks.Set("2022-07-12", 155)

	err := fs.WriteBlockNumbers(doc)
	assert.NoError(t, err, "Writing a valid index should succeed")

	read, err := fs.ReadBlockNumbers()
	assert.NoError(t, err)
	assert.NotNil(t, read)
	assert.Equal(t, uint64(42161), read.Metadata.ChainId)

	block, ok := read.Blocks.Get("2022-07-12")
	assert.True(t, ok)
	assert.Equal(t, uint64(155), block)
	assert.Equal(t, "2022-07-12", read.LastIndexedDate())
}

func TestWriteBlockNumbersOutputIsCanonical(t *testing.T) {
	fs := setup(t)

	doc := types.NewBlockNumberIndex(42161)
	doc.Blocks.Set("2023-03-15", 70000000)

	err := fs.WriteBlockNumbers(doc)
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(fs.BaseDir(), "block_numbers.json"))
	assert.NoError(t, err)

	expected := `{
  "metadata": {
    "chain_id": 42161
  },
  "blocks": {
    "2023-03-15": 70000000
  }
}
`
	assert.Equal(t, expected, string(data), "Documents should be 2-space indented with a trailing newline")
}

func TestWriteBlockNumbersPreservesInsertionOrder(t *testing.T) {
	fs := setup(t)

	doc := types.NewBlockNumberIndex(42161)
	doc.Blocks.Set("2023-01-01", 1000)
	doc.Blocks.Set("2023-01-02", 2000)
	doc.Blocks.Set("2023-01-03", 3000)

	err := fs.WriteBlockNumbers(doc)
	assert.NoError(t, err)

	read, err := fs.ReadBlockNumbers()
	assert.NoError(t, err)

	dates := make([]string, 0, read.Blocks.Len())
	for pair := read.Blocks.Oldest(); pair != nil; pair = pair.Next() {
		dates = append(dates, pair.Key)
	}
	assert.Equal(t, []string{"2023-01-01", "2023-01-02", "2023-01-03"}, dates)
}

func TestWriteBlockNumbersRejectsInvalidDocuments(t *testing.T) {
	fs := setup(t)

	t.Run("invalid date key", func(t *testing.T) {
		doc := types.NewBlockNumberIndex(42161)
		doc.Blocks.Set("2023-13-01", 1000)

		err := fs.WriteBlockNumbers(doc)
		assert.Error(t, err)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "blocks['2023-13-01']", validationErr.Field)
	})

	t.Run("zero block number", func(t *testing.T) {
		doc := types.NewBlockNumberIndex(42161)
		doc.Blocks.Set("2023-03-15", 0)

		err := fs.WriteBlockNumbers(doc)
		assert.EqualError(t, err, "blocks['2023-03-15']: block number must be positive")
	})

	t.Run("zero chain id", func(t *testing.T) {
		doc := types.NewBlockNumberIndex(0)

		err := fs.WriteBlockNumbers(doc)
		assert.EqualError(t, err, "metadata.chain_id: chain id must be positive")
	})

	t.Run("nothing written on failure", func(t *testing.T) {
		_, statErr := os.Stat(filepath.Join(fs.BaseDir(), "block_numbers.json"))
		assert.True(t, os.IsNotExist(statErr), "Rejected writes should leave no file behind")
	})
}

func TestWriteLeavesPreviousFileOnValidationFailure(t *testing.T) {
	fs := setup(t)

	good := types.NewBlockNumberIndex(42161)
	good.Blocks.Set("2023-03-15", 1000)
	err := fs.WriteBlockNumbers(good)
	assert.NoError(t, err)

	bad := types.NewBlockNumberIndex(42161)
	bad.Blocks.Set("not-a-date", 2000)
	err = fs.WriteBlockNumbers(bad)
	assert.Error(t, err)

	read, err := fs.ReadBlockNumbers()
	assert.NoError(t, err)
	block, ok := read.Blocks.Get("2023-03-15")
	assert.True(t, ok, "The previous document should survive a rejected write")
	assert.Equal(t, uint64(1000), block)

	entries, err := os.ReadDir(fs.BaseDir())
	assert.NoError(t, err)
	assert.Len(t, entries, 1, "No temp files should be left behind")
	assert.Equal(t, "block_numbers.json", entries[0].Name())
}

func TestWriteAndReadDistributors(t *testing.T) {
	fs := setup(t)

	registry := types.NewDistributorRegistry(42161, common.HexToAddress(testArbOwner))
	registry.Metadata.LastScannedBlock = 155
	registry.Distributors.Set(testDistributor, validRecord())

	err := fs.WriteDistributors(registry)
	assert.NoError(t, err, "Writing a valid registry should succeed")

	read, err := fs.ReadDistributors()
	assert.NoError(t, err)
	assert.Equal(t, uint64(42161), read.Metadata.ChainId)
	assert.Equal(t, testArbOwner, read.Metadata.ArbOwnerAddress)
	assert.Equal(t, uint64(155), read.Metadata.LastScannedBlock)

	record, ok := read.Distributors.Get(testDistributor)
	assert.True(t, ok)
	assert.Equal(t, types.DistributorType_L2BaseFee, record.Type)
	assert.Equal(t, uint64(152), record.Block)
	assert.Equal(t, "2022-07-12", record.Date)
	assert.Equal(t, "0x57f585db", record.Method)
	assert.True(t, record.IsRewardDistributor)
}

func TestWriteDistributorsRejectsBadRecords(t *testing.T) {
	fs := setup(t)

	t.Run("unknown distributor type", func(t *testing.T) {
		registry := types.NewDistributorRegistry(42161, common.HexToAddress(testArbOwner))
		record := validRecord()
		record.Type = "L3_FEE"
		registry.Distributors.Set(testDistributor, record)

		err := fs.WriteDistributors(registry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "got 'L3_FEE'")
		assert.Contains(t, err.Error(), "L2_BASE_FEE")
		assert.Contains(t, err.Error(), "L1_SURPLUS_FEE")
	})

	t.Run("non-checksummed registry key", func(t *testing.T) {
		registry := types.NewDistributorRegistry(42161, common.HexToAddress(testArbOwner))
		lowered := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
		registry.Distributors.Set(lowered, validRecord())

		err := fs.WriteDistributors(registry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not EIP-55 checksummed")
		assert.Contains(t, err.Error(), testDistributor)
	})

	t.Run("malformed tx hash", func(t *testing.T) {
		registry := types.NewDistributorRegistry(42161, common.HexToAddress(testArbOwner))
		record := validRecord()
		record.TxHash = "0x1234"
		registry.Distributors.Set(testDistributor, record)

		err := fs.WriteDistributors(registry)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "tx_hash")
	})
}

func TestRegistryRoundTripPreservesUnknownFields(t *testing.T) {
	fs := setup(t)

	raw := `{
  "metadata": {
    "chain_id": 42161,
    "arbowner_address": "0x0000000000000000000000000000000000000070",
    "last_scanned_block": 155
  },
  "distributors": {
    "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed": {
      "type": "L2_BASE_FEE",
      "block": 152,
      "date": "2022-07-12",
      "tx_hash": "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b",
      "method": "0x57f585db",
      "owner": "0x0000000000000000000000000000000000000070",
      "event_data": "0xfcdde2b40000000000000000000000005aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
      "is_reward_distributor": true,
      "distributor_address": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
      "display_name": "ops-added label"
    }
  }
}
`
	err := os.WriteFile(filepath.Join(fs.BaseDir(), "distributors.json"), []byte(raw), 0o644)
	assert.NoError(t, err)

	registry, err := fs.ReadDistributors()
	assert.NoError(t, err)
	record, ok := registry.Distributors.Get(testDistributor)
	assert.True(t, ok)
	assert.Equal(t, 1, record.ExtraFieldCount())

	err = fs.WriteDistributors(registry)
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(fs.BaseDir(), "distributors.json"))
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"display_name": "ops-added label"`,
		"Fields this tool does not understand should survive a read-write cycle")
}

func TestBalancePathsUseChecksummedAddresses(t *testing.T) {
	fs := setup(t)

	// Spelled lowercase on purpose: the path must still be checksummed.
	distributor := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")

	doc := types.NewBalanceSeries(42161, distributor)
	doc.Balances.Set("2022-07-12", &types.BalanceEntry{
		BlockNumber: 155,
		BalanceWei:  "2000000000000000000",
	})

	err := fs.WriteBalances(distributor, doc)
	assert.NoError(t, err)

	expectedPath := filepath.Join(fs.BaseDir(), "distributors", testDistributor, "balances.json")
	_, err = os.Stat(expectedPath)
	assert.NoError(t, err, "Balances should live under the EIP-55 spelling of the address")

	read, err := fs.ReadBalances(distributor)
	assert.NoError(t, err)
	entry, ok := read.Balances.Get("2022-07-12")
	assert.True(t, ok)
	assert.Equal(t, "2000000000000000000", entry.BalanceWei)
}

func TestWriteBalancesRejectsMismatchedMetadata(t *testing.T) {
	fs := setup(t)

	doc := types.NewBalanceSeries(42161, common.HexToAddress(testRecipient))

	err := fs.WriteBalances(common.HexToAddress(testDistributor), doc)
	assert.Error(t, err)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "metadata.distributor_address", validationErr.Field)
	assert.Contains(t, validationErr.Message, "does not match file address")
}

func TestWriteOutflowsChecksEventSums(t *testing.T) {
	fs := setup(t)
	distributor := common.HexToAddress(testDistributor)

	t.Run("total equal to the event sum is accepted", func(t *testing.T) {
		doc := types.NewOutflowSeries(42161, distributor)
		doc.Outflows.Set("2023-03-15", &types.OutflowEntry{
			BlockNumber:     70000000,
			TotalOutflowWei: "1000",
			Events: []*types.OutflowEvent{
				{Recipient: testRecipient, ValueWei: "600", TxHash: testTxHash},
				{Recipient: testRecipient, ValueWei: "400", TxHash: testTxHash},
			},
		})

		err := fs.WriteOutflows(distributor, doc)
		assert.NoError(t, err)

		read, err := fs.ReadOutflows(distributor)
		assert.NoError(t, err)
		entry, ok := read.Outflows.Get("2023-03-15")
		assert.True(t, ok)
		assert.Equal(t, "1000", entry.TotalOutflowWei)
		assert.Len(t, entry.Events, 2)
	})

	t.Run("total that disagrees with the event sum is rejected", func(t *testing.T) {
		doc := types.NewOutflowSeries(42161, distributor)
		doc.Outflows.Set("2023-03-15", &types.OutflowEntry{
			BlockNumber:     70000000,
			TotalOutflowWei: "999",
			Events: []*types.OutflowEvent{
				{Recipient: testRecipient, ValueWei: "600", TxHash: testTxHash},
				{Recipient: testRecipient, ValueWei: "400", TxHash: testTxHash},
			},
		})

		err := fs.WriteOutflows(distributor, doc)
		assert.Error(t, err)
		var mismatchErr *WeiMismatchError
		assert.ErrorAs(t, err, &mismatchErr)
		assert.EqualError(t, err, "wei amount mismatch:\n  Field: total_outflow_wei\n  Date: 2023-03-15\n  Value: 999\n  Expected: 1000")
	})

	t.Run("empty event list requires a zero total", func(t *testing.T) {
		doc := types.NewOutflowSeries(42161, distributor)
		doc.Outflows.Set("2023-03-16", &types.OutflowEntry{
			BlockNumber:     70000100,
			TotalOutflowWei: "0",
			Events:          []*types.OutflowEvent{},
		})

		err := fs.WriteOutflows(distributor, doc)
		assert.NoError(t, err)
	})
}
