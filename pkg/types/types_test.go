package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func Test_DistributorTypes(t *testing.T) {
	t.Run("all documented types are valid", func(t *testing.T) {
		for _, dt := range AllDistributorTypes() {
			assert.True(t, dt.IsValid(), "expected %s to be valid", dt)
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		assert.False(t, DistributorType("L3_FEE").IsValid())
		assert.False(t, DistributorType("").IsValid())
	})
}

func Test_BlockNumberIndex(t *testing.T) {
	t.Run("empty index has no last date", func(t *testing.T) {
		index := NewBlockNumberIndex(42161)

		assert.Equal(t, uint64(42161), index.Metadata.ChainId)
		assert.Equal(t, "", index.LastIndexedDate())
	})

	t.Run("last indexed date is the newest entry", func(t *testing.T) {
		index := NewBlockNumberIndex(42161)
		index.Blocks.Set("2023-01-01", 5)
		index.Blocks.Set("2023-01-02", 10)

		assert.Equal(t, "2023-01-02", index.LastIndexedDate())
	})
}

func Test_NewDistributorRegistry(t *testing.T) {
	arbOwner := common.HexToAddress("0x0000000000000000000000000000000000000070")
	registry := NewDistributorRegistry(42161, arbOwner)

	assert.Equal(t, uint64(42161), registry.Metadata.ChainId)
	assert.Equal(t, "0x0000000000000000000000000000000000000070", registry.Metadata.ArbOwnerAddress)
	assert.Equal(t, uint64(0), registry.Metadata.LastScannedBlock)
	assert.Equal(t, 0, registry.Distributors.Len())
}

func Test_NewSeries(t *testing.T) {
	// Metadata carries the checksummed form regardless of input casing.
	distributor := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")

	balances := NewBalanceSeries(42161, distributor)
	assert.Equal(t, uint64(42161), balances.Metadata.ChainId)
	assert.Equal(t, testDistributor, balances.Metadata.DistributorAddress)
	assert.Equal(t, 0, balances.Balances.Len())

	outflows := NewOutflowSeries(42161, distributor)
	assert.Equal(t, testDistributor, outflows.Metadata.DistributorAddress)
	assert.Equal(t, 0, outflows.Outflows.Len())
}
