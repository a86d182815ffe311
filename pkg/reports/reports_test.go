package reports

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

func buildRegistry() *types.DistributorRegistry {
	registry := types.NewDistributorRegistry(42161, config.ArbOwnerAddress)
	registry.Metadata.LastScannedBlock = 155

	registry.Distributors.Set("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", &types.DistributorRecord{
		Type:                types.DistributorType_L2BaseFee,
		Block:               152,
		Date:                "2022-07-12",
		TxHash:              "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b",
		Method:              config.MethodSetInfraFeeAccount,
		Owner:               common.HexToAddress("0x912cE59144191C1204E64559FE8253a0e49E6548").Hex(),
		EventData:           "0x57f585db",
		IsRewardDistributor: true,
		DistributorAddress:  "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	})
	registry.Distributors.Set("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", &types.DistributorRecord{
		Type:                types.DistributorType_L1SurplusFee,
		Block:               42,
		Date:                "2022-07-11",
		TxHash:              "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b",
		Method:              config.MethodSetL1PricingRewardRecipient,
		Owner:               common.HexToAddress("0x912cE59144191C1204E64559FE8253a0e49E6548").Hex(),
		EventData:           "0x934be07d",
		IsRewardDistributor: false,
		DistributorAddress:  "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	})
	return registry
}

func TestBuildDistributorRows(t *testing.T) {
	rows := BuildDistributorRows(buildRegistry())

	assert.Len(t, rows, 2)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", rows[0].Address, "Rows come out in registry order")
	assert.Equal(t, "L2_BASE_FEE", rows[0].Type)
	assert.Equal(t, uint64(152), rows[0].DiscoveryBlock)
	assert.Equal(t, "2022-07-12", rows[0].DiscoveryDate)
	assert.True(t, rows[0].IsRewardDistributor)

	assert.Equal(t, "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", rows[1].Address)
	assert.Equal(t, "L1_SURPLUS_FEE", rows[1].Type)
	assert.False(t, rows[1].IsRewardDistributor)
}

func TestBuildDistributorRowsEmptyRegistry(t *testing.T) {
	registry := types.NewDistributorRegistry(42161, config.ArbOwnerAddress)

	rows := BuildDistributorRows(registry)
	assert.Empty(t, rows)
}

func TestWriteCSV(t *testing.T) {
	rows := BuildDistributorRows(buildRegistry())

	var out bytes.Buffer
	err := WriteCSV(rows, &out)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3, "A header line plus one line per distributor")
	assert.Equal(t, "address,type,discovery_block,discovery_date,tx_hash,method,is_reward_distributor", lines[0])
	assert.Contains(t, lines[1], "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	assert.Contains(t, lines[1], "L2_BASE_FEE")
	assert.Contains(t, lines[1], "152")
	assert.Contains(t, lines[1], "true")
	assert.Contains(t, lines[2], "L1_SURPLUS_FEE")
	assert.Contains(t, lines[2], "false")
}
