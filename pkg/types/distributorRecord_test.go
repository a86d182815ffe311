package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testDistributor = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testOwner       = "0x912cE59144191C1204E64559FE8253a0e49E6548"
	testTxHash      = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"
)

func testRecord() *DistributorRecord {
	return &DistributorRecord{
		Type:                DistributorType_L2BaseFee,
		Block:               152,
		Date:                "2022-07-12",
		TxHash:              testTxHash,
		Method:              "0x57f585db",
		Owner:               testOwner,
		EventData:           "0xdeadbeef",
		IsRewardDistributor: true,
		DistributorAddress:  testDistributor,
	}
}

func Test_DistributorRecordMarshal(t *testing.T) {
	t.Run("fields come out in document order", func(t *testing.T) {
		data, err := json.Marshal(testRecord())
		assert.Nil(t, err)

		expected := `{"type":"L2_BASE_FEE","block":152,"date":"2022-07-12","tx_hash":"` + testTxHash + `","method":"0x57f585db","owner":"` + testOwner + `","event_data":"0xdeadbeef","is_reward_distributor":true,"distributor_address":"` + testDistributor + `"}`
		assert.Equal(t, expected, string(data))
	})

	t.Run("round trips", func(t *testing.T) {
		record := testRecord()

		data, err := json.Marshal(record)
		assert.Nil(t, err)

		decoded := &DistributorRecord{}
		err = json.Unmarshal(data, decoded)
		assert.Nil(t, err)
		assert.Equal(t, record, decoded)
		assert.Equal(t, 0, decoded.ExtraFieldCount())
	})

	t.Run("unrecognized fields survive a round trip", func(t *testing.T) {
		raw := `{"type":"L2_BASE_FEE","block":152,"display_name":"infra fees","date":"2022-07-12","tx_hash":"` + testTxHash + `","method":"0x57f585db","owner":"` + testOwner + `","event_data":"0xdeadbeef","is_reward_distributor":true,"distributor_address":"` + testDistributor + `"}`

		record := &DistributorRecord{}
		err := json.Unmarshal([]byte(raw), record)
		assert.Nil(t, err)
		assert.Equal(t, uint64(152), record.Block)
		assert.Equal(t, 1, record.ExtraFieldCount())

		data, err := json.Marshal(record)
		assert.Nil(t, err)
		assert.Contains(t, string(data), `"display_name":"infra fees"`)

		// Known fields keep their canonical positions; extras move to the end.
		expected := `{"type":"L2_BASE_FEE","block":152,"date":"2022-07-12","tx_hash":"` + testTxHash + `","method":"0x57f585db","owner":"` + testOwner + `","event_data":"0xdeadbeef","is_reward_distributor":true,"distributor_address":"` + testDistributor + `","display_name":"infra fees"}`
		assert.Equal(t, expected, string(data))
	})

	t.Run("rejects malformed field values", func(t *testing.T) {
		record := &DistributorRecord{}
		err := json.Unmarshal([]byte(`{"block":"not a number"}`), record)
		assert.NotNil(t, err)
	})
}
