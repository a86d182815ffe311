package reports

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

// DistributorRow is one registry entry flattened for a CSV report.
type DistributorRow struct {
	Address             string `csv:"address"`
	Type                string `csv:"type"`
	DiscoveryBlock      uint64 `csv:"discovery_block"`
	DiscoveryDate       string `csv:"discovery_date"`
	TxHash              string `csv:"tx_hash"`
	Method              string `csv:"method"`
	IsRewardDistributor bool   `csv:"is_reward_distributor"`
}

// BuildDistributorRows flattens the registry in its insertion order, which
// is discovery order for scanned entries.
func BuildDistributorRows(registry *types.DistributorRegistry) []*DistributorRow {
	rows := make([]*DistributorRow, 0, registry.Distributors.Len())
	for pair := registry.Distributors.Oldest(); pair != nil; pair = pair.Next() {
		record := pair.Value
		rows = append(rows, &DistributorRow{
			Address:             pair.Key,
			Type:                string(record.Type),
			DiscoveryBlock:      record.Block,
			DiscoveryDate:       record.Date,
			TxHash:              record.TxHash,
			Method:              record.Method,
			IsRewardDistributor: record.IsRewardDistributor,
		})
	}
	return rows
}

// WriteCSV renders rows with a header line.
func WriteCSV(rows []*DistributorRow, out io.Writer) error {
	if err := gocsv.Marshal(&rows, out); err != nil {
		return errors.Wrap(err, "failed to write csv report")
	}
	return nil
}
