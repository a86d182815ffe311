package types

import (
	"github.com/ethereum/go-ethereum/common"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DateFormat is the canonical date key format for every on-disk document.
const DateFormat = "2006-01-02"

// DistributorType categorizes where a fee distributor's funds come from.
type DistributorType string

const (
	DistributorType_L2BaseFee    DistributorType = "L2_BASE_FEE"
	DistributorType_L2SurplusFee DistributorType = "L2_SURPLUS_FEE"
	DistributorType_L1BaseFee    DistributorType = "L1_BASE_FEE"
	DistributorType_L1SurplusFee DistributorType = "L1_SURPLUS_FEE"
)

// AllDistributorTypes returns every valid distributor category, in the
// order they are documented.
func AllDistributorTypes() []DistributorType {
	return []DistributorType{
		DistributorType_L2BaseFee,
		DistributorType_L2SurplusFee,
		DistributorType_L1BaseFee,
		DistributorType_L1SurplusFee,
	}
}

func (t DistributorType) IsValid() bool {
	switch t {
	case DistributorType_L2BaseFee, DistributorType_L2SurplusFee, DistributorType_L1BaseFee, DistributorType_L1SurplusFee:
		return true
	}
	return false
}

// BlockNumberIndex maps UTC dates to the last block of that day.
type BlockNumberIndex struct {
	Metadata BlockNumberMetadata                    `json:"metadata"`
	Blocks   *orderedmap.OrderedMap[string, uint64] `json:"blocks"`
}

type BlockNumberMetadata struct {
	ChainId uint64 `json:"chain_id"`
}

func NewBlockNumberIndex(chainId uint64) *BlockNumberIndex {
	return &BlockNumberIndex{
		Metadata: BlockNumberMetadata{ChainId: chainId},
		Blocks:   orderedmap.New[string, uint64](),
	}
}

// LastIndexedDate returns the newest date key, or "" for an empty index.
// Dates are appended in chronological order, so the newest is the last.
func (b *BlockNumberIndex) LastIndexedDate() string {
	newest := b.Blocks.Newest()
	if newest == nil {
		return ""
	}
	return newest.Key
}

// DistributorRegistry is the append-only set of discovered fee
// distributors, keyed by EIP-55 checksummed address.
type DistributorRegistry struct {
	Metadata     RegistryMetadata                                   `json:"metadata"`
	Distributors *orderedmap.OrderedMap[string, *DistributorRecord] `json:"distributors"`
}

type RegistryMetadata struct {
	ChainId          uint64 `json:"chain_id"`
	ArbOwnerAddress  string `json:"arbowner_address"`
	LastScannedBlock uint64 `json:"last_scanned_block"`
}

func NewDistributorRegistry(chainId uint64, arbOwner common.Address) *DistributorRegistry {
	return &DistributorRegistry{
		Metadata: RegistryMetadata{
			ChainId:          chainId,
			ArbOwnerAddress:  arbOwner.Hex(),
			LastScannedBlock: 0,
		},
		Distributors: orderedmap.New[string, *DistributorRecord](),
	}
}

// SeriesMetadata heads the per-distributor balance and outflow files.
type SeriesMetadata struct {
	ChainId            uint64 `json:"chain_id"`
	DistributorAddress string `json:"distributor_address"`
}

// BalanceSeries records a distributor's balance at each date's closing
// block.
type BalanceSeries struct {
	Metadata SeriesMetadata                                `json:"metadata"`
	Balances *orderedmap.OrderedMap[string, *BalanceEntry] `json:"balances"`
}

type BalanceEntry struct {
	BlockNumber uint64 `json:"block_number"`
	BalanceWei  string `json:"balance_wei"`
}

func NewBalanceSeries(chainId uint64, distributor common.Address) *BalanceSeries {
	return &BalanceSeries{
		Metadata: SeriesMetadata{
			ChainId:            chainId,
			DistributorAddress: distributor.Hex(),
		},
		Balances: orderedmap.New[string, *BalanceEntry](),
	}
}

// OutflowSeries records the value a reward distributor paid out per date,
// with the individual distribution events.
type OutflowSeries struct {
	Metadata SeriesMetadata                                `json:"metadata"`
	Outflows *orderedmap.OrderedMap[string, *OutflowEntry] `json:"outflows"`
}

type OutflowEntry struct {
	BlockNumber     uint64          `json:"block_number"`
	TotalOutflowWei string          `json:"total_outflow_wei"`
	Events          []*OutflowEvent `json:"events"`
}

type OutflowEvent struct {
	Recipient string `json:"recipient"`
	ValueWei  string `json:"value_wei"`
	TxHash    string `json:"tx_hash"`
}

func NewOutflowSeries(chainId uint64, distributor common.Address) *OutflowSeries {
	return &OutflowSeries{
		Metadata: SeriesMetadata{
			ChainId:            chainId,
			DistributorAddress: distributor.Hex(),
		},
		Outflows: orderedmap.New[string, *OutflowEntry](),
	}
}
