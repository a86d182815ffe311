package fileStore

import (
	"fmt"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types/numbers"
)

// Block numbers above this are treated as corrupt input rather than data.
const maxBlockNumber = uint64(1_000_000_000)

var (
	weiPattern    = regexp.MustCompile(`^[0-9]+$`)
	txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	methodPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{8}$`)
	hexPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)
)

// ValidationError reports the first rule a document violated. Field is the
// JSON path of the offending value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// WeiMismatchError reports a declared total that disagrees with the exact
// sum of its per-event amounts.
type WeiMismatchError struct {
	Field    string
	Date     string
	Value    string
	Expected string
}

func (e *WeiMismatchError) Error() string {
	return fmt.Sprintf("wei amount mismatch:\n  Field: %s\n  Date: %s\n  Value: %s\n  Expected: %s",
		e.Field, e.Date, e.Value, e.Expected)
}

func validateDate(field string, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	parsed, err := time.Parse(types.DateFormat, value)
	if err != nil || parsed.Format(types.DateFormat) != value {
		return &ValidationError{Field: field, Message: fmt.Sprintf("'%s' is not a valid YYYY-MM-DD date", value)}
	}
	return nil
}

func validateBlockNumber(field string, value uint64) error {
	if value == 0 {
		return &ValidationError{Field: field, Message: "block number must be positive"}
	}
	if value > maxBlockNumber {
		return &ValidationError{Field: field, Message: fmt.Sprintf("block number %d exceeds maximum %d", value, maxBlockNumber)}
	}
	return nil
}

func validateAddress(field string, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !common.IsHexAddress(value) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("'%s' is not a valid address", value)}
	}
	checksummed := common.HexToAddress(value).Hex()
	if value != checksummed {
		return &ValidationError{Field: field, Message: fmt.Sprintf("address '%s' is not EIP-55 checksummed (expected '%s')", value, checksummed)}
	}
	return nil
}

func validateWei(field string, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !weiPattern.MatchString(value) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("'%s' is not a decimal wei amount", value)}
	}
	return nil
}

func validateTxHash(field string, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !txHashPattern.MatchString(value) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("'%s' is not a 32-byte transaction hash", value)}
	}
	return nil
}

func validateMethod(field string, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !methodPattern.MatchString(value) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("'%s' is not a 4-byte method selector", value)}
	}
	return nil
}

func validateHexData(field string, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if !hexPattern.MatchString(value) {
		return &ValidationError{Field: field, Message: fmt.Sprintf("'%s' is not 0x-prefixed hex data", value)}
	}
	return nil
}

func validateDistributorType(field string, value types.DistributorType) error {
	if !value.IsValid() {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of %v, got '%s'", types.AllDistributorTypes(), value),
		}
	}
	return nil
}

func validateChainId(field string, value uint64) error {
	if value == 0 {
		return &ValidationError{Field: field, Message: "chain id must be positive"}
	}
	return nil
}

func validateBlockNumberIndex(doc *types.BlockNumberIndex) error {
	if err := validateChainId("metadata.chain_id", doc.Metadata.ChainId); err != nil {
		return err
	}
	for pair := doc.Blocks.Oldest(); pair != nil; pair = pair.Next() {
		if err := validateDate(fmt.Sprintf("blocks['%s']", pair.Key), pair.Key); err != nil {
			return err
		}
		if err := validateBlockNumber(fmt.Sprintf("blocks['%s']", pair.Key), pair.Value); err != nil {
			return err
		}
	}
	return nil
}

func validateDistributorRegistry(doc *types.DistributorRegistry) error {
	if err := validateChainId("metadata.chain_id", doc.Metadata.ChainId); err != nil {
		return err
	}
	if err := validateAddress("metadata.arbowner_address", doc.Metadata.ArbOwnerAddress); err != nil {
		return err
	}
	// Zero is legal here: a registry that has never been scanned.
	if doc.Metadata.LastScannedBlock > maxBlockNumber {
		return &ValidationError{
			Field:   "metadata.last_scanned_block",
			Message: fmt.Sprintf("block number %d exceeds maximum %d", doc.Metadata.LastScannedBlock, maxBlockNumber),
		}
	}
	for pair := doc.Distributors.Oldest(); pair != nil; pair = pair.Next() {
		prefix := fmt.Sprintf("distributors['%s']", pair.Key)
		if err := validateAddress(prefix, pair.Key); err != nil {
			return err
		}
		if err := validateDistributorRecord(prefix, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

func validateDistributorRecord(prefix string, record *types.DistributorRecord) error {
	if record == nil {
		return &ValidationError{Field: prefix, Message: "is required"}
	}
	if err := validateDistributorType(prefix+".type", record.Type); err != nil {
		return err
	}
	if err := validateBlockNumber(prefix+".block", record.Block); err != nil {
		return err
	}
	if err := validateDate(prefix+".date", record.Date); err != nil {
		return err
	}
	if err := validateTxHash(prefix+".tx_hash", record.TxHash); err != nil {
		return err
	}
	if err := validateMethod(prefix+".method", record.Method); err != nil {
		return err
	}
	if err := validateAddress(prefix+".owner", record.Owner); err != nil {
		return err
	}
	if err := validateHexData(prefix+".event_data", record.EventData); err != nil {
		return err
	}
	if err := validateAddress(prefix+".distributor_address", record.DistributorAddress); err != nil {
		return err
	}
	return nil
}

func validateSeriesMetadata(distributor common.Address, metadata types.SeriesMetadata) error {
	if err := validateChainId("metadata.chain_id", metadata.ChainId); err != nil {
		return err
	}
	if err := validateAddress("metadata.distributor_address", metadata.DistributorAddress); err != nil {
		return err
	}
	if metadata.DistributorAddress != distributor.Hex() {
		return &ValidationError{
			Field:   "metadata.distributor_address",
			Message: fmt.Sprintf("'%s' does not match file address '%s'", metadata.DistributorAddress, distributor.Hex()),
		}
	}
	return nil
}

func validateBalanceSeries(distributor common.Address, doc *types.BalanceSeries) error {
	if err := validateSeriesMetadata(distributor, doc.Metadata); err != nil {
		return err
	}
	for pair := doc.Balances.Oldest(); pair != nil; pair = pair.Next() {
		prefix := fmt.Sprintf("balances['%s']", pair.Key)
		if err := validateDate(prefix, pair.Key); err != nil {
			return err
		}
		entry := pair.Value
		if entry == nil {
			return &ValidationError{Field: prefix, Message: "is required"}
		}
		if err := validateBlockNumber(prefix+".block_number", entry.BlockNumber); err != nil {
			return err
		}
		if err := validateWei(prefix+".balance_wei", entry.BalanceWei); err != nil {
			return err
		}
	}
	return nil
}

func validateOutflowSeries(distributor common.Address, doc *types.OutflowSeries) error {
	if err := validateSeriesMetadata(distributor, doc.Metadata); err != nil {
		return err
	}
	for pair := doc.Outflows.Oldest(); pair != nil; pair = pair.Next() {
		prefix := fmt.Sprintf("outflows['%s']", pair.Key)
		if err := validateDate(prefix, pair.Key); err != nil {
			return err
		}
		entry := pair.Value
		if entry == nil {
			return &ValidationError{Field: prefix, Message: "is required"}
		}
		if err := validateBlockNumber(prefix+".block_number", entry.BlockNumber); err != nil {
			return err
		}
		if err := validateWei(prefix+".total_outflow_wei", entry.TotalOutflowWei); err != nil {
			return err
		}

		eventValues := make([]string, 0, len(entry.Events))
		for i, event := range entry.Events {
			eventPrefix := fmt.Sprintf("%s.events[%d]", prefix, i)
			if event == nil {
				return &ValidationError{Field: eventPrefix, Message: "is required"}
			}
			if err := validateAddress(eventPrefix+".recipient", event.Recipient); err != nil {
				return err
			}
			if err := validateWei(eventPrefix+".value_wei", event.ValueWei); err != nil {
				return err
			}
			if err := validateTxHash(eventPrefix+".tx_hash", event.TxHash); err != nil {
				return err
			}
			eventValues = append(eventValues, event.ValueWei)
		}

		expected, err := numbers.SumWei(eventValues...)
		if err != nil {
			return &ValidationError{Field: prefix + ".events", Message: err.Error()}
		}
		equal, err := numbers.WeiEqual(entry.TotalOutflowWei, expected)
		if err != nil {
			return &ValidationError{Field: prefix + ".total_outflow_wei", Message: err.Error()}
		}
		if !equal {
			return &WeiMismatchError{
				Field:    "total_outflow_wei",
				Date:     pair.Key,
				Value:    entry.TotalOutflowWei,
				Expected: expected,
			}
		}
	}
	return nil
}
