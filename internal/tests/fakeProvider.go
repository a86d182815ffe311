package tests

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
)

// FakeProvider is a scripted ethereum.Provider. Tests load it with blocks,
// logs, bytecode and balances, then assert on the calls it served; the
// call log is what lets idempotency tests prove an operation made zero
// RPC requests.
type FakeProvider struct {
	ChainIdValue uint64
	HeadBlock    uint64
	Blocks       map[uint64]*ethereum.EthereumBlock
	Logs         []*ethereum.EthereumEventLog
	Code         map[common.Address]string
	Balances     map[string]string
	Errs         map[string]error

	Calls         []string
	GetLogsRanges [][2]uint64
}

var _ ethereum.Provider = (*FakeProvider)(nil)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		ChainIdValue: config.ChainIds[config.Chain_ArbitrumOne],
		Blocks:       make(map[uint64]*ethereum.EthereumBlock),
		Code:         make(map[common.Address]string),
		Balances:     make(map[string]string),
		Errs:         make(map[string]error),
	}
}

func (p *FakeProvider) record(call string) {
	p.Calls = append(p.Calls, call)
}

// CallCount counts served calls whose description starts with method,
// e.g. CallCount("getLogs").
func (p *FakeProvider) CallCount(method string) int {
	n := 0
	for _, c := range p.Calls {
		if strings.HasPrefix(c, method) {
			n++
		}
	}
	return n
}

func (p *FakeProvider) GetBlockNumber(ctx context.Context) (uint64, error) {
	p.record("getBlockNumber")
	if err := p.Errs["getBlockNumber"]; err != nil {
		return 0, err
	}
	return p.HeadBlock, nil
}

func (p *FakeProvider) GetBlockByNumber(ctx context.Context, blockNumber uint64) (*ethereum.EthereumBlock, error) {
	p.record(fmt.Sprintf("getBlockByNumber(%d)", blockNumber))
	if err := p.Errs["getBlockByNumber"]; err != nil {
		return nil, err
	}
	return p.Blocks[blockNumber], nil
}

func (p *FakeProvider) GetLogs(ctx context.Context, fromBlock uint64, toBlock uint64, address common.Address, topics []common.Hash) ([]*ethereum.EthereumEventLog, error) {
	p.record(fmt.Sprintf("getLogs(%d,%d)", fromBlock, toBlock))
	p.GetLogsRanges = append(p.GetLogsRanges, [2]uint64{fromBlock, toBlock})
	if err := p.Errs["getLogs"]; err != nil {
		return nil, err
	}

	matched := make([]*ethereum.EthereumEventLog, 0)
	for _, log := range p.Logs {
		blockNumber := log.BlockNumber.Value()
		if blockNumber < fromBlock || blockNumber > toBlock {
			continue
		}
		if !strings.EqualFold(log.Address.Value(), address.Hex()) {
			continue
		}
		if len(topics) > 0 {
			if len(log.Topics) == 0 || !strings.EqualFold(log.Topics[0].Value(), topics[0].Hex()) {
				continue
			}
		}
		matched = append(matched, log)
	}
	return matched, nil
}

func (p *FakeProvider) GetCode(ctx context.Context, address common.Address) (string, error) {
	p.record(fmt.Sprintf("getCode(%s)", address.Hex()))
	if err := p.Errs["getCode"]; err != nil {
		return "", err
	}
	code, ok := p.Code[address]
	if !ok {
		return "0x", nil
	}
	return code, nil
}

func (p *FakeProvider) GetChainId(ctx context.Context) (uint64, error) {
	p.record("getChainId")
	if err := p.Errs["getChainId"]; err != nil {
		return 0, err
	}
	return p.ChainIdValue, nil
}

func (p *FakeProvider) GetBalance(ctx context.Context, address common.Address, blockNumber uint64) (string, error) {
	p.record(fmt.Sprintf("getBalance(%s,%d)", address.Hex(), blockNumber))
	if err := p.Errs["getBalance"]; err != nil {
		return "", err
	}
	balance, ok := p.Balances[BalanceKey(address, blockNumber)]
	if !ok {
		return "0", nil
	}
	return balance, nil
}

func BalanceKey(address common.Address, blockNumber uint64) string {
	return fmt.Sprintf("%s@%d", strings.ToLower(address.Hex()), blockNumber)
}

// AddBlock scripts a block with the given unix timestamp.
func (p *FakeProvider) AddBlock(blockNumber uint64, timestamp uint64) {
	p.Blocks[blockNumber] = &ethereum.EthereumBlock{
		Hash:      ethereum.EthereumHexString(fmt.Sprintf("0x%064x", blockNumber)),
		Number:    ethereum.EthereumQuantity(blockNumber),
		Timestamp: ethereum.EthereumQuantity(timestamp),
	}
}

// AddOwnerActsLog scripts an OwnerActs event: the data field carries the
// ABI-encoded calldata of the owner's call (selector then one padded
// address argument), exactly as the precompile emits it.
func (p *FakeProvider) AddOwnerActsLog(blockNumber uint64, logIndex uint64, txHash string, owner common.Address, selector string, distributor common.Address) {
	selectorBytes, err := hexutil.Decode(selector)
	if err != nil {
		panic(err)
	}
	payload := append(selectorBytes, common.LeftPadBytes(distributor.Bytes(), 32)...)
	p.Logs = append(p.Logs, &ethereum.EthereumEventLog{
		LogIndex:        ethereum.EthereumQuantity(logIndex),
		TransactionHash: ethereum.EthereumHexString(strings.ToLower(txHash)),
		BlockNumber:     ethereum.EthereumQuantity(blockNumber),
		Address:         ethereum.EthereumHexString(strings.ToLower(config.ArbOwnerAddress.Hex())),
		Data:            ethereum.EthereumHexString(EncodeABIBytes(payload)),
		Topics: []ethereum.EthereumHexString{
			ethereum.EthereumHexString(config.OwnerActsTopic0.Hex()),
			ethereum.EthereumHexString(hexutil.Encode(common.RightPadBytes(selectorBytes, 32))),
			ethereum.EthereumHexString(hexutil.Encode(common.LeftPadBytes(owner.Bytes(), 32))),
		},
	})
}

// AddRawOwnerActsLog scripts an OwnerActs event with a caller-supplied
// data field, for malformed-payload cases.
func (p *FakeProvider) AddRawOwnerActsLog(blockNumber uint64, logIndex uint64, txHash string, owner common.Address, dataHex string) {
	p.Logs = append(p.Logs, &ethereum.EthereumEventLog{
		LogIndex:        ethereum.EthereumQuantity(logIndex),
		TransactionHash: ethereum.EthereumHexString(strings.ToLower(txHash)),
		BlockNumber:     ethereum.EthereumQuantity(blockNumber),
		Address:         ethereum.EthereumHexString(strings.ToLower(config.ArbOwnerAddress.Hex())),
		Data:            ethereum.EthereumHexString(strings.ToLower(dataHex)),
		Topics: []ethereum.EthereumHexString{
			ethereum.EthereumHexString(config.OwnerActsTopic0.Hex()),
			ethereum.EthereumHexString(hexutil.Encode(common.RightPadBytes([]byte{0xde, 0xad, 0xbe, 0xef}, 32))),
			ethereum.EthereumHexString(hexutil.Encode(common.LeftPadBytes(owner.Bytes(), 32))),
		},
	})
}

// AddRecipientRecievedLog scripts a RewardDistributor payout event. Both
// arguments are unindexed, so the data field carries two words.
func (p *FakeProvider) AddRecipientRecievedLog(blockNumber uint64, logIndex uint64, txHash string, distributor common.Address, recipient common.Address, valueWei *big.Int) {
	data := append(common.LeftPadBytes(recipient.Bytes(), 32), common.LeftPadBytes(valueWei.Bytes(), 32)...)
	p.Logs = append(p.Logs, &ethereum.EthereumEventLog{
		LogIndex:        ethereum.EthereumQuantity(logIndex),
		TransactionHash: ethereum.EthereumHexString(strings.ToLower(txHash)),
		BlockNumber:     ethereum.EthereumQuantity(blockNumber),
		Address:         ethereum.EthereumHexString(strings.ToLower(distributor.Hex())),
		Data:            ethereum.EthereumHexString(hexutil.Encode(data)),
		Topics: []ethereum.EthereumHexString{
			ethereum.EthereumHexString(config.RecipientRecievedTopic0.Hex()),
		},
	})
}

// EncodeABIBytes wraps payload as a single ABI-encoded dynamic bytes
// argument: offset word, length word, payload right-padded to 32 bytes.
func EncodeABIBytes(payload []byte) string {
	data := make([]byte, 0, 64+(len(payload)+31)/32*32)
	data = append(data, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(payload))).Bytes(), 32)...)
	data = append(data, common.RightPadBytes(payload, (len(payload)+31)/32*32)...)
	return hexutil.Encode(data)
}
