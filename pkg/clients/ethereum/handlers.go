package ethereum

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types/numbers"
)

type ResponseParserFunc[T any] func(res json.RawMessage) (T, error)

type RequestResponseHandler[T any] struct {
	RequestMethod  *RequestMethod
	ResponseParser ResponseParserFunc[T]
}

var nullResult = []byte("null")

var (
	RPCMethod_blockNumber = &RequestResponseHandler[uint64]{
		RequestMethod: &RequestMethod{
			Name:    "eth_blockNumber",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (uint64, error) {
			return hexutil.DecodeUint64(strings.ReplaceAll(string(res), `"`, ""))
		},
	}
	RPCMethod_getBlockByNumber = &RequestResponseHandler[*EthereumBlock]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getBlockByNumber",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (*EthereumBlock, error) {
			// Nodes return a null result for blocks they do not have.
			if len(res) == 0 || bytes.Equal(res, nullResult) {
				return nil, nil
			}
			block := &EthereumBlock{}
			if err := json.Unmarshal(res, block); err != nil {
				return nil, err
			}
			return block, nil
		},
	}
	RPCMethod_getLogs = &RequestResponseHandler[[]*EthereumEventLog]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getLogs",
			Timeout: time.Second * 30,
		},
		ResponseParser: func(res json.RawMessage) ([]*EthereumEventLog, error) {
			logs := make([]*EthereumEventLog, 0)
			if len(res) == 0 || bytes.Equal(res, nullResult) {
				return logs, nil
			}
			if err := json.Unmarshal(res, &logs); err != nil {
				return nil, err
			}
			return logs, nil
		},
	}
	RPCMethod_getCode = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getCode",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (string, error) {
			return strings.ToLower(strings.ReplaceAll(string(res), `"`, "")), nil
		},
	}
	RPCMethod_chainId = &RequestResponseHandler[uint64]{
		RequestMethod: &RequestMethod{
			Name:    "eth_chainId",
			Timeout: time.Second * 5,
		},
		ResponseParser: func(res json.RawMessage) (uint64, error) {
			return hexutil.DecodeUint64(strings.ReplaceAll(string(res), `"`, ""))
		},
	}
	RPCMethod_getBalance = &RequestResponseHandler[string]{
		RequestMethod: &RequestMethod{
			Name:    "eth_getBalance",
			Timeout: time.Second * 5,
		},
		// Balances are uint256; parse into a decimal wei string instead of
		// a native integer.
		ResponseParser: func(res json.RawMessage) (string, error) {
			return numbers.HexToWei(strings.ReplaceAll(string(res), `"`, ""))
		},
	}
)

func GetBlockNumberRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_blockNumber.RequestMethod.Name,
		ID:      id,
	}
}

func GetBlockByNumberRequest(blockNumber uint64, id uint) *RPCRequest {
	hexBlockNumber := hexutil.EncodeUint64(blockNumber)
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getBlockByNumber.RequestMethod.Name,
		Params:  []interface{}{hexBlockNumber, false},
		ID:      id,
	}
}

// GetLogsFilter is the single object parameter of eth_getLogs. Topics are
// positional: entry i constrains topic i of every matched log.
type GetLogsFilter struct {
	FromBlock string   `json:"fromBlock"`
	ToBlock   string   `json:"toBlock"`
	Address   string   `json:"address,omitempty"`
	Topics    []string `json:"topics,omitempty"`
}

func GetLogsRequest(fromBlock uint64, toBlock uint64, address string, topics []string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getLogs.RequestMethod.Name,
		Params: []interface{}{&GetLogsFilter{
			FromBlock: hexutil.EncodeUint64(fromBlock),
			ToBlock:   hexutil.EncodeUint64(toBlock),
			Address:   address,
			Topics:    topics,
		}},
		ID: id,
	}
}

func GetCodeRequest(address string, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getCode.RequestMethod.Name,
		Params:  []interface{}{address, "latest"},
		ID:      id,
	}
}

func GetChainIdRequest(id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_chainId.RequestMethod.Name,
		ID:      id,
	}
}

func GetBalanceRequest(address string, blockNumber uint64, id uint) *RPCRequest {
	return &RPCRequest{
		JSONRPC: jsonRPCVersion,
		Method:  RPCMethod_getBalance.RequestMethod.Name,
		Params:  []interface{}{address, hexutil.EncodeUint64(blockNumber)},
		ID:      id,
	}
}
