package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type RequestMethod struct {
	Name    string
	Timeout time.Duration
}

type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint   `json:"id"`
}

type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint           `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

var jsonRPCVersion = "2.0"

// Provider is the set of node capabilities the trackers consume. The
// scanner and fetchers accept this interface so tests can script a node.
type Provider interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetBlockByNumber(ctx context.Context, blockNumber uint64) (*EthereumBlock, error)
	GetLogs(ctx context.Context, fromBlock uint64, toBlock uint64, address common.Address, topics []common.Hash) ([]*EthereumEventLog, error)
	GetCode(ctx context.Context, address common.Address) (string, error)
	GetChainId(ctx context.Context) (uint64, error)
	GetBalance(ctx context.Context, address common.Address, blockNumber uint64) (string, error)
}

type Client struct {
	Logger       *zap.Logger
	httpClient   *http.Client
	clientConfig *EthereumClientConfig
}

var _ Provider = (*Client)(nil)

type EthereumClientConfig struct {
	BaseUrl string
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	client := &http.Client{
		Timeout: time.Second * 30,
	}

	return &Client{
		httpClient:   client,
		Logger:       l,
		clientConfig: cfg,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetBlockNumberRequest(1))
	if err != nil {
		return 0, err
	}
	blockNumber, err := RPCMethod_blockNumber.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse block number",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return 0, err
	}
	return blockNumber, nil
}

// GetBlockByNumber returns nil with no error when the node does not have
// the block. Callers decide whether absence is fatal.
func (c *Client) GetBlockByNumber(ctx context.Context, blockNumber uint64) (*EthereumBlock, error) {
	res, err := c.Call(ctx, GetBlockByNumberRequest(blockNumber, 1))
	if err != nil {
		return nil, err
	}
	ethBlock, err := RPCMethod_getBlockByNumber.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse block",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return nil, err
	}
	return ethBlock, nil
}

func (c *Client) GetLogs(ctx context.Context, fromBlock uint64, toBlock uint64, address common.Address, topics []common.Hash) ([]*EthereumEventLog, error) {
	topicStrings := make([]string, 0, len(topics))
	for _, t := range topics {
		topicStrings = append(topicStrings, t.Hex())
	}

	res, err := c.Call(ctx, GetLogsRequest(fromBlock, toBlock, strings.ToLower(address.Hex()), topicStrings, 1))
	if err != nil {
		return nil, err
	}
	logs, err := RPCMethod_getLogs.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse logs",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return nil, err
	}
	return logs, nil
}

// GetCode fetches the runtime bytecode deployed at address, at the latest
// block.
func (c *Client) GetCode(ctx context.Context, address common.Address) (string, error) {
	res, err := c.Call(ctx, GetCodeRequest(strings.ToLower(address.Hex()), 1))
	if err != nil {
		return "", err
	}
	bytecode, err := RPCMethod_getCode.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to get contract bytecode",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return "", err
	}
	return bytecode, nil
}

func (c *Client) GetChainId(ctx context.Context) (uint64, error) {
	res, err := c.Call(ctx, GetChainIdRequest(1))
	if err != nil {
		return 0, err
	}
	chainId, err := RPCMethod_chainId.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse chain id",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return 0, err
	}
	return chainId, nil
}

// GetBalance returns the wei balance of address at the given block as a
// decimal string.
func (c *Client) GetBalance(ctx context.Context, address common.Address, blockNumber uint64) (string, error) {
	res, err := c.Call(ctx, GetBalanceRequest(strings.ToLower(address.Hex()), blockNumber, 1))
	if err != nil {
		return "", err
	}
	balance, err := RPCMethod_getBalance.ResponseParser(res.Result)
	if err != nil {
		c.Logger.Sugar().Errorw("failed to parse balance",
			zap.Error(err),
			zap.Any("raw response", res.Result),
		)
		return "", err
	}
	return balance, nil
}

// Call performs a single JSON-RPC request. There is deliberately no retry
// here: callers wrap RPC operations in the retry policy, which needs the
// transport error (including "429 Too Many Requests") verbatim.
func (c *Client) Call(ctx context.Context, rpcRequest *RPCRequest) (*RPCResponse, error) {
	requestBody, err := json.Marshal(rpcRequest)
	if err != nil {
		return nil, err
	}
	c.Logger.Sugar().Debugw("Request body", zap.String("requestBody", string(requestBody)))

	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.clientConfig.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("Failed to make request %s", err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("Request failed %s", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("Failed to read body %s", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received http error code %d %s", response.StatusCode, http.StatusText(response.StatusCode))
	}

	destination := &RPCResponse{}
	if err := json.Unmarshal(responseBody, destination); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %s", err)
	}

	if destination.Error != nil {
		return nil, fmt.Errorf("received error response: %+v", destination.Error)
	}

	return destination, nil
}
