package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrMissingRPCURL indicates the client was configured without an endpoint.
var ErrMissingRPCURL = errors.New("ledger: rpc url is required")

// Options configures the token-ledger JSON-RPC client.
type Options struct {
	RPCURL         string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// Client performs JSON-RPC calls against the token ledger node. It only ever
// reads receipts and submits transfers; it never mutates ledger state directly.
type Client struct {
	rpcURL     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.RPCURL) == "" {
		return nil, ErrMissingRPCURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		rpcURL:     strings.TrimRight(opts.RPCURL, "/"),
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return fmt.Errorf("ledger: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ledger: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("ledger: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ledger: %s: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("ledger: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("ledger: %s: %w", method, rpcResp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("ledger: decode result: %w", err)
		}
	}
	return nil
}

// Receipt is the ledger's transaction receipt, the engine's only read surface.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	BlockNumber     string `json:"blockNumber"`
	Logs            []Log  `json:"logs"`
}

// Log is one event emitted by a transaction.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return parseHexUint(r.Status) == 1
}

// Block returns the receipt's block height.
func (r *Receipt) Block() uint64 {
	return parseHexUint(r.BlockNumber)
}

// TransactionReceipt fetches the receipt for a transaction reference. A nil
// receipt with nil error means the transaction is unknown or not yet mined.
func (c *Client) TransactionReceipt(ctx context.Context, ref string) (*Receipt, error) {
	var receipt *Receipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []any{ref}, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// SendTransaction submits a transaction from an account held by the custody
// node and returns its reference. The key never leaves the node.
func (c *Client) SendTransaction(ctx context.Context, from, to, data string) (string, error) {
	params := []any{map[string]string{
		"from": from,
		"to":   to,
		"data": data,
	}}
	var txHash string
	if err := c.call(ctx, "eth_sendTransaction", params, &txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// BlockNumber returns the current ledger head, used by health checks.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var hexHeight string
	if err := c.call(ctx, "eth_blockNumber", []any{}, &hexHeight); err != nil {
		return 0, err
	}
	return parseHexUint(hexHeight), nil
}

func parseHexUint(s string) uint64 {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return 0
	}
	return n.Uint64()
}
