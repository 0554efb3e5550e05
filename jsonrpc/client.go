package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

// Compile-time interface check.
var _ ledgerd.Node = (*Client)(nil)

// Client implements ledgerd.Node against a JSON-RPC server. Remote
// errors are rebuilt into the ledgerd error types.
type Client struct {
	url  string
	http *http.Client
	seq  atomic.Uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// NewClient creates a client for the server at url. A bare host:port
// is taken as http://host:port/rpc.
func NewClient(url string, opts ...ClientOption) *Client {
	if !strings.Contains(url, "://") {
		url = "http://" + url + "/rpc"
	}
	c := &Client{url: url, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type clientResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Method  string `json:"method"`
		Params  any    `json:"params"`
	}{version, c.seq.Add(1), method, params})
	if err != nil {
		return fmt.Errorf("jsonrpc: encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("jsonrpc: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("jsonrpc: %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jsonrpc: %s: http status %s", method, resp.Status)
	}

	var out clientResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("jsonrpc: decode %s response: %w", method, err)
	}
	if out.Error != nil {
		return errorFrom(out.Error)
	}
	if err := json.Unmarshal(out.Result, result); err != nil {
		return fmt.Errorf("jsonrpc: decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) NewAccount(ctx context.Context) (types.NewAccountResult, error) {
	var res types.NewAccountResult
	err := c.call(ctx, MethodNewAccount, struct{}{}, &res)
	return res, err
}

func (c *Client) CallFunction(ctx context.Context, req types.CallFunctionParams) (types.CallFunctionResult, error) {
	if req.Args == nil {
		req.Args = []string{}
	}
	var res types.CallFunctionResult
	if err := c.call(ctx, MethodCallFunction, req, &res); err != nil {
		return types.CallFunctionResult{}, err
	}
	return res, nil
}

func (c *Client) CallMethod(ctx context.Context, req types.CallMethodParams) ([]string, error) {
	if req.Args == nil {
		req.Args = []string{}
	}
	out := []string{}
	if err := c.call(ctx, MethodCallMethod, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBalance(ctx context.Context, req types.GetBalanceParams) (types.Balances, error) {
	var res types.Balances
	if err := c.call(ctx, MethodGetBalance, req, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Status(ctx context.Context) (types.NodeStatus, error) {
	var res types.NodeStatus
	err := c.call(ctx, MethodGetStatus, struct{}{}, &res)
	return res, err
}

// Health calls health_check.
func (c *Client) Health(ctx context.Context) error {
	var res map[string]string
	if err := c.call(ctx, MethodHealthCheck, struct{}{}, &res); err != nil {
		return err
	}
	if res["status"] != "ok" {
		return fmt.Errorf("jsonrpc: unhealthy: %v", res)
	}
	return nil
}
