// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpcclient implements the Zcash node JSON-RPC client the
// wallet engine consumes: single and batched calls with a bounded
// fan-out, ordered fallback endpoints, and retry with exponential
// backoff.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/decred/dcrd/lru"
)

const (
	// DefaultBatchSize is the number of requests packed into one
	// JSON-RPC batch, and also the block-fetch fan-out.
	DefaultBatchSize = 25

	// singleTimeout and batchTimeout bound individual and batched
	// requests.
	singleTimeout = 30 * time.Second
	batchTimeout  = 120 * time.Second

	// maxRetriesPerEndpoint bounds backoff retries before moving to the
	// next fallback endpoint.
	maxRetriesPerEndpoint = 2

	// sentTxCacheLimit sizes the LRU of recently broadcast raw
	// transactions; a repeat sendrawtransaction is logged, not skipped.
	sentTxCacheLimit = 1024
)

var (
	// ErrNoEndpoints is returned when the client has no configured
	// endpoint.
	ErrNoEndpoints = errors.New("rpcclient: no endpoints configured")

	// ErrAllEndpointsFailed is returned when the primary and every
	// fallback endpoint failed.
	ErrAllEndpointsFailed = errors.New("rpcclient: all endpoints failed")
)

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Config configures a Client.
type Config struct {
	// Endpoints is the primary node URL followed by ordered fallbacks.
	Endpoints []string

	// User and Password are HTTP basic-auth credentials.
	User     string
	Password string

	// BatchSize is the JSON-RPC batch size and fetch fan-out. Zero
	// selects DefaultBatchSize.
	BatchSize int
}

// Client is a Zcash JSON-RPC client. Safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	nextID     atomic.Uint64
	sentTxs    lru.Cache
}

// New builds a client with a connection pool sized for the fan-out.
func New(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.BatchSize * 2,
		MaxIdleConnsPerHost: cfg.BatchSize * 2,
		IdleConnTimeout:     60 * time.Second,
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		sentTxs:    lru.NewCache(sentTxCacheLimit),
	}, nil
}

// BatchSize returns the configured fan-out.
func (c *Client) BatchSize() int {
	return c.cfg.BatchSize
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Call performs one JSON-RPC request, walking the endpoint list with
// per-endpoint backoff. The result is unmarshalled into result when
// non-nil.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := &rpcRequest{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	if params == nil {
		req.Params = []interface{}{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	raw, err := c.post(ctx, body, singleTimeout)
	if err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("rpcclient: decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("rpcclient: decode %s result: %w", method, err)
		}
	}
	return nil
}

// batchRequest is one entry of a batch call.
type batchRequest struct {
	Method string
	Params []interface{}
}

// BatchCall performs one JSON-RPC batch. Results are returned in
// request order as raw messages; a per-entry node error yields a nil
// entry and is reported in errs. A transport-level batch failure falls
// back to parallel single calls.
func (c *Client) BatchCall(ctx context.Context, reqs []batchRequest) ([]json.RawMessage, []error, error) {
	if len(reqs) == 0 {
		return nil, nil, nil
	}

	wire := make([]*rpcRequest, len(reqs))
	baseID := c.nextID.Add(uint64(len(reqs))) - uint64(len(reqs)) + 1
	for i, r := range reqs {
		params := r.Params
		if params == nil {
			params = []interface{}{}
		}
		wire[i] = &rpcRequest{JSONRPC: "1.0", ID: baseID + uint64(i), Method: r.Method, Params: params}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, nil, err
	}

	raw, err := c.post(ctx, body, batchTimeout)
	if err != nil {
		log.Debugf("Batch of %d failed (%v), falling back to singletons", len(reqs), err)
		return c.batchFallback(ctx, reqs)
	}

	var resps []rpcResponse
	if err := json.Unmarshal(raw, &resps); err != nil {
		log.Debugf("Batch decode failed (%v), falling back to singletons", err)
		return c.batchFallback(ctx, reqs)
	}

	byID := make(map[uint64]*rpcResponse, len(resps))
	for i := range resps {
		byID[resps[i].ID] = &resps[i]
	}

	results := make([]json.RawMessage, len(reqs))
	errs := make([]error, len(reqs))
	for i := range reqs {
		resp, ok := byID[baseID+uint64(i)]
		switch {
		case !ok:
			errs[i] = fmt.Errorf("rpcclient: missing batch response for %s", reqs[i].Method)
		case resp.Error != nil:
			errs[i] = resp.Error
		default:
			results[i] = resp.Result
		}
	}
	return results, errs, nil
}

// batchFallback retries a failed batch as parallel singleton calls.
func (c *Client) batchFallback(ctx context.Context, reqs []batchRequest) ([]json.RawMessage, []error, error) {
	results := make([]json.RawMessage, len(reqs))
	errs := make([]error, len(reqs))

	sem := make(chan struct{}, c.cfg.BatchSize)
	done := make(chan int, len(reqs))
	for i := range reqs {
		go func(i int) {
			sem <- struct{}{}
			defer func() { <-sem }()

			var result json.RawMessage
			err := c.Call(ctx, reqs[i].Method, reqs[i].Params, &result)
			if err != nil {
				errs[i] = err
			} else {
				results[i] = result
			}
			done <- i
		}(i)
	}
	for range reqs {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	return results, errs, nil
}

// post sends the payload to the first endpoint that accepts it,
// retrying transient failures with exponential backoff before moving
// down the fallback list.
func (c *Client) post(ctx context.Context, body []byte, timeout time.Duration) ([]byte, error) {
	var lastErr error
	for _, endpoint := range c.cfg.Endpoints {
		raw, err := c.postOnce(ctx, endpoint, body, timeout)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnf("Endpoint %s failed: %v", endpoint, err)
	}
	return nil, fmt.Errorf("%w: %v", ErrAllEndpointsFailed, lastErr)
}

func (c *Client) postOnce(ctx context.Context, endpoint string, body []byte, timeout time.Duration) ([]byte, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetriesPerEndpoint), ctx)

	var raw []byte
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.cfg.User != "" {
			httpReq.SetBasicAuth(c.cfg.User, c.cfg.Password)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return backoff.Permanent(fmt.Errorf("rpcclient: http status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("rpcclient: http status %d", resp.StatusCode)
		}

		raw, err = io.ReadAll(resp.Body)
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return raw, nil
}
