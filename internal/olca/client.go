package olca

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rshade/lcaprommis/internal/logging"
)

const (
	// DefaultEndpoint is where the openLCA IPC server listens by default.
	DefaultEndpoint = "http://localhost:8080"

	defaultTimeout      = 60 * time.Second
	defaultPollInterval = 250 * time.Millisecond
	maxErrorBodyBytes   = 4096
)

// rpcRequest is a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Client talks to an openLCA IPC server over HTTP. It is safe for concurrent
// use, but the server itself serializes calculations.
type Client struct {
	endpoint     string
	http         *http.Client
	pollInterval time.Duration
	nextID       atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithPollInterval sets how often WaitUntilReady asks for the result state.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewClient creates a client for the IPC server at endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	c := &Client{
		endpoint:     strings.TrimRight(endpoint, "/"),
		http:         &http.Client{Timeout: defaultTimeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the server URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// call performs one JSON-RPC round trip and decodes the result into out
// (skipped when out is nil). It reports whether the result was JSON null.
func (c *Client) call(ctx context.Context, method string, params, out any) (bool, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("encoding %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("building %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("calling %s at %s: %w", method, c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return false, fmt.Errorf("calling %s: HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return false, fmt.Errorf("decoding %s response: %w", method, err)
	}

	log.Debug().
		Str("component", "olca").
		Str("method", method).
		Int64("request_id", req.ID).
		Dur("duration", time.Since(start)).
		Msg("IPC call")

	if rpcResp.Error != nil {
		rpcResp.Error.Method = method
		return false, rpcResp.Error
	}

	isNull := len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null"
	if out == nil || isNull {
		return isNull, nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return false, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return false, nil
}

// Get loads the entity of the given type and id into out.
func (c *Client) Get(ctx context.Context, typ EntityType, id string, out any) error {
	isNull, err := c.call(ctx, "data/get", Ref{Type: typ, ID: id}, out)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && strings.Contains(strings.ToLower(rpcErr.Message), "not found") {
			return fmt.Errorf("%w (%s)", NotFoundError(typ, id), rpcErr.Message)
		}
		return err
	}
	if isNull {
		return NotFoundError(typ, id)
	}
	return nil
}

// GetFlow is a typed shortcut for Get.
func (c *Client) GetFlow(ctx context.Context, id string) (*Flow, error) {
	var f Flow
	if err := c.Get(ctx, TypeFlow, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetProcess is a typed shortcut for Get.
func (c *Client) GetProcess(ctx context.Context, id string) (*Process, error) {
	var p Process
	if err := c.Get(ctx, TypeProcess, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProductSystem is a typed shortcut for Get.
func (c *Client) GetProductSystem(ctx context.Context, id string) (*ProductSystem, error) {
	var ps ProductSystem
	if err := c.Get(ctx, TypeProductSystem, id, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

// GetUnitGroup is a typed shortcut for Get.
func (c *Client) GetUnitGroup(ctx context.Context, id string) (*UnitGroup, error) {
	var g UnitGroup
	if err := c.Get(ctx, TypeUnitGroup, id, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetDescriptors lists references to all entities of a type.
func (c *Client) GetDescriptors(ctx context.Context, typ EntityType) ([]Ref, error) {
	var refs []Ref
	if _, err := c.call(ctx, "data/get/descriptors", Ref{Type: typ}, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// GetAll loads all entities of a type into out, which must be a pointer to
// a slice.
func (c *Client) GetAll(ctx context.Context, typ EntityType, out any) error {
	_, err := c.call(ctx, "data/get/all", Ref{Type: typ}, out)
	return err
}

// Put inserts or updates an entity and returns its reference.
func (c *Client) Put(ctx context.Context, entity any) (*Ref, error) {
	var ref Ref
	if _, err := c.call(ctx, "data/put", entity, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetProviders lists the providers of a flow; with a nil flow every
// technosphere flow of the database is returned.
func (c *Client) GetProviders(ctx context.Context, flow *Ref) ([]TechFlow, error) {
	var params any
	if flow != nil {
		params = flow
	}
	var flows []TechFlow
	if _, err := c.call(ctx, "data/get/providers", params, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

// Calculate schedules a calculation.
func (c *Client) Calculate(ctx context.Context, setup CalculationSetup) (*ResultState, error) {
	var state ResultState
	if _, err := c.call(ctx, "result/calculate", setup, &state); err != nil {
		return nil, err
	}
	if state.Error != "" {
		return &state, fmt.Errorf("%w: %s", ErrCalculationFailed, state.Error)
	}
	return &state, nil
}

// State returns the state of a scheduled result.
func (c *Client) State(ctx context.Context, resultID string) (*ResultState, error) {
	var state ResultState
	if _, err := c.call(ctx, "result/state", Ref{ID: resultID}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// WaitUntilReady polls the result state until it is ready, failed, or ctx
// is done.
func (c *Client) WaitUntilReady(ctx context.Context, resultID string) (*ResultState, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		state, err := c.State(ctx, resultID)
		if err != nil {
			return nil, err
		}
		if state.Error != "" {
			return state, fmt.Errorf("%w: %s", ErrCalculationFailed, state.Error)
		}
		if state.IsReady {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return state, fmt.Errorf("waiting for result %s: %w", resultID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// TotalImpacts returns the total impact values of a ready result.
func (c *Client) TotalImpacts(ctx context.Context, resultID string) ([]ImpactValue, error) {
	var values []ImpactValue
	if _, err := c.call(ctx, "result/total-impacts", Ref{ID: resultID}, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// Dispose releases a result on the server.
func (c *Client) Dispose(ctx context.Context, resultID string) error {
	_, err := c.call(ctx, "result/dispose", Ref{ID: resultID}, nil)
	return err
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetDescriptors(ctx, TypeImpactMethod)
	return err
}
