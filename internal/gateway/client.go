// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the gateway client.
type ClientError struct {
	Type    ErrorType
	Message string
	Status  int
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeRateLimited
	ErrTypeStatus
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Message: "gateway rejected credentials"}
	ErrRateLimited  = &ClientError{Type: ErrTypeRateLimited, Message: "gateway rate limit exceeded"}
)

// IsCanceled reports whether err resulted from cooperative cancellation
// rather than a transport or server failure.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the gateway client.
type ClientConfig struct {
	// BaseURL is the gateway base URL, without a trailing slash.
	BaseURL string

	// Token is the bearer token attached to every request.
	Token string

	// OrganizationID scopes every request to a tenant.
	OrganizationID string

	// TeamID optionally narrows the tenant scope.
	TeamID string

	// StreamTimeout bounds connection establishment, not the stream
	// itself (default: 10s).
	StreamTimeout time.Duration

	// SendsPerSecond throttles outbound stream openings (default: 2).
	SendsPerSecond float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://127.0.0.1:8080",
		StreamTimeout:  10 * time.Second,
		SendsPerSecond: 2,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client opens event streams against the chat gateway.
//
// The Client is thread-safe for concurrent use. It never retries: a
// failed stream is surfaced to the caller, who decides whether to
// resend.
type Client struct {
	mu         sync.RWMutex
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// withDefaults fills zero values in a client configuration.
func withDefaults(config *ClientConfig) *ClientConfig {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8080"
	}
	if config.StreamTimeout == 0 {
		config.StreamTimeout = 10 * time.Second
	}
	if config.SendsPerSecond == 0 {
		config.SendsPerSecond = 2
	}
	return config
}

// NewClient creates a gateway client, filling defaults for zero values.
func NewClient(config *ClientConfig) *Client {
	config = withDefaults(config)
	return &Client{
		config: config,
		// No overall timeout: streams stay open for as long as the
		// model generates. Connection establishment is bounded
		// separately via a context in openStream.
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(config.SendsPerSecond), 1),
	}
}

// Config returns the active configuration.
func (c *Client) Config() *ClientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// UpdateConfig swaps the active configuration so a config file reload
// takes effect without rebuilding the client. Streams already open keep
// the settings they were opened with.
func (c *Client) UpdateConfig(config *ClientConfig) {
	config = withDefaults(config)
	c.mu.Lock()
	defer c.mu.Unlock()
	if config.SendsPerSecond != c.config.SendsPerSecond {
		c.limiter.SetLimit(rate.Limit(config.SendsPerSecond))
	}
	c.config = config
}

// OpenChatStream sends a chat message and returns the live event stream.
// Tenant fields from the client configuration are filled in when the
// request leaves them empty.
func (c *Client) OpenChatStream(ctx context.Context, req ChatRequest) (*EventStream, error) {
	cfg := c.Config()
	if req.OrganizationID == "" {
		req.OrganizationID = cfg.OrganizationID
	}
	if req.TeamID == "" {
		req.TeamID = cfg.TeamID
	}
	req.Stream = true
	return c.openStream(ctx, cfg, "/api/chat/stream", req)
}

// OpenResumeStream resumes a stream paused on a tool approval with the
// caller's decision.
func (c *Client) OpenResumeStream(ctx context.Context, req ResumeRequest) (*EventStream, error) {
	cfg := c.Config()
	if req.OrganizationID == "" {
		req.OrganizationID = cfg.OrganizationID
	}
	if req.TeamID == "" {
		req.TeamID = cfg.TeamID
	}
	req.Stream = true
	return c.openStream(ctx, cfg, "/api/chat/resume", req)
}

// openStream POSTs the body and hands back an EventStream over the
// response. A non-2xx status fails here, before any event is delivered.
func (c *Client) openStream(ctx context.Context, cfg *ClientConfig, path string, body any) (*EventStream, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "encode request", Cause: err}
	}

	// Bound connection establishment without bounding the stream: the
	// timeout is released once headers arrive.
	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.StreamTimeout)
	defer cancelConnect()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if cfg.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := c.doWithConnectTimeout(connectCtx, httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "gateway connect timed out", Cause: err}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "gateway unreachable", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}

	return &EventStream{
		body:   resp.Body,
		frames: NewFrameReader(resp.Body),
	}, nil
}

// doWithConnectTimeout races the request against the connect deadline
// while keeping the response body bound to the request context only.
func (c *Client) doWithConnectTimeout(connectCtx context.Context, req *http.Request) (*http.Response, error) {
	type result struct {
		resp *http.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := c.httpClient.Do(req)
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-connectCtx.Done():
		// The in-flight request keeps the parent context, so it dies
		// with the caller; drain the channel result to avoid leaking
		// an open body.
		go func() {
			if r := <-ch; r.resp != nil {
				r.resp.Body.Close()
			}
		}()
		return nil, connectCtx.Err()
	}
}

// statusError builds the typed error for a non-2xx response, preferring
// the gateway's structured error body over the raw status.
func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	message := "gateway returned status " + strconv.Itoa(resp.StatusCode)
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.text() != "" {
		message = body.text()
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &ClientError{Type: ErrTypeUnauthorized, Message: message, Status: resp.StatusCode}
	case http.StatusTooManyRequests:
		return &ClientError{Type: ErrTypeRateLimited, Message: message, Status: resp.StatusCode}
	default:
		return &ClientError{Type: ErrTypeStatus, Message: message, Status: resp.StatusCode}
	}
}

// =============================================================================
// EVENT STREAM
// =============================================================================

// EventStream yields typed events from one open response body. It is
// owned by a single consumer goroutine; Close may be called from any
// goroutine to release the connection.
type EventStream struct {
	body   io.ReadCloser
	frames *FrameReader
	done   bool
}

// Recv returns the next decoded event. Frames that decode to nothing
// are skipped. After a DoneEvent, or once the underlying stream ends,
// Recv returns io.EOF.
func (s *EventStream) Recv(ctx context.Context) (Event, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		frame, err := s.frames.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				return nil, io.EOF
			}
			return nil, err
		}

		event, ok := Decode(frame)
		if !ok {
			continue
		}
		if event.Kind() == KindDone {
			s.done = true
		}
		return event, nil
	}
}

// Close releases the underlying connection. Safe to call more than once.
func (s *EventStream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}
