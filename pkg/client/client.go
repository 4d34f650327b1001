// Package client talks to the media library over HTTP. Calls are POSTed as
// an XML argument document and answered with JSON.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metrics"
	"github.com/fruitsalade/silosync/pkg/protocol"
	"github.com/fruitsalade/silosync/pkg/retry"
)

// DefaultPageSize is used for paged listings when Config.PageSize is unset.
const DefaultPageSize = 50

// maxBodySize bounds how much of a reply is read.
const maxBodySize = 32 << 20

// Client issues remote method calls.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	limiter     *rate.Limiter
	pageSize    int
	logger      *zap.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	// RequestsPerSecond throttles calls; 0 disables throttling.
	RequestsPerSecond  float64
	Burst              int
	InsecureSkipVerify bool
	PageSize           int
	Logger             *zap.Logger
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	logger := logging.OrNop(cfg.Logger).Named("client")

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg.InsecureSkipVerify {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed test hosts
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &loggingTransport{next: base, logger: logger},
		},
		retryConfig: cfg.RetryConfig,
		limiter:     limiter,
		pageSize:    cfg.PageSize,
		logger:      logger,
	}
}

// PageSize returns the page size sent with paged listings.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Call sends req and decodes the reply. The session key is added for every
// method except User.Login. A reply with a failure status is returned as a
// RemoteCall error together with the decoded response.
func (c *Client) Call(ctx context.Context, session string, req *protocol.Request) (*protocol.Response, error) {
	m := req.Method
	if !m.Valid() {
		return nil, faults.Validationf("call", "unknown remote method %d", int(m))
	}
	wire := &protocol.Request{Method: m, Params: append([]protocol.Param(nil), req.Params...)}
	if m.AddsSession() {
		if session == "" {
			return nil, faults.Validationf(m.String(), "no session; log in first")
		}
		wire.SetAlways("session", session)
	}
	body, err := wire.EncodeXML()
	if err != nil {
		return nil, faults.Validationf(m.String(), "encode request: %v", err)
	}

	cfg := c.retryConfig
	if !m.Idempotent() {
		// A resent create could duplicate the object.
		cfg = retry.Disabled()
	}
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.RecordRetry(m.String())
		c.logger.Warn("retrying remote call",
			logging.Method(m.String()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	start := time.Now()
	raw, err := retry.DoWithResult(ctx, cfg, func() ([]byte, error) {
		return c.post(ctx, wire.Query(), body)
	})
	if err != nil {
		metrics.RecordRemoteCall(m.String(), false, time.Since(start))
		return nil, faults.Transportf(m.String(), err, "%s failed", m)
	}

	resp, err := protocol.Decode(m, raw)
	if err != nil {
		metrics.RecordRemoteCall(m.String(), false, time.Since(start))
		return nil, faults.Transportf(m.String(), err, "decode reply")
	}
	metrics.RecordRemoteCall(m.String(), resp.Success, time.Since(start))
	c.logger.Debug("remote call",
		logging.Method(m.String()),
		zap.Bool("success", resp.Success),
		zap.Duration("duration", time.Since(start)),
	)
	if !resp.Success {
		return resp, faults.Remote(m.String(), resp.Err())
	}
	return resp, nil
}

// post performs one HTTP round trip. Network failures and 5xx replies are
// retryable.
func (c *Client) post(ctx context.Context, query string, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+query, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Retryable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("read reply: %w", err))
	}
	if resp.StatusCode >= 500 {
		return nil, retry.Retryable(fmt.Errorf("server error: %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 && !looksLikeReply(data) {
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return data, nil
}

// looksLikeReply reports whether a 4xx body is still a decodable reply, so
// the remote's own error description reaches the caller.
func looksLikeReply(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '<')
}
