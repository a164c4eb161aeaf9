package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cogneo-edge-router/internal/metrics"
	"cogneo-edge-router/internal/route"
)

// Config holds forwarder settings. The zero value gets sane defaults.
type Config struct {
	// UpstreamTimeout bounds each single upstream call, independent of the
	// client-facing request timeout carried by the parent context.
	UpstreamTimeout time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int

	// HTTPClient replaces the default pooled client (tests, special
	// transports).
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 30 * time.Second
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = 100
	}
	return c
}

// Response is a successful (2xx) upstream reply.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Forwarder performs the asynchronous upstream calls of the router on one
// process-wide connection-reusing HTTP client, safe for any number of
// concurrent requests.
type Forwarder struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewForwarder creates a forwarder with a pooled transport.
func NewForwarder(cfg Config, logger *zap.Logger) *Forwarder {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: defaultTransport(cfg),
		}
	}

	return &Forwarder{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("proxy"),
	}
}

func defaultTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Forward issues one HTTP call to the resolved upstream: method and path
// against decision.UpstreamBase, Basic auth from decision.Credentials when
// present, body passed through untouched. It enforces the upstream timeout
// under the parent context, so cancellation of the client-facing request
// propagates to the in-flight call.
//
// Failures come back as *Error: timeout, connection failure, or a non-2xx
// upstream status. Nothing is retried.
func (f *Forwarder) Forward(parentCtx context.Context, decision route.Decision, method, path string, header http.Header, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(parentCtx, f.cfg.UpstreamTimeout)
	defer cancel()

	url := strings.TrimRight(decision.UpstreamBase, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Reason: ReasonConnection, Backend: decision.Backend, Err: err}
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if decision.Credentials != nil {
		req.SetBasicAuth(decision.Credentials.User, decision.Credentials.Pass)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		perr := f.classify(decision.Backend, err)
		metrics.UpstreamLatencySeconds.
			WithLabelValues(string(decision.Backend), string(perr.Reason)).
			Observe(duration.Seconds())
		f.logger.Warn("upstream call failed",
			zap.String("backend", string(decision.Backend)),
			zap.String("url", url),
			zap.String("reason", string(perr.Reason)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, perr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		perr := f.classify(decision.Backend, err)
		metrics.UpstreamLatencySeconds.
			WithLabelValues(string(decision.Backend), string(perr.Reason)).
			Observe(duration.Seconds())
		return nil, perr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.UpstreamLatencySeconds.
			WithLabelValues(string(decision.Backend), string(ReasonUpstreamStatus)).
			Observe(duration.Seconds())
		f.logger.Warn("upstream rejected request",
			zap.String("backend", string(decision.Backend)),
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", duration),
		)
		return nil, &Error{
			Reason:  ReasonUpstreamStatus,
			Backend: decision.Backend,
			Status:  resp.StatusCode,
		}
	}

	metrics.UpstreamLatencySeconds.
		WithLabelValues(string(decision.Backend), "ok").
		Observe(duration.Seconds())

	f.logger.Debug("upstream call completed",
		zap.String("backend", string(decision.Backend)),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}

// classify maps a transport error to a reason code. A deadline hit inside
// the upstream budget and a cancelled parent both count as timeout;
// everything else is a connection failure.
func (f *Forwarder) classify(backend route.Backend, err error) *Error {
	reason := ReasonConnection
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		reason = ReasonTimeout
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			reason = ReasonTimeout
		}
	}
	return &Error{Reason: reason, Backend: backend, Err: err}
}

// Close releases idle connections held by the shared client.
func (f *Forwarder) Close() error {
	f.httpClient.CloseIdleConnections()
	return nil
}
