package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fekuna/omnipos-pos-sync/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Config struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the backoff randomization factor. Zero keeps delays exact.
	Jitter float64
}

// Client talks to the POS cloud API with a per-call bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cfg        Config
	logger     logger.ZapLogger
	onRetry    func()
}

func NewClient(cfg Config, log logger.ZapLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 4 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg:    cfg,
		logger: log,
	}
}

// OnRetry registers a hook called before every retried request.
func (c *Client) OnRetry(fn func()) {
	c.onRetry = fn
}

type PageRequest struct {
	Limit  int
	Offset int
	Params url.Values
}

type Page struct {
	Records       []json.RawMessage
	Offset        int
	MoreAvailable bool
}

// FetchPage requests one page of a collection. Transient failures are
// retried with exponential backoff before an error is returned.
func (c *Client) FetchPage(ctx context.Context, token, path string, req PageRequest) (*Page, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("page size must be positive, got %d", req.Limit)
	}

	params := url.Values{}
	for k, v := range req.Params {
		params[k] = append([]string(nil), v...)
	}
	params.Set("limit", strconv.Itoa(req.Limit))
	params.Set("offset", strconv.Itoa(req.Offset))

	body, err := c.getWithRetry(ctx, token, path, params)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Page{
		Records:       records,
		Offset:        req.Offset,
		MoreAvailable: len(records) >= req.Limit,
	}, nil
}

// GetMerchant reads the remote merchant profile.
func (c *Client) GetMerchant(ctx context.Context, token, merchantID string) (*Merchant, error) {
	body, err := c.getWithRetry(ctx, token, merchantPath(merchantID), nil)
	if err != nil {
		return nil, err
	}
	var m Merchant
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decode merchant: %w", err)
	}
	return &m, nil
}

func (c *Client) getWithRetry(ctx context.Context, token, path string, params url.Values) ([]byte, error) {
	op := func() ([]byte, error) {
		body, err := c.get(ctx, token, path, params)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		var se *StatusError
		if errors.As(err, &se) {
			if !se.Temporary() {
				return nil, backoff.Permanent(err)
			}
			if se.RetryAfter > 0 && se.RetryAfter <= c.cfg.MaxDelay {
				return nil, backoff.RetryAfter(int(se.RetryAfter / time.Second))
			}
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseDelay
	b.Multiplier = 2
	b.MaxInterval = c.cfg.MaxDelay
	b.RandomizationFactor = c.cfg.Jitter

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("remote request failed, retrying",
				zap.String("path", path),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
			if c.onRetry != nil {
				c.onRetry()
			}
		}),
	)
}

func (c *Client) get(ctx context.Context, token, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body), 256)}
		if ra, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && ra > 0 {
			se.RetryAfter = time.Duration(ra) * time.Second
		}
		return nil, se
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
