package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL points at a locally running backend.
const DefaultBaseURL = "http://localhost:5000/api"

// Timeouts bounds the copilot call classes. Dataset calls use the client's
// http timeout instead.
type Timeouts struct {
	Health  time.Duration
	Context time.Duration
	Chat    time.Duration
}

// DefaultTimeouts mirrors the bounds the dashboard has always used.
func DefaultTimeouts() Timeouts {
	return Timeouts{Health: 3 * time.Second, Context: 3 * time.Second, Chat: 10 * time.Second}
}

type Client struct {
	httpClient       *http.Client
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	timeouts         Timeouts
	logger           *slog.Logger
}

// NewClient allows customizing HTTP timeout and retry/backoff behavior.
func NewClient(baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &Client{
		httpClient:       &http.Client{Timeout: httpTimeout},
		baseURL:          strings.TrimRight(baseURL, "/"),
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
		timeouts:         DefaultTimeouts(),
		logger:           slog.New(slog.DiscardHandler),
	}
}

// WithTimeouts replaces the copilot call bounds. Zero fields keep the defaults.
func (c *Client) WithTimeouts(t Timeouts) *Client {
	if t.Health > 0 {
		c.timeouts.Health = t.Health
	}
	if t.Context > 0 {
		c.timeouts.Context = t.Context
	}
	if t.Chat > 0 {
		c.timeouts.Chat = t.Chat
	}
	return c
}

// WithLogger sets the logger used for retries and failures.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Timeouts() Timeouts { return c.timeouts }

// Info fetches dataset shape, columns, missing counts and dtypes.
func (c *Client) Info(ctx context.Context) (*DatasetInfo, error) {
	var out DatasetInfo
	if err := c.getJSON(ctx, "/info", nil, &out, c.retryMaxAttempts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	if err := c.getJSON(ctx, "/summary", nil, &out, c.retryMaxAttempts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Correlation(ctx context.Context) (CorrelationMatrix, error) {
	var out CorrelationMatrix
	if err := c.getJSON(ctx, "/correlation", nil, &out, c.retryMaxAttempts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SurvivalRates(ctx context.Context) (*SurvivalRates, error) {
	var out SurvivalRates
	if err := c.getJSON(ctx, "/survival_rates", nil, &out, c.retryMaxAttempts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Page fetches one page of passenger records (1-based page index).
func (c *Client) Page(ctx context.Context, page, perPage int) (*DataPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	var out DataPage
	if err := c.getJSON(ctx, "/data", q, &out, c.retryMaxAttempts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var out struct {
		TotalRecords int `json:"total_records"`
	}
	if err := c.getJSON(ctx, "/data/count", nil, &out, c.retryMaxAttempts); err != nil {
		return 0, err
	}
	return out.TotalRecords, nil
}

func (c *Client) Regression(ctx context.Context) (*RegressionResult, error) {
	var out RegressionResult
	if err := c.getJSON(ctx, "/regression/survival", nil, &out, c.retryMaxAttempts); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FeatureAnalysis(ctx context.Context) (FeatureAnalysis, error) {
	var out FeatureAnalysis
	if err := c.getJSON(ctx, "/regression/feature_analysis", nil, &out, c.retryMaxAttempts); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping hits the plain backend health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Health)
	defer cancel()
	var out map[string]any
	return c.getJSON(ctx, "/health", nil, &out, 1)
}

// Health reports the conversational backend status. Single attempt, short bound.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Health)
	defer cancel()
	var out Health
	if err := c.getJSON(ctx, "/copilot/health", nil, &out, 1); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetContext(ctx context.Context, view string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Context)
	defer cancel()
	var out map[string]any
	return c.do(ctx, http.MethodPost, "/copilot/set-context", nil, map[string]string{"context": view}, &out, 1)
}

func (c *Client) QuickActions(ctx context.Context, view string) ([]QuickAction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Context)
	defer cancel()
	q := url.Values{}
	q.Set("context", view)
	var out struct {
		Actions []QuickAction `json:"actions"`
	}
	if err := c.getJSON(ctx, "/copilot/quick-actions", q, &out, 1); err != nil {
		return nil, err
	}
	return out.Actions, nil
}

// Chat posts a question and returns the raw reply body. Parsing the reply is
// left to the caller since its shape varies.
func (c *Client) Chat(ctx context.Context, question, view string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Chat)
	defer cancel()
	var out json.RawMessage
	body := map[string]string{"question": question, "context": view}
	if err := c.do(ctx, http.MethodPost, "/copilot/chat", nil, body, &out, 1); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Tour(ctx context.Context, kind string) ([]TourStep, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Context)
	defer cancel()
	q := url.Values{}
	q.Set("type", kind)
	var out struct {
		Tour struct {
			Steps []TourStep `json:"steps"`
		} `json:"tour"`
	}
	if err := c.getJSON(ctx, "/copilot/tour", q, &out, 1); err != nil {
		return nil, err
	}
	if len(out.Tour.Steps) == 0 {
		return nil, &DecodeError{Path: "/copilot/tour", Err: errors.New("tour has no steps")}
	}
	return out.Tour.Steps, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any, attempts int) error {
	return c.do(ctx, http.MethodGet, path, q, nil, out, attempts)
}

// do performs a request with retry on 429/5xx and transient network errors,
// decoding a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any, out any, maxAttempts int) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	backoff := c.retryBaseDelay
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return lastErr
			}
			return ctx.Err()
		}
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if isRetryableNetErr(err) && attempt < maxAttempts {
				lastErr = err
				c.logger.Debug("retrying request", "path", path, "attempt", attempt, "err", err)
				sleepCtx(ctx, c.capDelay(withJitter(backoff)))
				backoff *= 2
				continue
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%s %s: %w", method, path, ctx.Err())
			}
			return &UnreachableError{Host: req.URL.Host, Err: err}
		}

		var retry time.Duration
		retry, lastErr = c.readResponse(resp, path, out)
		if lastErr == nil {
			return nil
		}
		if retry < 0 || attempt >= maxAttempts {
			break
		}
		c.logger.Debug("retrying request", "path", path, "attempt", attempt, "err", lastErr)
		if retry == 0 {
			retry = c.capDelay(withJitter(backoff))
			backoff *= 2
		}
		sleepCtx(ctx, retry)
	}
	return lastErr
}

// readResponse decodes resp into out. The duration is negative when
// the error is final, zero when a default backoff applies, and positive when
// the server asked for a specific wait.
func (c *Client) readResponse(resp *http.Response, path string, out any) (time.Duration, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: path, RequestID: extractRequestID(resp)}
		var raw map[string]any
		if json.Unmarshal(body, &raw) == nil {
			apiErr.Raw = raw
			switch v := raw["error"].(type) {
			case string:
				apiErr.Message = v
			case map[string]any:
				if msg, ok := v["message"].(string); ok {
					apiErr.Message = msg
				}
				if code, ok := v["code"].(string); ok {
					apiErr.Code = code
				}
			}
			if apiErr.Message == "" {
				if msg, ok := raw["message"].(string); ok {
					apiErr.Message = msg
				}
			}
		}
		typed := classifyAPIError(apiErr)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
					wait := time.Duration(secs) * time.Second
					if rl, ok := typed.(*RateLimitError); ok {
						rl.RetryAfter = wait
					}
					return c.capDelay(wait), typed
				}
			}
			return 0, typed
		}
		return -1, typed
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return -1, &DecodeError{Path: path, Err: err}
	}
	return 0, nil
}

func (c *Client) capDelay(d time.Duration) time.Duration {
	if c.retryMaxDelay > 0 && d > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

// parseRetryAfterSeconds tries to interpret Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "X-Correlation-Id", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
