package soundcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"scbulk/internal/shared"
)

const (
	defaultBaseURL   = "https://api.soundcloud.com"
	defaultRetryWait = time.Second
	defaultMaxRetry  = 5
	maxBackoff       = 30 * time.Second
	maxErrorBody     = 200
)

// Client performs authenticated requests against the SoundCloud API.
//
// All retry bookkeeping is per-call; the client holds no mutable state between
// requests and is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	oauth          *oauth2.Config
	logger         *log.Logger
	limiter        *rate.Limiter
	maxRateRetries int
	retryWait      time.Duration
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	OAuth      *oauth2.Config
	Logger     *log.Logger
	// Limiter, when set, paces the follow-up page requests issued while
	// walking a paginated endpoint. The first request of a call is paced by
	// the caller.
	Limiter        *rate.Limiter
	MaxRateRetries int
	RetryWait      time.Duration
}

// NewClient creates a Client with the given options, applying defaults for
// anything unset.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.MaxRateRetries <= 0 {
		opts.MaxRateRetries = defaultMaxRetry
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}

	return &Client{
		baseURL:        opts.BaseURL,
		httpClient:     opts.HTTPClient,
		oauth:          opts.OAuth,
		logger:         opts.Logger,
		limiter:        opts.Limiter,
		maxRateRetries: opts.MaxRateRetries,
		retryWait:      opts.RetryWait,
	}
}

// pace blocks until the limiter grants the next call or ctx is done. A client
// without a limiter does not pace.
func (c *Client) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Request performs one logical upstream call.
//
// A 401 triggers exactly one token refresh and one retry of the original
// request; a 429 is retried after the server-supplied delay (default 1s) with
// exponential backoff and jitter, up to the configured cap. The decoded JSON
// body is written into result when it is non-nil.
func (c *Client) Request(ctx context.Context, cred *Credential, method, path string, query url.Values, body, result any) error {
	if cred == nil || cred.AccessToken == "" {
		return fmt.Errorf("%w: no access token", shared.ErrNotAuthenticated)
	}
	return c.do(ctx, cred, method, path, query, body, result, 0, false)
}

func (c *Client) do(ctx context.Context, cred *Credential, method, path string, query url.Values, body, result any, rateAttempt int, refreshed bool) error {
	apiURL := c.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		if refreshed {
			return &AuthError{Err: fmt.Errorf("%w: retried request still unauthorized", shared.ErrTokenExpired)}
		}
		if err := c.refresh(ctx, cred); err != nil {
			return &AuthError{Err: err}
		}
		c.logger.Debug("token refreshed, retrying request", "path", path)
		return c.do(ctx, cred, method, path, query, body, result, rateAttempt, true)

	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		wait := retryAfter(resp, c.retryWait)
		if rateAttempt >= c.maxRateRetries {
			return &RateLimitError{Attempts: rateAttempt, RetryAfter: wait}
		}
		delay := backoff(wait, rateAttempt)
		c.logger.Debug("rate limited, backing off", "path", path, "attempt", rateAttempt+1, "delay", delay)
		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
		// The fresh attempt gets the auth-retry branch again.
		return c.do(ctx, cred, method, path, query, body, result, rateAttempt+1, false)

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UpstreamError{
			Status:  resp.StatusCode,
			Message: shared.Truncate(string(raw), maxErrorBody),
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}

	return nil
}

// refresh exchanges the credential's refresh token for a new pair and replaces
// the pair in-memory. Called at most once per logical request.
func (c *Client) refresh(ctx context.Context, cred *Credential) error {
	if c.oauth == nil {
		return shared.ErrRefreshFailed
	}
	if cred.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	cred.apply(tok)
	return nil
}

// retryAfter reads the Retry-After header in seconds, falling back to def.
func retryAfter(resp *http.Response, def time.Duration) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return def
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

// backoff scales the base wait exponentially by attempt and adds jitter of up
// to a quarter of the scaled wait. Exponential growth is capped at maxBackoff,
// but the delay never drops below base: a server-supplied Retry-After above
// the cap is still honored in full.
func backoff(base time.Duration, attempt int) time.Duration {
	delay := base << attempt
	if delay > maxBackoff {
		delay = maxBackoff
	}
	if delay < base {
		delay = base
	}
	jitter := time.Duration(rand.Int64N(int64(delay/4) + 1))
	return delay + jitter
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
