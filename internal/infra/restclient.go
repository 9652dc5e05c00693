package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const restMaxAttempts = 3

// RESTClient is a JSON HTTP client shared by the exchange adapters:
// rate-limited, browser-like headers, and a short exponential retry for
// transient failures. Exchange endpoints are untrusted boundaries; the
// caller always gets a decoded value or an error, never a partial read.
type RESTClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *Metrics
}

// NewRESTClient creates a client capped at rps requests per second.
func NewRESTClient(rps float64, metrics *Metrics) *RESTClient {
	if rps <= 0 {
		rps = 5
	}
	return &RESTClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		metrics: metrics,
	}
}

// GetJSON fetches url and decodes the response body into out.
func (c *RESTClient) GetJSON(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, http.MethodGet, url, nil, out)
}

// PostJSON sends body as JSON to url and decodes the response into out.
func (c *RESTClient) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.doWithRetry(ctx, http.MethodPost, url, payload, out)
}

func (c *RESTClient) doWithRetry(ctx context.Context, method, url string, payload []byte, out any) error {
	var lastErr error
	for i := 0; i < restMaxAttempts; i++ {
		if i > 0 {
			// Exponential backoff: 1s, 2s
			delay := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.do(ctx, method, url, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if c.metrics != nil {
			c.metrics.RecordRESTError()
		}
		slog.Debug("REST attempt failed",
			slog.String("url", url),
			slog.Int("attempt", i+1),
			slog.Any("error", err),
		)
	}
	return lastErr
}

func (c *RESTClient) do(ctx context.Context, method, url string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordRESTRequest()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
